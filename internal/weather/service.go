package weather

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/weatherhist/wwo-history/internal/logger"
)

// Service orchestrates the retrieval pipeline: partition the requested range,
// fetch each sub-interval through the provider transport, flatten every day
// record, and assemble one sorted table per city.
type Service struct {
	fetcher Fetcher
	store   Store
	log     *logger.Logger
}

// NewService creates a new Service. The store may be nil when callers only
// want the returned table.
func NewService(fetcher Fetcher, store Store, log *logger.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		store:   store,
		log:     log,
	}
}

// Retrieve extracts the historical weather table for one city over the given
// range at the given sampling frequency.
//
// Sub-intervals are fetched strictly sequentially in ascending order; output
// row order depends on that. Failure is all-or-nothing: any fetch or
// flattening error aborts the call with no partial table, and fetch errors
// carry the failing sub-interval's bounds so the caller can resume with a
// narrower range. Concurrent Retrieve calls for different cities are
// independent and safe.
func (s *Service) Retrieve(ctx context.Context, city string, r DateRange, frequency int) (*HistoricalTable, error) {
	if strings.TrimSpace(city) == "" {
		return nil, fmt.Errorf("%w: city must not be empty", ErrValidation)
	}
	if !ValidFrequency(frequency) {
		return nil, fmt.Errorf("%w: frequency %d hours, must be one of 1, 3, 6, 12", ErrValidation, frequency)
	}

	subs, err := Partition(r.Start, r.End)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	var rows []ObservationRow
	for _, sub := range subs {
		s.log.Infow("retrieving sub-interval",
			"city", city,
			"start", sub.Start.Format(DateFormat),
			"end", sub.End.Format(DateFormat),
		)

		days, err := s.fetcher.FetchRange(ctx, city, sub.Start, sub.End, frequency)
		if err != nil {
			return nil, &FetchError{Start: sub.Start, End: sub.End, Err: err}
		}

		for _, d := range days {
			dayRows, err := FlattenDay(d)
			if err != nil {
				return nil, err
			}
			rows = append(rows, dayRows...)
		}
	}

	for i := range rows {
		rows[i].City = city
	}

	seen := make(map[time.Time]struct{}, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.Timestamp]; dup {
			return nil, &DuplicateTimestampError{City: city, Timestamp: row.Timestamp}
		}
		seen[row.Timestamp] = struct{}{}
	}

	// Already ascending given sequential construction; sorting is the
	// documented contract, not an optimization.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	table := &HistoricalTable{City: city, Rows: rows}
	if s.store != nil {
		s.store.SaveTable(table)
	}

	s.log.Infow("retrieval complete",
		"city", city,
		"rows", len(rows),
		"sub_intervals", len(subs),
		"elapsed", time.Since(started),
	)
	return table, nil
}

// Latest returns the most recently retrieved table for a city from the store.
func (s *Service) Latest(city string) (*HistoricalTable, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no table store configured")
	}
	return s.store.Latest(city)
}
