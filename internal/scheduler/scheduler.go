package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/weatherhist/wwo-history/internal/export"
	"github.com/weatherhist/wwo-history/internal/logger"
	"github.com/weatherhist/wwo-history/internal/weather"
)

// Options configures the periodic extraction job.
type Options struct {
	Cities       []string
	Frequency    int
	HistoryDays  int
	CSVDir       string
	Interval     time.Duration
	FetchTimeout time.Duration
}

// Scheduler periodically re-extracts a trailing window of history for the
// configured cities and exports each table as CSV.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *weather.Service
	opts      Options
	log       *logger.Logger
}

// New creates a new Scheduler.
func New(service *weather.Service, log *logger.Logger, opts Options) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		opts:      opts,
		log:       log,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.opts.Cities) == 0 {
		s.log.Infow("scheduler: no cities configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.opts.Interval).Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// runOnce extracts every configured city. Cities run in parallel; retrievals
// for distinct cities share no state.
func (s *Scheduler) runOnce() {
	s.log.Infow("scheduler: running extraction job", "cities", len(s.opts.Cities))

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -s.opts.HistoryDays)
	r := weather.DateRange{Start: start, End: end}

	var wg sync.WaitGroup
	for _, city := range s.opts.Cities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.opts.FetchTimeout)
			defer cancel()

			table, err := s.service.Retrieve(ctx, city, r, s.opts.Frequency)
			if err != nil {
				s.log.Errorw("scheduler: extraction failed", "city", city, "err", err)
				return
			}

			path, err := export.ExportCSV(s.opts.CSVDir, table)
			if err != nil {
				s.log.Errorw("scheduler: export failed", "city", city, "err", err)
				return
			}
			s.log.Infow("scheduler: export complete", "city", city, "rows", len(table.Rows), "path", path)
		}()
	}
	wg.Wait()

	s.log.Infow("scheduler: completed extraction job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
