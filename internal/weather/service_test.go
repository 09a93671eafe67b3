package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/weatherhist/wwo-history/internal/logger"
)

// ---- Test doubles ----

type fetchCall struct {
	city       string
	start, end time.Time
	frequency  int
}

// stubFetcher records every call and serves canned day records: one for the
// sub-interval start date and one for its end date.
type stubFetcher struct {
	calls   []fetchCall
	failOn  int // 0-based call index to fail on, -1 for never
	failErr error
	days    func(start, end time.Time) []DayRecord
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{failOn: -1}
}

func (f *stubFetcher) Name() string { return "stub" }

func (f *stubFetcher) FetchRange(ctx context.Context, city string, start, end time.Time, frequency int) ([]DayRecord, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, fetchCall{city: city, start: start, end: end, frequency: frequency})
	if idx == f.failOn {
		return nil, f.failErr
	}
	if f.days != nil {
		return f.days(start, end), nil
	}
	return []DayRecord{dayAt(start), dayAt(end)}, nil
}

func dayAt(d time.Time) DayRecord {
	return DayRecord{
		Date: d.Format(DateFormat),
		Hourly: []HourlyRecord{
			{Time: "0", TempC: "5"},
			{Time: "1200", TempC: "9"},
		},
	}
}

type storeSpy struct {
	saved []*HistoricalTable
}

func (s *storeSpy) SaveTable(table *HistoricalTable) { s.saved = append(s.saved, table) }
func (s *storeSpy) Latest(city string) (*HistoricalTable, error) {
	if len(s.saved) == 0 {
		return nil, errors.New("empty")
	}
	return s.saved[len(s.saved)-1], nil
}

func testService(f Fetcher, st Store) *Service {
	return NewService(f, st, logger.New(logger.ErrorLevel))
}

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := NewDateRange(start, end)
	if err != nil {
		t.Fatalf("bad test range %s..%s: %v", start, end, err)
	}
	return r
}

// ---- Tests ----

func TestRetrieve_FetchesEachSubIntervalInOrder(t *testing.T) {
	fetcher := newStubFetcher()
	svc := testService(fetcher, nil)

	table, err := svc.Retrieve(context.Background(), "London", mustRange(t, "2020-01-01", "2020-03-15"), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantCalls := []fetchCall{
		{city: "London", start: date(t, "2020-01-01"), end: date(t, "2020-01-31"), frequency: 3},
		{city: "London", start: date(t, "2020-02-01"), end: date(t, "2020-02-29"), frequency: 3},
		{city: "London", start: date(t, "2020-03-01"), end: date(t, "2020-03-15"), frequency: 3},
	}
	if len(fetcher.calls) != len(wantCalls) {
		t.Fatalf("got %d fetch calls, want %d", len(fetcher.calls), len(wantCalls))
	}
	for i, want := range wantCalls {
		got := fetcher.calls[i]
		if got.city != want.city || !got.start.Equal(want.start) || !got.end.Equal(want.end) || got.frequency != want.frequency {
			t.Fatalf("call %d: got %+v, want %+v", i, got, want)
		}
	}

	if len(table.Rows) == 0 {
		t.Fatal("expected rows in the table")
	}
	first := table.Rows[0].Timestamp
	if want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC); !first.Equal(want) {
		t.Fatalf("first timestamp %s, want %s", first, want)
	}
	last := table.Rows[len(table.Rows)-1].Timestamp
	if last.Before(date(t, "2020-03-15")) || !last.Before(date(t, "2020-03-16")) {
		t.Fatalf("last timestamp %s, want within 2020-03-15", last)
	}
	for _, row := range table.Rows {
		if row.City != "London" {
			t.Fatalf("row at %s tagged %q, want London", row.Timestamp, row.City)
		}
	}
}

func TestRetrieve_SortedStrictlyAscending(t *testing.T) {
	svc := testService(newStubFetcher(), nil)

	table, err := svc.Retrieve(context.Background(), "Paris", mustRange(t, "2019-11-20", "2020-02-05"), 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(table.Rows); i++ {
		if !table.Rows[i-1].Timestamp.Before(table.Rows[i].Timestamp) {
			t.Fatalf("rows %d and %d not strictly ascending: %s then %s", i-1, i,
				table.Rows[i-1].Timestamp, table.Rows[i].Timestamp)
		}
	}
}

func TestRetrieve_InvalidFrequencyBeforeAnyFetch(t *testing.T) {
	fetcher := newStubFetcher()
	svc := testService(fetcher, nil)

	_, err := svc.Retrieve(context.Background(), "London", mustRange(t, "2020-01-01", "2020-02-01"), 2)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if len(fetcher.calls) != 0 {
		t.Fatalf("fetcher was invoked %d times for invalid frequency", len(fetcher.calls))
	}
}

func TestRetrieve_EmptyCity(t *testing.T) {
	fetcher := newStubFetcher()
	svc := testService(fetcher, nil)

	_, err := svc.Retrieve(context.Background(), "  ", mustRange(t, "2020-01-01", "2020-02-01"), 1)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if len(fetcher.calls) != 0 {
		t.Fatalf("fetcher was invoked %d times for empty city", len(fetcher.calls))
	}
}

func TestRetrieve_FetchFailureTaggedWithSubInterval(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.failOn = 1
	fetcher.failErr = errors.New("connection refused")
	svc := testService(fetcher, nil)

	table, err := svc.Retrieve(context.Background(), "London", mustRange(t, "2020-01-01", "2020-03-15"), 3)
	if table != nil {
		t.Fatal("expected no partial table on fetch failure")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("got %v, want FetchError", err)
	}
	if !fetchErr.Start.Equal(date(t, "2020-02-01")) || !fetchErr.End.Equal(date(t, "2020-02-29")) {
		t.Fatalf("error tagged [%s, %s], want the failing sub-interval [2020-02-01, 2020-02-29]",
			fetchErr.Start.Format(DateFormat), fetchErr.End.Format(DateFormat))
	}
	if !errors.Is(err, fetcher.failErr) {
		t.Fatalf("transport cause not preserved: %v", err)
	}
}

func TestRetrieve_MalformedDayAborts(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.days = func(start, end time.Time) []DayRecord {
		return []DayRecord{dayAt(start), {Date: end.Format(DateFormat)}} // second day has no hourly block
	}
	svc := testService(fetcher, nil)

	table, err := svc.Retrieve(context.Background(), "London", mustRange(t, "2020-01-01", "2020-01-20"), 6)
	if table != nil {
		t.Fatal("expected no partial table on malformed record")
	}
	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("got %v, want MalformedRecordError", err)
	}
	if malformed.Date != "2020-01-20" {
		t.Fatalf("error names date %q, want 2020-01-20", malformed.Date)
	}
}

func TestRetrieve_DuplicateTimestampsRejected(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.days = func(start, end time.Time) []DayRecord {
		// Provider misbehaves and repeats the same day.
		return []DayRecord{dayAt(start), dayAt(start)}
	}
	svc := testService(fetcher, nil)

	table, err := svc.Retrieve(context.Background(), "London", mustRange(t, "2020-01-01", "2020-01-10"), 12)
	if table != nil {
		t.Fatal("expected no table with duplicate timestamps")
	}
	var dup *DuplicateTimestampError
	if !errors.As(err, &dup) {
		t.Fatalf("got %v, want DuplicateTimestampError", err)
	}
}

func TestRetrieve_SavesTableToStore(t *testing.T) {
	spy := &storeSpy{}
	svc := testService(newStubFetcher(), spy)

	table, err := svc.Retrieve(context.Background(), "Berlin", mustRange(t, "2020-05-02", "2020-05-20"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spy.saved) != 1 || spy.saved[0] != table {
		t.Fatalf("expected the returned table to be saved once, got %d saves", len(spy.saved))
	}
}
