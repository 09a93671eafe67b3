package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/weatherhist/wwo-history/internal/logger"
	"github.com/weatherhist/wwo-history/internal/store"
	"github.com/weatherhist/wwo-history/internal/weather"
)

// fetcherStub serves one canned day per requested sub-interval and counts
// invocations.
type fetcherStub struct {
	invocations int
}

func (f *fetcherStub) Name() string { return "stub" }

func (f *fetcherStub) FetchRange(ctx context.Context, city string, start, end time.Time, frequency int) ([]weather.DayRecord, error) {
	f.invocations++
	return []weather.DayRecord{{
		Date: start.Format(weather.DateFormat),
		Hourly: []weather.HourlyRecord{
			{Time: "0", TempC: "5"},
			{Time: "1200", TempC: "9"},
		},
	}}, nil
}

func newTestApp(t *testing.T) (*fiber.App, *fetcherStub) {
	t.Helper()

	app := fiber.New()
	fetcher := &fetcherStub{}
	svc := weather.NewService(fetcher, store.NewMemoryStore(4), logger.New(logger.ErrorLevel))
	RegisterRoutes(app, svc, nil, 5*time.Second)
	return app, fetcher
}

// TestHistoryValidation verifies that malformed query input is rejected
// before any provider fetch happens.
func TestHistoryValidation(t *testing.T) {
	app, fetcher := newTestApp(t)

	urls := []string{
		"/api/v1/weather/history?start=2020-01-01&end=2020-02-01&frequency=3",             // missing city
		"/api/v1/weather/history?city=London&start=2020-01-01&end=2020-02-01",             // missing frequency
		"/api/v1/weather/history?city=London&start=2020-01-01&end=2020-02-01&frequency=2", // unsupported frequency
		"/api/v1/weather/history?city=London&start=2020-02-01&end=2020-01-01&frequency=3", // inverted range
		"/api/v1/weather/history?city=London&start=01/01/2020&end=2020-02-01&frequency=3", // bad date format
	}
	for _, u := range urls {
		req := httptest.NewRequest(http.MethodGet, u, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", u, http.StatusBadRequest, resp.StatusCode)
		}
	}

	if fetcher.invocations != 0 {
		t.Fatalf("fetcher invoked %d times for invalid requests", fetcher.invocations)
	}
}

func TestHistoryReturnsTable(t *testing.T) {
	app, fetcher := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/weather/history?city=London&start=2020-01-01&end=2020-03-15&frequency=3", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if fetcher.invocations != 3 {
		t.Fatalf("expected 3 sub-interval fetches, got %d", fetcher.invocations)
	}

	var table weather.HistoricalTable
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		t.Fatalf("response is not a table: %v", err)
	}
	if table.City != "London" || len(table.Rows) != 6 {
		t.Fatalf("got city %q with %d rows, want London with 6", table.City, len(table.Rows))
	}

	// The retrieved table is now served from the store.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/weather/history/latest?city=London", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestHistoryCSVFormat(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/weather/history?city=London&start=2020-01-01&end=2020-01-20&frequency=12&format=csv", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type %q, want text/csv", ct)
	}
}

func TestLatestUnknownCity(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/history/latest?city=Nowhere", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}
