package weather

import (
	"context"
	"time"
)

// Fetcher abstracts the provider transport: one request for one sub-interval,
// returning the provider's per-day records for [start, end] inclusive in
// chronological order.
type Fetcher interface {
	Name() string
	FetchRange(ctx context.Context, city string, start, end time.Time, frequency int) ([]DayRecord, error)
}
