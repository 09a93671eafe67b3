package weather

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation marks invalid retrieval input: non-chronological dates,
// unsupported frequency, malformed date strings. Raised before any network
// activity; wrapping errors add the specifics.
var ErrValidation = errors.New("invalid retrieval input")

// MalformedRecordError reports a provider day record that cannot be
// flattened: missing date or missing hourly sub-records.
type MalformedRecordError struct {
	Date   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Date == "" {
		return "malformed day record: " + e.Reason
	}
	return fmt.Sprintf("malformed day record for %s: %s", e.Date, e.Reason)
}

// FetchError reports a failed provider fetch, tagged with the bounds of the
// failing sub-interval so the caller can resume with a narrower range.
type FetchError struct {
	Start time.Time
	End   time.Time
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s to %s: %v",
		e.Start.Format(DateFormat), e.End.Format(DateFormat), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DuplicateTimestampError reports two rows sharing a timestamp after
// assembly. This indicates an upstream or flattening defect; the table is
// never returned with duplicate keys.
type DuplicateTimestampError struct {
	City      string
	Timestamp time.Time
}

func (e *DuplicateTimestampError) Error() string {
	return fmt.Sprintf("duplicate timestamp %s in table for %s",
		e.Timestamp.Format("2006-01-02 15:04"), e.City)
}
