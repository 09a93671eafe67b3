package weather

import (
	"fmt"
	"time"
)

// DateFormat is the calendar-date layout used by the provider and by all
// user-facing date parameters.
const DateFormat = "2006-01-02"

// ValidFrequencies lists the sampling intervals (hours between hourly
// sub-records) accepted by the provider.
var ValidFrequencies = []int{1, 3, 6, 12}

// ValidFrequency reports whether f is an accepted sampling interval.
func ValidFrequency(f int) bool {
	for _, v := range ValidFrequencies {
		if f == v {
			return true
		}
	}
	return false
}

// DataColumns is the fixed, ordered set of value columns carried by every
// flattened row, after the timestamp. Rows never grow columns outside this
// set, regardless of what the provider returns.
var DataColumns = []string{
	"maxtempC", "mintempC", "totalSnow_cm", "sunHour", "uvIndex",
	"moon_illumination", "moonrise", "moonset", "sunrise", "sunset",
	"DewPointC", "FeelsLikeC", "HeatIndexC", "WindChillC", "WindGustKmph",
	"cloudcover", "humidity", "precipMM", "pressure", "tempC", "visibility",
	"winddirDegree", "windspeedKmph",
}

// DateRange is a user-requested extraction interval. Start strictly precedes
// End; both are calendar dates at midnight UTC.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange parses and validates a date range from YYYY-MM-DD strings.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := time.ParseInLocation(DateFormat, start, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: invalid start date %q, expected YYYY-MM-DD", ErrValidation, start)
	}
	e, err := time.ParseInLocation(DateFormat, end, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: invalid end date %q, expected YYYY-MM-DD", ErrValidation, end)
	}
	if !s.Before(e) {
		return DateRange{}, fmt.Errorf("%w: start date %s must precede end date %s", ErrValidation, start, end)
	}
	return DateRange{Start: s, End: e}, nil
}

// SubInterval is a month-aligned slice of a DateRange, sized to match one
// provider request. Both bounds are inclusive.
type SubInterval struct {
	Start time.Time
	End   time.Time
}

// AstronomyRecord is the provider's day-granularity astronomy block. Values
// are constant across the day and broadcast to every flattened row.
type AstronomyRecord struct {
	MoonIllumination string `json:"moon_illumination"`
	Moonrise         string `json:"moonrise"`
	Moonset          string `json:"moonset"`
	Sunrise          string `json:"sunrise"`
	Sunset           string `json:"sunset"`
}

// HourlyRecord is one sampled hour within a DayRecord. The provider encodes
// every value as a string; absent fields decode as "".
type HourlyRecord struct {
	Time          string `json:"time"`
	DewPointC     string `json:"DewPointC"`
	FeelsLikeC    string `json:"FeelsLikeC"`
	HeatIndexC    string `json:"HeatIndexC"`
	WindChillC    string `json:"WindChillC"`
	WindGustKmph  string `json:"WindGustKmph"`
	Cloudcover    string `json:"cloudcover"`
	Humidity      string `json:"humidity"`
	PrecipMM      string `json:"precipMM"`
	Pressure      string `json:"pressure"`
	TempC         string `json:"tempC"`
	UVIndex       string `json:"uvIndex"`
	Visibility    string `json:"visibility"`
	WinddirDegree string `json:"winddirDegree"`
	WindspeedKmph string `json:"windspeedKmph"`
}

// DayRecord is the provider's per-day payload: daily scalar fields, a
// single-element astronomy block, and one hourly sub-record per sampled hour.
type DayRecord struct {
	Date        string            `json:"date"`
	MaxTempC    string            `json:"maxtempC"`
	MinTempC    string            `json:"mintempC"`
	TotalSnowCM string            `json:"totalSnow_cm"`
	SunHour     string            `json:"sunHour"`
	UVIndex     string            `json:"uvIndex"`
	Astronomy   []AstronomyRecord `json:"astronomy"`
	Hourly      []HourlyRecord    `json:"hourly"`
}

// ObservationRow is one flattened observation: the day's scalar and astronomy
// fields combined with one hour's weather fields, keyed by a single timestamp.
// Values holds only columns from DataColumns; a missing key means the value
// was absent upstream and had no preceding row to fill from.
type ObservationRow struct {
	Timestamp time.Time         `json:"timestamp"`
	City      string            `json:"city,omitempty"`
	Values    map[string]string `json:"values"`
}

// HistoricalTable is the final chronologically sorted, timestamp-unique result
// of one retrieval for one city.
type HistoricalTable struct {
	City string           `json:"city"`
	Rows []ObservationRow `json:"rows"`
}

// Store is the contract the in-memory table store (and any future persistent
// store) must satisfy.
type Store interface {
	SaveTable(table *HistoricalTable)
	Latest(city string) (*HistoricalTable, error)
}
