package weather

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// FlattenDay converts one provider day record into one ObservationRow per
// hourly sub-record. Daily scalars and the astronomy block are broadcast to
// every hour; when a column appears in more than one source block (the
// provider repeats uvIndex at the hourly level) the first occurrence wins.
// After assembly, missing values are forward-filled from the nearest
// preceding row of the same day; the first row keeps its gaps.
//
// A record without a date or without hourly sub-records cannot be flattened
// and fails with a MalformedRecordError. Partially absent fields are not an
// error.
func FlattenDay(d DayRecord) ([]ObservationRow, error) {
	if d.Date == "" {
		return nil, &MalformedRecordError{Reason: "missing date"}
	}
	day, err := time.ParseInLocation(DateFormat, d.Date, time.UTC)
	if err != nil {
		return nil, &MalformedRecordError{Date: d.Date, Reason: "unparseable date"}
	}
	if len(d.Hourly) == 0 {
		return nil, &MalformedRecordError{Date: d.Date, Reason: "missing hourly sub-records"}
	}

	daily := make(map[string]string, 11)
	putValue(daily, "maxtempC", d.MaxTempC)
	putValue(daily, "mintempC", d.MinTempC)
	putValue(daily, "totalSnow_cm", d.TotalSnowCM)
	putValue(daily, "sunHour", d.SunHour)
	putValue(daily, "uvIndex", d.UVIndex)
	if len(d.Astronomy) > 0 {
		a := d.Astronomy[0]
		putValue(daily, "moon_illumination", a.MoonIllumination)
		putValue(daily, "moonrise", a.Moonrise)
		putValue(daily, "moonset", a.Moonset)
		putValue(daily, "sunrise", a.Sunrise)
		putValue(daily, "sunset", a.Sunset)
	}

	rows := make([]ObservationRow, 0, len(d.Hourly))
	for _, h := range d.Hourly {
		hour, err := hourOfDay(h.Time)
		if err != nil {
			return nil, &MalformedRecordError{Date: d.Date, Reason: err.Error()}
		}

		values := make(map[string]string, len(DataColumns))
		for col, v := range daily {
			values[col] = v
		}
		putValue(values, "DewPointC", h.DewPointC)
		putValue(values, "FeelsLikeC", h.FeelsLikeC)
		putValue(values, "HeatIndexC", h.HeatIndexC)
		putValue(values, "WindChillC", h.WindChillC)
		putValue(values, "WindGustKmph", h.WindGustKmph)
		putValue(values, "cloudcover", h.Cloudcover)
		putValue(values, "humidity", h.Humidity)
		putValue(values, "precipMM", h.PrecipMM)
		putValue(values, "pressure", h.Pressure)
		putValue(values, "tempC", h.TempC)
		putValue(values, "uvIndex", h.UVIndex)
		putValue(values, "visibility", h.Visibility)
		putValue(values, "winddirDegree", h.WinddirDegree)
		putValue(values, "windspeedKmph", h.WindspeedKmph)

		rows = append(rows, ObservationRow{
			Timestamp: day.Add(time.Duration(hour) * time.Hour),
			Values:    values,
		})
	}

	for i := 1; i < len(rows); i++ {
		for _, col := range DataColumns {
			if _, ok := rows[i].Values[col]; ok {
				continue
			}
			if v, ok := rows[i-1].Values[col]; ok {
				rows[i].Values[col] = v
			}
		}
	}

	return rows, nil
}

// putValue sets col to v unless v is absent or col was already set by an
// earlier source block.
func putValue(m map[string]string, col, v string) {
	if v == "" {
		return
	}
	if _, ok := m[col]; ok {
		return
	}
	m[col] = v
}

// hourOfDay derives the hour from the provider's time encoding: minutes of
// day in hundreds ("0", "300", "2100"). Left-pad to four digits and take the
// first two; sub-hour precision is discarded on purpose, the sampling
// frequency is never finer than an hour.
func hourOfDay(s string) (int, error) {
	if s == "" {
		return 0, errors.New("hourly sub-record missing time")
	}
	for len(s) < 4 {
		s = "0" + s
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hourly time %q", s)
	}
	return h, nil
}
