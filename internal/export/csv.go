package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/weatherhist/wwo-history/internal/weather"
)

const timestampFormat = "2006-01-02 15:04:05"

// WriteTable serializes a historical table as delimited text: a header row
// with the date_time index column, the fixed data columns, and the trailing
// city tag, then one row per observation. Missing values become empty cells.
func WriteTable(w io.Writer, table *weather.HistoricalTable) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(weather.DataColumns)+2)
	header = append(header, "date_time")
	header = append(header, weather.DataColumns...)
	header = append(header, "city")
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, row := range table.Rows {
		record[0] = row.Timestamp.Format(timestampFormat)
		for i, col := range weather.DataColumns {
			record[i+1] = row.Values[col]
		}
		record[len(record)-1] = row.City
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the table to <dir>/<city>.csv and returns the path. The
// file is written to a temporary name and renamed into place, so a failed
// export never leaves a partial file behind.
func ExportCSV(dir string, table *weather.HistoricalTable) (string, error) {
	tmp, err := os.CreateTemp(dir, table.City+"-*.csv")
	if err != nil {
		return "", err
	}

	if err := WriteTable(tmp, table); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	path := filepath.Join(dir, table.City+".csv")
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}
