package backtest

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"pigeon_bot/internal/models"
)

// LoadCSV reads one instrument's daily history. The header names the
// columns; date plus close (or price) is the minimum, open/high/low and
// volume are used when present. Dates are 2006-01-02, RFC3339, or unix
// seconds.
func LoadCSV(path string) (models.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(rows) < 2 {
		return nil, errors.Errorf("%s: no data rows", path)
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	dateIdx, ok := col["date"]
	if !ok {
		dateIdx, ok = col["ts"]
	}
	if !ok {
		return nil, errors.Errorf("%s: no date/ts column", path)
	}
	closeIdx, ok := col["close"]
	if !ok {
		closeIdx, ok = col["price"]
	}
	if !ok {
		return nil, errors.Errorf("%s: no close/price column", path)
	}

	field := func(row []string, name string, def float64) float64 {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return def
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return def
		}
		return v
	}

	series := make(models.Series, 0, len(rows)-1)
	for n, row := range rows[1:] {
		ts, err := parseDate(strings.TrimSpace(row[dateIdx]))
		if err != nil {
			return nil, errors.Wrapf(err, "%s row %d", path, n+2)
		}
		closep, err := strconv.ParseFloat(strings.TrimSpace(row[closeIdx]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s row %d: close", path, n+2)
		}
		series = append(series, models.Candle{
			Ts:     ts,
			Price:  closep,
			Open:   field(row, "open", closep),
			High:   field(row, "high", closep),
			Low:    field(row, "low", closep),
			Volume: field(row, "volume", 0),
		})
	}
	if err := series.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return series, nil
}

func parseDate(s string) (time.Time, error) {
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, errors.Errorf("unparseable date %q", s)
}
