// Package importer loads historical daily bars from upstream providers and
// writes them into a store.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atmx/market-data/internal/model"
	"github.com/atmx/market-data/internal/validate"
)

// ErrMissingColumn is returned when a CSV header lacks a required column.
var ErrMissingColumn = errors.New("importer: missing column")

var yahooColumns = []string{"Date", "Open", "High", "Low", "Close"}

// ParseYahooCSV reads a Yahoo Finance history export
// (Date,Open,High,Low,Close,Adj Close,Volume). Columns are located by
// header name. Rows Yahoo marks "null" (market holidays) are skipped.
func ParseYahooCSV(r io.Reader) ([]model.DailyRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("importer: read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	cols := make([]int, len(yahooColumns))
	for i, name := range yahooColumns {
		pos, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		cols[i] = pos
	}

	var recs []model.DailyRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("importer: line %d: %w", line, err)
		}

		vals := make([]string, len(cols))
		skip := false
		for i, pos := range cols {
			if pos >= len(row) {
				return nil, fmt.Errorf("importer: line %d: short row", line)
			}
			vals[i] = strings.TrimSpace(row[pos])
			if vals[i] == "null" || vals[i] == "" {
				skip = true
			}
		}
		if skip {
			continue
		}

		rec, err := newDailyRecord(vals[0], vals[1], vals[2], vals[3], vals[4])
		if err != nil {
			return nil, fmt.Errorf("importer: line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func newDailyRecord(date, open, high, low, closeVal string) (model.DailyRecord, error) {
	if _, err := validate.ParseDate(date); err != nil {
		return model.DailyRecord{}, err
	}
	prices := make([]decimal.Decimal, 4)
	for i, s := range []string{open, high, low, closeVal} {
		v, err := validate.ParseNumber(s)
		if err != nil {
			return model.DailyRecord{}, fmt.Errorf("price %q on %s: %w", s, date, err)
		}
		prices[i] = v
	}
	return model.DailyRecord{
		Date:       date,
		DatePieces: model.SplitDate(date),
		Open:       prices[0],
		High:       prices[1],
		Low:        prices[2],
		Close:      prices[3],
	}, nil
}
