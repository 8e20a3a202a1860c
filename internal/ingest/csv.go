// Package ingest parses uploaded measurement tables into location records.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"greencircuit/internal/model"
)

var (
	// ErrMissingColumn flags a CSV without one of the required columns.
	ErrMissingColumn = errors.New("missing required column")
	// ErrInvalidValue flags a cell that does not parse as a finite, valid number.
	ErrInvalidValue = errors.New("invalid cell value")
)

// Required columns, matched case-insensitively against the header row.
var required = []string{"latitude", "longitude", "pollution", "traffic"}

// ParseCSV reads a measurement table. Header names match case-insensitively
// and extra columns are ignored. Record IDs are assigned from the row index
// (0-based, header excluded).
func ParseCSV(r io.Reader) ([]model.LocationRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	var records []model.LocationRecord
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		lat, err := parseCell(rec, cols, "latitude", row)
		if err != nil {
			return nil, err
		}
		lng, err := parseCell(rec, cols, "longitude", row)
		if err != nil {
			return nil, err
		}
		pol, err := parseCell(rec, cols, "pollution", row)
		if err != nil {
			return nil, err
		}
		traf, err := parseCell(rec, cols, "traffic", row)
		if err != nil {
			return nil, err
		}
		if pol < 0 || traf < 0 {
			return nil, fmt.Errorf("%w: row %d: pollution and traffic must be >= 0", ErrInvalidValue, row)
		}
		records = append(records, model.LocationRecord{
			ID: row, Latitude: lat, Longitude: lng, Pollution: pol, Traffic: traf,
		})
		row++
	}
	return records, nil
}

func parseCell(rec []string, cols map[string]int, name string, row int) (float64, error) {
	idx := cols[name]
	if idx >= len(rec) {
		return 0, fmt.Errorf("%w: row %d: short row, no %s cell", ErrInvalidValue, row, name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d: %s=%q", ErrInvalidValue, row, name, rec[idx])
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: row %d: %s is not finite", ErrInvalidValue, row, name)
	}
	return v, nil
}
