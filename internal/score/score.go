// Package score normalizes raw pollution/traffic readings onto a common
// 0..1 scale and ranks locations by composite desirability (lower is better).
package score

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"greencircuit/internal/model"
)

var (
	// ErrInvalidValue flags a NaN, infinite, or negative metric reading.
	ErrInvalidValue = errors.New("invalid metric value")
	// ErrInvalidCount flags a selection count outside 1..len(records).
	ErrInvalidCount = errors.New("invalid selection count")
)

// ScaleParams holds per-metric min/max computed once over the full dataset.
// Scores stay comparable across all records no matter which subset is
// selected later, so fit this on the whole load, never on a slice.
type ScaleParams struct {
	PollutionMin float64
	PollutionMax float64
	TrafficMin   float64
	TrafficMax   float64
}

// FitScale computes min-max parameters over all records.
func FitScale(records []model.LocationRecord) (ScaleParams, error) {
	if len(records) == 0 {
		return ScaleParams{}, fmt.Errorf("%w: no records", ErrInvalidValue)
	}
	p := ScaleParams{
		PollutionMin: math.Inf(1), PollutionMax: math.Inf(-1),
		TrafficMin: math.Inf(1), TrafficMax: math.Inf(-1),
	}
	for _, r := range records {
		if err := checkMetric("pollution", r.ID, r.Pollution); err != nil {
			return ScaleParams{}, err
		}
		if err := checkMetric("traffic", r.ID, r.Traffic); err != nil {
			return ScaleParams{}, err
		}
		p.PollutionMin = math.Min(p.PollutionMin, r.Pollution)
		p.PollutionMax = math.Max(p.PollutionMax, r.Pollution)
		p.TrafficMin = math.Min(p.TrafficMin, r.Traffic)
		p.TrafficMax = math.Max(p.TrafficMax, r.Traffic)
	}
	return p, nil
}

func checkMetric(name string, id int, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: row %d: %s is not a finite number", ErrInvalidValue, id, name)
	}
	if v < 0 {
		return fmt.Errorf("%w: row %d: %s must be >= 0, got %g", ErrInvalidValue, id, name, v)
	}
	return nil
}

// ApplyScores returns a copy of records with PollutionNorm, TrafficNorm and
// Score filled in. A constant column (max == min) normalizes to 0 for every
// row; that is the defined fallback for the degenerate min-max case.
func ApplyScores(records []model.LocationRecord, p ScaleParams) []model.LocationRecord {
	out := make([]model.LocationRecord, len(records))
	copy(out, records)
	for i := range out {
		out[i].PollutionNorm = minMax(out[i].Pollution, p.PollutionMin, p.PollutionMax)
		out[i].TrafficNorm = minMax(out[i].Traffic, p.TrafficMin, p.TrafficMax)
		out[i].Score = (out[i].PollutionNorm + out[i].TrafficNorm) / 2
	}
	return out
}

func minMax(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

// SelectBest returns the n records with the smallest scores, ties broken by
// original input order (first seen wins). Result is in ascending score order.
func SelectBest(records []model.LocationRecord, n int) ([]model.LocationRecord, error) {
	if n < 1 || n > len(records) {
		return nil, fmt.Errorf("%w: n=%d with %d records", ErrInvalidCount, n, len(records))
	}
	ranked := make([]model.LocationRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score < ranked[j].Score })
	return ranked[:n], nil
}
