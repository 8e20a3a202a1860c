package score

import (
	"errors"
	"math"
	"testing"

	"greencircuit/internal/model"
)

func rec(id int, pollution, traffic float64) model.LocationRecord {
	return model.LocationRecord{ID: id, Pollution: pollution, Traffic: traffic}
}

func TestFitScaleAndApply(t *testing.T) {
	records := []model.LocationRecord{
		rec(0, 0, 100),
		rec(1, 50, 200),
		rec(2, 100, 0),
	}
	p, err := FitScale(records)
	if err != nil {
		t.Fatalf("FitScale: %v", err)
	}
	if p.PollutionMin != 0 || p.PollutionMax != 100 || p.TrafficMin != 0 || p.TrafficMax != 200 {
		t.Fatalf("unexpected params: %+v", p)
	}
	scored := ApplyScores(records, p)
	if scored[1].PollutionNorm != 0.5 || scored[1].TrafficNorm != 1.0 {
		t.Fatalf("row 1 norms: %+v", scored[1])
	}
	if scored[1].Score != 0.75 {
		t.Fatalf("row 1 score: got %g", scored[1].Score)
	}
	// Extremes map to exactly 0 and 1, everything stays inside [0,1].
	if scored[0].PollutionNorm != 0 || scored[2].PollutionNorm != 1 {
		t.Fatalf("pollution extremes: %g / %g", scored[0].PollutionNorm, scored[2].PollutionNorm)
	}
	if scored[2].TrafficNorm != 0 || scored[1].TrafficNorm != 1 {
		t.Fatalf("traffic extremes: %g / %g", scored[2].TrafficNorm, scored[1].TrafficNorm)
	}
	for i, r := range scored {
		if r.Score < 0 || r.Score > 1 {
			t.Fatalf("row %d score out of range: %g", i, r.Score)
		}
	}
	// input untouched
	if records[1].Score != 0 {
		t.Fatalf("ApplyScores mutated input")
	}
}

func TestFitScaleRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		r    model.LocationRecord
	}{
		{"nan", rec(0, math.NaN(), 1)},
		{"inf", rec(0, 1, math.Inf(1))},
		{"negative", rec(0, -1, 1)},
	}
	for _, tc := range cases {
		if _, err := FitScale([]model.LocationRecord{tc.r}); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("%s: want ErrInvalidValue, got %v", tc.name, err)
		}
	}
	if _, err := FitScale(nil); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("empty: want ErrInvalidValue, got %v", err)
	}
}

func TestConstantColumnNormalizesToZero(t *testing.T) {
	records := []model.LocationRecord{rec(0, 42, 10), rec(1, 42, 20)}
	p, err := FitScale(records)
	if err != nil {
		t.Fatalf("FitScale: %v", err)
	}
	scored := ApplyScores(records, p)
	for i, r := range scored {
		if r.PollutionNorm != 0 {
			t.Fatalf("row %d: constant pollution should normalize to 0, got %g", i, r.PollutionNorm)
		}
	}
	if scored[0].Score != 0 || scored[1].Score != 0.5 {
		t.Fatalf("scores: got %g, %g", scored[0].Score, scored[1].Score)
	}
}

func TestSelectBestPicksSmallestScores(t *testing.T) {
	records := []model.LocationRecord{
		rec(0, 90, 90),
		rec(1, 10, 10),
		rec(2, 50, 50),
		rec(3, 0, 0),
	}
	p, _ := FitScale(records)
	scored := ApplyScores(records, p)
	best, err := SelectBest(scored, 2)
	if err != nil {
		t.Fatalf("SelectBest: %v", err)
	}
	if best[0].ID != 3 || best[1].ID != 1 {
		t.Fatalf("want IDs [3 1], got [%d %d]", best[0].ID, best[1].ID)
	}
}

func TestSelectBestStableOnTies(t *testing.T) {
	// All scores identical; original order must win.
	records := []model.LocationRecord{rec(0, 5, 5), rec(1, 5, 5), rec(2, 5, 5)}
	p, _ := FitScale(records)
	scored := ApplyScores(records, p)
	best, err := SelectBest(scored, 2)
	if err != nil {
		t.Fatalf("SelectBest: %v", err)
	}
	if best[0].ID != 0 || best[1].ID != 1 {
		t.Fatalf("tie break: want IDs [0 1], got [%d %d]", best[0].ID, best[1].ID)
	}
}

func TestSelectBestCountBounds(t *testing.T) {
	records := []model.LocationRecord{rec(0, 1, 1), rec(1, 2, 2)}
	for _, n := range []int{0, -1, 3} {
		if _, err := SelectBest(records, n); !errors.Is(err, ErrInvalidCount) {
			t.Fatalf("n=%d: want ErrInvalidCount, got %v", n, err)
		}
	}
	if got, err := SelectBest(records, 2); err != nil || len(got) != 2 {
		t.Fatalf("n=len: got %v, %v", got, err)
	}
}
