package circuit

import (
	"errors"
	"math"
	"testing"

	"greencircuit/internal/model"
	"greencircuit/internal/score"
)

func rec(id int, lat, lng, pollution, traffic float64) model.LocationRecord {
	return model.LocationRecord{ID: id, Latitude: lat, Longitude: lng, Pollution: pollution, Traffic: traffic}
}

func TestBuildUnitSquare(t *testing.T) {
	// Four clean corners plus two dirty points that must not be selected.
	records := []model.LocationRecord{
		rec(0, 0, 0, 1, 1),
		rec(1, 1, 1, 1, 1),
		rec(2, 0, 1, 1, 1),
		rec(3, 1, 0, 1, 1),
		rec(4, 0.5, 0.5, 90, 500),
		rec(5, 0.2, 0.9, 80, 400),
	}
	plan, err := Build(records, 4, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Order) != 4 || len(plan.Stops) != 4 {
		t.Fatalf("want 4 stops, got %d/%d", len(plan.Order), len(plan.Stops))
	}
	for _, id := range plan.Order {
		if id == 4 || id == 5 {
			t.Fatalf("dirty point %d selected: %v", id, plan.Order)
		}
	}
	if math.Abs(plan.TotalLength-4.0) > 1e-9 {
		t.Fatalf("unit square circuit: want length 4, got %g", plan.TotalLength)
	}
	if plan.TotalLength > plan.BaselineLength+1e-9 {
		t.Fatalf("improved tour longer than baseline: %g > %g", plan.TotalLength, plan.BaselineLength)
	}
	if plan.MeanPollution != 1 {
		t.Fatalf("mean pollution: want 1, got %g", plan.MeanPollution)
	}
}

func TestBuildNormalizesOverFullDataset(t *testing.T) {
	// The scale must be fit before selection, so the selected stops carry
	// norms relative to the whole load, not to the surviving subset.
	records := []model.LocationRecord{
		rec(0, 0, 0, 0, 0),
		rec(1, 1, 0, 50, 50),
		rec(2, 0, 1, 100, 100),
	}
	plan, err := Build(records, 2, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var mid *model.LocationRecord
	for i := range plan.Stops {
		if plan.Stops[i].ID == 1 {
			mid = &plan.Stops[i]
		}
	}
	if mid == nil {
		t.Fatalf("record 1 not selected: %v", plan.Order)
	}
	if mid.PollutionNorm != 0.5 || mid.Score != 0.5 {
		t.Fatalf("record 1 scored against subset, not full dataset: %+v", *mid)
	}
}

func TestBuildConstantColumn(t *testing.T) {
	records := []model.LocationRecord{
		rec(0, 0, 0, 42, 10),
		rec(1, 1, 0, 42, 30),
		rec(2, 0, 1, 42, 20),
	}
	plan, err := Build(records, 2, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Constant pollution contributes 0, so ranking follows traffic alone.
	if plan.Order[0] != 0 && plan.Order[1] != 0 {
		t.Fatalf("lowest-traffic record not selected: %v", plan.Order)
	}
	for _, id := range plan.Order {
		if id == 1 {
			t.Fatalf("highest-traffic record selected: %v", plan.Order)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := Build(nil, 1, 0); !errors.Is(err, score.ErrInvalidValue) {
		t.Fatalf("empty dataset: got %v", err)
	}
	records := []model.LocationRecord{rec(0, 0, 0, 1, 1)}
	if _, err := Build(records, 5, 0); !errors.Is(err, score.ErrInvalidCount) {
		t.Fatalf("oversized n: got %v", err)
	}
	if _, err := Build(records, 0, 0); !errors.Is(err, score.ErrInvalidCount) {
		t.Fatalf("zero n: got %v", err)
	}
}

func TestBuildSingleStop(t *testing.T) {
	records := []model.LocationRecord{rec(0, 2, 3, 1, 1), rec(1, 4, 5, 9, 9)}
	plan, err := Build(records, 1, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(plan.Order) != 1 || plan.Order[0] != 0 || plan.TotalLength != 0 {
		t.Fatalf("single stop: got %+v", plan)
	}
}
