// Package circuit composes the scoring, selection and solving stages into
// the single blocking pipeline the API runs per request.
package circuit

import (
	"greencircuit/internal/model"
	"greencircuit/internal/opt"
	"greencircuit/internal/score"
)

// Plan holds the result of one pipeline run.
type Plan struct {
	Order          []int                  // record IDs in visit order
	Stops          []model.LocationRecord // scored records in visit order
	TotalLength    float64
	BaselineLength float64
	MeanPollution  float64
	MeanTraffic    float64
}

// Build runs the full pipeline: fit normalization over the whole dataset,
// score every record, select the n best (lowest score) and solve a closed
// tour over them. Pure function of its inputs; each call is independent.
func Build(records []model.LocationRecord, n, maxPasses int) (Plan, error) {
	params, err := score.FitScale(records)
	if err != nil {
		return Plan{}, err
	}
	scored := score.ApplyScores(records, params)
	best, err := score.SelectBest(scored, n)
	if err != nil {
		return Plan{}, err
	}
	points := make([]opt.Point, len(best))
	for i, r := range best {
		points[i] = opt.Point{Lat: r.Latitude, Lng: r.Longitude}
	}
	tour, err := opt.SolveCircuit(points, maxPasses)
	if err != nil {
		return Plan{}, err
	}
	p := Plan{
		Order:          make([]int, len(tour.Order)),
		Stops:          make([]model.LocationRecord, len(tour.Order)),
		TotalLength:    tour.Length,
		BaselineLength: tour.Baseline,
	}
	var sumPol, sumTraf float64
	for i, idx := range tour.Order {
		stop := best[idx]
		p.Order[i] = stop.ID
		p.Stops[i] = stop
		sumPol += stop.Pollution
		sumTraf += stop.Traffic
	}
	p.MeanPollution = sumPol / float64(len(p.Stops))
	p.MeanTraffic = sumTraf / float64(len(p.Stops))
	return p, nil
}
