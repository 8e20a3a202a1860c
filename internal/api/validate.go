package api

import (
	"fmt"

	"greencircuit/internal/model"
)

// maxCircuitPoints keeps solves interactive; a 2-opt pass is O(n^2) so the
// ceiling bounds worst-case latency. Clients may impose a higher floor than
// 1 for presentation, the API does not.
const maxCircuitPoints = 20

func validateSolveRequest(req *model.SolveRequest) error {
	if req.DatasetID == "" {
		return fmt.Errorf("datasetId is required")
	}
	if req.Points < 1 {
		return fmt.Errorf("points must be >= 1")
	}
	if req.Points > maxCircuitPoints {
		return fmt.Errorf("points must be <= %d", maxCircuitPoints)
	}
	return nil
}
