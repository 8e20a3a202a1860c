// Package opt contains the circuit heuristics: pairwise distance model,
// nearest-neighbor tour construction and 2-opt improvement.
package opt

import (
	"errors"
	"math"
)

// ErrEmptyCandidateSet is returned when a circuit is requested over zero points.
var ErrEmptyCandidateSet = errors.New("empty candidate set")

// Point holds the coordinates routing works on.
type Point struct {
	Lat float64
	Lng float64
}

// Tour is a closed circuit over a point set. Order is a permutation of
// 0..n-1; the edge from the last index back to the first is implied.
// Baseline is the nearest-neighbor length before 2-opt improvement.
type Tour struct {
	Order    []int
	Length   float64
	Baseline float64
}

// DefaultMaxPasses bounds the 2-opt improvement loop. One pass is O(n^2);
// at the point counts the API accepts the loop converges well before the
// cap, which only guards latency for oversized programmatic inputs.
const DefaultMaxPasses = 25

// DistanceMatrix computes all pairwise planar Euclidean distances over
// (lat, lng) treated as plane coordinates. No geodesic correction; at city
// scale the flat approximation does not change the tour ordering.
func DistanceMatrix(points []Point) [][]float64 {
	n := len(points)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := euclidean(points[i], points[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

func euclidean(a, b Point) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// NearestNeighborOrder builds an initial tour starting at index 0, always
// moving to the closest unvisited point. Ties resolve to the lowest index so
// the construction is deterministic.
func NearestNeighborOrder(dist [][]float64) []int {
	n := len(dist)
	order := make([]int, 0, n)
	visited := make([]bool, n)
	cur := 0
	order = append(order, cur)
	visited[cur] = true
	for len(order) < n {
		next := -1
		best := math.MaxFloat64
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if d := dist[cur][j]; d < best {
				best = d
				next = j
			}
		}
		order = append(order, next)
		visited[next] = true
		cur = next
	}
	return order
}

// ImproveOrder2Opt applies first-improvement 2-opt to a closed tour until no
// reversing move shortens it or maxPasses full sweeps have run. The start of
// the tour stays fixed, so results are reproducible for a given input.
func ImproveOrder2Opt(dist [][]float64, order []int, maxPasses int) []int {
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	n := len(order)
	if n < 4 {
		return append([]int(nil), order...)
	}
	best := append([]int(nil), order...)
	for pass := 0; pass < maxPasses; pass++ {
		improved := false
		for i := 1; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				a, b := best[i-1], best[i]
				c, d := best[k], best[(k+1)%n]
				if a == d {
					continue // reversing the whole remainder is a no-op
				}
				delta := dist[a][c] + dist[b][d] - dist[a][b] - dist[c][d]
				if delta < -1e-9 {
					reverse(best, i, k)
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func reverse(order []int, i, k int) {
	for i < k {
		order[i], order[k] = order[k], order[i]
		i++
		k--
	}
}

// TourLength sums consecutive distances including the closing edge.
func TourLength(dist [][]float64, order []int) float64 {
	n := len(order)
	if n < 2 {
		return 0
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += dist[order[i]][order[(i+1)%n]]
	}
	return total
}

// SolveCircuit produces an approximate minimum-length closed tour over all
// points: nearest-neighbor construction then bounded 2-opt improvement.
// Stateless and deterministic; the returned order is always a permutation of
// 0..n-1 and never longer than the nearest-neighbor baseline.
func SolveCircuit(points []Point, maxPasses int) (Tour, error) {
	n := len(points)
	if n == 0 {
		return Tour{}, ErrEmptyCandidateSet
	}
	if n == 1 {
		return Tour{Order: []int{0}}, nil
	}
	dist := DistanceMatrix(points)
	if n == 2 {
		// Out-and-back: visit both, return to start.
		l := 2 * dist[0][1]
		return Tour{Order: []int{0, 1}, Length: l, Baseline: l}, nil
	}
	seed := NearestNeighborOrder(dist)
	baseline := TourLength(dist, seed)
	order := ImproveOrder2Opt(dist, seed, maxPasses)
	return Tour{Order: order, Length: TourLength(dist, order), Baseline: baseline}, nil
}
