// Package cluster implements one-dimensional mean-shift clustering, used to
// group files by sensor temperature. Temperatures drift between exposures,
// so equality grouping does not work; mean-shift finds the natural clusters
// without knowing their count in advance.
package cluster

import "math"

const (
	// minShiftDistance is the per-point convergence threshold: a point
	// that moves less than this stops shifting.
	minShiftDistance = 0.000001

	// groupDistanceTolerance is the maximum distance between a converged
	// point and a group for the point to join that group.
	groupDistanceTolerance = 0.1
)

// MeanShift clusters the given values with a gaussian kernel of the given
// bandwidth. It returns one group label per value; labels are small
// integers assigned in order of group discovery.
func MeanShift(values []float64, bandwidth float64) []int {
	shifted := make([]float64, len(values))
	copy(shifted, values)
	stillShifting := make([]bool, len(values))
	for i := range stillShifting {
		stillShifting[i] = true
	}

	maxShift := 1.0
	for maxShift > minShiftDistance {
		maxShift = 0
		for i := range shifted {
			if !stillShifting[i] {
				continue
			}
			start := shifted[i]
			next := shiftPoint(start, values, bandwidth)
			dist := math.Abs(next - start)
			if dist > maxShift {
				maxShift = dist
			}
			if dist < minShiftDistance {
				stillShifting[i] = false
			}
			shifted[i] = next
		}
	}
	return groupPoints(shifted)
}

// shiftPoint moves a point to the kernel-weighted mean of all original
// points.
func shiftPoint(point float64, points []float64, bandwidth float64) float64 {
	norm := 1 / (bandwidth * math.Sqrt(2*math.Pi))
	var numerator, denominator float64
	for _, p := range points {
		ratio := math.Abs(point-p) / bandwidth
		weight := norm * math.Exp(-0.5*ratio*ratio)
		numerator += weight * p
		denominator += weight
	}
	return numerator / denominator
}

// groupPoints assigns converged points to groups. A point joins the last
// existing group within tolerance, growing it, or founds a new group.
func groupPoints(points []float64) []int {
	assignments := make([]int, len(points))
	var groups [][]float64
	for i, point := range points {
		nearest := -1
		for gi, group := range groups {
			if distanceToGroup(point, group) < groupDistanceTolerance {
				nearest = gi
			}
		}
		if nearest < 0 {
			groups = append(groups, []float64{point})
			assignments[i] = len(groups) - 1
		} else {
			assignments[i] = nearest
			groups[nearest] = append(groups[nearest], point)
		}
	}
	return assignments
}

func distanceToGroup(point float64, group []float64) float64 {
	min := math.MaxFloat64
	for _, member := range group {
		if d := math.Abs(point - member); d < min {
			min = d
		}
	}
	return min
}
