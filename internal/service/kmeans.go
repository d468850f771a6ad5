package service

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	kmeansInits     = 10
	kmeansMaxIter   = 300
	kmeansTolerance = 1e-4
)

// kmeansResult is the best of several seeded k-means runs
type kmeansResult struct {
	labels  []int
	centers [][]float64
	inertia float64
}

// kmeans clusters the rows of x into k groups using k-means++ seeding.
// The lowest-inertia run out of kmeansInits wins; the same seed always gives
// the same result.
func kmeans(x *mat.Dense, k int, seed int64) kmeansResult {
	r, c := x.Dims()
	points := make([][]float64, r)
	for i := range points {
		points[i] = mat.Row(nil, i, x)
	}

	// shift threshold scaled by the data's mean per-feature variance
	var variance float64
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		mean := floats.Sum(col) / float64(r)
		for _, v := range col {
			variance += (v - mean) * (v - mean)
		}
	}
	tol := kmeansTolerance * variance / float64(r*c)

	rng := rand.New(rand.NewSource(seed))
	best := kmeansResult{inertia: math.Inf(1)}
	for run := 0; run < kmeansInits; run++ {
		res := lloyd(points, seedCenters(points, k, rng), tol)
		if res.inertia < best.inertia {
			best = res
		}
	}
	return best
}

// seedCenters picks k initial centers with k-means++
func seedCenters(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(points[rng.Intn(len(points))]))

	dist := make([]float64, len(points))
	for len(centers) < k {
		var sum float64
		for i, p := range points {
			dist[i] = math.Inf(1)
			for _, ctr := range centers {
				dist[i] = math.Min(dist[i], sqDist(p, ctr))
			}
			sum += dist[i]
		}

		next := rng.Intn(len(points))
		if sum > 0 {
			target := rng.Float64() * sum
			for i, d := range dist {
				target -= d
				if target <= 0 {
					next = i
					break
				}
			}
		}
		centers = append(centers, clone(points[next]))
	}
	return centers
}

// lloyd refines centers until assignments settle or the centers stop moving
func lloyd(points, centers [][]float64, tol float64) kmeansResult {
	k, dims := len(centers), len(points[0])
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i, p := range points {
			l := nearest(p, centers)
			if l != labels[i] {
				labels[i] = l
				changed = true
			}
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for j := range sums {
			sums[j] = make([]float64, dims)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}

		var shift float64
		for j := range centers {
			if counts[j] == 0 {
				// an empty cluster takes the point farthest from its center
				far := farthest(points, labels, centers)
				labels[far] = j
				sums[j] = clone(points[far])
				counts[j] = 1
				changed = true
			}
			floats.Scale(1/float64(counts[j]), sums[j])
			shift += sqDist(sums[j], centers[j])
			centers[j] = sums[j]
		}

		if !changed || shift <= tol {
			break
		}
	}

	// final assignment against the settled centers
	var inertia float64
	for i, p := range points {
		labels[i] = nearest(p, centers)
		inertia += sqDist(p, centers[labels[i]])
	}
	return kmeansResult{labels: labels, centers: centers, inertia: inertia}
}

func nearest(p []float64, centers [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for j, ctr := range centers {
		if d := sqDist(p, ctr); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

func farthest(points [][]float64, labels []int, centers [][]float64) int {
	far, farDist := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centers[labels[i]]); d > farDist {
			far, farDist = i, d
		}
	}
	return far
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
