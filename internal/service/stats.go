package service

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FieldStatistics describes the non-null values of one measurement
type FieldStatistics struct {
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	Std    *float64 `json:"std"` // sample standard deviation, nil below two values
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	Count  int      `json:"count"`
}

// describe summarizes values, which must not be empty
func describe(values []float64) FieldStatistics {
	mean, std := stat.MeanStdDev(values, nil)
	fs := FieldStatistics{
		Mean:   mean,
		Median: median(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Count:  len(values),
	}
	if len(values) > 1 {
		fs.Std = &std
	}
	return fs
}

// median averages the two middle values of an even-length sample
func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// pearson correlates the pairs where both values are present. ok is false
// with fewer than two pairs or when either side is constant.
func pearson(x, y []*float64) (float64, bool) {
	var xs, ys []float64
	for i := range x {
		if x[i] != nil && y[i] != nil {
			xs = append(xs, *x[i])
			ys = append(ys, *y[i])
		}
	}
	if len(xs) < 2 {
		return 0, false
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// fitLine fits y = intercept + slope*i over the positions of ys
func fitLine(ys []float64) (intercept, slope float64) {
	switch len(ys) {
	case 0:
		return 0, 0
	case 1:
		return ys[0], 0
	}
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	return stat.LinearRegression(xs, ys, nil, false)
}

// standardize scales each column to zero mean and unit population variance.
// Constant columns are only centered.
func standardize(rows [][]float64) *mat.Dense {
	r, c := len(rows), len(rows[0])
	x := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		for i := range rows {
			col[i] = rows[i][j]
		}
		mean, scale := stat.PopMeanStdDev(col, nil)
		if scale == 0 {
			scale = 1
		}
		for i := range rows {
			x.Set(i, j, (rows[i][j]-mean)/scale)
		}
	}
	return x
}

// project reduces x to its first two principal components and reports the
// share of variance each explains. ok is false for fewer than two rows or
// when the decomposition fails.
func project(x *mat.Dense) (points [][2]float64, ratios []float64, ok bool) {
	if r, _ := x.Dims(); r < 2 {
		return nil, nil, false
	}
	var pc stat.PC
	if !pc.PrincipalComponents(x, nil) {
		return nil, nil, false
	}
	vars := pc.VarsTo(nil)
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	total := floats.Sum(vars)
	k := min(2, len(vars))

	var proj mat.Dense
	proj.Mul(x, vecs.Slice(0, x.RawMatrix().Cols, 0, k))

	r, _ := x.Dims()
	points = make([][2]float64, r)
	for i := 0; i < r; i++ {
		for j := 0; j < k; j++ {
			points[i][j] = proj.At(i, j)
		}
	}

	ratios = make([]float64, k)
	for j := 0; j < k; j++ {
		if total > 0 {
			ratios[j] = vars[j] / total
		}
	}
	return points, ratios, true
}
