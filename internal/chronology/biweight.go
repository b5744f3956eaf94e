// Package chronology aggregates sample series into a site chronology using a Tukey
// biweight robust mean.
package chronology

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoData is returned when a year has no values to average.
	ErrNoData = errors.New("no values to average")

	// ErrDegenerate is returned when the biweight cannot produce a finite estimate.
	ErrDegenerate = errors.New("biweight mean is not finite")
)

// Options tune the biweight mean.
type Options struct {
	// C is the tuning constant in units of the median absolute deviation.
	C float64
	// Epsilon keeps the scale positive when the MAD is zero.
	Epsilon float64
	MaxIter int
	Tol     float64
}

// DefaultOptions matches the conventional tree-ring chronology settings.
func DefaultOptions() Options {
	return Options{C: 9, Epsilon: 1e-6, MaxIter: 6, Tol: 1e-9}
}

// BiweightMean returns the Tukey biweight robust mean of values. NaN entries are ignored.
// The estimate starts at the median and is refined by iterative reweighting with the
// scale fixed at C times the median absolute deviation.
func BiweightMean(values []float64, opts Options) (float64, error) {
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return math.NaN(), ErrNoData
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 1
	}

	m := median(x)
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - m)
	}
	scale := opts.C*median(dev) + opts.Epsilon

	w := make([]float64, len(x))
	for iter := 0; iter < opts.MaxIter; iter++ {
		var total float64
		for i, v := range x {
			u := (v - m) / scale
			if math.Abs(u) < 1 {
				w[i] = (1 - u*u) * (1 - u*u)
			} else {
				w[i] = 0
			}
			total += w[i]
		}
		if total == 0 {
			return math.NaN(), ErrDegenerate
		}

		next := stat.Mean(x, w)
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return math.NaN(), ErrDegenerate
		}
		delta := math.Abs(next - m)
		m = next
		if delta < opts.Tol {
			break
		}
	}
	return m, nil
}

func median(x []float64) float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
