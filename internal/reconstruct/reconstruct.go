// Package reconstruct integrates ring widths into cumulative stem diameter.
package reconstruct

import (
	"math"

	"github.com/chrissnell/ringbiomass/internal/correction"
	"github.com/chrissnell/ringbiomass/internal/rings"
)

// Epsilon replaces zero or negative ring widths before integration.
const Epsilon = 1e-8

// Options control a single reconstruction.
type Options struct {
	// Bias is added, in ring-width units, to the first valid ring of the corrected branch.
	Bias  float64
	Chain correction.Chain
}

// Trajectory holds parallel per-year series starting at Start. Years with no
// reconstruction are NaN.
type Trajectory struct {
	Start int

	// Raw is the uncorrected diameter in cm.
	Raw []float64
	// Biased is the diameter with the initial-width bias applied.
	Biased []float64
	// Geometric is Biased after the geometric correction.
	Geometric []float64
	// Corrected is Geometric after the bark correction.
	Corrected []float64
	// Age is cambial age, 1 at the first valid year.
	Age []float64
}

// Len returns the number of years covered.
func (t *Trajectory) Len() int {
	return len(t.Raw)
}

// Reconstruct integrates s into diameter trajectories. ok is false when s has no valid
// measurement.
//
// A missing year leaves that year missing, and since each year builds on the one before
// it every later year of the trajectory is missing too.
func Reconstruct(s rings.Series, opts Options) (*Trajectory, bool) {
	first, ok := s.FirstValidYear()
	if !ok {
		return nil, false
	}
	last, _ := s.LastValidYear()

	n := last - first + 1
	t := &Trajectory{
		Start:     first,
		Raw:       nanSlice(n),
		Biased:    nanSlice(n),
		Geometric: nanSlice(n),
		Corrected: nanSlice(n),
		Age:       nanSlice(n),
	}

	for i := 0; i < n; i++ {
		w, _ := s.Value(first + i)
		if math.IsNaN(w) {
			continue
		}
		if w <= 0 {
			w = Epsilon
		}
		wb := w
		if i == 0 {
			wb += opts.Bias
		}

		if i == 0 {
			t.Age[i] = 1
			t.Raw[i] = contribution(w)
			t.Biased[i] = contribution(wb)
		} else {
			t.Age[i] = t.Age[i-1] + 1
			t.Raw[i] = t.Raw[i-1] + contribution(w)
			t.Biased[i] = t.Biased[i-1] + contribution(wb)
		}

		if math.IsNaN(t.Biased[i]) {
			continue
		}
		t.Geometric[i] = opts.Chain.ApplyGeometric(t.Biased[i])
		t.Corrected[i] = opts.Chain.ApplyBark(t.Geometric[i])
	}

	return t, true
}

// contribution converts a ring width in mm to its diameter contribution in cm.
func contribution(w float64) float64 {
	return 2 * w / 10
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
