package reconstruct

import "math"

// Increments returns annual increments of a cumulative series. The first valid value is
// its own increment; later entries are the difference from the previous year, NaN when
// either year is missing.
func Increments(values []float64) []float64 {
	out := make([]float64, len(values))
	first := -1
	for i, v := range values {
		out[i] = math.NaN()
		if math.IsNaN(v) {
			continue
		}
		if first < 0 {
			first = i
			out[i] = v
			continue
		}
		if prev := values[i-1]; !math.IsNaN(prev) {
			out[i] = v - prev
		}
	}
	return out
}
