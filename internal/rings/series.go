// Package rings models annual ring-width measurements for tree samples.
// Missing years are carried as NaN on a contiguous year axis.
package rings

import (
	"math"
	"sort"
)

// Series holds one sample's annual ring widths in millimeters.
// Values[i] is the measurement for year Start+i; NaN marks a missing year.
type Series struct {
	Name   string
	Start  int
	values []float64
}

// NewSeries builds a Series spanning the smallest and largest year in widths.
// Years inside that span that are absent from the map are missing.
func NewSeries(name string, widths map[int]float64) Series {
	if len(widths) == 0 {
		return Series{Name: name}
	}

	years := make([]int, 0, len(widths))
	for y := range widths {
		years = append(years, y)
	}
	sort.Ints(years)

	start, end := years[0], years[len(years)-1]
	values := make([]float64, end-start+1)
	for i := range values {
		values[i] = math.NaN()
	}
	for y, w := range widths {
		values[y-start] = w
	}

	return Series{Name: name, Start: start, values: values}
}

// NewSeriesFromSlice builds a Series from values beginning at start. The slice is copied.
func NewSeriesFromSlice(name string, start int, values []float64) Series {
	return Series{Name: name, Start: start, values: append([]float64(nil), values...)}
}

// Len returns the number of years on the series axis, including missing years.
func (s Series) Len() int {
	return len(s.values)
}

// End returns the last year on the series axis.
func (s Series) End() int {
	return s.Start + len(s.values) - 1
}

// Years returns every year on the series axis in order.
func (s Series) Years() []int {
	years := make([]int, len(s.values))
	for i := range years {
		years[i] = s.Start + i
	}
	return years
}

// Values returns a copy of the year-aligned measurements.
func (s Series) Values() []float64 {
	return append([]float64(nil), s.values...)
}

// Value returns the measurement for year and whether it is present.
func (s Series) Value(year int) (float64, bool) {
	i := year - s.Start
	if i < 0 || i >= len(s.values) || math.IsNaN(s.values[i]) {
		return math.NaN(), false
	}
	return s.values[i], true
}

// FirstValidYear returns the first year with a measurement.
func (s Series) FirstValidYear() (int, bool) {
	for i, v := range s.values {
		if !math.IsNaN(v) {
			return s.Start + i, true
		}
	}
	return 0, false
}

// LastValidYear returns the last year with a measurement.
func (s Series) LastValidYear() (int, bool) {
	for i := len(s.values) - 1; i >= 0; i-- {
		if !math.IsNaN(s.values[i]) {
			return s.Start + i, true
		}
	}
	return 0, false
}

// Trim returns the series restricted to [FirstValidYear, LastValidYear].
// A series without measurements trims to an empty series.
func (s Series) Trim() Series {
	first, ok := s.FirstValidYear()
	if !ok {
		return Series{Name: s.Name}
	}
	last, _ := s.LastValidYear()
	return NewSeriesFromSlice(s.Name, first, s.values[first-s.Start:last-s.Start+1])
}

// Matrix is one parsed ring-width file: a shared year axis and its sample columns.
type Matrix struct {
	Name    string
	Start   int
	End     int
	Samples []Series
}

// NewMatrix builds a Matrix whose axis covers every sample.
func NewMatrix(name string, samples []Series) Matrix {
	m := Matrix{Name: name, Samples: samples}
	first := true
	for _, s := range samples {
		if s.Len() == 0 {
			continue
		}
		if first || s.Start < m.Start {
			m.Start = s.Start
		}
		if first || s.End() > m.End {
			m.End = s.End()
		}
		first = false
	}
	return m
}

// Years returns the number of years on the matrix axis.
func (m Matrix) Years() int {
	if len(m.Samples) == 0 {
		return 0
	}
	return m.End - m.Start + 1
}

// SampleNames returns sample names in column order.
func (m Matrix) SampleNames() []string {
	names := make([]string, len(m.Samples))
	for i, s := range m.Samples {
		names[i] = s.Name
	}
	return names
}
