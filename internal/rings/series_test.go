package rings

import (
	"math"
	"testing"
)

func TestNewSeries(t *testing.T) {
	s := NewSeries("A01", map[int]float64{1992: 3.0, 1990: 2.0})

	if s.Start != 1990 || s.End() != 1992 || s.Len() != 3 {
		t.Fatalf("axis = [%d,%d] len %d, expected [1990,1992] len 3", s.Start, s.End(), s.Len())
	}

	if _, ok := s.Value(1991); ok {
		t.Errorf("1991 should be missing")
	}
	if v, ok := s.Value(1992); !ok || v != 3.0 {
		t.Errorf("Value(1992) = %v,%v expected 3,true", v, ok)
	}
	if _, ok := s.Value(1989); ok {
		t.Errorf("years before the axis should be absent")
	}
	if years := s.Years(); len(years) != 3 || years[0] != 1990 || years[2] != 1992 {
		t.Errorf("Years() = %v", years)
	}
}

func TestValidYearBounds(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name      string
		values    []float64
		first     int
		last      int
		expectsOK bool
	}{
		{"leading and trailing gaps", []float64{nan, 1, 2, nan}, 2001, 2002, true},
		{"all missing", []float64{nan, nan}, 0, 0, false},
		{"single", []float64{4}, 2000, 2000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSeriesFromSlice("x", 2000, tt.values)
			first, ok := s.FirstValidYear()
			if ok != tt.expectsOK {
				t.Fatalf("FirstValidYear ok = %v, expected %v", ok, tt.expectsOK)
			}
			last, _ := s.LastValidYear()
			if ok && (first != tt.first || last != tt.last) {
				t.Errorf("bounds = [%d,%d], expected [%d,%d]", first, last, tt.first, tt.last)
			}
		})
	}
}

func TestTrim(t *testing.T) {
	nan := math.NaN()
	s := NewSeriesFromSlice("x", 1900, []float64{nan, nan, 1, nan, 2, nan})
	trimmed := s.Trim()

	if trimmed.Start != 1902 || trimmed.End() != 1904 {
		t.Errorf("trimmed axis = [%d,%d], expected [1902,1904]", trimmed.Start, trimmed.End())
	}
	if _, ok := trimmed.Value(1903); ok {
		t.Errorf("inner gap should survive trimming")
	}
}

func TestValuesIsCopy(t *testing.T) {
	s := NewSeriesFromSlice("x", 2000, []float64{1, 2})
	v := s.Values()
	v[0] = 99

	if got, _ := s.Value(2000); got != 1 {
		t.Errorf("series mutated through Values(): got %v", got)
	}
}

func TestNewMatrix(t *testing.T) {
	m := NewMatrix("site", []Series{
		NewSeriesFromSlice("a", 1950, []float64{1, 2, 3}),
		NewSeriesFromSlice("b", 1948, []float64{1, 2}),
		{Name: "empty"},
	})

	if m.Start != 1948 || m.End != 1952 || m.Years() != 5 {
		t.Errorf("axis = [%d,%d] years %d, expected [1948,1952] years 5", m.Start, m.End, m.Years())
	}
	if names := m.SampleNames(); len(names) != 3 || names[2] != "empty" {
		t.Errorf("SampleNames = %v", names)
	}
}
