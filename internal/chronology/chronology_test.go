package chronology

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/ringbiomass/internal/allometry"
	"github.com/chrissnell/ringbiomass/internal/correction"
	"github.com/chrissnell/ringbiomass/internal/rings"
	"github.com/chrissnell/ringbiomass/internal/simulation"
)

func TestBiweightMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
		epsilon  float64
	}{
		{"two values", []float64{5, 7}, 6, 1e-9},
		{"single value", []float64{3.5}, 3.5, 1e-12},
		{"identical", []float64{2, 2, 2}, 2, 1e-12},
		{"ignores NaN", []float64{5, math.NaN(), 7}, 6, 1e-9},
		{"symmetric", []float64{1, 2, 3, 4, 5}, 3, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BiweightMean(tt.values, DefaultOptions())
			if err != nil {
				t.Fatalf("BiweightMean() error = %v", err)
			}
			if math.Abs(got-tt.expected) > tt.epsilon {
				t.Errorf("BiweightMean(%v) = %v, expected %v", tt.values, got, tt.expected)
			}
		})
	}
}

func TestBiweightMeanResistsOutliers(t *testing.T) {
	values := []float64{10, 10.2, 9.8, 10.1, 9.9, 500}
	got, err := BiweightMean(values, DefaultOptions())
	if err != nil {
		t.Fatalf("BiweightMean() error = %v", err)
	}
	if math.Abs(got-10) > 0.1 {
		t.Errorf("outlier should be down-weighted, got %v", got)
	}
}

func TestBiweightMeanErrors(t *testing.T) {
	if _, err := BiweightMean(nil, DefaultOptions()); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := BiweightMean([]float64{math.NaN()}, DefaultOptions()); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData for all-missing input, got %v", err)
	}
	if _, err := BiweightMean([]float64{1, math.Inf(1)}, DefaultOptions()); err == nil {
		t.Error("expected an error for infinite input")
	}
}

func TestAggregateDepth(t *testing.T) {
	a := NewAggregator(DefaultOptions(), nil)
	cols := []Column{
		{Start: 2000, Values: []float64{5}},
		{Start: 2000, Values: []float64{7}},
	}

	c := a.Aggregate(cols)
	if c.Start != 2000 || len(c.Mean) != 1 {
		t.Fatalf("unexpected chronology %+v", c)
	}
	if math.Abs(c.Mean[0]-6) > 1e-9 || c.Depth[0] != 2 {
		t.Errorf("year 2000 mean = %v depth = %d", c.Mean[0], c.Depth[0])
	}

	cols = append(cols, Column{Start: 2000, Values: []float64{math.NaN()}})
	c = a.Aggregate(cols)
	if c.Depth[0] != 2 {
		t.Errorf("missing value should not add depth, got %d", c.Depth[0])
	}
}

func TestAggregateUnionAxis(t *testing.T) {
	a := NewAggregator(DefaultOptions(), nil)
	c := a.Aggregate([]Column{
		{Start: 1990, Values: []float64{1, 2}},
		{Start: 1993, Values: []float64{4}},
	})

	if c.Start != 1990 || c.End() != 1993 {
		t.Fatalf("axis = %d..%d", c.Start, c.End())
	}
	wantDepth := []int{1, 1, 0, 1}
	for i, d := range wantDepth {
		if c.Depth[i] != d {
			t.Errorf("Depth[%d] = %d, expected %d", i, c.Depth[i], d)
		}
	}
	if !math.IsNaN(c.Mean[2]) {
		t.Errorf("empty year should be NaN, got %v", c.Mean[2])
	}
}

func TestAggregateFallback(t *testing.T) {
	a := NewAggregator(DefaultOptions(), nil)
	c := a.Aggregate([]Column{
		{Start: 2000, Values: []float64{1}},
		{Start: 2000, Values: []float64{math.Inf(1)}},
	})
	if c.Depth[0] != 2 || !math.IsInf(c.Mean[0], 1) {
		t.Errorf("fallback mean = %v depth = %d", c.Mean[0], c.Depth[0])
	}
}

func TestAggregateEmpty(t *testing.T) {
	c := NewAggregator(DefaultOptions(), nil).Aggregate(nil)
	if len(c.Mean) != 0 || len(c.Depth) != 0 {
		t.Errorf("expected empty chronology, got %+v", c)
	}
}

func TestByTrial(t *testing.T) {
	m := rings.NewMatrix("site01", []rings.Series{
		rings.NewSeriesFromSlice("A01", 2000, []float64{1, 2, 3}),
		rings.NewSeriesFromSlice("A02", 2000, []float64{2, 2, 2}),
	})
	cfg := correction.Config{
		InitialWidth: correction.InitialWidth{Mode: correction.InitialRandom, Min: 0, Max: 2, Trials: 3},
	}
	d := simulation.NewDriver(allometry.NewResolver(nil, nil, nil), nil, 2, 11)
	res, err := d.Run(context.Background(), m, rings.DefaultSite("site01"), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	chrons := NewAggregator(DefaultOptions(), nil).ByTrial(res, simulation.Diaa)
	if len(chrons) != 3 {
		t.Fatalf("expected one chronology per trial, got %d", len(chrons))
	}
	for i, c := range chrons {
		if i > 0 && c.Trial.Bias < chrons[i-1].Trial.Bias {
			t.Errorf("chronologies should be ordered by bias")
		}
		if c.Start != 2000 || c.Depth[0] != 2 {
			t.Errorf("trial %v: start %d depth %v", c.Trial.Bias, c.Start, c.Depth)
		}
	}
	if chrons[0].Mean[0] >= chrons[2].Mean[0] {
		t.Errorf("larger bias should give a larger first-year corrected diameter")
	}
}
