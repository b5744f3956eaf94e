package simulation

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/chrissnell/ringbiomass/internal/allometry"
	"github.com/chrissnell/ringbiomass/internal/correction"
	"github.com/chrissnell/ringbiomass/internal/rings"
)

func testMatrix() rings.Matrix {
	return rings.NewMatrix("site01", []rings.Series{
		rings.NewSeriesFromSlice("A01", 1990, []float64{2, 3, 4}),
		rings.NewSeriesFromSlice("A02", 1991, []float64{1, 1}),
	})
}

func TestDrawBiases(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	biases, err := DrawBiases(rng, 0, 1, 5)
	if err != nil {
		t.Fatalf("DrawBiases() error = %v", err)
	}
	if len(biases) != 5 {
		t.Fatalf("expected 5 biases, got %d", len(biases))
	}

	seen := map[float64]bool{}
	for _, b := range biases {
		if b < 0 || b > 1 {
			t.Errorf("bias %v outside [0, 1]", b)
		}
		if seen[b] {
			t.Errorf("duplicate bias %v", b)
		}
		seen[b] = true
		if math.Abs(b*1000-math.Round(b*1000)) > 1e-6 {
			t.Errorf("bias %v is not rounded to three decimals", b)
		}
	}
}

func TestDrawBiasesErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	tests := []struct {
		name     string
		min, max float64
		trials   int
	}{
		{"zero trials", 0, 1, 0},
		{"inverted range", 1, 0, 3},
		{"too narrow", 0, 0.002, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DrawBiases(rng, tt.min, tt.max, tt.trials); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := DrawBiases(rng, 0, 0.002, 5); !errors.Is(err, ErrBiasRange) {
		t.Errorf("expected ErrBiasRange, got %v", err)
	}

	// The whole range can be exhausted.
	all, err := DrawBiases(rng, 0, 0.002, 3)
	if err != nil || len(all) != 3 || all[0] != 0 || all[2] != 0.002 {
		t.Errorf("DrawBiases exhaustive = %v, %v", all, err)
	}
}

func TestRunRandomTrials(t *testing.T) {
	d := NewDriver(allometry.NewResolver(nil, nil, nil), nil, 4, 7)
	cfg := correction.Config{
		InitialWidth: correction.InitialWidth{Mode: correction.InitialRandom, Min: 0, Max: 1, Trials: 5},
	}

	res, err := d.Run(context.Background(), testMatrix(), rings.DefaultSite("site01"), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Trials) != 5 {
		t.Fatalf("expected 5 trials, got %d", len(res.Trials))
	}
	if len(res.Samples) != 10 {
		t.Fatalf("expected 10 sample results, got %d", len(res.Samples))
	}

	for _, tr := range res.Trials {
		got := res.ForTrial(tr.Index)
		if len(got) != 2 {
			t.Errorf("trial %d has %d samples", tr.Index, len(got))
		}
		for _, s := range got {
			if s.Bias != tr.Bias {
				t.Errorf("sample %s in trial %d labeled with bias %v, expected %v", s.Sample, tr.Index, s.Bias, tr.Bias)
			}
			for _, v := range Variables {
				if len(s.Series[v]) != len(s.Series[Dia]) {
					t.Errorf("%s/%s length %d differs from dia", s.Sample, v, len(s.Series[v]))
				}
			}
			if s.Series[Dia][0] > s.Series[Diaa][0] {
				t.Errorf("positive bias should not shrink the corrected diameter")
			}
		}
	}
}

func TestRunFixedBiases(t *testing.T) {
	d := NewDriver(allometry.NewResolver(nil, nil, nil), nil, 2, 0)
	cfg := correction.Config{
		InitialWidth: correction.InitialWidth{Mode: correction.InitialFixed, Biases: []float64{5, 0}},
	}

	res, err := d.Run(context.Background(), testMatrix(), rings.DefaultSite("site01"), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Trials) != 1 || len(res.Samples) != 2 {
		t.Fatalf("trials = %d samples = %d", len(res.Trials), len(res.Samples))
	}

	a01 := res.Samples[0]
	if a01.Sample != "A01" || a01.Bias != 5 || a01.Start != 1990 {
		t.Fatalf("unexpected first sample %+v", a01)
	}
	if math.Abs(a01.Series[Diaa][0]-1.4) > 1e-9 || math.Abs(a01.Series[Dia][0]-0.4) > 1e-9 {
		t.Errorf("diaa[0] = %v dia[0] = %v", a01.Series[Diaa][0], a01.Series[Dia][0])
	}

	want := allometry.Lookup(rings.DefaultSpecies).Evaluate(0.4)
	if math.Abs(a01.Series[Bio][0]-want) > 1e-9 {
		t.Errorf("bio[0] = %v, expected %v", a01.Series[Bio][0], want)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	d := NewDriver(allometry.NewResolver(nil, nil, nil), nil, 2, 0)

	tests := []struct {
		name string
		cfg  correction.Config
	}{
		{"fixed bias length mismatch", correction.Config{InitialWidth: correction.InitialWidth{Mode: correction.InitialFixed, Biases: []float64{1}}}},
		{"random min equals max", correction.Config{InitialWidth: correction.InitialWidth{Mode: correction.InitialRandom, Min: 1, Max: 1, Trials: 2}}},
		{"random range too narrow", correction.Config{InitialWidth: correction.InitialWidth{Mode: correction.InitialRandom, Min: 0, Max: 0.001, Trials: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := d.Run(context.Background(), testMatrix(), rings.DefaultSite("site01"), tt.cfg)
			if !errors.Is(err, correction.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if res != nil {
				t.Error("no result should be produced for an invalid configuration")
			}
		})
	}
}

func TestRunSkipsEmptySamples(t *testing.T) {
	m := rings.NewMatrix("site02", []rings.Series{
		rings.NewSeriesFromSlice("B01", 2000, []float64{1, 2}),
		rings.NewSeriesFromSlice("B02", 2000, []float64{math.NaN(), math.NaN()}),
	})
	d := NewDriver(allometry.NewResolver(nil, nil, nil), nil, 2, 0)

	res, err := d.Run(context.Background(), m, rings.DefaultSite("site02"), correction.Config{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Samples) != 1 || len(res.Skipped) != 1 || res.Skipped[0] != "B02" {
		t.Errorf("samples = %d skipped = %v", len(res.Samples), res.Skipped)
	}
}

func TestParseVariable(t *testing.T) {
	if v, err := ParseVariable("delta_bioo"); err != nil || v != DeltaBioo || !v.Corrected() {
		t.Errorf("ParseVariable(delta_bioo) = %v, %v", v, err)
	}
	if Dia.Corrected() {
		t.Error("dia is not a corrected variable")
	}
	if _, err := ParseVariable("height"); err == nil {
		t.Error("expected error for unknown variable")
	}
}
