// Package simulation runs the reconstruction for every sample of a ring-width matrix
// under each initial-width trial.
package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/ringbiomass/internal/allometry"
	"github.com/chrissnell/ringbiomass/internal/correction"
	"github.com/chrissnell/ringbiomass/internal/reconstruct"
	"github.com/chrissnell/ringbiomass/internal/rings"
)

// Variable names one output series of a sample.
type Variable string

const (
	Dia       Variable = "dia"
	Bio       Variable = "bio"
	DeltaDia  Variable = "delta_dia"
	DeltaBio  Variable = "delta_bio"
	Diaa      Variable = "diaa"
	Bioo      Variable = "bioo"
	DeltaDiaa Variable = "delta_diaa"
	DeltaBioo Variable = "delta_bioo"
	Age       Variable = "age"
)

// Variables lists every output variable in file order.
var Variables = []Variable{Dia, Bio, DeltaDia, DeltaBio, Diaa, Bioo, DeltaDiaa, DeltaBioo, Age}

// Corrected reports whether v derives from the corrected diameter.
func (v Variable) Corrected() bool {
	switch v {
	case Diaa, Bioo, DeltaDiaa, DeltaBioo:
		return true
	}
	return false
}

// ParseVariable validates a variable name.
func ParseVariable(s string) (Variable, error) {
	for _, v := range Variables {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown variable %q", s)
}

// Trial is one initial-width scenario. Random mode yields one trial per drawn bias;
// the other modes yield a single trial with bias 0.
type Trial struct {
	Index int
	Bias  float64
}

// Label renders the trial bias as it appears in column names.
func (t Trial) Label() string {
	return strconv.FormatFloat(t.Bias, 'f', -1, 64)
}

// SampleResult is one sample reconstructed under one trial. Every series in Series starts
// at Start and has the same length.
type SampleResult struct {
	Sample string
	Trial  int
	// Bias is the initial-width bias applied to this sample.
	Bias   float64
	Start  int
	Series map[Variable][]float64
}

// End returns the last year of the result.
func (r SampleResult) End() int {
	return r.Start + len(r.Series[Dia]) - 1
}

// Result is a complete run over one matrix.
type Result struct {
	Site    rings.SiteContext
	Source  string
	Config  correction.Config
	Trials  []Trial
	Samples []SampleResult
	// Skipped lists samples with no valid measurement.
	Skipped []string
}

// Driver owns the resolver and the worker pool used for reconstructions.
type Driver struct {
	resolver *allometry.Resolver
	logger   *zap.SugaredLogger
	workers  int
	seed     int64
}

// NewDriver creates a Driver. workers <= 0 uses GOMAXPROCS. A zero seed draws random
// biases from the clock.
func NewDriver(resolver *allometry.Resolver, logger *zap.SugaredLogger, workers int, seed int64) *Driver {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Driver{resolver: resolver, logger: logger, workers: workers, seed: seed}
}

// Trials expands the initial-width configuration into trials.
func (d *Driver) Trials(cfg correction.InitialWidth) ([]Trial, error) {
	if cfg.Mode != correction.InitialRandom {
		return []Trial{{Index: 0, Bias: 0}}, nil
	}

	seed := d.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	biases, err := DrawBiases(rand.New(rand.NewSource(seed)), cfg.Min, cfg.Max, cfg.Trials)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", correction.ErrInvalidConfig, err)
	}
	trials := make([]Trial, len(biases))
	for i, b := range biases {
		trials[i] = Trial{Index: i, Bias: b}
	}
	return trials, nil
}

// Run reconstructs every sample of m under every trial. The configuration is validated
// before any work starts. A sample without measurements is skipped and logged.
func (d *Driver) Run(ctx context.Context, m rings.Matrix, site rings.SiteContext, cfg correction.Config) (*Result, error) {
	if err := cfg.Validate(len(m.Samples)); err != nil {
		return nil, err
	}
	trials, err := d.Trials(cfg.InitialWidth)
	if err != nil {
		return nil, err
	}

	d.logger.Infof("reconstructing %d samples x %d trials for %s (corrections %s)",
		len(m.Samples), len(trials), site, cfg.CodeSuffix())

	ns := len(m.Samples)
	results := make([]*SampleResult, len(trials)*ns)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for ti, trial := range trials {
		for si, sample := range m.Samples {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				bias := trial.Bias
				if cfg.InitialWidth.Mode == correction.InitialFixed {
					bias = cfg.InitialWidth.Biases[si]
				}
				results[ti*ns+si] = d.runSample(gctx, sample, site, cfg.ChainFor(sample.Name, site.Species), trial, bias)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reconstructing %s: %w", m.Name, err)
	}

	res := &Result{Site: site, Source: m.Name, Config: cfg, Trials: trials}
	for i, r := range results {
		if r != nil {
			res.Samples = append(res.Samples, *r)
		} else if i < ns {
			res.Skipped = append(res.Skipped, m.Samples[i].Name)
		}
	}
	for _, name := range res.Skipped {
		d.logger.Warnf("sample %s in %s has no valid measurements, skipped", name, m.Name)
	}
	return res, nil
}

func (d *Driver) runSample(ctx context.Context, s rings.Series, site rings.SiteContext, chain correction.Chain, trial Trial, bias float64) *SampleResult {
	traj, ok := reconstruct.Reconstruct(s, reconstruct.Options{Bias: bias, Chain: chain})
	if !ok {
		return nil
	}

	bio := d.resolver.Biomass(ctx, site.Species, site.Latitude, site.Longitude, traj.Raw)
	bioo := d.resolver.Biomass(ctx, site.Species, site.Latitude, site.Longitude, traj.Corrected)

	return &SampleResult{
		Sample: s.Name,
		Trial:  trial.Index,
		Bias:   bias,
		Start:  traj.Start,
		Series: map[Variable][]float64{
			Dia:       traj.Raw,
			Bio:       bio,
			DeltaDia:  reconstruct.Increments(traj.Raw),
			DeltaBio:  reconstruct.Increments(bio),
			Diaa:      traj.Corrected,
			Bioo:      bioo,
			DeltaDiaa: reconstruct.Increments(traj.Corrected),
			DeltaBioo: reconstruct.Increments(bioo),
			Age:       traj.Age,
		},
	}
}

// ForTrial returns the results of one trial in sample order.
func (r *Result) ForTrial(index int) []SampleResult {
	var out []SampleResult
	for _, s := range r.Samples {
		if s.Trial == index {
			out = append(out, s)
		}
	}
	return out
}
