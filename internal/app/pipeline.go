package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/chrissnell/ringbiomass/internal/chronology"
	"github.com/chrissnell/ringbiomass/internal/correction"
	"github.com/chrissnell/ringbiomass/internal/rings"
	"github.com/chrissnell/ringbiomass/internal/simulation"
)

// Chronologies holds one chronology per trial for every output variable.
type Chronologies map[simulation.Variable][]chronology.TrialChronology

// Pipeline runs the reconstruction and aggregation of one ring-width matrix. It is shared
// by the batch runner and the HTTP API.
type Pipeline struct {
	driver     *simulation.Driver
	aggregator *chronology.Aggregator
	logger     *zap.SugaredLogger
}

// NewPipeline wires a driver and an aggregator with default biweight options.
func NewPipeline(driver *simulation.Driver, logger *zap.SugaredLogger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pipeline{
		driver:     driver,
		aggregator: chronology.NewAggregator(chronology.DefaultOptions(), logger),
		logger:     logger,
	}
}

// Process reconstructs every sample of m and aggregates each variable per trial.
func (p *Pipeline) Process(ctx context.Context, m rings.Matrix, site rings.SiteContext, cfg correction.Config) (*simulation.Result, Chronologies, error) {
	res, err := p.driver.Run(ctx, m, site, cfg)
	if err != nil {
		return nil, nil, err
	}

	chrons := make(Chronologies, len(simulation.Variables))
	for _, v := range simulation.Variables {
		chrons[v] = p.aggregator.ByTrial(res, v)
	}
	return res, chrons, nil
}
