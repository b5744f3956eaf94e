// Package app runs batch reconstructions over the input files named in the configuration.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/ringbiomass/internal/allodb"
	"github.com/chrissnell/ringbiomass/internal/allometry"
	"github.com/chrissnell/ringbiomass/internal/correction"
	"github.com/chrissnell/ringbiomass/internal/export"
	"github.com/chrissnell/ringbiomass/internal/metadata"
	"github.com/chrissnell/ringbiomass/internal/rings"
	"github.com/chrissnell/ringbiomass/internal/rwl"
	"github.com/chrissnell/ringbiomass/internal/simulation"
	"github.com/chrissnell/ringbiomass/pkg/config"
)

// maxConcurrentFiles bounds how many input files are processed at once. Each file fans
// out further inside the driver.
const maxConcurrentFiles = 2

// App represents the batch application
type App struct {
	cfg      *config.ConfigData
	logger   *zap.SugaredLogger
	resolver *allometry.Resolver
	pipeline *Pipeline
	metadata metadata.Provider
	writer   *export.Writer
}

// Manifest records what a run read and wrote.
type Manifest struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Files      []FileReport `json:"files"`
}

// FileReport is the outcome of one input file.
type FileReport struct {
	Input       string   `json:"input"`
	Site        string   `json:"site"`
	Species     string   `json:"species,omitempty"`
	Corrections string   `json:"corrections,omitempty"`
	Samples     int      `json:"samples"`
	Trials      int      `json:"trials"`
	Skipped     []string `json:"skipped,omitempty"`
	Outputs     []string `json:"outputs,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// New validates cfg and builds the components it selects. Configuration errors are
// returned here, before any input is read.
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	md, err := openMetadata(context.Background(), cfg.Metadata)
	if err != nil {
		return nil, err
	}

	var source allometry.EquationSource
	if cfg.Allodb.URL != "" {
		source = allodb.New(cfg.Allodb.URL, cfg.Allodb.Timeout)
		logger.Infof("using allometric equation service at %s", cfg.Allodb.URL)
	}
	resolver := allometry.NewResolver(source, allometry.NewCache(), logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		resolver: resolver,
		pipeline: NewPipeline(simulation.NewDriver(resolver, logger, cfg.Workers, cfg.Seed), logger),
		metadata: md,
		writer:   export.NewWriter(cfg.Output.Dir, cfg.Output.Concurrency, logger),
	}, nil
}

// Pipeline returns the pipeline used for every file.
func (a *App) Pipeline() *Pipeline {
	return a.pipeline
}

// Resolver returns the shared allometric resolver.
func (a *App) Resolver() *allometry.Resolver {
	return a.resolver
}

// Close releases the metadata source.
func (a *App) Close() error {
	return a.metadata.Close()
}

// input is one configured file after the preflight pass. err holds a read failure, which
// is reported per file rather than aborting the run.
type input struct {
	path string
	m    rings.Matrix
	cc   correction.Config
	err  error
}

// Run processes every configured input file. Every file is read and its corrections are
// checked against its sample count first; a configuration error aborts the run before any
// output is written. After that a failing file is logged and reported in the manifest
// without stopping the others; the joined file errors are returned.
func (a *App) Run(ctx context.Context) (*Manifest, error) {
	inputs, err := a.prepare()
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)
	manifest := &Manifest{RunID: runID, StartedAt: time.Now().UTC()}

	if err := os.MkdirAll(a.cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	logger.Infof("processing %d input files", len(inputs))

	reports := make([]FileReport, len(inputs))
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(maxConcurrentFiles)
	for i, in := range inputs {
		g.Go(func() error {
			report, err := a.processFile(ctx, runID, in)
			if err != nil {
				logger.Errorf("processing %s: %v", in.path, err)
				report.Error = err.Error()
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", in.path, err))
				mu.Unlock()
			}
			reports[i] = report
			return nil
		})
	}
	g.Wait()

	manifest.Files = reports
	manifest.FinishedAt = time.Now().UTC()
	if err := writeManifest(filepath.Join(a.cfg.Output.Dir, "manifest_"+runID+".json"), manifest); err != nil {
		errs = append(errs, err)
	}

	cache := a.resolver.Cache()
	logger.Infof("run complete: %d files, %d failed, biomass cache %d hits / %d misses",
		len(reports), len(errs), cache.Hits(), cache.Misses())

	return manifest, errors.Join(errs...)
}

// prepare reads every input and validates its corrections against the file's samples.
func (a *App) prepare() ([]input, error) {
	inputs := make([]input, len(a.cfg.Inputs))
	for i, path := range a.cfg.Inputs {
		in := input{path: path}

		cc, err := a.cfg.Corrections.Build(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		in.cc = cc

		in.m, in.err = rwl.ReadFile(path)
		if in.err == nil {
			if err := cc.Validate(len(in.m.Samples)); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
		inputs[i] = in
	}
	return inputs, nil
}

func (a *App) processFile(ctx context.Context, runID string, in input) (FileReport, error) {
	report := FileReport{Input: in.path, Site: rwl.SiteName(in.path)}
	if in.err != nil {
		return report, in.err
	}
	m, cc := in.m, in.cc
	report.Samples = len(m.Samples)
	report.Corrections = cc.CodeSuffix()

	site, err := a.metadata.Lookup(ctx, m.Name)
	if err != nil {
		return report, fmt.Errorf("site metadata: %w", err)
	}
	report.Species = site.Species

	res, chrons, err := a.pipeline.Process(ctx, m, site, cc)
	if err != nil {
		return report, err
	}
	report.Trials = len(res.Trials)
	report.Skipped = res.Skipped

	written, err := a.writer.WriteResult(ctx, m.Name, res, chrons)
	report.Outputs = written
	if err != nil {
		return report, err
	}

	if a.cfg.Output.Bundle {
		path := filepath.Join(a.writer.Dir(), fmt.Sprintf("%s_%s.msgpack", m.Name, cc.CodeSuffix()))
		if err := export.WriteBundle(path, export.NewBundle(runID, res, chrons)); err != nil {
			return report, err
		}
		report.Outputs = append(report.Outputs, path)
	}

	a.logger.Infof("%s: wrote %d files", in.path, len(report.Outputs))
	return report, nil
}

// openMetadata picks the SQLite catalog when configured, seeding it from the CSV file
// when both are set. The configured site defaults and overrides are layered on top.
func openMetadata(ctx context.Context, cfg config.MetadataData) (metadata.Provider, error) {
	catalog, err := openCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]rings.SiteContext, len(cfg.SiteOverrides))
	for id, site := range cfg.SiteOverrides {
		overrides[id] = siteContext(site)
	}
	return metadata.WithDefaults(catalog, siteContext(cfg.SiteDefaults), overrides), nil
}

func openCatalog(ctx context.Context, cfg config.MetadataData) (metadata.Catalog, error) {
	var csvSites metadata.Static
	if cfg.CSV != "" {
		p, err := metadata.NewCSVProvider(cfg.CSV)
		if err != nil {
			return nil, err
		}
		if cfg.SQLite == "" {
			return p, nil
		}
		csvSites = p.Static
	}

	if cfg.SQLite == "" {
		return metadata.Static{}, nil
	}

	db, err := metadata.NewSQLiteProvider(cfg.SQLite)
	if err != nil {
		return nil, err
	}
	if len(csvSites) > 0 {
		if err := db.Import(ctx, csvSites); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

func siteContext(s config.SiteData) rings.SiteContext {
	return rings.SiteContext{Species: s.Species, Region: s.Region, Latitude: s.Latitude, Longitude: s.Longitude}
}

func writeManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
