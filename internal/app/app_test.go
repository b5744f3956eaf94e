package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrissnell/ringbiomass/internal/correction"
	"github.com/chrissnell/ringbiomass/internal/export"
	"github.com/chrissnell/ringbiomass/internal/rings"
	"github.com/chrissnell/ringbiomass/internal/simulation"
	"github.com/chrissnell/ringbiomass/pkg/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *config.ConfigData {
	t.Helper()
	dir := t.TempDir()
	input := writeFile(t, dir, "site01.csv", "Year,A01,A02\n2000,1.0,0.5\n2001,2.0,0.7\n2002,1.5,NA\n")
	sites := writeFile(t, dir, "sites.csv", "site_id,tree_species_code,latitude,longitude\nsite01,PSME,45.0,-120.0\n")

	cfg := &config.ConfigData{
		Inputs:   []string{input, filepath.Join(dir, "missing.rwl")},
		Metadata: config.MetadataData{CSV: sites},
		Output:   config.OutputData{Dir: filepath.Join(dir, "out"), Bundle: true},
		Corrections: config.CorrectionsData{
			InitialWidth: config.InitialWidthData{Mode: "random", Min: 0, Max: 1, Trials: 3},
			Geometric:    config.RateData{Mode: "standard"},
			Bark:         config.RateData{Mode: "rate"},
		},
		Workers: 2,
		Seed:    7,
	}
	cfg.SetDefaults()
	return cfg
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	manifest, err := a.Run(context.Background())
	if err == nil {
		t.Error("expected an error for the missing input")
	}
	if manifest == nil || len(manifest.Files) != 2 {
		t.Fatalf("manifest = %+v", manifest)
	}
	if manifest.RunID == "" {
		t.Error("run ID not set")
	}

	ok := manifest.Files[0]
	if ok.Error != "" || ok.Species != "PSME" || ok.Trials != 3 || ok.Corrections != "2_1_2" {
		t.Errorf("report = %+v", ok)
	}
	// nine per-sample tables, nine chronologies and the bundle
	if len(ok.Outputs) != 2*len(simulation.Variables)+1 {
		t.Errorf("expected %d outputs, got %d", 2*len(simulation.Variables)+1, len(ok.Outputs))
	}
	if manifest.Files[1].Error == "" {
		t.Error("missing input should be reported")
	}

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "manifest_"+manifest.RunID+".json"))
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	var stored Manifest
	if err := json.Unmarshal(data, &stored); err != nil || stored.RunID != manifest.RunID {
		t.Errorf("stored manifest = %+v, %v", stored, err)
	}

	bundleData, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "site01_2_1_2.msgpack"))
	if err != nil {
		t.Fatalf("bundle not written: %v", err)
	}
	b, err := export.DecodeBundle(bundleData)
	if err != nil {
		t.Fatalf("DecodeBundle() error = %v", err)
	}
	if b.RunID != manifest.RunID || len(b.Samples) != 6 {
		t.Errorf("bundle run %q with %d samples", b.RunID, len(b.Samples))
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Corrections.InitialWidth.Min = 2
	if _, err := New(cfg, nil); !errors.Is(err, correction.ErrInvalidConfig) {
		t.Errorf("expected correction.ErrInvalidConfig, got %v", err)
	}
}

func TestRunRejectsPerFileConfigBeforeWriting(t *testing.T) {
	twoFiles := func(t *testing.T) *config.ConfigData {
		t.Helper()
		cfg := testConfig(t)
		dir := filepath.Dir(cfg.Inputs[0])
		second := writeFile(t, dir, "site02.csv", "Year,B01,B02\n2000,0.8,0.9\n2001,1.1,1.2\n")
		cfg.Inputs = []string{cfg.Inputs[0], second}
		return cfg
	}

	tests := []struct {
		name string
		iw   config.InitialWidthData
	}{
		{"fixed bias count differs in second file", config.InitialWidthData{
			Mode:  "fixed",
			Fixed: map[string][]float64{"site01": {0.1, 0.2}, "site02": {0.1}},
		}},
		{"random range smaller than trial count", config.InitialWidthData{
			Mode: "random", Min: 0, Max: 0.002, Trials: 5,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := twoFiles(t)
			cfg.Corrections.InitialWidth = tt.iw

			a, err := New(cfg, nil)
			if err == nil {
				defer a.Close()
				var manifest *Manifest
				manifest, err = a.Run(context.Background())
				if manifest != nil {
					t.Errorf("expected no manifest, got %+v", manifest)
				}
			}
			if !errors.Is(err, correction.ErrInvalidConfig) {
				t.Errorf("expected correction.ErrInvalidConfig, got %v", err)
			}

			entries, statErr := os.ReadDir(cfg.Output.Dir)
			if statErr == nil && len(entries) > 0 {
				t.Errorf("output written before the configuration was rejected: %d entries", len(entries))
			} else if statErr != nil && !os.IsNotExist(statErr) {
				t.Fatal(statErr)
			}
		})
	}
}

func TestRunAppliesSiteDefaults(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Dir(cfg.Inputs[0])
	cfg.Inputs = []string{cfg.Inputs[0], writeFile(t, dir, "plot9.csv", "Year,C01\n1990,1.2\n1991,1.4\n")}
	cfg.Metadata.SiteDefaults = config.SiteData{Species: "pipo", Region: "north-america"}
	cfg.Metadata.SiteOverrides = map[string]config.SiteData{"SITE01": {Species: "ABCO"}}

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	manifest, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := manifest.Files[0].Species; got != "ABCO" {
		t.Errorf("override species = %q, expected ABCO", got)
	}
	if got := manifest.Files[1].Species; got != "PIPO" {
		t.Errorf("default species = %q, expected PIPO", got)
	}
}

func TestNewSeedsSQLiteFromCSV(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metadata.SQLite = filepath.Join(t.TempDir(), "sites.db")
	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	site, err := a.metadata.Lookup(context.Background(), "SITE01")
	if err != nil || site.Species != "PSME" {
		t.Errorf("Lookup() = %+v, %v", site, err)
	}
}

func TestPipelineProcess(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	m := rings.NewMatrix("x", []rings.Series{
		rings.NewSeriesFromSlice("A", 2000, []float64{1, 1}),
		rings.NewSeriesFromSlice("B", 2000, []float64{1, 1}),
	})
	res, chrons, err := a.Pipeline().Process(context.Background(), m, rings.DefaultSite("x"), correction.Config{})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.Samples) != 2 || len(chrons) != len(simulation.Variables) {
		t.Fatalf("got %d samples and %d chronologies", len(res.Samples), len(chrons))
	}
	dia := chrons[simulation.Dia][0]
	if dia.Depth[0] != 2 || dia.Mean[1] < 0.39 || dia.Mean[1] > 0.41 {
		t.Errorf("dia chronology = %+v", dia.Chronology)
	}
}
