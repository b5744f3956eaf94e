package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrissnell/ringbiomass/internal/rings"
)

const metadataCSV = `site_id,tree_species_code,region,latitude,longitude
CA533,pilo,north-america,37.5,-118.2
GER01,PCAB,europe,,
`

func writeMetadata(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.csv")
	if err := os.WriteFile(path, []byte(metadataCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVProvider(t *testing.T) {
	p, err := NewCSVProvider(writeMetadata(t))
	if err != nil {
		t.Fatalf("NewCSVProvider() error = %v", err)
	}
	defer p.Close()
	ctx := context.Background()

	site, err := p.Lookup(ctx, "ca533")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if site.Species != "PILO" || site.Region != "north-america" || !site.HasCoordinates() {
		t.Errorf("unexpected site %+v", site)
	}
	if *site.Latitude != 37.5 || *site.Longitude != -118.2 {
		t.Errorf("coordinates = %v, %v", *site.Latitude, *site.Longitude)
	}

	site, _ = p.Lookup(ctx, "GER01")
	if site.HasCoordinates() {
		t.Errorf("blank coordinates should be nil, got %+v", site)
	}

	site, err = p.Lookup(ctx, "unknown")
	if err != nil || site.Species != rings.DefaultSpecies || site.Latitude != nil || site.SiteID != "unknown" {
		t.Errorf("absent site should get defaults, got %+v, %v", site, err)
	}
}

func TestCSVProviderMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	os.WriteFile(path, []byte("site,species\nx,PIPO\n"), 0o644)
	if _, err := NewCSVProvider(path); err == nil {
		t.Error("expected an error for missing columns")
	}
}

func TestSQLiteProvider(t *testing.T) {
	p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "sites.db"))
	if err != nil {
		t.Fatalf("NewSQLiteProvider() error = %v", err)
	}
	defer p.Close()
	ctx := context.Background()

	site, err := p.Lookup(ctx, "nowhere")
	if err != nil || site.Species != rings.DefaultSpecies || site.HasCoordinates() {
		t.Errorf("absent site should get defaults, got %+v, %v", site, err)
	}

	want := rings.SiteContext{SiteID: "ca533", Species: "PILO", Region: "north-america", Latitude: rings.Float(37.5), Longitude: rings.Float(-118.2)}
	if err := p.Upsert(ctx, want); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	site, err = p.Lookup(ctx, "CA533")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if site.Species != "PILO" || site.Region != "north-america" || *site.Latitude != 37.5 || *site.Longitude != -118.2 {
		t.Errorf("unexpected site %+v", site)
	}

	want.Species = "PIPO"
	want.Latitude, want.Longitude = nil, nil
	if err := p.Upsert(ctx, want); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	site, _ = p.Lookup(ctx, "ca533")
	if site.Species != "PIPO" || site.HasCoordinates() {
		t.Errorf("update not applied: %+v", site)
	}
}

func TestSQLiteImport(t *testing.T) {
	csvProvider, err := NewCSVProvider(writeMetadata(t))
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "sites.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	ctx := context.Background()
	if err := p.Import(ctx, csvProvider.Static); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	site, _ := p.Lookup(ctx, "GER01")
	if site.Species != "PCAB" || site.Region != "europe" {
		t.Errorf("imported site = %+v", site)
	}
}

func TestWithDefaults(t *testing.T) {
	csvProvider, err := NewCSVProvider(writeMetadata(t))
	if err != nil {
		t.Fatal(err)
	}
	fallback := rings.SiteContext{SiteID: "ignored", Species: "psme", Region: "north-america"}
	overrides := map[string]rings.SiteContext{
		"GER01": {Latitude: rings.Float(50.1), Longitude: rings.Float(8.7)},
		"extra": {Species: "ABAL", Region: "europe"},
	}
	p := WithDefaults(csvProvider, fallback, overrides)
	defer p.Close()
	ctx := context.Background()

	tests := []struct {
		id              string
		species, region string
		coordinates     bool
	}{
		{"CA533", "PILO", "north-america", true},
		{"ger01", "PCAB", "europe", true},
		{"unlisted", "PSME", "north-america", false},
		{"EXTRA", "ABAL", "europe", false},
	}
	for _, tt := range tests {
		site, err := p.Lookup(ctx, tt.id)
		if err != nil {
			t.Fatalf("Lookup(%q) error = %v", tt.id, err)
		}
		if site.Species != tt.species || site.Region != tt.region || site.HasCoordinates() != tt.coordinates {
			t.Errorf("Lookup(%q) = %+v", tt.id, site)
		}
	}

	site, _ := p.Lookup(ctx, "unlisted")
	if site.SiteID != "unlisted" {
		t.Errorf("fallback replaced the site id: %+v", site)
	}
	if site, _ := p.Lookup(ctx, "GER01"); *site.Latitude != 50.1 {
		t.Errorf("override coordinates not applied: %+v", site)
	}
}

func TestWithDefaultsEmptyFallback(t *testing.T) {
	p := WithDefaults(Static{}, rings.SiteContext{}, nil)
	site, err := p.Lookup(context.Background(), "x")
	if err != nil || site != rings.DefaultSite("x") {
		t.Errorf("Lookup() = %+v, %v", site, err)
	}
}
