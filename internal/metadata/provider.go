// Package metadata looks up per-site context: species, region and coordinates.
package metadata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chrissnell/ringbiomass/internal/rings"
)

// Provider returns the SiteContext for a site. A site the provider does not know yields
// rings.DefaultSite and no error.
type Provider interface {
	Lookup(ctx context.Context, siteID string) (rings.SiteContext, error)
	Close() error
}

// Static serves a fixed set of sites from memory.
type Static map[string]rings.SiteContext

func (s Static) Lookup(ctx context.Context, siteID string) (rings.SiteContext, error) {
	if site, ok, _ := s.Find(ctx, siteID); ok {
		return site, nil
	}
	return rings.DefaultSite(siteID), nil
}

func (s Static) Find(_ context.Context, siteID string) (rings.SiteContext, bool, error) {
	site, ok := s[normalizeID(siteID)]
	return site, ok, nil
}

func (s Static) Close() error { return nil }

// Catalog is a Provider that can tell a known site from the fallback.
type Catalog interface {
	Provider
	Find(ctx context.Context, siteID string) (rings.SiteContext, bool, error)
}

// Defaults fills in what a Catalog cannot. Fallback replaces rings.DefaultSite for sites
// the catalog does not know; its SiteID is ignored. Overrides are keyed by site id and
// their non-empty fields win over both the catalog and Fallback.
type Defaults struct {
	Catalog   Catalog
	Fallback  rings.SiteContext
	Overrides map[string]rings.SiteContext
}

// WithDefaults wraps c. Override keys are matched case-insensitively.
func WithDefaults(c Catalog, fallback rings.SiteContext, overrides map[string]rings.SiteContext) *Defaults {
	norm := make(map[string]rings.SiteContext, len(overrides))
	for id, site := range overrides {
		norm[normalizeID(id)] = site
	}
	return &Defaults{Catalog: c, Fallback: fallback, Overrides: norm}
}

func (d *Defaults) Lookup(ctx context.Context, siteID string) (rings.SiteContext, error) {
	site, ok, err := d.Catalog.Find(ctx, siteID)
	if err != nil {
		return rings.SiteContext{}, err
	}
	if !ok {
		site = merge(rings.DefaultSite(siteID), d.Fallback)
	}
	if o, found := d.Overrides[normalizeID(siteID)]; found {
		site = merge(site, o)
	}
	return site, nil
}

func (d *Defaults) Close() error { return d.Catalog.Close() }

func merge(site, over rings.SiteContext) rings.SiteContext {
	if over.Species != "" {
		site.Species = strings.ToUpper(over.Species)
	}
	if over.Region != "" {
		site.Region = over.Region
	}
	if over.Latitude != nil {
		site.Latitude = over.Latitude
	}
	if over.Longitude != nil {
		site.Longitude = over.Longitude
	}
	return site
}

// CSVProvider reads site metadata from a CSV file with the columns site_id,
// tree_species_code, latitude and longitude, plus an optional region column.
type CSVProvider struct {
	Static
}

// NewCSVProvider loads the whole file into memory.
func NewCSVProvider(path string) (*CSVProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()

	sites, err := parseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse metadata file %s: %w", path, err)
	}
	return &CSVProvider{Static: sites}, nil
}

func parseCSV(r io.Reader) (Static, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"site_id", "tree_species_code"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	sites := Static{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		id := field(rec, "site_id")
		if id == "" {
			continue
		}
		site := rings.SiteContext{
			SiteID:  id,
			Species: strings.ToUpper(field(rec, "tree_species_code")),
			Region:  field(rec, "region"),
		}
		if site.Species == "" {
			site.Species = rings.DefaultSpecies
		}
		site.Latitude = parseCoordinate(field(rec, "latitude"))
		site.Longitude = parseCoordinate(field(rec, "longitude"))
		sites[normalizeID(id)] = site
	}
	return sites, nil
}

func parseCoordinate(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
