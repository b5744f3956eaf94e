package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/chrissnell/ringbiomass/internal/correction"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetCorrections() (*CorrectionsData, error)
	GetAllodb() (*AllodbData, error)

	IsReadOnly() bool
	Close() error
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Log         LogData         `yaml:"log" json:"log"`
	Inputs      []string        `yaml:"inputs" json:"inputs"`
	Metadata    MetadataData    `yaml:"metadata" json:"metadata"`
	Output      OutputData      `yaml:"output" json:"output"`
	Corrections CorrectionsData `yaml:"corrections" json:"corrections"`
	Allodb      AllodbData      `yaml:"allodb" json:"allodb"`
	REST        RESTServerData  `yaml:"rest" json:"rest"`
	Workers     int             `yaml:"workers,omitempty" json:"workers,omitempty"`
	Seed        int64           `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// LogData configures logging. File enables a rotated log file next to stderr output.
type LogData struct {
	Debug      bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max-size-mb,omitempty" json:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty" json:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max-age-days,omitempty" json:"max_age_days,omitempty"`
}

// MetadataData selects the site metadata source. When both CSV and SQLite are set the
// CSV sites are imported into SQLite. SiteDefaults apply to sites neither source knows;
// SiteOverrides are keyed by site id and always win.
type MetadataData struct {
	CSV           string              `yaml:"csv,omitempty" json:"csv,omitempty"`
	SQLite        string              `yaml:"sqlite,omitempty" json:"sqlite,omitempty"`
	SiteDefaults  SiteData            `yaml:"site-defaults,omitempty" json:"site_defaults,omitempty"`
	SiteOverrides map[string]SiteData `yaml:"site-overrides,omitempty" json:"site_overrides,omitempty"`
}

// SiteData is a partial site context. Empty fields are left to the metadata source.
type SiteData struct {
	Species   string   `yaml:"species,omitempty" json:"species,omitempty"`
	Region    string   `yaml:"region,omitempty" json:"region,omitempty"`
	Latitude  *float64 `yaml:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64 `yaml:"longitude,omitempty" json:"longitude,omitempty"`
}

func (s SiteData) validate(name string) error {
	if s.Latitude != nil && (*s.Latitude < -90 || *s.Latitude > 90) {
		return fmt.Errorf("%w: %s latitude %.4f out of range", ErrInvalid, name, *s.Latitude)
	}
	if s.Longitude != nil && (*s.Longitude < -180 || *s.Longitude > 180) {
		return fmt.Errorf("%w: %s longitude %.4f out of range", ErrInvalid, name, *s.Longitude)
	}
	return nil
}

type OutputData struct {
	Dir         string `yaml:"dir" json:"dir"`
	Bundle      bool   `yaml:"bundle,omitempty" json:"bundle,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
}

// CorrectionsData is the user-facing form of correction.Config. Modes are names such as
// "none", "random", "standard" or "allometric".
type CorrectionsData struct {
	InitialWidth InitialWidthData `yaml:"initial-width" json:"initial_width"`
	Geometric    RateData         `yaml:"geometric" json:"geometric"`
	Bark         RateData         `yaml:"bark" json:"bark"`
}

type InitialWidthData struct {
	Mode   string  `yaml:"mode" json:"mode"`
	Min    float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max    float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Trials int     `yaml:"trials,omitempty" json:"trials,omitempty"`
	// Fixed maps an input file base name to one bias per sample column.
	Fixed map[string][]float64 `yaml:"fixed,omitempty" json:"fixed,omitempty"`
}

type RateData struct {
	Mode      string             `yaml:"mode" json:"mode"`
	Rate      *float64           `yaml:"rate,omitempty" json:"rate,omitempty"`
	PerSample map[string]float64 `yaml:"per-sample,omitempty" json:"per_sample,omitempty"`
}

type AllodbData struct {
	URL     string        `yaml:"url,omitempty" json:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

type RESTServerData struct {
	ListenAddr string `yaml:"listen-addr,omitempty" json:"listen_addr,omitempty"`
}

// Default rates used when a rate mode is selected without a rate.
const (
	DefaultGeometricRate = 1.0
	DefaultBarkRate      = 0.05
)

// SetDefaults fills unset fields.
func (c *ConfigData) SetDefaults() {
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Output.Concurrency <= 0 {
		c.Output.Concurrency = 4
	}
	if c.Allodb.Timeout <= 0 {
		c.Allodb.Timeout = 25 * time.Second
	}
	if c.REST.ListenAddr == "" {
		c.REST.ListenAddr = ":8080"
	}
	if c.Log.File != "" {
		if c.Log.MaxSizeMB <= 0 {
			c.Log.MaxSizeMB = 100
		}
		if c.Log.MaxBackups <= 0 {
			c.Log.MaxBackups = 3
		}
		if c.Log.MaxAgeDays <= 0 {
			c.Log.MaxAgeDays = 28
		}
	}
}

// Validate checks everything that can be checked without reading input files.
func (c *ConfigData) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalid)
	}
	if err := c.Metadata.SiteDefaults.validate("site-defaults"); err != nil {
		return err
	}
	for id, site := range c.Metadata.SiteOverrides {
		if err := site.validate("site-overrides " + id); err != nil {
			return err
		}
	}
	built, err := c.Corrections.Build("")
	if err != nil {
		return err
	}
	if err := built.Validate(len(built.InitialWidth.Biases)); err != nil {
		return err
	}
	iw := c.Corrections.InitialWidth
	if m, _ := correction.ParseInitialWidthMode(iw.Mode); m == correction.InitialFixed {
		for _, in := range c.Inputs {
			if _, ok := iw.Fixed[fileKey(in)]; !ok {
				return fmt.Errorf("%w: no fixed biases for input %s", ErrInvalid, in)
			}
		}
	}
	return nil
}

// Build converts the correction settings for the input file named file. Fixed biases are
// looked up by the file's base name without extension.
func (c CorrectionsData) Build(file string) (correction.Config, error) {
	var cfg correction.Config
	var err error

	if cfg.InitialWidth.Mode, err = correction.ParseInitialWidthMode(c.InitialWidth.Mode); err != nil {
		return cfg, err
	}
	cfg.InitialWidth.Min = c.InitialWidth.Min
	cfg.InitialWidth.Max = c.InitialWidth.Max
	cfg.InitialWidth.Trials = c.InitialWidth.Trials
	if file != "" {
		cfg.InitialWidth.Biases = c.InitialWidth.Fixed[fileKey(file)]
	}

	if cfg.Geometric.Mode, err = correction.ParseGeometricMode(c.Geometric.Mode); err != nil {
		return cfg, err
	}
	cfg.Geometric.Rates = c.Geometric.table(DefaultGeometricRate)

	if cfg.Bark.Mode, err = correction.ParseBarkMode(c.Bark.Mode); err != nil {
		return cfg, err
	}
	cfg.Bark.Rates = c.Bark.table(DefaultBarkRate)

	return cfg, nil
}

func (r RateData) table(def float64) correction.RateTable {
	t := correction.RateTable{Default: def, PerSample: r.PerSample}
	if r.Rate != nil {
		t.Default = *r.Rate
	}
	return t
}

func fileKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Open returns the provider for path: SQLite for .db, .sqlite and .sqlite3 files, YAML
// otherwise.
func Open(path string) (ConfigProvider, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		p, err := NewSQLiteProvider(path)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return NewYAMLProvider(path), nil
}
