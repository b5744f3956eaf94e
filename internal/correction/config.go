// Package correction implements the initial-width, geometric and bark corrections applied
// to reconstructed diameters.
package correction

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidConfig is wrapped by every validation failure.
	ErrInvalidConfig = errors.New("invalid correction configuration")

	// ErrUnknownMode is returned when a mode name cannot be parsed.
	ErrUnknownMode = errors.New("unknown correction mode")
)

// InitialWidthMode selects how the first measured ring is biased.
type InitialWidthMode int

const (
	InitialNone InitialWidthMode = iota
	InitialFixed
	InitialRandom
)

// GeometricMode selects the pith-to-outer-surface scaling.
type GeometricMode int

const (
	GeometricNone GeometricMode = iota
	// GeometricStandard is the empirical affine calibration d*0.998 + 22.3.
	GeometricStandard
	GeometricRate
)

// BarkMode selects how bark thickness is added.
type BarkMode int

const (
	BarkNone BarkMode = iota
	BarkAllometric
	BarkRate
)

// InitialWidth configures the initial-width bias.
// Fixed uses Biases, one per sample in column order. Random draws Trials values in [Min, Max].
type InitialWidth struct {
	Mode   InitialWidthMode
	Biases []float64
	Min    float64
	Max    float64
	Trials int
}

// Geometric configures the geometric correction. Rates apply only in GeometricRate mode.
type Geometric struct {
	Mode  GeometricMode
	Rates RateTable
}

// Bark configures the bark correction. Rates apply only in BarkRate mode.
type Bark struct {
	Mode  BarkMode
	Rates RateTable
}

// Config is the complete correction setup for one input file.
type Config struct {
	InitialWidth InitialWidth
	Geometric    Geometric
	Bark         Bark
}

// RateTable resolves a per-sample rate with a default.
type RateTable struct {
	Default   float64
	PerSample map[string]float64
}

// For returns the rate configured for sample, or the default.
func (r RateTable) For(sample string) float64 {
	if rate, ok := r.PerSample[sample]; ok {
		return rate
	}
	return r.Default
}

// Validate rejects configurations that cannot run. sampleCount is the number of sample
// columns in the file the configuration will be applied to.
func (c Config) Validate(sampleCount int) error {
	iw := c.InitialWidth
	switch iw.Mode {
	case InitialNone:
	case InitialFixed:
		if len(iw.Biases) != sampleCount {
			return fmt.Errorf("%w: %d fixed biases for %d samples", ErrInvalidConfig, len(iw.Biases), sampleCount)
		}
	case InitialRandom:
		if iw.Trials <= 0 {
			return fmt.Errorf("%w: trial count must be positive, got %d", ErrInvalidConfig, iw.Trials)
		}
		if iw.Min >= iw.Max {
			return fmt.Errorf("%w: random bias min %.3f must be less than max %.3f", ErrInvalidConfig, iw.Min, iw.Max)
		}
		if n := BiasCapacity(iw.Min, iw.Max); n < iw.Trials {
			return fmt.Errorf("%w: [%.3f, %.3f] holds %d distinct biases, need %d", ErrInvalidConfig, iw.Min, iw.Max, n, iw.Trials)
		}
	default:
		return fmt.Errorf("%w: initial width mode %d", ErrUnknownMode, iw.Mode)
	}

	switch c.Geometric.Mode {
	case GeometricNone, GeometricStandard:
	case GeometricRate:
		if err := c.Geometric.Rates.validate("geometric"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: geometric mode %d", ErrUnknownMode, c.Geometric.Mode)
	}

	switch c.Bark.Mode {
	case BarkNone, BarkAllometric:
	case BarkRate:
		if err := c.Bark.Rates.validate("bark"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: bark mode %d", ErrUnknownMode, c.Bark.Mode)
	}

	return nil
}

// BiasResolution is the number of random bias steps per millimeter. Drawn biases are
// rounded to three decimals.
const BiasResolution = 1000

// BiasCapacity returns how many distinct rounded biases fit in [min, max].
func BiasCapacity(min, max float64) int {
	lo, hi := math.Ceil(min*BiasResolution), math.Floor(max*BiasResolution)
	if hi < lo {
		return 0
	}
	return int(hi - lo + 1)
}

func (r RateTable) validate(kind string) error {
	if r.Default < 0 {
		return fmt.Errorf("%w: default %s rate %.4f is negative", ErrInvalidConfig, kind, r.Default)
	}
	for sample, rate := range r.PerSample {
		if rate < 0 {
			return fmt.Errorf("%w: %s rate %.4f for sample %s is negative", ErrInvalidConfig, kind, rate, sample)
		}
	}
	return nil
}

// Codes returns the (initial width, geometric, bark) code triple used to label outputs.
func (c Config) Codes() (int, int, int) {
	return int(c.InitialWidth.Mode), int(c.Geometric.Mode), int(c.Bark.Mode)
}

// CodeSuffix renders Codes as "iw_geo_bark".
func (c Config) CodeSuffix() string {
	iw, geo, bark := c.Codes()
	return fmt.Sprintf("%d_%d_%d", iw, geo, bark)
}

// ParseInitialWidthMode parses "none", "fixed" or "random".
func ParseInitialWidthMode(s string) (InitialWidthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "no":
		return InitialNone, nil
	case "fixed", "customize", "custom":
		return InitialFixed, nil
	case "random":
		return InitialRandom, nil
	}
	return InitialNone, fmt.Errorf("%w: initial width %q", ErrUnknownMode, s)
}

// ParseGeometricMode parses "none", "standard" or "rate".
func ParseGeometricMode(s string) (GeometricMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return GeometricNone, nil
	case "standard", "lockwood":
		return GeometricStandard, nil
	case "rate", "user":
		return GeometricRate, nil
	}
	return GeometricNone, fmt.Errorf("%w: geometric %q", ErrUnknownMode, s)
}

// ParseBarkMode parses "none", "allometric" or "rate".
func ParseBarkMode(s string) (BarkMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "no":
		return BarkNone, nil
	case "allometric", "allometry":
		return BarkAllometric, nil
	case "rate", "user", "custom":
		return BarkRate, nil
	}
	return BarkNone, fmt.Errorf("%w: bark %q", ErrUnknownMode, s)
}

func (m InitialWidthMode) String() string {
	switch m {
	case InitialNone:
		return "none"
	case InitialFixed:
		return "fixed"
	case InitialRandom:
		return "random"
	}
	return fmt.Sprintf("InitialWidthMode(%d)", int(m))
}

func (m GeometricMode) String() string {
	switch m {
	case GeometricNone:
		return "none"
	case GeometricStandard:
		return "standard"
	case GeometricRate:
		return "rate"
	}
	return fmt.Sprintf("GeometricMode(%d)", int(m))
}

func (m BarkMode) String() string {
	switch m {
	case BarkNone:
		return "none"
	case BarkAllometric:
		return "allometric"
	case BarkRate:
		return "rate"
	}
	return fmt.Sprintf("BarkMode(%d)", int(m))
}
