package correction

// Standard geometric calibration coefficients (Lockwood et al., 2021).
const (
	StandardSlope     = 0.998
	StandardIntercept = 22.3
)

// Chain applies the geometric and bark corrections for one sample.
type Chain struct {
	Geometric     GeometricMode
	GeometricRate float64
	Bark          BarkMode
	BarkRate      float64
	Species       string
}

// ChainFor builds the Chain for sample under cfg.
func (c Config) ChainFor(sample, species string) Chain {
	return Chain{
		Geometric:     c.Geometric.Mode,
		GeometricRate: c.Geometric.Rates.For(sample),
		Bark:          c.Bark.Mode,
		BarkRate:      c.Bark.Rates.For(sample),
		Species:       species,
	}
}

// Apply corrects a single year's diameter in centimeters. It does not depend on any
// other year.
func (ch Chain) Apply(diameter float64) float64 {
	return ch.ApplyBark(ch.ApplyGeometric(diameter))
}

// ApplyGeometric returns the geometrically corrected diameter.
func (ch Chain) ApplyGeometric(diameter float64) float64 {
	switch ch.Geometric {
	case GeometricStandard:
		return diameter*StandardSlope + StandardIntercept
	case GeometricRate:
		return diameter * ch.GeometricRate
	}
	return diameter
}

// ApplyBark adds bark thickness to a geometrically corrected diameter.
func (ch Chain) ApplyBark(diameter float64) float64 {
	switch ch.Bark {
	case BarkRate:
		return diameter + diameter*ch.BarkRate
	case BarkAllometric:
		return diameter + BarkThickness(ch.Species, diameter)
	}
	return diameter
}
