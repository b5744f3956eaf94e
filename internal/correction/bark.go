package correction

import "math"

// DefaultBarkFraction is the bark thickness, as a fraction of diameter, for species
// without a published formula.
const DefaultBarkFraction = 0.05

// barkFormulas holds the published single-side bark thickness models, keyed by species code.
// Diameter and result are in centimeters.
var barkFormulas = map[string]func(dbh float64) float64{
	// Betula pendula
	"BEPE": func(dbh float64) float64 {
		return dbh * (1 - math.Sqrt(1-25.502*math.Pow(dbh, -0.289)/100)) / 2
	},
	// Fagus sylvatica
	"FASY": func(dbh float64) float64 {
		return 0.01149 * math.Pow(dbh, 0.8516) / 100
	},
	// Picea abies
	"PCAB": func(dbh float64) float64 {
		return 0.02408 * math.Pow(dbh, 0.8723) / 100
	},
	// Pinus pinaster
	"PIPN": func(dbh float64) float64 {
		return 0.103 * math.Pow(dbh, 1.023)
	},
	// Pinus sylvestris
	"PISY": func(dbh float64) float64 {
		return dbh * (1 - math.Sqrt(1-75.492*math.Pow(dbh, -0.654)/100)) / 2
	},
	// Populus nigra
	"PONI": func(dbh float64) float64 {
		return 0.081 * dbh
	},
	// Quercus petraea
	"QUPE": func(dbh float64) float64 {
		return 0.02748 * math.Pow(dbh, 0.6759) / 100
	},
}

// BarkThickness estimates bark thickness for species at diameter dbh (cm).
// The square-root models are undefined for very small stems; those fall back to the
// default fraction rather than returning NaN.
func BarkThickness(species string, dbh float64) float64 {
	if f, ok := barkFormulas[species]; ok {
		if bt := f(dbh); !math.IsNaN(bt) && !math.IsInf(bt, 0) {
			return bt
		}
	}
	return DefaultBarkFraction * dbh
}

// HasBarkFormula reports whether species has a published bark model.
func HasBarkFormula(species string) bool {
	_, ok := barkFormulas[species]
	return ok
}
