// Package allometry converts stem diameters into aboveground biomass. A general
// cross-species equation service is tried first; a local per-species table backs it up.
package allometry

import (
	"fmt"
	"math"
	"strings"
)

// FailureValue is returned for a diameter whose species has no usable equation.
const FailureValue = -999.0

// MinDiameter replaces non-positive diameters before evaluation so the logarithmic forms
// stay defined.
const MinDiameter = 0.01

// Form identifies the functional shape of an allometric equation.
type Form int

const (
	// NoMatch marks an absent equation. Evaluate returns FailureValue.
	NoMatch Form = iota
	// LogLinear is biomass = exp(A + B*ln(d)).
	LogLinear
	// Power is biomass = A * d^B.
	Power
	// Quadratic is biomass = A + B*d + C*d^2.
	Quadratic
)

func (f Form) String() string {
	switch f {
	case LogLinear:
		return "log-linear"
	case Power:
		return "power"
	case Quadratic:
		return "quadratic"
	}
	return "no-match"
}

// MarshalText renders the form by name in JSON and MessagePack.
func (f Form) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Form) UnmarshalText(text []byte) error {
	for _, c := range []Form{NoMatch, LogLinear, Power, Quadratic} {
		if c.String() == string(text) {
			*f = c
			return nil
		}
	}
	return fmt.Errorf("unknown equation form %q", text)
}

// Equation is a closed-form biomass model with its coefficients.
type Equation struct {
	Form    Form    `json:"form"`
	A       float64 `json:"a"`
	B       float64 `json:"b"`
	C       float64 `json:"c,omitempty"`
	Source  string  `json:"source"`
	Generic bool    `json:"generic"`
}

// Evaluate returns biomass for diameter d in centimeters. A missing diameter yields NaN.
func (e Equation) Evaluate(d float64) float64 {
	if math.IsNaN(d) {
		return math.NaN()
	}
	if d <= 0 {
		d = MinDiameter
	}
	switch e.Form {
	case LogLinear:
		return math.Exp(e.A + e.B*math.Log(d))
	case Power:
		return e.A * math.Pow(d, e.B)
	case Quadratic:
		return e.A + e.B*d + e.C*d*d
	}
	return FailureValue
}

func (e Equation) String() string {
	switch e.Form {
	case LogLinear:
		return fmt.Sprintf("exp(%.4f + %.4f*ln(d))", e.A, e.B)
	case Power:
		return fmt.Sprintf("%.4f*d^%.4f", e.A, e.B)
	case Quadratic:
		return fmt.Sprintf("%.4f + %.4f*d + %.6f*d^2", e.A, e.B, e.C)
	}
	return "no match"
}

func logLinear(a, b float64, source string) Equation {
	return Equation{Form: LogLinear, A: a, B: b, Source: source}
}

func power(a, b float64, source string) Equation {
	return Equation{Form: Power, A: a, B: b, Source: source}
}

const (
	sourceNorthAmerica = "north-america"
	sourceEurope       = "europe"
)

// speciesEquations maps ITRDB species codes to their exact equation.
var speciesEquations = map[string]Equation{}

func init() {
	na := func(eq Equation, codes ...string) {
		for _, c := range codes {
			speciesEquations[c] = eq
		}
	}

	na(logLinear(-3.1774, 2.6426, sourceNorthAmerica), "ABAM", "ABBA", "ABCO", "ABMA")
	na(logLinear(-2.3123, 2.3482, sourceNorthAmerica), "ABLA")
	na(logLinear(-1.9123, 2.3651, sourceNorthAmerica), "ACRU", "BELE")
	na(logLinear(-2.0127, 2.4342, sourceNorthAmerica), "ACSH")
	na(logLinear(-11.8235, 2.7334, sourceNorthAmerica), "CADE")
	na(logLinear(-1.326, 2.761, sourceNorthAmerica), "CYGL", "CYOV")
	na(logLinear(-2.6327, 2.4757, sourceNorthAmerica), "CHNO", "JUOC", "CHLA")
	na(power(0.084, 2.572, sourceNorthAmerica), "FAGR")
	na(logLinear(-0.7152, 1.7029, sourceNorthAmerica), "JUOS", "JUSC")
	na(logLinear(-2.0336, 2.2592, sourceNorthAmerica), "JUVI", "THOC")
	na(logLinear(-2.3012, 2.3853, sourceNorthAmerica), "LALY", "LAOC")
	na(logLinear(-2.48, 2.4835, sourceNorthAmerica), "LITU")
	na(logLinear(-3.03, 2.5567, sourceNorthAmerica), "PCEN", "PCSI")
	na(logLinear(-2.1364, 2.3233, sourceNorthAmerica), "PCGL", "PCPU")
	na(logLinear(-1.7823, 2.1777, sourceNorthAmerica), "PCMA")
	na(logLinear(-2.0773, 2.3323, sourceNorthAmerica), "PCRU")
	na(logLinear(-3.0506, 2.6465, sourceNorthAmerica),
		"PIAR", "PIBA", "PICO", "PIEC", "PIJE", "PILO", "PIMR", "PIPA", "PIPU", "PLRA")
	na(logLinear(-2.5356, 2.4349, sourceNorthAmerica), "PIED", "PIRE", "PIRI", "PITA")
	na(logLinear(-2.6177, 2.4638, sourceNorthAmerica), "PIFL", "PILA", "PIPO", "PIAL", "PISF", "PINE", "PITO")
	na(logLinear(5.2831, 2.0369, sourceNorthAmerica), "PIST")
	na(logLinear(-2.5918, 2.422, sourceNorthAmerica), "PIVI")
	na(logLinear(-2.2094, 2.3867, sourceNorthAmerica), "PPDE", "PPGR")
	na(logLinear(4.4564, 2.4486, sourceNorthAmerica), "PPTR")
	na(logLinear(-2.4623, 2.4852, sourceNorthAmerica), "PSMA")
	na(logLinear(-2.3298, 2.4818, sourceNorthAmerica), "PSME")
	na(logLinear(-2.0127, 2.4342, sourceNorthAmerica),
		"QUAL", "QUCO", "QUFA", "QULO", "QULY", "QURU", "QUSH", "QUST", "QUVE")
	na(power(0.0683, 2.5697, sourceNorthAmerica), "QUDG")
	na(power(0.1447, 2.282, sourceNorthAmerica), "QUMA", "QUMU", "QUPA")
	na(logLinear(-2.7096, 2.1942, sourceNorthAmerica), "TADI", "THPL", "TSCR", "TSHE", "TSME", "LIDE")
	na(logLinear(-2.2304, 2.4435, sourceNorthAmerica), "TSCA")
	na(logLinear(-2.0705, 2.441, sourceNorthAmerica), "CADN", "QUCF", "QUSP")
	na(logLinear(-2.5497, 2.5011, sourceNorthAmerica), "MIXD")
	na(logLinear(-3.2007, 2.5339, sourceNorthAmerica), "PISP")
	na(logLinear(-2.6863, 2.4561, sourceNorthAmerica), "SAPC")

	// European species not covered above.
	eu := func(eq Equation, code string) {
		if _, ok := speciesEquations[code]; !ok {
			speciesEquations[code] = eq
		}
	}
	eu(logLinear(-2.3958, 2.4494, sourceEurope), "ABAL")
	eu(logLinear(-2.0013, 2.3683, sourceEurope), "BEPE")
	eu(logLinear(-1.9147, 2.2081, sourceEurope), "BEPU")
	eu(logLinear(-1.8351, 2.2916, sourceEurope), "CASA")
	eu(Equation{Form: Quadratic, A: 37.21449, B: -8.08322, C: 0.644812, Source: sourceEurope}, "CDLI")
	eu(logLinear(-1.6594, 2.3589, sourceEurope), "FASY")
	eu(logLinear(-1.6512, 2.2312, sourceEurope), "LADE")
	eu(logLinear(-1.8865, 2.3034, sourceEurope), "PCAB")
	eu(logLinear(4.874, 2.239, sourceEurope), "PIBR")
	eu(logLinear(-3.0675, 2.5298, sourceEurope), "PICE")
	eu(logLinear(-2.0236, 2.3345, sourceEurope), "PINI")
	eu(logLinear(-2.5918, 2.422, sourceEurope), "PIPI")
	eu(logLinear(-3.351, 2.71, sourceEurope), "PIPN")
	eu(logLinear(-2.1575, 2.3097, sourceEurope), "PISY")
	eu(logLinear(-2.0236, 2.3345, sourceEurope), "PONI")
	eu(logLinear(-2.764, 2.076, sourceEurope), "PIUN")
	eu(power(0.0519, 2.545, sourceEurope), "PPTM")
	eu(logLinear(-2.3364, 2.5068, sourceEurope), "QUPE")
	eu(logLinear(-2.684, 2.7274, sourceEurope), "QURO")
	eu(logLinear(-7.402, 2.62245, sourceEurope), "TICO")

	for prefix, code := range genusRepresentatives {
		genusEquations[prefix] = speciesEquations[code]
	}
}

// genusRepresentatives picks the equation used for species absent from the exact table,
// keyed by the two-letter genus prefix of the ITRDB code.
var genusRepresentatives = map[string]string{
	"AB": "ABCO", // true firs
	"AC": "ACRU",
	"BE": "BELE",
	"CY": "CYGL",
	"FA": "FASY",
	"JU": "JUVI",
	"LA": "LAOC",
	"PC": "PCRU",
	"PI": "PISP",
	"PP": "PPDE",
	"PS": "PSME",
	"QU": "QUSP",
	"TH": "THOC",
	"TS": "TSHE",
}

var genusEquations = map[string]Equation{}

// Lookup returns the equation for species: the exact entry when present, otherwise the
// genus group, otherwise an equation of Form NoMatch.
func Lookup(species string) Equation {
	species = strings.ToUpper(species)
	if eq, ok := speciesEquations[species]; ok {
		return eq
	}
	if len(species) >= 2 {
		if eq, ok := genusEquations[species[:2]]; ok {
			eq.Generic = true
			return eq
		}
	}
	return Equation{Form: NoMatch}
}
