package export

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/ringbiomass/internal/chronology"
	"github.com/chrissnell/ringbiomass/internal/simulation"
	"github.com/chrissnell/ringbiomass/pkg/responseformat"
)

// Bundle is the complete result of one site, suitable for msgpack files and API
// responses.
type Bundle struct {
	RunID        string             `json:"run_id,omitempty"`
	Site         string             `json:"site"`
	Species      string             `json:"species"`
	Latitude     *float64           `json:"latitude,omitempty"`
	Longitude    *float64           `json:"longitude,omitempty"`
	Corrections  string             `json:"corrections"`
	Trials       []BundleTrial      `json:"trials"`
	Samples      []BundleSample     `json:"samples"`
	Chronologies []BundleChronology `json:"chronologies,omitempty"`
	Skipped      []string           `json:"skipped,omitempty"`
}

type BundleTrial struct {
	Index int     `json:"index"`
	Bias  float64 `json:"bias"`
}

type BundleSample struct {
	Sample string                             `json:"sample"`
	Trial  int                                `json:"trial"`
	Bias   float64                            `json:"bias"`
	Start  int                                `json:"start"`
	Series map[string]responseformat.Float64s `json:"series"`
}

type BundleChronology struct {
	Variable string                  `json:"variable"`
	Trial    int                     `json:"trial"`
	Bias     float64                 `json:"bias"`
	Start    int                     `json:"start"`
	Mean     responseformat.Float64s `json:"mean"`
	Depth    []int                   `json:"depth"`
}

// NewBundle flattens a run result and its chronologies.
func NewBundle(runID string, res *simulation.Result, chrons map[simulation.Variable][]chronology.TrialChronology) Bundle {
	b := Bundle{
		RunID:       runID,
		Site:        res.Site.SiteID,
		Species:     res.Site.Species,
		Latitude:    res.Site.Latitude,
		Longitude:   res.Site.Longitude,
		Corrections: res.Config.CodeSuffix(),
		Skipped:     res.Skipped,
	}
	for _, t := range res.Trials {
		b.Trials = append(b.Trials, BundleTrial{Index: t.Index, Bias: t.Bias})
	}
	for _, s := range res.Samples {
		series := make(map[string]responseformat.Float64s, len(s.Series))
		for v, vals := range s.Series {
			series[string(v)] = responseformat.Float64s(vals)
		}
		b.Samples = append(b.Samples, BundleSample{Sample: s.Sample, Trial: s.Trial, Bias: s.Bias, Start: s.Start, Series: series})
	}

	vars := make([]string, 0, len(chrons))
	for v := range chrons {
		vars = append(vars, string(v))
	}
	sort.Strings(vars)
	for _, v := range vars {
		for _, c := range chrons[simulation.Variable(v)] {
			b.Chronologies = append(b.Chronologies, BundleChronology{
				Variable: v,
				Trial:    c.Trial.Index,
				Bias:     c.Trial.Bias,
				Start:    c.Start,
				Mean:     responseformat.Float64s(c.Mean),
				Depth:    c.Depth,
			})
		}
	}
	return b
}

// EncodeBundle serializes b as MessagePack using its json field names.
func EncodeBundle(b Bundle) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBundle is the inverse of EncodeBundle.
func DecodeBundle(data []byte) (*Bundle, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var b Bundle
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

// WriteBundle writes b to path as MessagePack.
func WriteBundle(path string, b Bundle) error {
	data, err := EncodeBundle(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
