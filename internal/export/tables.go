// Package export renders reconstruction results as CSV tables and msgpack bundles.
package export

import (
	"fmt"
	"math"
	"strconv"

	"github.com/chrissnell/ringbiomass/internal/chronology"
	"github.com/chrissnell/ringbiomass/internal/correction"
	"github.com/chrissnell/ringbiomass/internal/simulation"
)

// Table is one output file: a header and string rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// FileName returns the CSV file name for variable v of site. Corrected variables carry
// the correction codes.
func FileName(site string, v simulation.Variable, cfg correction.Config) string {
	if v.Corrected() {
		return fmt.Sprintf("%s_%s_correction_%s.csv", site, v, cfg.CodeSuffix())
	}
	return fmt.Sprintf("%s_%s.csv", site, v)
}

// MeanFileName returns the chronology file name for variable v of site.
func MeanFileName(site string, v simulation.Variable, cfg correction.Config) string {
	if v.Corrected() {
		return fmt.Sprintf("%s_%s_mean_correction_%s.csv", site, v, cfg.CodeSuffix())
	}
	return fmt.Sprintf("%s_%s_mean.csv", site, v)
}

// SampleTable lays out variable v of every sample and trial on a shared year axis. Column
// names are <var>_<bias>_<sample> for random trials and <var>_<sample> otherwise.
func SampleTable(res *simulation.Result, site string, v simulation.Variable) Table {
	t := Table{Name: FileName(site, v, res.Config), Header: []string{"Year"}}

	start, end, ok := sampleSpan(res.Samples)
	if !ok {
		return t
	}

	labels := make(map[int]string, len(res.Trials))
	for _, tr := range res.Trials {
		labels[tr.Index] = tr.Label()
	}
	random := res.Config.InitialWidth.Mode == correction.InitialRandom
	for _, s := range res.Samples {
		if random {
			t.Header = append(t.Header, fmt.Sprintf("%s_%s_%s", v, labels[s.Trial], s.Sample))
		} else {
			t.Header = append(t.Header, fmt.Sprintf("%s_%s", v, s.Sample))
		}
	}

	for y := start; y <= end; y++ {
		row := make([]string, 0, len(res.Samples)+1)
		row = append(row, strconv.Itoa(y))
		for _, s := range res.Samples {
			vals := s.Series[v]
			i := y - s.Start
			if i < 0 || i >= len(vals) {
				row = append(row, "")
				continue
			}
			row = append(row, formatValue(vals[i]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ChronologyTable writes one mean and one sample-depth column per trial. A single trial
// uses the plain names mean_<var> and samp.depth.
func ChronologyTable(site string, v simulation.Variable, cfg correction.Config, chrons []chronology.TrialChronology) Table {
	t := Table{Name: MeanFileName(site, v, cfg), Header: []string{"Year"}}
	if len(chrons) == 0 {
		return t
	}

	single := len(chrons) == 1
	var start, end int
	var ok bool
	for _, c := range chrons {
		if single {
			t.Header = append(t.Header, fmt.Sprintf("mean_%s", v), "samp.depth")
		} else {
			t.Header = append(t.Header, fmt.Sprintf("mean_%s_%s", v, c.Trial.Label()), "samp.depth_"+c.Trial.Label())
		}
		if len(c.Mean) == 0 {
			continue
		}
		if !ok || c.Start < start {
			start = c.Start
		}
		if !ok || c.End() > end {
			end = c.End()
		}
		ok = true
	}
	if !ok {
		return t
	}

	for y := start; y <= end; y++ {
		row := []string{strconv.Itoa(y)}
		for _, c := range chrons {
			i := y - c.Start
			if i < 0 || i >= len(c.Mean) {
				row = append(row, "", "0")
				continue
			}
			row = append(row, formatValue(c.Mean[i]), strconv.Itoa(c.Depth[i]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func sampleSpan(samples []simulation.SampleResult) (start, end int, ok bool) {
	for _, s := range samples {
		if len(s.Series[simulation.Dia]) == 0 {
			continue
		}
		if !ok || s.Start < start {
			start = s.Start
		}
		if !ok || s.End() > end {
			end = s.End()
		}
		ok = true
	}
	return start, end, ok
}

// formatValue writes missing values as empty cells.
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
