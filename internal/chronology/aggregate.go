package chronology

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/ringbiomass/internal/simulation"
)

// Column is one sample's year-aligned values.
type Column struct {
	Start  int
	Values []float64
}

// Chronology is a per-year robust mean with its sample depth.
type Chronology struct {
	Start int
	Mean  []float64
	Depth []int
}

// End returns the last year of the chronology.
func (c Chronology) End() int {
	return c.Start + len(c.Mean) - 1
}

// TrialChronology is the chronology of one simulation trial.
type TrialChronology struct {
	Trial simulation.Trial
	Chronology
}

// Aggregator builds chronologies.
type Aggregator struct {
	opts   Options
	logger *zap.SugaredLogger
}

func NewAggregator(opts Options, logger *zap.SugaredLogger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Aggregator{opts: opts, logger: logger}
}

// Aggregate averages cols year by year over the union of their spans. Depth counts the
// columns with a value that year. A year where the biweight fails falls back to the
// arithmetic mean.
func (a *Aggregator) Aggregate(cols []Column) Chronology {
	start, end, ok := span(cols)
	if !ok {
		return Chronology{}
	}

	n := end - start + 1
	c := Chronology{Start: start, Mean: make([]float64, n), Depth: make([]int, n)}
	year := make([]float64, 0, len(cols))
	for i := 0; i < n; i++ {
		year = year[:0]
		for _, col := range cols {
			j := start + i - col.Start
			if j < 0 || j >= len(col.Values) || math.IsNaN(col.Values[j]) {
				continue
			}
			year = append(year, col.Values[j])
		}

		c.Depth[i] = len(year)
		if len(year) == 0 {
			c.Mean[i] = math.NaN()
			continue
		}

		m, err := BiweightMean(year, a.opts)
		if err != nil {
			a.logger.Warnf("biweight mean failed for year %d: %v, using arithmetic mean", start+i, err)
			m = stat.Mean(year, nil)
		}
		c.Mean[i] = m
	}
	return c
}

// ByTrial aggregates variable v separately for every trial of res, ordered by bias.
func (a *Aggregator) ByTrial(res *simulation.Result, v simulation.Variable) []TrialChronology {
	trials := append([]simulation.Trial(nil), res.Trials...)
	sort.SliceStable(trials, func(i, j int) bool { return trials[i].Bias < trials[j].Bias })

	out := make([]TrialChronology, 0, len(trials))
	for _, t := range trials {
		var cols []Column
		for _, s := range res.ForTrial(t.Index) {
			cols = append(cols, Column{Start: s.Start, Values: s.Series[v]})
		}
		out = append(out, TrialChronology{Trial: t, Chronology: a.Aggregate(cols)})
	}
	return out
}

func span(cols []Column) (start, end int, ok bool) {
	for _, col := range cols {
		if len(col.Values) == 0 {
			continue
		}
		s, e := col.Start, col.Start+len(col.Values)-1
		if !ok || s < start {
			start = s
		}
		if !ok || e > end {
			end = e
		}
		ok = true
	}
	return start, end, ok
}
