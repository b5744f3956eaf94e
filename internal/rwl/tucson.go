// Package rwl reads ring-width measurement files into a rings.Matrix.
package rwl

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chrissnell/ringbiomass/internal/rings"
)

// Tucson stop markers. 999 ends a series recorded in 0.01 mm, -9999 one recorded in
// 0.001 mm.
const (
	stopHundredths  = 999
	stopThousandths = -9999
)

type tucsonSeries struct {
	raw   map[int]int
	scale float64
}

// ReadTucson parses decadal Tucson format. Each data line holds an 8-character series id,
// a 4-character decade year and up to ten 6-character integer widths. Header lines are
// skipped. Widths are returned in millimeters.
func ReadTucson(r io.Reader, name string) (rings.Matrix, error) {
	series := map[string]*tucsonSeries{}
	var order []string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		id, year, values, ok := parseTucsonLine(line)
		if !ok {
			continue
		}

		s, found := series[id]
		if !found {
			s = &tucsonSeries{raw: map[int]int{}, scale: 0.01}
			series[id] = s
			order = append(order, id)
		}
		for i, v := range values {
			switch v {
			case stopHundredths:
				s.scale = 0.01
				continue
			case stopThousandths:
				s.scale = 0.001
				continue
			}
			s.raw[year+i] = v
		}
	}
	if err := sc.Err(); err != nil {
		return rings.Matrix{}, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(order) == 0 {
		return rings.Matrix{}, fmt.Errorf("%s: no Tucson data lines found", name)
	}

	samples := make([]rings.Series, 0, len(order))
	for _, id := range order {
		s := series[id]
		widths := make(map[int]float64, len(s.raw))
		for y, v := range s.raw {
			if v < 0 {
				widths[y] = math.NaN()
				continue
			}
			widths[y] = float64(v) * s.scale
		}
		samples = append(samples, rings.NewSeries(id, widths))
	}
	return rings.NewMatrix(name, samples), nil
}

// parseTucsonLine tries the fixed-width layout first and falls back to whitespace
// separated fields, which some writers emit for long series ids.
func parseTucsonLine(line string) (id string, year int, values []int, ok bool) {
	if len(line) >= 18 {
		if year, err := strconv.Atoi(strings.TrimSpace(line[8:12])); err == nil {
			if values, ok := parseFixedValues(line[12:]); ok {
				return strings.TrimSpace(line[:8]), year, values, true
			}
		}
	}

	fields := strings.Fields(line)
	if len(fields) < 3 {
		return "", 0, nil, false
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, nil, false
	}
	values = make([]int, 0, len(fields)-2)
	for _, f := range fields[2:] {
		v, err := strconv.Atoi(f)
		if err != nil {
			return "", 0, nil, false
		}
		values = append(values, v)
	}
	return fields[0], year, values, true
}

func parseFixedValues(s string) ([]int, bool) {
	var values []int
	for i := 0; i < len(s); i += 6 {
		end := i + 6
		if end > len(s) {
			end = len(s)
		}
		field := strings.TrimSpace(s[i:end])
		if field == "" {
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, false
		}
		values = append(values, v)
	}
	return values, len(values) > 0
}
