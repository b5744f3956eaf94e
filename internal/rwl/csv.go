package rwl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chrissnell/ringbiomass/internal/rings"
)

// ErrUnsupportedFormat is returned for files whose extension has no reader.
var ErrUnsupportedFormat = errors.New("unsupported ring-width format")

// ReadCSV parses a year-by-sample matrix: a header "Year,<sample>..." followed by one row
// per year. Blank, NA, NaN and -999 cells are missing.
func ReadCSV(r io.Reader, name string) (rings.Matrix, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return rings.Matrix{}, fmt.Errorf("reading %s header: %w", name, err)
	}
	if len(header) < 2 {
		return rings.Matrix{}, fmt.Errorf("%s: header needs a year column and at least one sample", name)
	}

	cols := make([]map[int]float64, len(header)-1)
	for i := range cols {
		cols[i] = map[int]float64{}
	}

	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return rings.Matrix{}, fmt.Errorf("reading %s row %d: %w", name, row, err)
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return rings.Matrix{}, fmt.Errorf("%s row %d: invalid year %q", name, row, rec[0])
		}
		for i := range cols {
			v := math.NaN()
			if i+1 < len(rec) {
				if v, err = parseCell(rec[i+1]); err != nil {
					return rings.Matrix{}, fmt.Errorf("%s row %d column %s: %w", name, row, header[i+1], err)
				}
			}
			cols[i][year] = v
		}
	}

	samples := make([]rings.Series, len(cols))
	for i, c := range cols {
		samples[i] = rings.NewSeries(strings.TrimSpace(header[i+1]), c).Trim()
	}
	return rings.NewMatrix(name, samples), nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "NA", "NAN", "-999":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// ReadFile reads path with the reader chosen by its extension. The matrix is named after
// the file without its extension.
func ReadFile(path string) (rings.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return rings.Matrix{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := SiteName(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rwl", ".txt", ".tuc":
		return ReadTucson(f, name)
	case ".csv":
		return ReadCSV(f, name)
	}
	return rings.Matrix{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// SiteName derives a site identifier from a file path.
func SiteName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
