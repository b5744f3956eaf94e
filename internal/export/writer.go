package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/ringbiomass/internal/chronology"
	"github.com/chrissnell/ringbiomass/internal/simulation"
)

// DefaultConcurrency is the number of files written at once.
const DefaultConcurrency = 4

// Writer writes tables into a directory.
type Writer struct {
	dir         string
	concurrency int
	logger      *zap.SugaredLogger
}

// NewWriter returns a Writer rooted at dir.
func NewWriter(dir string, concurrency int, logger *zap.SugaredLogger) *Writer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Writer{dir: dir, concurrency: concurrency, logger: logger}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteTables writes every table concurrently. A failed file does not stop the others;
// all failures are joined into the returned error. The paths written are returned.
func (w *Writer) WriteTables(ctx context.Context, tables []Table) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var (
		mu      sync.Mutex
		written []string
		errs    []error
	)

	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for _, t := range tables {
		g.Go(func() error {
			path := filepath.Join(w.dir, t.Name)
			err := ctx.Err()
			if err == nil {
				err = WriteCSV(path, t)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				w.logger.Errorf("failed to write %s: %v", path, err)
				errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
				return nil
			}
			w.logger.Debugf("wrote %s (%d rows)", path, len(t.Rows))
			written = append(written, path)
			return nil
		})
	}
	g.Wait()

	return written, errors.Join(errs...)
}

// WriteResult writes the per-sample and chronology tables of res.
func (w *Writer) WriteResult(ctx context.Context, site string, res *simulation.Result, chrons map[simulation.Variable][]chronology.TrialChronology) ([]string, error) {
	tables := make([]Table, 0, 2*len(simulation.Variables))
	for _, v := range simulation.Variables {
		tables = append(tables, SampleTable(res, site, v))
		if c, ok := chrons[v]; ok {
			tables = append(tables, ChronologyTable(site, v, res.Config, c))
		}
	}
	return w.WriteTables(ctx, tables)
}

// WriteCSV writes t to path, replacing any existing file.
func WriteCSV(path string, t Table) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Close()
}
