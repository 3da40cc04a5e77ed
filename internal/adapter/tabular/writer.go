package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

// CSVWriter writes the long and wide tables of a dataset into a directory.
// It implements pipeline.Loader.
type CSVWriter struct {
	dir      string
	longFile string
	wideFile string
	logger   *slog.Logger
}

// NewCSVWriter creates a writer using the schema's output file names.
func NewCSVWriter(dir string, schema domain.Schema, logger *slog.Logger) *CSVWriter {
	return &CSVWriter{
		dir:      dir,
		longFile: schema.LongFile,
		wideFile: schema.WideFile,
		logger:   logger,
	}
}

// LongPath returns the long table output path.
func (w *CSVWriter) LongPath() string { return filepath.Join(w.dir, w.longFile) }

// WidePath returns the wide table output path.
func (w *CSVWriter) WidePath() string { return filepath.Join(w.dir, w.wideFile) }

// LoadDataset writes both tables. Each file is replaced atomically.
func (w *CSVWriter) LoadDataset(_ context.Context, run domain.Run, ds *domain.Dataset) error {
	long := ds.LongTable()
	if err := WriteCSV(w.LongPath(), long); err != nil {
		return err
	}
	wide := ds.WideTable()
	if err := WriteCSV(w.WidePath(), wide); err != nil {
		return err
	}
	w.logger.Info("tables written",
		"run_id", run.ID,
		"long_out", w.LongPath(), "long_rows", len(long.Rows),
		"wide_out", w.WidePath(), "wide_rows", len(wide.Rows),
	)
	return nil
}

// WriteCSV writes t with a header row and no index column, replacing path
// atomically via a temp file in the same directory.
func WriteCSV(path string, t domain.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	cw := csv.NewWriter(tmp)
	if err := cw.Write(t.Headers); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
