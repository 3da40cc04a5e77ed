package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

// Writer publishes the HTML report and figures into the processed directory.
// It implements pipeline.Reporter.
type Writer struct {
	dir     string
	file    string
	figures bool
	logger  *slog.Logger
}

// NewWriter creates a Writer for dir. Figures are rendered only when figures
// is true.
func NewWriter(dir string, schema domain.Schema, figures bool, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, file: schema.ReportFile, figures: figures, logger: logger}
}

// Path returns the HTML report path.
func (w *Writer) Path() string { return filepath.Join(w.dir, w.file) }

// Report summarizes ds, renders figures and writes the HTML report.
func (w *Writer) Report(ctx context.Context, run domain.Run, ds *domain.Dataset) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	s := Summarize(run, ds)
	if w.figures {
		s.Figures = renderFigures(w.dir, s, w.logger)
	}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, s); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	if err := writeFileAtomic(w.Path(), buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	for _, f := range s.Flags {
		w.logger.Warn("validation flag", "flag", f)
	}
	w.logger.Info("report written", "path", w.Path(), "figures", len(s.Figures), "flags", len(s.Flags))
	return s, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
