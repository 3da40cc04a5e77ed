// Package tabular reads incident spreadsheets (xlsx or delimited text) into
// domain tables and writes processed tables back out as CSV.
package tabular

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ErrEmptyFile means the input has no header row.
var ErrEmptyFile = errors.New("input has no header row")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FileReader reads one input file per Extract call.
// It implements pipeline.Extractor.
type FileReader struct {
	path   string
	logger *slog.Logger
}

// NewFileReader creates a reader for the spreadsheet at path.
func NewFileReader(path string, logger *slog.Logger) *FileReader {
	return &FileReader{path: path, logger: logger}
}

// Extract reads the whole file into memory.
func (r *FileReader) Extract(_ context.Context) (domain.Table, error) {
	t, err := ReadFile(r.path)
	if err != nil {
		return domain.Table{}, err
	}
	r.logger.Info("input read", "path", r.path, "columns", len(t.Headers), "rows", len(t.Rows))
	return t, nil
}

// ReadFile dispatches on the file extension: .xlsx/.xlsm read the first
// sheet, anything else is parsed as delimited text.
func ReadFile(path string) (domain.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return domain.Table{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		return ReadDelimited(f)
	}
}

// ReadXLSX reads the first worksheet of an Excel workbook.
func ReadXLSX(path string) (domain.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Table{}, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.Table{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return buildTable(rows)
}

// ReadDelimited parses comma, semicolon or tab separated text. The delimiter
// is sniffed from the header line.
func ReadDelimited(r io.Reader) (domain.Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return domain.Table{}, fmt.Errorf("read input: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return domain.Table{}, fmt.Errorf("parse delimited input: %w", err)
	}
	return buildTable(rows)
}

// buildTable names blank headers "Unnamed: N" and drops blank rows.
func buildTable(rows [][]string) (domain.Table, error) {
	if len(rows) == 0 {
		return domain.Table{}, ErrEmptyFile
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		headers[i] = h
	}

	out := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		out = append(out, row)
	}
	return domain.Table{Headers: headers, Rows: out}, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
