// Command validate checks the processed incident tables for structural
// consistency: column layout, long/wide parity, date format, and indicator
// domain. It exits non-zero when any phase fails.
//
// Usage:
//
//	go run ./cmd/validate -dir data/processed [-schema schema.yaml]
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/sivem-incident-service/internal/adapter/tabular"
	"github.com/couchcryptid/sivem-incident-service/internal/config"
	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", filepath.Join("data", "processed"), "directory holding the processed long and wide CSVs")
	schemaFile := flag.String("schema", "", "optional YAML schema overriding vocabulary and file names")
	flag.Parse()

	schema := domain.DefaultSchema()
	if *schemaFile != "" {
		s, err := config.LoadSchema(*schemaFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			os.Exit(1)
		}
		schema = s
	}

	if code := run(*dir, schema); code != 0 {
		os.Exit(code)
	}
}

func run(dir string, schema domain.Schema) int {
	fmt.Println("=== Incident Output Validation ===")
	fmt.Println()

	long, err := tabular.ReadFile(filepath.Join(dir, schema.LongFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load long table: %v\n", err)
		return 1
	}
	wide, err := tabular.ReadFile(filepath.Join(dir, schema.WideFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load wide table: %v\n", err)
		return 1
	}

	phases := validate(long, wide, schema.Vocabulary)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d long, %d wide\n", len(long.Rows), len(wide.Rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validate runs every phase. Later phases are skipped when the column layout
// is wrong, since they address columns by name.
func validate(long, wide domain.Table, vocabulary []string) []*phase {
	layout := validateLayout(long, wide, vocabulary)
	if !layout.passed() {
		return []*phase{layout}
	}
	return []*phase{
		layout,
		validateParity(long, wide, vocabulary),
		validateDates(long, wide),
		validateIndicators(wide, vocabulary),
	}
}

// ── Phase 1: Column layout ──
// Both tables carry the derived columns, and apart from "types" and the
// indicator columns they share the same header.

func validateLayout(long, wide domain.Table, vocabulary []string) *phase {
	p := &phase{name: "Phase 1: Column Layout"}

	for _, c := range []string{domain.FieldStartDate, domain.FieldRegisteredCases, domain.FieldTypes} {
		if !slices.Contains(long.Headers, c) {
			p.errorf("long table has no %q column", c)
		}
	}
	for _, c := range append([]string{domain.FieldStartDate, domain.FieldRegisteredCases}, vocabulary...) {
		if !slices.Contains(wide.Headers, c) {
			p.errorf("wide table has no %q column", c)
		}
	}
	if !p.passed() {
		return p
	}

	longBase := pick(long.Headers, baseColumns(long.Headers, []string{domain.FieldTypes}))
	wideBase := pick(wide.Headers, baseColumns(wide.Headers, vocabulary))
	if !slices.Equal(longBase, wideBase) {
		p.errorf("base columns differ: long %v, wide %v", longBase, wideBase)
	}
	return p
}

// baseColumns returns the indexes of headers not named in derived.
func baseColumns(headers, derived []string) []int {
	var idx []int
	for i, h := range headers {
		if !slices.Contains(derived, h) {
			idx = append(idx, i)
		}
	}
	return idx
}

func pick(row []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = cellAt(row, j)
	}
	return out
}

// ── Phase 2: Long/wide parity ──
// Every long row belongs to a wide record, and a vocabulary indicator is 1
// exactly when the record has a long row for that category.

func validateParity(long, wide domain.Table, vocabulary []string) *phase {
	p := &phase{name: "Phase 2: Long/Wide Parity"}

	longBase := baseColumns(long.Headers, []string{domain.FieldTypes})
	wideBase := baseColumns(wide.Headers, vocabulary)
	typeCol := slices.Index(long.Headers, domain.FieldTypes)

	// Records are keyed by their base cells; duplicates share a key.
	types := make(map[string]map[string]bool)
	for _, row := range long.Rows {
		key := rowKey(row, longBase)
		if types[key] == nil {
			types[key] = make(map[string]bool)
		}
		types[key][cellAt(row, typeCol)] = true
	}

	seen := make(map[string]bool, len(wide.Rows))
	for i, row := range wide.Rows {
		key := rowKey(row, wideBase)
		seen[key] = true
		for _, c := range vocabulary {
			v := cellAt(row, slices.Index(wide.Headers, c))
			switch {
			case v == "1" && !types[key][c]:
				p.errorf("wide line %d: %s=1 but no long row has type %s", i+2, c, c)
			case v != "1" && types[key][c]:
				p.errorf("wide line %d: %s=%s but a long row has type %s", i+2, c, v, c)
			}
		}
	}
	for i, row := range long.Rows {
		if !seen[rowKey(row, longBase)] {
			p.errorf("long line %d: no matching wide record", i+2)
		}
		if cellAt(row, typeCol) == "" {
			p.errorf("long line %d: empty type", i+2)
		}
	}
	return p
}

func rowKey(row []string, idx []int) string {
	return strings.Join(pick(row, idx), "\x1f")
}

// ── Phase 3: Dates and counts ──

func validateDates(long, wide domain.Table) *phase {
	p := &phase{name: "Phase 3: Date Format and Case Counts"}
	for _, t := range []struct {
		name  string
		table domain.Table
	}{{"long", long}, {"wide", wide}} {
		date := slices.Index(t.table.Headers, domain.FieldStartDate)
		cases := slices.Index(t.table.Headers, domain.FieldRegisteredCases)
		for i, row := range t.table.Rows {
			if v := cellAt(row, date); v != "" {
				if _, err := time.Parse(time.DateOnly, v); err != nil {
					p.errorf("%s line %d: start_date %q is not YYYY-MM-DD", t.name, i+2, v)
				}
			}
			if v := cellAt(row, cases); v != "" {
				if _, err := strconv.Atoi(v); err != nil {
					p.errorf("%s line %d: registered_cases %q is not an integer", t.name, i+2, v)
				}
			}
		}
	}
	return p
}

// ── Phase 4: Indicator domain ──

func validateIndicators(wide domain.Table, vocabulary []string) *phase {
	p := &phase{name: "Phase 4: Indicator Domain {0,1}"}
	for i, row := range wide.Rows {
		for _, c := range vocabulary {
			if v := cellAt(row, slices.Index(wide.Headers, c)); v != "0" && v != "1" {
				p.errorf("wide line %d: %s=%q", i+2, c, v)
			}
		}
	}
	return p
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
