package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// WriteText prints a terminal summary of s: province totals, category
// frequencies and validation flags, as width-aligned tables.
func WriteText(w io.Writer, s *Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d records, %d dated, %d long rows\n\n", s.RunID, s.Records, s.DatedRecords, s.LongRows)

	if len(s.Provinces) > 0 {
		rows := make([][]string, 0, len(s.Provinces))
		for _, p := range s.Provinces {
			rows = append(rows, []string{p.Province, strconv.Itoa(p.Incidents), strconv.Itoa(p.RegisteredCases)})
		}
		writeTable(&b, []string{"province", "total_incidentes", "registered_cases"}, rows)
		b.WriteString("\n")
	}

	if len(s.Types) > 0 {
		rows := make([][]string, 0, len(s.Types))
		for _, t := range s.Types {
			rows = append(rows, []string{t.Type, strconv.Itoa(t.Count)})
		}
		writeTable(&b, []string{"types", "contagem"}, rows)
		b.WriteString("\n")
	}

	if len(s.Flags) == 0 {
		b.WriteString("validacao: sem inconsistencias encontradas\n")
	} else {
		for _, f := range s.Flags {
			fmt.Fprintf(&b, "validacao: %s\n", f)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeTable pads cells by display width so accented and wide labels align.
func writeTable(b *strings.Builder, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if w := runewidth.StringWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string) {
		b.WriteString("|")
		for i, c := range cells {
			b.WriteString(" ")
			b.WriteString(runewidth.FillRight(c, widths[i]))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	line(header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = strings.Repeat("-", widths[i])
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}
