// Command genmock writes a synthetic incident monitoring spreadsheet with the
// quirks of the real one: Portuguese headers, accented province labels,
// ranged and mistyped periods, and multi-valued incident types. It runs the
// actual normalizer over the result and prints the counts tests assert on.
//
// Usage:
//
//	go run ./cmd/genmock -out data/raw/incidentes_mock.xlsx -rows 200 -seed 7
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

var headers = []string{"Período", "Casos registados", "Tipo de incidente", "Província", "Fonte"}

var provinces = []string{
	"Maputo Cidade", "Maputo", "Gaza", "Inhambane", "Sofala", "Manica",
	"Tete", "Zambézia", "Nampula", "Cabo Delgado", "Niassa",
}

var incidentTypes = []string{
	"Baleamentos", "Detenções", "Mortes", "Baleamentos e Mortes",
	"Detenções / Baleamentos", "Mortes; Detenções", "Feridos", "baleamentos, detencoes",
}

var sources = []string{"Plataforma Decide", "CDD", "Imprensa", ""}

var (
	firstDay = time.Date(2024, time.October, 21, 0, 0, 0, 0, time.UTC)
	lastDay  = time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output spreadsheet path (.xlsx or .csv)")
	rows := flag.Int("rows", 200, "number of incident rows")
	seed := flag.Uint64("seed", 7, "random seed; equal seeds give identical files")
	flag.Parse()

	if *out == "" || *rows <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -rows > 0")
	}

	table := generate(*rows, *seed)
	if err := write(*out, table); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	log.Printf("wrote %d rows: %s", len(table.Rows), *out)

	ds, err := domain.NewNormalizer(domain.DefaultSchema()).Normalize(table)
	if err != nil {
		return fmt.Errorf("normalize generated table: %w", err)
	}
	printStats(ds)
	return nil
}

// generate builds a reproducible table of n rows from seed.
func generate(n int, seed uint64) domain.Table {
	rng := rand.New(rand.NewPCG(seed, seed^0x5eed))
	t := domain.Table{Headers: slices.Clone(headers)}
	for range n {
		t.Rows = append(t.Rows, []string{
			period(rng),
			cases(rng),
			pick(rng, incidentTypes, 0.05),
			pick(rng, provinces, 0.05),
			pick(rng, sources, 0),
		})
	}
	return t
}

// period renders a date in one of the formats seen in the monitoring sheet.
func period(rng *rand.Rand) string {
	span := int(lastDay.Sub(firstDay).Hours() / 24)
	d := firstDay.AddDate(0, 0, rng.IntN(span+1))
	end := d.AddDate(0, 0, 1+rng.IntN(4))
	year := d.Year()

	switch r := rng.Float64(); {
	case r < 0.45:
		return d.Format("02/01/2006")
	case r < 0.65:
		if end.Month() != d.Month() {
			return d.Format("2/1/2006")
		}
		return fmt.Sprintf("%d - %d/%d/%d", d.Day(), end.Day(), int(d.Month()), year)
	case r < 0.75:
		// Typo seen in the source sheet: 2004 for 2024.
		return fmt.Sprintf("%02d/%02d/%d", d.Day(), int(d.Month()), year-20)
	case r < 0.85:
		if end.Month() != d.Month() {
			return d.Format("02/01/2006")
		}
		return fmt.Sprintf("%d–%d/%d/%d", d.Day(), end.Day(), int(d.Month()), year)
	case r < 0.95:
		return fmt.Sprintf("Semana de %d a %d/%d/%d", d.Day(), end.Day(), int(end.Month()), year)
	default:
		return "sem data"
	}
}

func cases(rng *rand.Rand) string {
	switch r := rng.Float64(); {
	case r < 0.04:
		return ""
	case r < 0.06:
		return "NA"
	case r < 0.07:
		return "-1"
	case r < 0.35:
		return "0"
	default:
		return strconv.Itoa(1 + rng.IntN(12))
	}
}

// pick returns a random element, or "" with probability blank.
func pick(rng *rand.Rand, values []string, blank float64) string {
	if rng.Float64() < blank {
		return ""
	}
	return values[rng.IntN(len(values))]
}

func write(path string, t domain.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return writeXLSX(path, t)
	case ".csv":
		return writeCSV(path, t)
	default:
		return fmt.Errorf("unsupported extension %q", filepath.Ext(path))
	}
}

func writeXLSX(path string, t domain.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range append([][]string{t.Headers}, t.Rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			// Numeric case counts are stored as numbers, like the source sheet.
			if n, err := strconv.Atoi(v); err == nil && i > 0 && j == 1 {
				values[j] = n
				continue
			}
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeCSV(path string, t domain.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write(t.Headers); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printStats(ds *domain.Dataset) {
	dated := 0
	byProvince := map[string]int{}
	for i := range ds.Records {
		rec := &ds.Records[i]
		if rec.HasDate() {
			dated++
		}
		byProvince[rec.Province]++
	}
	byCategory := map[string]int{}
	for _, row := range ds.Wide() {
		for i, v := range row.Indicators {
			byCategory[ds.Vocabulary[i]] += v
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Records: %d (dated %d)\n", len(ds.Records), dated)
	fmt.Printf("Long rows: %d\n", len(ds.Long()))
	fmt.Printf("By category: baleamentos=%d, detencoes=%d, mortes=%d\n",
		byCategory[domain.CategoryShootings], byCategory[domain.CategoryDetentions], byCategory[domain.CategoryDeaths])

	names := make([]string, 0, len(byProvince))
	for p := range byProvince {
		names = append(names, p)
	}
	slices.Sort(names)
	fmt.Printf("Provinces (%d):", len(names))
	for _, p := range names {
		label := p
		if label == "" {
			label = "<unknown>"
		}
		fmt.Printf(" %s=%d", label, byProvince[p])
	}
	fmt.Println()
}
