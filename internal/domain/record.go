package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"
)

// Table is a spreadsheet as read from disk: a header row and string cells.
// Rows may be shorter than Headers; missing cells read as "".
type Table struct {
	Headers []string
	Rows    [][]string
}

// Run identifies one preprocessing run.
type Run struct {
	ID        string
	StartedAt time.Time
}

// CanonicalRecord is one spreadsheet row after normalization.
type CanonicalRecord struct {
	ID string
	// Fields holds the original cells aligned with Dataset.Headers, including
	// a synthesized empty province cell when the input had none.
	Fields []string

	StartDate       time.Time // zero when the period could not be read
	RegisteredCases int
	// CasesValid is false when the case count was blank or non-numeric and
	// RegisteredCases was coerced to 0.
	CasesValid bool
	Types      []string
	Province   string // "" when unknown
}

// HasDate reports whether the start date was parsed.
func (r CanonicalRecord) HasDate() bool { return !r.StartDate.IsZero() }

// HasType reports whether the record carries category t.
func (r CanonicalRecord) HasType(t string) bool {
	for _, x := range r.Types {
		if x == t {
			return true
		}
	}
	return false
}

// FormatDate renders the start date as YYYY-MM-DD, or "" when missing.
func (r CanonicalRecord) FormatDate() string {
	if !r.HasDate() {
		return ""
	}
	return r.StartDate.Format(time.DateOnly)
}

// IncidentSummary is the persisted, model-facing view of a wide row.
type IncidentSummary struct {
	ID              string         `json:"id"`
	Province        string         `json:"province"`
	StartDate       time.Time      `json:"start_date"`
	RegisteredCases int            `json:"registered_cases"`
	Types           []string       `json:"types"`
	Indicators      map[string]int `json:"indicators"`
}

// parseCases coerces a case-count cell to an integer, truncating decimals.
// Blank, non-numeric, NaN and infinite values yield (0, false).
func parseCases(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(v), true
}

// generateID produces a deterministic record ID from its position and cells,
// so re-running on the same input yields the same IDs.
func generateID(index int, cells []string) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(index)))
	for _, c := range cells {
		h.Write([]byte{0x1f})
		h.Write([]byte(c))
	}
	sum := h.Sum(nil)
	return "inc-" + hex.EncodeToString(sum[:8])
}
