package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRunRe = regexp.MustCompile(`[\t\n\v\f\r ]+`)

// FoldASCII decomposes s with NFKD and drops every rune outside ASCII, so
// combining accents disappear and compatibility forms collapse ("º" → "o").
func FoldASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFKD.String(s) {
		if r >= utf8.RuneSelf {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeName folds s to ASCII, trims it and lowercases it. It is the
// comparison key for headers and province labels.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(FoldASCII(s)))
}

// NormalizeToken is NormalizeName plus collapsing internal whitespace runs.
// Category tokens and vocabulary entries are compared in this form.
func NormalizeToken(s string) string {
	return whitespaceRunRe.ReplaceAllString(NormalizeName(s), " ")
}
