package domain

import (
	"regexp"
	"strings"
)

var (
	separatorReplacer = strings.NewReplacer(" / ", ",", "/", ",", ";", ",", "|", ",")

	// conjunctionRe matches the Portuguese "e" (and) between words. It is
	// case-sensitive: a capital "E" is left inside the token.
	conjunctionRe = regexp.MustCompile(`[\s\p{Zs}]+e[\s\p{Zs}]+`)
)

// SplitTypes splits a multi-valued incident-type cell into normalized category
// tokens. Tokens are accent-stripped, lowercased, whitespace-collapsed and
// deduplicated in first-seen order. An empty cell yields an empty list.
func SplitTypes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}

	x := separatorReplacer.Replace(s)
	x = conjunctionRe.ReplaceAllString(x, ",")

	seen := make(map[string]struct{})
	out := []string{}
	for _, part := range strings.Split(x, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		token := NormalizeToken(part)
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}
