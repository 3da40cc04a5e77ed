package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Year 2004 appears in the source spreadsheet where 2024 was meant.
const (
	typoYear      = 2004
	correctedYear = 2024
)

var (
	dashReplacer = strings.NewReplacer("–", "-", "—", "-", "−", "-")

	// singleDateRe matches D/M/YYYY anywhere in the text, e.g. "5/3/2024".
	singleDateRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)

	// rangeDateRe matches a day range sharing month and year, e.g. "5-7/3/2024".
	// The start day must be a bare number, not the month of a D/M date.
	rangeDateRe = regexp.MustCompile(`(?:^|[^\d/])(\d{1,2})\s*-\s*(\d{1,2})/(\d{1,2})/(\d{4})`)

	// looseDateRe matches a day, anything, then M/YYYY, e.g. "5 a 7 de 3/2024".
	looseDateRe = regexp.MustCompile(`(\d{1,2}).*?(\d{1,2})/(\d{4})`)

	// rangeTailRe detects that a D/M/YYYY match is the end of a day range.
	// "30/11 - 2/12/2024" spans months and is not one.
	rangeTailRe = regexp.MustCompile(`(?:^|[^\d/])\d{1,2}\s*-\s*$`)
)

// ParsePeriod reads a free-text period into a single calendar date at UTC
// midnight. It returns false when no date can be read or the date does not
// exist on the calendar.
//
// Precedence: a standalone D/M/YYYY, then a D1-D2/M/YYYY range (start day
// wins), then a loose "D ... M/YYYY". A D/M/YYYY that is the tail of a range
// does not count as standalone.
func ParsePeriod(s string) (time.Time, bool) {
	s = dashReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}

	if m := findStandaloneDate(s); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := rangeDateRe.FindStringSubmatch(s); m != nil {
		return buildDate(m[1], m[3], m[4])
	}
	if m := looseDateRe.FindStringSubmatch(s); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	return time.Time{}, false
}

// CorrectYear moves a date recorded in 2004 to the same day in 2024.
// Both are leap years, so every day maps.
func CorrectYear(t time.Time) time.Time {
	if t.IsZero() || t.Year() != typoYear {
		return t
	}
	return time.Date(correctedYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func findStandaloneDate(s string) []string {
	for _, loc := range singleDateRe.FindAllStringSubmatchIndex(s, -1) {
		if rangeTailRe.MatchString(s[:loc[0]]) {
			continue
		}
		return []string{s[loc[0]:loc[1]], s[loc[2]:loc[3]], s[loc[4]:loc[5]], s[loc[6]:loc[7]]}
	}
	return nil
}

func buildDate(dayStr, monthStr, yearStr string) (time.Time, bool) {
	day, errD := strconv.Atoi(dayStr)
	month, errM := strconv.Atoi(monthStr)
	year, errY := strconv.Atoi(yearStr)
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, false
	}
	if year == typoYear {
		year = correctedYear
	}
	if year < 1 || month < 1 || month > 12 || day < 1 || day > daysIn(time.Month(month), year) {
		return time.Time{}, false
	}
	return CorrectYear(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)), true
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
