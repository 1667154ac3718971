// Package dateutils provides date parsing and normalization for the
// free-form date strings found in bank statement exports.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Common date format constants used throughout the application.
const (
	DateLayoutISO       = "2006-01-02"
	DateLayoutEuropean  = "02/01/2006"
	DateLayoutUS        = "01/02/2006"
	DateLayoutFull      = "2006-01-02 15:04:05"
	DateLayoutWithMonth = "2-Jan-2006"
)

// CommonFormats is the fixed priority list of layouts tried when parsing.
// Order matters: the first successful parse wins, so ISO and
// day-first variants are tried before the ambiguous US layout.
var CommonFormats = []string{
	DateLayoutISO,
	DateLayoutFull,
	DateLayoutEuropean, // DD/MM/YYYY
	"02-01-2006",
	"02.01.2006",
	DateLayoutUS, // MM/DD/YYYY
	"2006/01/02",
	DateLayoutWithMonth,
	"02 Jan 2006",
	"Jan 02, 2006",
	"2 January 2006",
	"January 2, 2006",
}

// placeholders are inputs that carry no date signal at all.
var placeholders = map[string]bool{
	"":     true,
	"nan":  true,
	"none": true,
	"null": true,
	"-":    true,
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanDateString trims and collapses whitespace in a date string.
func CleanDateString(dateStr string) string {
	dateStr = strings.TrimSpace(dateStr)
	return whitespaceRe.ReplaceAllString(dateStr, " ")
}

// ParseDate attempts to parse a date string using the common formats in
// priority order. Returns the parsed time and the matched layout.
func ParseDate(dateStr string) (time.Time, string, error) {
	cleaned := CleanDateString(dateStr)
	for _, format := range CommonFormats {
		if t, err := time.Parse(format, cleaned); err == nil {
			return t, format, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// IsPlaceholder reports whether the input is an empty or placeholder
// value ("nan", "none", ...) that carries no date information.
func IsPlaceholder(dateStr string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(dateStr))]
}

// Normalize converts a free-form date string to canonical YYYY-MM-DD.
// Unparsable or placeholder input falls back to the provided processing
// date: losing one transaction's date must not abort the batch, so this
// is a documented degradation rather than an error. The second return
// reports whether the fallback was taken.
func Normalize(dateStr string, fallback time.Time) (string, bool) {
	if IsPlaceholder(dateStr) {
		return fallback.Format(DateLayoutISO), true
	}
	t, _, err := ParseDate(dateStr)
	if err != nil {
		return fallback.Format(DateLayoutISO), true
	}
	return t.Format(DateLayoutISO), false
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD).
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// MonthKey returns the YYYY-MM prefix of a canonical date, used for
// bucketing transactions into distinct months.
func MonthKey(isoDate string) string {
	if len(isoDate) >= 7 {
		return isoDate[:7]
	}
	return isoDate
}
