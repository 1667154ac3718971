// Package amountutils provides cleaning and parsing of the free-form
// currency amount strings found in bank statement exports.
package amountutils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// currencySymbolRe matches currency symbols and codes prepended or
// appended to amounts, plus stray whitespace.
var currencySymbolRe = regexp.MustCompile(`[€$£¥₹₣₤₧₺₽₩฿₫₲₴₸₼₪\s]|(?i)\b(INR|RS|USD|EUR|GBP|CHF)\b`)

// negativeMarkerRe matches debit markers that force a negative sign
// irrespective of the numeric literal's own sign.
var negativeMarkerRe = regexp.MustCompile(`(?i)\(|\bDR\b|\bDEBIT\b`)

// creditMarkerRe matches credit markers, stripped without sign effect.
var creditMarkerRe = regexp.MustCompile(`(?i)\bCR\b|\bCREDIT\b`)

// Parse cleans a raw amount string and parses it into a signed decimal.
// Grouping separators, currency symbols, parentheses and debit/credit
// markers are stripped; any negative indicator (parenthesis, minus sign,
// DR/Debit token) forces the result negative. Unparsable input yields
// zero, which the pipeline treats as "no signal" and filters out.
func Parse(amountStr string) decimal.Decimal {
	s := strings.TrimSpace(amountStr)
	if s == "" {
		return decimal.Zero
	}

	negative := negativeMarkerRe.MatchString(s) || strings.Contains(s, "-")

	s = creditMarkerRe.ReplaceAllString(s, "")
	s = negativeMarkerRe.ReplaceAllString(s, "")
	s = currencySymbolRe.ReplaceAllString(s, "")
	s = strings.NewReplacer(")", "", "'", "", "-", "", "+", "").Replace(s)
	s = standardizeSeparators(strings.TrimSpace(s))

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}

	amount = amount.Abs()
	if negative {
		amount = amount.Neg()
	}
	return amount
}

// standardizeSeparators converts grouping/decimal separator variants to a
// form decimal.NewFromString accepts. Handles "1,234.56" and Indian
// grouping "1,23,456.78" as well as the European "1.234,56" style.
func standardizeSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
			// European format: dot groups, comma decimal
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		parts := strings.Split(s, ",")
		if len(parts) > 1 && len(parts[len(parts)-1]) <= 2 {
			// Comma used as decimal separator (1234,56)
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return s
}

// IsZero reports whether an amount rounds to zero at two decimal places,
// the pipeline's "no financial signal" rule.
func IsZero(amount decimal.Decimal) bool {
	return amount.Round(2).IsZero()
}
