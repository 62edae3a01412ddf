// Package export writes the dashboard's views to files: a Word-readable .doc, an xlsx workbook, PNG
// charts and a markdown report.
package export

import (
	"fmt"
	"math"
	"regexp"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FormatBRL renders a value as whole reais with Brazilian digit grouping ("R$ 1.234.567"). Non-finite
// values render empty.
func FormatBRL(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ""
	}
	r := math.Round(x)
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	p := message.NewPrinter(language.BrazilianPortuguese)
	return p.Sprintf("R$ %v", number.Decimal(r, number.MaxFractionDigits(0)))
}

// FormatCompact abbreviates large numbers for chart labels.
func FormatCompact(x float64) string {
	switch ax := math.Abs(x); {
	case ax >= 1e9:
		return fmt.Sprintf("%.2fB", x/1e9)
	case ax >= 1e6:
		return fmt.Sprintf("%.2fM", x/1e6)
	case ax >= 1e3:
		return fmt.Sprintf("%.1fK", x/1e3)
	}
	return fmt.Sprintf("%.0f", x)
}

const maxFilename = 110

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SanitizeFilename strips accents, collapses every run of other characters into "_" and trims the
// result to 110 characters.
func SanitizeFilename(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	out := nonAlnum.ReplaceAllString(plain, "_")
	out = trimUnderscores(out)
	if len(out) > maxFilename {
		out = out[:maxFilename]
	}
	return out
}

func trimUnderscores(s string) string {
	start, end := 0, len(s)
	for start < end && s[start] == '_' {
		start++
	}
	for end > start && s[end-1] == '_' {
		end--
	}
	return s[start:end]
}
