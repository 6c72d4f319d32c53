package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// PreviewMaxRunes caps the text preview stored on a conversation.
const PreviewMaxRunes = 100

const (
	previewPhoto = "📷 Photo"
	previewOrder = "🧾 Order: "
)

// Preview renders the inbox preview for a message body. productName is only
// used for order references.
func Preview(c domain.Content, productName string) string {
	switch c.Kind {
	case domain.KindImage:
		if c.Caption != "" {
			return clipRunes(c.Caption, PreviewMaxRunes)
		}
		return previewPhoto
	case domain.KindOrder:
		return clipRunes(previewOrder+productName, PreviewMaxRunes)
	default:
		return clipRunes(c.Text, PreviewMaxRunes)
	}
}

// clipRunes truncates s to at most n runes.
func clipRunes(s string, n int) string {
	if n > 0 && utf8.RuneCountInString(s) > n {
		return string([]rune(s)[:n])
	}
	return s
}

// normalizeText trims whitespace and collapses runs of spaces and tabs.
// Newlines are kept so multi-line chat messages survive.
func normalizeText(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = whitespaceRE.ReplaceAllString(strings.TrimSpace(l), " ")
	}
	return strings.Join(lines, "\n")
}

// whitespaceRE collapses consecutive horizontal whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`[ \t\f\v]+`)

// CanonicalCategory title-cases a category name ("root crops" -> "Root Crops").
func CanonicalCategory(s string) string {
	return cases.Title(language.English).String(whitespaceRE.ReplaceAllString(strings.TrimSpace(strings.ToLower(s)), " "))
}

// quantityLabel formats a quantity with its unit, e.g. "2.5 kg".
func quantityLabel(q decimal.Decimal, unit string) string {
	if unit == "" {
		return q.String()
	}
	return fmt.Sprintf("%s %s", q.String(), unit)
}

// peso formats an amount in Philippine pesos, e.g. "₱1250.50".
func peso(d decimal.Decimal) string { return "₱" + d.StringFixed(2) }
