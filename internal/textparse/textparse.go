// Package textparse holds the pure string helpers the extractors and the
// normalizer share: currency amounts, minimum order quantities, whitespace
// cleanup and case-insensitive de-duplication.
package textparse

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	currencyPattern = `(?:\bUS\s?\$|\bUSD|\bRMB|\bCNY|\bINR|\bEUR|\bGBP|\bRs\.?|[$¥₹€£])`
	amountPattern   = `\d[\d,]*(?:\.\d+)?`
	unitPattern     = `(?:pcs|pieces?|sets?|units?|pairs?|boxes|box|cartons?|bags?|kgs?|kilograms?|metric\s+tons?|tons?|square\s+meters?|meters?|rolls?|dozens?|packs?|sheets?|yards?|bottles?|barrels?|pallets?|containers?)`
)

var (
	priceLikeRe = regexp.MustCompile(currencyPattern + `\s{0,2}` + amountPattern +
		`(?:\s*[-~–]\s*(?:` + currencyPattern + `\s{0,2})?` + amountPattern + `)?`)

	moqStrictRe = regexp.MustCompile(`(?i)(?:\bMOQ\b|\bMin\.?\s*Order(?:\s*Quantity)?|\bMinimum\s+Order(?:\s+Quantity)?|≥)\s*[:：]?\s*(\d[\d,]*)(?:\s*(` + unitPattern + `)\b)?`)

	moqLooseRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d[\d,]*)\s*(` + unitPattern + `)\s*\(\s*MOQ\s*\)`),
		regexp.MustCompile(`(?i)≥\s*(\d[\d,]*)\s*(` + unitPattern + `)\b`),
		regexp.MustCompile(`(?i)(\d[\d,]*)\s*(` + unitPattern + `)\s*\(?\s*(?:Min\.?\s*Order|minimum)`),
	}

	unitRe     = regexp.MustCompile(`(?i)\b` + unitPattern + `\b`)
	qtyRangeRe = regexp.MustCompile(`(?i)(?:[≥>]=?\s*\d[\d,]*|\d[\d,]*\s*[-~–]\s*\d[\d,]*)(?:\s*` + unitPattern + `\b)?|\d[\d,]*\s*\+?\s*` + unitPattern + `\b`)
	quantityRe = regexp.MustCompile(`(?i)(\d[\d,]*)(?:\s*(` + unitPattern + `)\b)?`)
	amountRe   = regexp.MustCompile(amountPattern)
	intRe      = regexp.MustCompile(`\d[\d,]*`)
	spaceRe    = regexp.MustCompile(`\s+`)

	printer = message.NewPrinter(language.English)
)

// CleanText collapses runs of whitespace (including non-breaking and
// zero-width spaces) into single spaces and trims the result.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.NewReplacer("\u00a0", " ", "\u200b", "", "\u3000", " ").Replace(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// ExtractPriceLike returns the first currency-marked amount or amount range
// found in text, or "" when there is none.
func ExtractPriceLike(text string) string {
	m := priceLikeRe.FindString(text)
	if m == "" {
		return ""
	}
	return strings.TrimRight(CleanText(m), ",.")
}

// ExtractQuantityRange returns the first quantity range ("100-499 pieces"),
// threshold ("≥ 500") or unit-bearing count in text. Callers strip the price
// first, since an amount range reads as a quantity range too.
func ExtractQuantityRange(text string) string {
	return CleanText(qtyRangeRe.FindString(text))
}

// ExtractMOQLike matches an explicit minimum-order phrase followed by a
// quantity, e.g. "MOQ: 1,200 pcs" -> "1,200 PCS".
func ExtractMOQLike(text string) string {
	m := moqStrictRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return formatMOQ(m[1], m[2])
}

// ExtractMOQLoose catches the forms the strict matcher misses:
// "500 Pieces (MOQ)", "≥ 500 Sets" and "100 pcs min. order".
func ExtractMOQLoose(text string) string {
	for _, re := range moqLooseRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return formatMOQ(m[1], m[2])
		}
	}
	return ""
}

// ParseMOQ reads a quantity and unit out of a MOQ string. It accepts both
// labelled text ("MOQ: 100 pcs") and already-normalized text ("100 PCS").
func ParseMOQ(text string) (qty int, unit string, ok bool) {
	candidates := []string{ExtractMOQLike(text), ExtractMOQLoose(text), text}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		m := quantityRe.FindStringSubmatch(c)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil || n <= 0 {
			continue
		}
		return n, normalizeUnit(m[2]), true
	}
	return 0, "", false
}

// ExtractUnit returns the first order unit word in text, upper-cased
// ("500 - 999 pieces" -> "PIECES").
func ExtractUnit(text string) string {
	return normalizeUnit(unitRe.FindString(text))
}

// ParseAmount returns the first numeric amount in s, ignoring currency
// markers and thousands separators.
func ParseAmount(s string) (float64, bool) {
	m := amountRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FirstInt returns the first integer in s ("1,234 sold" -> 1234).
func FirstInt(s string) (int, bool) {
	m := intRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatQuantity renders n with English digit grouping (1200 -> "1,200").
func FormatQuantity(n int) string {
	return printer.Sprintf("%d", n)
}

// DedupBy keeps the first item for every case-insensitive key, preserving
// input order.
func DedupBy[T any](items []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := strings.ToLower(key(item))
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// DedupStrings cleans every entry, drops empties and removes
// case-insensitive duplicates.
func DedupStrings(items []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, s := range items {
		if s = CleanText(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return DedupBy(cleaned, func(s string) string { return s })
}

func formatMOQ(number, unit string) string {
	n, err := strconv.Atoi(strings.ReplaceAll(number, ",", ""))
	if err != nil || n <= 0 {
		return ""
	}
	out := FormatQuantity(n)
	if u := normalizeUnit(unit); u != "" {
		out += " " + u
	}
	return out
}

func normalizeUnit(unit string) string {
	return strings.ToUpper(CleanText(unit))
}
