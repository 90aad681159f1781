package detail

import (
	"fmt"
	"regexp"
	"strings"

	"groupbuy/detailworker/internal/textparse"
)

var (
	titleSuffixRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*[-|–]\s*Buy\s.*\bon\s+Alibaba\.com\s*$`),
		regexp.MustCompile(`(?i)\s*[-|–]\s*(?:www\.)?(?:Alibaba\.com|Made-in-China\.com|IndiaMART(?:\.com)?|IndiaMART InterMESH Ltd\.?)\s*$`),
		regexp.MustCompile(`(?i)\s*\|\s*ID:\s*\d+\s*$`),
	}

	soldRe = regexp.MustCompile(`(?i)(\d[\d,]*)\+?\s*(?:sold|orders?|pieces sold)\b`)

	placeholderLabels = map[string]struct{}{
		"thumbnail": {}, "default": {}, "--": {}, "-": {}, "n/a": {}, "na": {},
		"null": {}, "undefined": {}, "image": {}, "img": {}, "none": {}, "": {},
	}

	currencyPrefixes = map[string]string{
		"USD": "US$",
		"INR": "₹",
		"CNY": "¥",
		"RMB": "¥",
		"EUR": "€",
		"GBP": "£",
	}
)

// IsPlaceholderLabel reports whether label is one of the generic names
// marketplaces put on unnamed thumbnails and empty spec rows.
func IsPlaceholderLabel(label string) bool {
	_, ok := placeholderLabels[strings.ToLower(textparse.CleanText(label))]
	return ok
}

// TrimTitle removes marketplace branding suffixes such as
// "- Buy Widgets on Alibaba.com".
func TrimTitle(title string) string {
	title = textparse.CleanText(title)
	for {
		before := title
		for _, re := range titleSuffixRes {
			title = strings.TrimSpace(re.ReplaceAllString(title, ""))
		}
		if title == before {
			return title
		}
	}
}

// Normalize maps extractor output plus the listing fallback to the
// canonical detail. It accepts a nil raw and never panics.
func Normalize(raw *RawProductDetail, fb ListingFallback) NormalizedDetail {
	if raw == nil {
		raw = &RawProductDetail{}
	}

	n := NormalizedDetail{
		Title:       TrimTitle(raw.Title),
		PriceText:   textparse.CleanText(raw.PriceText),
		MOQText:     textparse.CleanText(raw.MOQText),
		HeroImage:   strings.TrimSpace(raw.HeroImage),
		SoldCount:   raw.SoldCount,
		Attributes:  normalizePairs(attributePairs(raw.Attributes)),
		Packaging:   normalizePairs(packagingPairs(raw.Packaging)),
		Protections: flattenProtections(raw.Protections),
	}

	if n.Title == "" {
		n.Title = TrimTitle(fb.Title)
	}
	if n.PriceText == "" {
		n.PriceText = fallbackPrice(fb)
	}
	if n.MOQText == "" {
		n.MOQText = textparse.ExtractMOQLike(fb.OrdersRaw)
	}
	if n.HeroImage == "" {
		n.HeroImage = strings.TrimSpace(fb.Image)
	}
	if n.SoldCount == nil {
		if m := soldRe.FindStringSubmatch(fb.OrdersRaw); m != nil {
			if v, ok := textparse.FirstInt(m[1]); ok {
				n.SoldCount = &v
			}
		}
	}
	if raw.Supplier != nil {
		n.Supplier = NormalizedSupplier{
			Name: textparse.CleanText(raw.Supplier.Name),
			Logo: strings.TrimSpace(raw.Supplier.Logo),
		}
	}

	n.PriceTiers = normalizeTiers(raw.PriceTiers)
	if len(n.PriceTiers) == 0 && n.PriceText != "" {
		n.PriceTiers = []PriceTier{syntheticTier(n.PriceText, n.MOQText)}
	}

	return n
}

func normalizeTiers(tiers []PriceTier) []PriceTier {
	cleaned := make([]PriceTier, 0, len(tiers))
	for _, t := range tiers {
		t = PriceTier{Range: textparse.CleanText(t.Range), Price: textparse.CleanText(t.Price)}
		if t.Price == "" {
			continue
		}
		cleaned = append(cleaned, t)
	}
	return textparse.DedupBy(cleaned, func(t PriceTier) string { return t.Price + "|" + t.Range })
}

// syntheticTier builds the single ladder rung shown when a page only has a
// flat price: the MOQ (or 1) is the quantity floor.
func syntheticTier(priceText, moqText string) PriceTier {
	qty, unit, ok := textparse.ParseMOQ(moqText)
	if !ok {
		qty, unit = 1, ""
	}
	rng := "≥ " + textparse.FormatQuantity(qty)
	if unit != "" {
		rng += " " + unit
	}
	return PriceTier{Range: rng, Price: priceText}
}

func attributePairs(attrs []Attribute) []Pair {
	out := make([]Pair, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, Pair{a.Label, a.Value})
	}
	return out
}

func packagingPairs(entries []PackagingEntry) []Pair {
	out := make([]Pair, 0, len(entries))
	for _, e := range entries {
		out = append(out, Pair{e.Name, e.Value})
	}
	return out
}

func normalizePairs(pairs []Pair) []Pair {
	cleaned := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		p = Pair{textparse.CleanText(p[0]), textparse.CleanText(p[1])}
		if p[0] == "" || p[1] == "" || IsPlaceholderLabel(p[0]) {
			continue
		}
		cleaned = append(cleaned, p)
	}
	return textparse.DedupBy(cleaned, func(p Pair) string { return p[0] + "|" + p[1] })
}

func flattenProtections(protections []Protection) []string {
	out := make([]string, 0, len(protections))
	for _, p := range protections {
		header, body := textparse.CleanText(p.Header), textparse.CleanText(p.Body)
		switch {
		case header != "" && body != "":
			out = append(out, header+": "+body)
		case header != "":
			out = append(out, header)
		case body != "":
			out = append(out, body)
		}
	}
	return textparse.DedupStrings(out)
}

func fallbackPrice(fb ListingFallback) string {
	if p := textparse.CleanText(fb.PriceRaw); p != "" {
		return p
	}
	switch {
	case fb.PriceMin != nil && fb.PriceMax != nil && *fb.PriceMax > *fb.PriceMin:
		return FormatPrice(fb.Currency, *fb.PriceMin, *fb.PriceMax)
	case fb.PriceMin != nil:
		return FormatPrice(fb.Currency, *fb.PriceMin)
	case fb.PriceMax != nil:
		return FormatPrice(fb.Currency, *fb.PriceMax)
	}
	return ""
}

// FormatPrice renders one amount or a low/high pair with a currency
// marker: FormatPrice("USD", 2, 3.5) is "US$2.00 - 3.50".
func FormatPrice(currency string, amounts ...float64) string {
	if len(amounts) == 0 {
		return ""
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	prefix := currencyPrefixes[code]
	if prefix == "" && code != "" {
		prefix = code + " "
	}
	if len(amounts) > 1 && amounts[1] > amounts[0] {
		return fmt.Sprintf("%s%.2f - %.2f", prefix, amounts[0], amounts[1])
	}
	return fmt.Sprintf("%s%.2f", prefix, amounts[0])
}
