package extractor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"groupbuy/detailworker/internal/detail"
	"groupbuy/detailworker/internal/textparse"
	"groupbuy/detailworker/pkg/errors"
)

// GenericExtractor reads any product page through OpenGraph tags and
// schema.org Product JSON-LD. The registry uses it for unknown hosts.
type GenericExtractor struct{}

func (GenericExtractor) Name() string { return ProviderGeneric }

// Matches accepts every host
func (GenericExtractor) Matches(string) bool { return true }

func (g GenericExtractor) Extract(ctx context.Context, pageURL, html string) *detail.RawProductDetail {
	p := newPage(ctx, g.Name(), pageURL, html)
	if p == nil {
		return nil
	}
	product := p.jsonLDProduct()

	p.raw.Title = applyHandlers(p,
		func(p *page) string { return textparse.CleanText(p.meta("og:title")) },
		func(*page) string { return textparse.CleanText(product.Get("name").String()) },
		(*page).titleFallback,
	)

	p.firstHit("price", []strategy{
		{"json-ld", func(p *page) bool {
			pt := jsonLDPrice(product)
			return pt != "" && p.setPrice(pt)
		}},
		{"meta", priceFromMeta},
	})

	p.firstHit("supplier", []strategy{{"json-ld", func(p *page) bool {
		name := textparse.CleanText(product.Get("brand.name").String())
		if name == "" {
			name = textparse.CleanText(product.Get("offers.seller.name").String())
		}
		if name == "" {
			name = textparse.CleanText(p.meta("og:site_name"))
		}
		if name == "" {
			return false
		}
		p.raw.Supplier = &detail.Supplier{Name: name}
		return true
	}}})

	p.safeRun("rating", func() bool {
		agg := product.Get("aggregateRating")
		if !agg.Exists() {
			return false
		}
		var r detail.Rating
		if v, ok := textparse.ParseAmount(agg.Get("ratingValue").String()); ok && v > 0 {
			r.Value = &v
		}
		if n, ok := textparse.FirstInt(agg.Get("reviewCount").String()); ok {
			r.Count = &n
		}
		if r.Value == nil && r.Count == nil {
			return false
		}
		p.raw.Rating = &r
		return true
	})

	p.extractAttributes("")
	product.Get("additionalProperty").ForEach(func(_, prop gjson.Result) bool {
		label := textparse.CleanText(prop.Get("name").String())
		value := textparse.CleanText(prop.Get("value").String())
		if label != "" && value != "" && looksLikeAttributeKey(label) {
			p.raw.Attributes = append(p.raw.Attributes, detail.Attribute{Label: label, Value: value})
		}
		return true
	})

	p.extractImages()
	if p.raw.HeroImage == "" {
		if img := p.absolute(firstString(product.Get("image"))); img != "" && !isBadImage(img) {
			p.raw.HeroImage = img
			p.raw.AddDebug("hero:json-ld")
		}
	}

	return p.finish()
}

// jsonLDProduct returns the first schema.org Product object on the page,
// looking inside top level arrays and @graph.
func (p *page) jsonLDProduct() gjson.Result {
	var product gjson.Result
	p.doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		body := strings.TrimSpace(s.Text())
		if !gjson.Valid(body) {
			p.log.Debug().
				Err(errors.NewMalformedData(ProviderGeneric, "invalid JSON-LD block", nil)).
				Str("url", p.url).
				Msg("Skipping JSON-LD")
			return true
		}
		product = findProduct(gjson.Parse(body))
		return !product.Exists()
	})
	return product
}

func findProduct(r gjson.Result) gjson.Result {
	if r.IsArray() {
		var found gjson.Result
		r.ForEach(func(_, v gjson.Result) bool {
			found = findProduct(v)
			return !found.Exists()
		})
		return found
	}
	if !r.IsObject() {
		return gjson.Result{}
	}
	if isProductType(r.Get("@type")) {
		return r
	}
	return findProduct(r.Get("@graph"))
}

func isProductType(t gjson.Result) bool {
	if t.IsArray() {
		for _, v := range t.Array() {
			if strings.EqualFold(v.String(), "Product") {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(t.String(), "Product")
}

func jsonLDPrice(product gjson.Result) string {
	offers := product.Get("offers")
	if offers.IsArray() {
		offers = offers.Get("0")
	}
	if !offers.Exists() {
		return ""
	}
	currency := offers.Get("priceCurrency").String()
	low, okLow := textparse.ParseAmount(offers.Get("lowPrice").String())
	high, okHigh := textparse.ParseAmount(offers.Get("highPrice").String())
	if okLow && okHigh && low > 0 {
		return detail.FormatPrice(currency, low, high)
	}
	if v, ok := textparse.ParseAmount(offers.Get("price").String()); ok && v > 0 {
		return detail.FormatPrice(currency, v)
	}
	return ""
}

func firstString(r gjson.Result) string {
	switch {
	case r.IsArray():
		return r.Get("0").String()
	case r.IsObject():
		return r.Get("url").String()
	}
	return r.String()
}
