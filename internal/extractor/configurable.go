package extractor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"groupbuy/detailworker/internal/detail"
	"groupbuy/detailworker/internal/textparse"
)

// CustomElementHandlerFunc overrides the selector lookup for one field. It
// receives the document root.
type CustomElementHandlerFunc func(*goquery.Selection) string

// ElementRemoval strips matching elements from a field's selection before
// its text is read
type ElementRemoval struct {
	Selector    string // Selector to find elements to remove
	ApplyToPath string // Field the removal applies to, e.g. "price"
}

// Selectors are the per-field CSS selectors of a single-pass site. Empty
// selectors skip straight to the text fallback.
type Selectors struct {
	Title            string
	Price            string
	MOQ              string
	TierRow          string
	TierRange        string
	TierPrice        string
	SupplierName     string
	SupplierType     string
	SupplierLocation string
	SupplierLogo     string
	SupplierProfile  string
	Protections      string
	Sold             string
	PackagingRegion  string
}

// CustomHandlers maps field paths to handlers
type CustomHandlers struct {
	ElementHandlers map[string]CustomElementHandlerFunc
}

// ElementTransformers contains configurations for transforming elements
type ElementTransformers struct {
	RemoveElements []ElementRemoval
}

// SiteConfig describes a marketplace whose product pages are regular enough
// for one selector per field plus one text scan fallback.
type SiteConfig struct {
	Provider            string
	HostMarker          string
	Selectors           Selectors
	CustomHandlers      CustomHandlers
	ElementTransformers ElementTransformers
}

// ConfigurableExtractor is a single-pass extractor driven by a SiteConfig
type ConfigurableExtractor struct {
	Config SiteConfig
}

// NewConfigurableExtractor creates an extractor for config
func NewConfigurableExtractor(config SiteConfig) *ConfigurableExtractor {
	return &ConfigurableExtractor{Config: config}
}

func (c *ConfigurableExtractor) Name() string { return c.Config.Provider }

func (c *ConfigurableExtractor) Matches(host string) bool {
	return c.Config.HostMarker != "" && strings.Contains(host, c.Config.HostMarker)
}

func (c *ConfigurableExtractor) Extract(ctx context.Context, pageURL, html string) *detail.RawProductDetail {
	p := newPage(ctx, c.Name(), pageURL, html)
	if p == nil {
		return nil
	}
	sel := c.Config.Selectors

	p.raw.Title = applyHandlers(p, func(p *page) string { return c.field(p, "title", sel.Title) }, (*page).titleFallback)

	p.firstHit("price", []strategy{
		{"tiers", func(p *page) bool { return p.setTiers(c.tiers(p)) }},
		{"selector", func(p *page) bool {
			pt := textparse.ExtractPriceLike(c.field(p, "price", sel.Price))
			return pt != "" && p.setPrice(pt)
		}},
		{"text-scan", priceFromBody},
	})

	p.firstHit("moq", []strategy{
		{"selector", func(p *page) bool {
			t := c.field(p, "moq", sel.MOQ)
			moq := textparse.ExtractMOQLike(t)
			if moq == "" {
				moq = moqFromQuantity(t)
			}
			return p.setMOQ(moq)
		}},
		{"text-scan", func(p *page) bool {
			moq := textparse.ExtractMOQLike(p.body())
			if moq == "" {
				moq = textparse.ExtractMOQLoose(p.body())
			}
			return p.setMOQ(moq)
		}},
	})

	p.firstHit("supplier", []strategy{{"selector", func(p *page) bool { return c.supplier(p) }}})

	p.firstHit("protections", []strategy{{"selector", func(p *page) bool {
		if sel.Protections == "" {
			return false
		}
		for _, t := range p.texts(sel.Protections) {
			p.raw.Protections = append(p.raw.Protections, detail.Protection{Body: t})
		}
		return len(p.raw.Protections) > 0
	}}})

	p.extractAttributes(sel.PackagingRegion)
	p.extractImages()

	p.firstHit("sold", []strategy{
		{"selector", func(p *page) bool {
			n, ok := textparse.FirstInt(c.field(p, "sold", sel.Sold))
			return ok && p.setSold(n)
		}},
		{"text-scan", func(p *page) bool {
			best := -1
			for _, m := range soldBodyRe.FindAllStringSubmatch(p.body(), -1) {
				if n, ok := textparse.FirstInt(m[1]); ok && m[2] == "" && n > best {
					best = n
				}
			}
			return p.setSold(best)
		}},
	})

	return p.finish()
}

// field reads one configured field, honouring custom handlers and removals
func (c *ConfigurableExtractor) field(p *page, path, selector string) string {
	if handler, ok := c.Config.CustomHandlers.ElementHandlers[path]; ok && handler != nil {
		return textparse.CleanText(handler(p.doc.Selection))
	}
	if selector == "" {
		return ""
	}
	var out string
	p.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = textparse.CleanText(c.cleanSelection(s, path).Text())
		return out == ""
	})
	return out
}

// cleanSelection removes configured elements from a copy of sel
func (c *ConfigurableExtractor) cleanSelection(sel *goquery.Selection, path string) *goquery.Selection {
	var removals []string
	for _, r := range c.Config.ElementTransformers.RemoveElements {
		if r.ApplyToPath == path {
			removals = append(removals, r.Selector)
		}
	}
	if len(removals) == 0 {
		return sel
	}
	clone := sel.Clone()
	for _, r := range removals {
		clone.Find(r).Remove()
	}
	return clone
}

func (c *ConfigurableExtractor) tiers(p *page) []detail.PriceTier {
	sel := c.Config.Selectors
	if sel.TierRow == "" {
		return nil
	}
	var tiers []detail.PriceTier
	p.doc.Find(sel.TierRow).Each(func(_ int, row *goquery.Selection) {
		price := textparse.ExtractPriceLike(row.Find(sel.TierPrice).Text())
		if price == "" {
			return
		}
		tiers = append(tiers, detail.PriceTier{
			Range: textparse.CleanText(row.Find(sel.TierRange).Text()),
			Price: price,
		})
	})
	return tiers
}

func (c *ConfigurableExtractor) supplier(p *page) bool {
	sel := c.Config.Selectors
	name := c.field(p, "supplierName", sel.SupplierName)
	if name == "" {
		return false
	}
	s := &detail.Supplier{
		Name:     name,
		Type:     c.field(p, "supplierType", sel.SupplierType),
		Location: c.field(p, "supplierLocation", sel.SupplierLocation),
	}
	if sel.SupplierLogo != "" {
		s.Logo = p.absolute(p.attr("src", sel.SupplierLogo))
	}
	if sel.SupplierProfile != "" {
		s.ProfileLink = p.absolute(p.attr("href", sel.SupplierProfile))
	}
	p.raw.Supplier = s
	return true
}

func (p *page) setPrice(pt string) bool {
	p.raw.PriceText = pt
	return true
}
