package extractor

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"groupbuy/detailworker/internal/detail"
	"groupbuy/detailworker/internal/textparse"
)

const (
	alibabaPackagingRegion = "[class*='packaging'], [data-module-name*='packaging'], #packaging"
	maxShippingNoteRunes   = 300
	maxActionLabelRunes    = 40
	maxOptionNameRunes     = 80
)

var (
	// SKU name/image pairs in inline state, in either key order
	scriptNameFirstRe = regexp.MustCompile(`"(?:skuName|propertyValueName|propertyValueDisplayName|valueName|name)"\s*:\s*"([^"\\]{1,80})"\s*,\s*"(?:image|imageUrl|imgUrl|skuImage|skuImageUrl)"\s*:\s*"([^"]+)"`)
	scriptImageFirstRe = regexp.MustCompile(`"(?:image|imageUrl|imgUrl|skuImage|skuImageUrl)"\s*:\s*"([^"]+)"\s*,\s*"(?:skuName|propertyValueName|propertyValueDisplayName|valueName|name)"\s*:\s*"([^"\\]{1,80})"`)

	soldBodyRe  = regexp.MustCompile(`(?i)(\d[\d,]*)\+?\s*(?:[a-z]+\s+)?sold\b(\s+by)?`)
	soldJSONRe  = regexp.MustCompile(`"(?:tradeCount|sold|salesCount|dealCount)"\s*:\s*"?(\d[\d,]*)`)
	moqLabelRe  = regexp.MustCompile(`(?i)^(?:moq|min\.?\s*order|minimum\s+order)`)
	memberYrsRe = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:yrs?|years?)\b`)
)

// AlibabaExtractor reads Alibaba.com product pages. The optional Browser
// is only consulted when the DOM yields no usable variation labels.
type AlibabaExtractor struct {
	Browser BrowserAutomation
}

// NewAlibabaExtractor creates the Alibaba extractor; automation may be nil
func NewAlibabaExtractor(automation BrowserAutomation) *AlibabaExtractor {
	return &AlibabaExtractor{Browser: automation}
}

func (e *AlibabaExtractor) Name() string { return ProviderAlibaba }

func (e *AlibabaExtractor) Matches(host string) bool {
	return strings.Contains(host, "alibaba")
}

func (e *AlibabaExtractor) Extract(ctx context.Context, pageURL, html string) *detail.RawProductDetail {
	p := newPage(ctx, e.Name(), pageURL, html)
	if p == nil {
		return nil
	}

	p.raw.Title = applyHandlers(p, alibabaTitle, (*page).titleFallback)
	p.firstHit("price", alibabaPriceStrategies)
	if p.raw.MOQText == "" {
		p.firstHit("moq", alibabaMOQStrategies)
	}
	e.extractVariations(p)
	p.each("offer", alibabaOfferStrategies)
	p.firstHit("protections", alibabaProtectionStrategies)
	p.extractAttributes(alibabaPackagingRegion)
	p.extractImages()
	p.safeRun("rating", func() bool { return alibabaRating(p) })
	p.firstHit("sold", alibabaSoldStrategies)

	return p.finish()
}

func alibabaTitle(p *page) string {
	if t := p.attr("title", "h1[title]"); t != "" {
		return textparse.CleanText(t)
	}
	return p.text(".product-title h1", "[class*='product-title'] h1", "[class*='product-title']", "h1")
}

var alibabaPriceStrategies = []strategy{
	{"range-price", priceFromRange},
	{"ladder-price", priceFromLadder},
	{"promotion", priceFromPromotion},
	{"product-price", priceFromProductBlock},
	{"ssr-ladder", priceFromSSRLadder},
	{"pricing-container", priceFromContainers},
	{"embedded-json", priceFromEmbedded},
	{"meta", priceFromMeta},
	{"body", priceFromBody},
}

// priceFromRange reads the range price block. Its price items carry the
// quantity breaks; the block's own text is only used when it lists none.
func priceFromRange(p *page) bool {
	block := p.doc.Find(".price-range, [class*='range-price'], [data-testid='range-price']").First()
	if block.Length() == 0 {
		return false
	}
	var tiers []detail.PriceTier
	block.Find("[class*='price-item']").Each(func(_ int, item *goquery.Selection) {
		if tier, ok := tierFromItem(item); ok {
			tiers = append(tiers, tier)
		}
	})
	if p.setTiers(tiers) {
		return true
	}
	pt := textparse.ExtractPriceLike(spacedText(block))
	if pt == "" {
		return false
	}
	p.raw.PriceText = pt
	return true
}

// priceFromLadder reads the quantity break list of the current detail layout
func priceFromLadder(p *page) bool {
	var tiers []detail.PriceTier
	p.doc.Find(".price-list .price-item, [class*='ladder-price'] > [class*='price-item'], [data-testid='ladder-price'] > div").
		Each(func(_ int, item *goquery.Selection) {
			if tier, ok := tierFromItem(item); ok {
				tiers = append(tiers, tier)
			}
		})
	return p.setTiers(tiers)
}

// tierFromItem reads one price item: the price from its price element or
// its text, the range from its quantity element or whatever text remains.
func tierFromItem(item *goquery.Selection) (detail.PriceTier, bool) {
	full := spacedText(item)
	price := textparse.ExtractPriceLike(spacedText(item.Find("[class*='price'], .price").First()))
	if price == "" {
		price = textparse.ExtractPriceLike(full)
	}
	if price == "" {
		return detail.PriceTier{}, false
	}
	rng := textparse.CleanText(item.Find("[class*='quality'], [class*='quantity'], [class*='range']").First().Text())
	if rng == "" {
		rng = textparse.CleanText(strings.Replace(full, price, "", 1))
	}
	return detail.PriceTier{Range: rng, Price: price}, true
}

// spacedText is the selection's text with a space between every text node,
// so "1-99 pieces" and "US$5.00" in sibling elements do not run together.
func spacedText(s *goquery.Selection) string {
	var parts []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			parts = append(parts, c.Text())
		case "script", "style", "#comment":
		default:
			parts = append(parts, spacedText(c))
		}
	})
	return textparse.CleanText(strings.Join(parts, " "))
}

func priceFromPromotion(p *page) bool {
	pt := textparse.ExtractPriceLike(p.text("[class*='promotion-price']", "[class*='discount-price']", "[class*='promo-price']"))
	if pt == "" {
		return false
	}
	p.raw.PriceText = pt
	return true
}

// priceFromProductBlock reads a fixed price and picks up the MOQ printed
// next to it.
func priceFromProductBlock(p *page) bool {
	block := p.doc.Find(".product-price, [class*='product-price']").First()
	if block.Length() == 0 {
		return false
	}
	pt := textparse.ExtractPriceLike(block.Text())
	if pt == "" {
		return false
	}
	p.raw.PriceText = pt
	for _, near := range []string{block.Text(), block.Next().Text(), block.Parent().Text()} {
		moq := textparse.ExtractMOQLike(near)
		if moq == "" {
			moq = textparse.ExtractMOQLoose(near)
		}
		if moq != "" {
			p.raw.MOQText = moq
			p.raw.AddDebug("moq:product-price")
			break
		}
	}
	return true
}

// priceFromSSRLadder handles the older server rendered ladder table
func priceFromSSRLadder(p *page) bool {
	var tiers []detail.PriceTier
	p.doc.Find(".ma-ladder-price-item").Each(func(_ int, item *goquery.Selection) {
		price := textparse.ExtractPriceLike(item.Find(".ma-spec-price, [class*='price']").Text())
		if price == "" {
			return
		}
		tiers = append(tiers, detail.PriceTier{
			Range: textparse.CleanText(item.Find(".ma-quantity-range, [class*='quantity']").Text()),
			Price: price,
		})
	})
	if len(tiers) == 0 {
		p.doc.Find("table.ma-ladder-price tr, .ma-price-wrap table tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.ChildrenFiltered("td, th")
			if cells.Length() != 2 {
				return
			}
			price := textparse.ExtractPriceLike(cells.Eq(1).Text())
			if price == "" {
				return
			}
			tiers = append(tiers, detail.PriceTier{Range: textparse.CleanText(cells.Eq(0).Text()), Price: price})
		})
	}
	return p.setTiers(tiers)
}

// priceFromContainers scans the lines of pricing containers for one that
// pairs an amount with a quantity range or threshold. A bare amount such as
// a shipping fee or sample price does not qualify.
func priceFromContainers(p *page) bool {
	var tiers []detail.PriceTier
	p.doc.Find("[class*='price'], [data-module-name*='price']").Each(func(_ int, s *goquery.Selection) {
		for _, line := range containerLines(s) {
			price := textparse.ExtractPriceLike(line)
			if price == "" {
				continue
			}
			rng := textparse.ExtractQuantityRange(strings.Replace(line, price, "", 1))
			if rng == "" {
				continue
			}
			tiers = append(tiers, detail.PriceTier{Range: rng, Price: price})
		}
	})
	tiers = textparse.DedupBy(tiers, func(t detail.PriceTier) string { return t.Range + "|" + t.Price })
	return p.setTiers(tiers)
}

// containerLines is one line per child element, or the container's own
// text lines when it has no children.
func containerLines(s *goquery.Selection) []string {
	var lines []string
	if children := s.Children(); children.Length() > 0 {
		children.Each(func(_ int, c *goquery.Selection) {
			lines = append(lines, spacedText(c))
		})
		return lines
	}
	for _, line := range strings.Split(s.Text(), "\n") {
		if line = textparse.CleanText(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// priceFromEmbedded reads ladders out of the hydration blobs, then out of
// bare "ladderPrices"/"priceRangeList" arrays anywhere in the source.
func priceFromEmbedded(p *page) bool {
	for _, blob := range p.embeddedBlobs() {
		unit := findKey(blob, "unit", "unitName", "priceUnit").String()
		ladder := findKey(blob, "productLadderPrices", "ladderPrices", "priceRangeList", "ladderPriceList")
		if p.setTiers(ladderFromJSON(ladder, unit)) {
			return true
		}
		if rng := findKey(blob, "productRangePrices"); rng.IsObject() {
			low := rng.Get("dollarPriceRangeLow").Float()
			high := rng.Get("dollarPriceRangeHigh").Float()
			if low > 0 {
				p.raw.PriceText = detail.FormatPrice("USD", low, high)
				return true
			}
		}
		if v := findKey(blob, "formatPrice", "priceText"); v.Type == gjson.String {
			if pt := textparse.ExtractPriceLike(v.Str); pt != "" {
				p.raw.PriceText = pt
				return true
			}
		}
	}

	for _, key := range []string{"ladderPrices", "priceRangeList"} {
		arr, ok, err := keyedArray(p.html, key)
		if err != nil {
			p.log.Debug().Err(err).Str("url", p.url).Msg("Skipping malformed price array")
			continue
		}
		if ok && p.setTiers(ladderFromJSON(arr, "")) {
			return true
		}
	}
	return false
}

func priceFromMeta(p *page) bool {
	raw := p.meta("product:price:amount")
	if raw == "" {
		raw = p.meta("price")
	}
	amount, ok := textparse.ParseAmount(raw)
	if !ok || amount <= 0 {
		return false
	}
	currency := p.meta("product:price:currency")
	if currency == "" {
		currency = p.meta("priceCurrency")
	}
	p.raw.PriceText = detail.FormatPrice(currency, amount)
	return true
}

func priceFromBody(p *page) bool {
	pt := textparse.ExtractPriceLike(p.body())
	if pt == "" {
		return false
	}
	p.raw.PriceText = pt
	return true
}

// setTiers stores a non-empty ladder and derives the headline price span
func (p *page) setTiers(tiers []detail.PriceTier) bool {
	if len(tiers) == 0 {
		return false
	}
	p.raw.PriceTiers = tiers
	p.raw.PriceText = ladderSpan(tiers)
	return true
}

// ladderSpan is "low - high" across the ladder, or the single price
func ladderSpan(tiers []detail.PriceTier) string {
	low, high := tiers[0].Price, tiers[0].Price
	lowV, _ := textparse.ParseAmount(low)
	highV := lowV
	for _, t := range tiers[1:] {
		v, ok := textparse.ParseAmount(t.Price)
		if !ok {
			continue
		}
		if v < lowV {
			low, lowV = t.Price, v
		}
		if v > highV {
			high, highV = t.Price, v
		}
	}
	if low == high {
		return low
	}
	return low + " - " + high
}

func ladderFromJSON(arr gjson.Result, unit string) []detail.PriceTier {
	if !arr.IsArray() {
		return nil
	}
	var tiers []detail.PriceTier
	arr.ForEach(func(_, item gjson.Result) bool {
		price := jsonPrice(item)
		if price == "" {
			return true
		}
		u := unit
		if v := item.Get("unit").String(); v != "" {
			u = v
		}
		tiers = append(tiers, detail.PriceTier{Range: jsonRange(item, u), Price: price})
		return true
	})
	return tiers
}

func jsonPrice(item gjson.Result) string {
	for _, k := range []string{"formatPrice", "priceText", "localPrice"} {
		if pt := textparse.ExtractPriceLike(item.Get(k).String()); pt != "" {
			return pt
		}
	}
	for _, k := range []string{"dollarPrice", "price", "value"} {
		v := item.Get(k)
		switch v.Type {
		case gjson.Number:
			if v.Float() > 0 {
				return detail.FormatPrice("USD", v.Float())
			}
		case gjson.String:
			if pt := textparse.ExtractPriceLike(v.Str); pt != "" {
				return pt
			}
			if f, ok := textparse.ParseAmount(v.Str); ok && f > 0 {
				return detail.FormatPrice("USD", f)
			}
		}
	}
	return ""
}

func jsonRange(item gjson.Result, unit string) string {
	first := func(keys ...string) int64 {
		for _, k := range keys {
			if v := item.Get(k); v.Exists() {
				return v.Int()
			}
		}
		return 0
	}
	lo := first("min", "beginAmount", "minQuantity", "startQuantity")
	hi := first("max", "endAmount", "maxQuantity", "endQuantity")
	if lo <= 0 {
		return ""
	}
	suffix := ""
	if u := strings.ToUpper(textparse.CleanText(unit)); u != "" {
		suffix = " " + u
	}
	if hi > lo {
		return textparse.FormatQuantity(int(lo)) + " - " + textparse.FormatQuantity(int(hi)) + suffix
	}
	return "≥ " + textparse.FormatQuantity(int(lo)) + suffix
}

var alibabaMOQStrategies = []strategy{
	{"region", moqFromRegion},
	{"spec-rows", moqFromSpecRows},
	{"label-sibling", moqFromLabelSibling},
	{"body-strict", func(p *page) bool { return p.setMOQ(textparse.ExtractMOQLike(p.body())) }},
	{"body-loose", func(p *page) bool { return p.setMOQ(textparse.ExtractMOQLoose(p.body())) }},
	{"first-tier", moqFromFirstTier},
}

func moqFromRegion(p *page) bool {
	for _, t := range p.texts("[class*='moq'], [class*='min-order'], [class*='minOrder'], [data-role='moq']") {
		moq := textparse.ExtractMOQLike(t)
		if moq == "" {
			moq = textparse.ExtractMOQLoose(t)
		}
		if moq == "" {
			moq = moqFromQuantity(t)
		}
		if p.setMOQ(moq) {
			return true
		}
	}
	return false
}

func moqFromSpecRows(p *page) bool {
	for _, pair := range p.labelPairs() {
		if moqLabelRe.MatchString(pair.Label) && p.setMOQ(moqFromQuantity(pair.Value)) {
			return true
		}
	}
	return false
}

// moqFromLabelSibling handles "<span>Min. order:</span><span>500 pieces</span>"
func moqFromLabelSibling(p *page) bool {
	found := false
	p.doc.Find("span, div, label, strong, b").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 || !moqLabelRe.MatchString(textparse.CleanText(s.Text())) {
			return true
		}
		found = p.setMOQ(moqFromQuantity(s.Next().Text()))
		return !found
	})
	return found
}

func moqFromFirstTier(p *page) bool {
	if len(p.raw.PriceTiers) == 0 {
		return false
	}
	return p.setMOQ(moqFromQuantity(p.raw.PriceTiers[0].Range))
}

// moqFromQuantity formats a bare quantity such as "500 pieces"
func moqFromQuantity(text string) string {
	qty, unit, ok := textparse.ParseMOQ(text)
	if !ok {
		return ""
	}
	if unit == "" {
		unit = textparse.ExtractUnit(text)
	}
	out := textparse.FormatQuantity(qty)
	if unit != "" {
		out += " " + unit
	}
	return out
}

func (p *page) setMOQ(moq string) bool {
	if moq == "" {
		return false
	}
	p.raw.MOQText = moq
	return true
}

func (e *AlibabaExtractor) extractVariations(p *page) {
	p.safeRun("variations", func() bool {
		vars := domVariations(p)
		source := "dom"
		if poorVariations(vars) && e.Browser != nil {
			if v, ok := browserVariation(p, e.Browser); ok {
				vars = append([]detail.Variation{v}, vars...)
				source = "browser"
			}
		}
		if poorVariations(vars) {
			if s := scriptVariations(p); len(s) > 0 {
				vars = append(vars, s...)
				source = "script"
			}
		}

		vars = finalizeVariations(p, vars)
		if len(vars) == 0 {
			return false
		}
		p.raw.Variations = vars
		p.raw.AddDebug("variations:" + source)
		return true
	})
}

func domVariations(p *page) []detail.Variation {
	var out []detail.Variation
	p.doc.Find("[data-sku-col], .sku-attr-item, .sku-item, [class*='sku-list'] > li").
		Each(func(_ int, s *goquery.Selection) {
			img := s.Find("img").First()
			label := textparse.CleanText(s.AttrOr("title", ""))
			if label == "" {
				label = textparse.CleanText(s.AttrOr("data-title", ""))
			}
			if label == "" {
				label = textparse.CleanText(img.AttrOr("alt", ""))
			}
			if label == "" {
				label = textparse.CleanText(s.Text())
			}
			image := img.AttrOr("data-src", img.AttrOr("src", ""))
			if label == "" && image == "" {
				return
			}
			out = append(out, detail.Variation{Label: label, Image: image})
		})
	return out
}

// poorVariations is true when no variation carries a real label
func poorVariations(vars []detail.Variation) bool {
	for _, v := range vars {
		if !detail.IsPlaceholderLabel(v.Label) {
			return false
		}
	}
	return true
}

func browserVariation(p *page, automation BrowserAutomation) (detail.Variation, bool) {
	hint, err := automation.SelectedVariation(p.ctx, p.url)
	if err != nil {
		p.log.Warn().Err(err).Str("url", p.url).Msg("Browser variation lookup failed")
		return detail.Variation{}, false
	}
	if hint.Empty() {
		p.log.Debug().Str("url", p.url).Msg("Browser visit found no variation")
		return detail.Variation{}, false
	}
	if textparse.CleanText(hint.Label) == "" {
		return detail.Variation{}, false
	}
	return detail.Variation{Label: textparse.CleanText(hint.Label), Image: hint.HeroURL}, true
}

func scriptVariations(p *page) []detail.Variation {
	var out []detail.Variation
	for _, m := range scriptNameFirstRe.FindAllStringSubmatch(p.html, 64) {
		out = append(out, detail.Variation{Label: m[1], Image: unescapeSlashes(m[2])})
	}
	for _, m := range scriptImageFirstRe.FindAllStringSubmatch(p.html, 64) {
		out = append(out, detail.Variation{Label: m[2], Image: unescapeSlashes(m[1])})
	}
	return out
}

func unescapeSlashes(s string) string {
	return strings.ReplaceAll(s, `\/`, "/")
}

// finalizeVariations resolves images, drops duplicates by image URL and
// renames placeholder labels to "Image N". A placeholder label without an
// image names nothing and is dropped.
func finalizeVariations(p *page, vars []detail.Variation) []detail.Variation {
	cleaned := make([]detail.Variation, 0, len(vars))
	for _, v := range vars {
		v.Label = textparse.CleanText(v.Label)
		v.Image = p.absolute(v.Image)
		if v.Image != "" && isBadImage(v.Image) {
			v.Image = ""
		}
		if v.Image == "" && detail.IsPlaceholderLabel(v.Label) {
			continue
		}
		cleaned = append(cleaned, v)
	}
	cleaned = textparse.DedupBy(cleaned, func(v detail.Variation) string {
		if v.Image != "" {
			return v.Image
		}
		return "label:" + v.Label
	})
	for i := range cleaned {
		if detail.IsPlaceholderLabel(cleaned[i].Label) {
			cleaned[i].Label = "Image " + strconv.Itoa(i+1)
		}
	}
	return cleaned
}

var alibabaOfferStrategies = []strategy{
	{"customization", alibabaCustomization},
	{"abilities", func(p *page) bool {
		p.raw.SupplierAbilities = p.texts("[class*='supplier-ability'] li, .ability-item, [class*='capability'] li")
		return len(p.raw.SupplierAbilities) > 0
	}},
	{"shipping", alibabaShipping},
	{"actions", alibabaActions},
	{"sample", func(p *page) bool {
		p.raw.SamplePrice = textparse.ExtractPriceLike(p.text("[class*='sample'] [class*='price']", "[class*='sample']"))
		return p.raw.SamplePrice != ""
	}},
	{"supplier", alibabaSupplier},
}

func alibabaCustomization(p *page) bool {
	var opts []detail.CustomizationOption
	p.doc.Find("[class*='customization'] > [class*='item'], [class*='customization'] li").Each(func(_ int, s *goquery.Selection) {
		full := textparse.CleanText(s.Text())
		name := textparse.CleanText(s.Find("[class*='name'], [class*='title']").First().Text())
		if name == "" {
			name = truncateRunes(full, maxOptionNameRunes)
		}
		if name == "" {
			return
		}
		moq := textparse.ExtractMOQLike(full)
		if moq == "" {
			moq = textparse.ExtractMOQLoose(full)
		}
		opts = append(opts, detail.CustomizationOption{
			Name:  name,
			AddOn: textparse.ExtractPriceLike(full),
			MOQ:   moq,
		})
	})
	p.raw.CustomizationOptions = textparse.DedupBy(opts, func(o detail.CustomizationOption) string { return o.Name })
	return len(p.raw.CustomizationOptions) > 0
}

func alibabaShipping(p *page) bool {
	note := p.text("[class*='shipping'] [class*='desc']", "[class*='logistics'] [class*='desc']", "[class*='shipping-info']", "[class*='shipping']")
	p.raw.ShippingNote = truncateRunes(note, maxShippingNoteRunes)
	return p.raw.ShippingNote != ""
}

func alibabaActions(p *page) bool {
	var labels []string
	for _, l := range p.texts("[class*='action'] button, [class*='action'] a[class*='btn'], button[class*='contact'], a[class*='inquiry'], [class*='buy-now']") {
		if utf8.RuneCountInString(l) <= maxActionLabelRunes {
			labels = append(labels, l)
		}
	}
	p.raw.ActionLabels = labels
	return len(labels) > 0
}

func alibabaSupplier(p *page) bool {
	name := p.text("[class*='company-name'] a", "[class*='company-name']", "[class*='supplier-name']")
	if name == "" {
		return false
	}
	s := &detail.Supplier{
		Name:        name,
		Type:        p.text("[class*='business-type']", "[class*='company-type']"),
		Location:    p.text("[class*='company-location']", "[class*='supplier'] [class*='location']", "[class*='country']"),
		ProfileLink: p.absolute(p.attr("href", "[class*='company-name'] a", "a[class*='supplier-name']")),
		Logo:        p.absolute(p.attr("src", "[class*='company-logo'] img", "[class*='supplier-logo'] img")),
		ContactLink: p.absolute(p.attr("href", "a[href*='contactSupplier']", "a[href*='message.alibaba']", "a[class*='contact']")),
		ChatEnabled: p.doc.Find("[class*='chat-now'], [data-role='chat'], [class*='im-chat']").Length() > 0,
	}
	block := p.text("[class*='company-info']", "[class*='supplier-info']", "[class*='supplier-card']")
	if m := memberYrsRe.FindStringSubmatch(block); m != nil {
		s.MemberSince = m[1] + " yrs"
	}
	badges := p.texts("[class*='verified'], [class*='gold-supplier'], [class*='supplier-badge']")
	p.doc.Find("[class*='supplier-badge'] [title], [class*='verified'] [title]").Each(func(_ int, b *goquery.Selection) {
		badges = append(badges, b.AttrOr("title", ""))
	})
	s.Badges = textparse.DedupStrings(badges)
	p.raw.Supplier = s
	return true
}

var alibabaProtectionStrategies = []strategy{
	{"region", func(p *page) bool {
		var out []detail.Protection
		p.doc.Find("[class*='protection'] > [class*='item'], [class*='buyer-protection'] li").Each(func(_ int, s *goquery.Selection) {
			header := textparse.CleanText(s.Find("[class*='title'], h3, h4, strong, b").First().Text())
			body := textparse.CleanText(s.Find("[class*='desc'], [class*='content'], p").First().Text())
			if header == "" && body == "" {
				body = textparse.CleanText(s.Text())
			}
			if header != "" || body != "" {
				out = append(out, detail.Protection{Header: header, Body: body})
			}
		})
		p.raw.Protections = textparse.DedupBy(out, func(pr detail.Protection) string { return pr.Header + "|" + pr.Body })
		return len(p.raw.Protections) > 0
	}},
	{"trade-assurance", func(p *page) bool {
		t := p.text("[class*='trade-assurance']", "[class*='tradeAssurance']", "[class*='ta-widget']")
		if t == "" {
			return false
		}
		body := textparse.CleanText(strings.TrimPrefix(t, "Trade Assurance"))
		p.raw.Protections = []detail.Protection{{Header: "Trade Assurance", Body: body}}
		return true
	}},
}

func alibabaRating(p *page) bool {
	var r detail.Rating
	if v, ok := textparse.ParseAmount(p.text("[itemprop='ratingValue']", "[class*='review'] [class*='score']", "[class*='rating'] [class*='value']", "[class*='review-value']")); ok && v > 0 && v <= 5 {
		r.Value = &v
	}
	if n, ok := textparse.FirstInt(p.text("[itemprop='reviewCount']", "[class*='review'] [class*='count']", "[class*='review-count']")); ok {
		r.Count = &n
	}
	if r.Value == nil && r.Count == nil {
		return false
	}
	p.raw.Rating = &r
	p.raw.AddDebug("rating:review-cluster")
	return true
}

var alibabaSoldStrategies = []strategy{
	{"review-cluster", func(p *page) bool {
		t := p.text("[class*='review'] [class*='sold']", "[class*='sold-count']", "[class*='trade-count']")
		n, ok := textparse.FirstInt(t)
		if !ok {
			return false
		}
		p.raw.SoldCount = &n
		return true
	}},
	{"body", func(p *page) bool {
		best := -1
		for _, m := range soldBodyRe.FindAllStringSubmatch(p.body(), -1) {
			if m[2] != "" {
				continue
			}
			if n, ok := textparse.FirstInt(m[1]); ok && n > best {
				best = n
			}
		}
		return p.setSold(best)
	}},
	{"embedded-json", func(p *page) bool {
		best := -1
		for _, m := range soldJSONRe.FindAllStringSubmatch(p.html, -1) {
			if n, ok := textparse.FirstInt(m[1]); ok && n > best {
				best = n
			}
		}
		return p.setSold(best)
	}},
}

func (p *page) setSold(n int) bool {
	if n < 0 {
		return false
	}
	p.raw.SoldCount = &n
	return true
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}
