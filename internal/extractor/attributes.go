package extractor

import (
	"regexp"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"groupbuy/detailworker/internal/detail"
	"groupbuy/detailworker/internal/textparse"
)

const maxAttributeKeyRunes = 40

var (
	// two column grids are recognised by class name alone
	gridRowClassRe = regexp.MustCompile(`(?i)(?:attr|attribute|spec|property|param|entry)[-_]?(?:item|row|list-item|line)\b`)

	rejectedKeyRe = regexp.MustCompile(`(?i)\b(?:price|prices|moq|min\.?\s*order|minimum order|review|reviews|rating|ratings|sold|orders?|buyers?|feedback|us\$|usd)\b`)
	numericKeyRe  = regexp.MustCompile(`^[\d\s.,:/%$€£¥₹+-]+$`)
	// ladder rows like "1-99 pieces" or ">= 100"
	quantityKeyRe = regexp.MustCompile(`^(?:[≥>]=?\s*)?\d`)

	packagingKeyRe = regexp.MustCompile(`(?i)^(?:packag|selling units?|single package|single gross|gross weight|net weight per|package size|port\b|lead time|supply ability|delivery|carton)`)
)

// looksLikeAttributeKey rejects price, MOQ, review and sales rows, numeric
// keys and keys that are really sentences.
func looksLikeAttributeKey(key string) bool {
	key = textparse.CleanText(key)
	if key == "" || utf8.RuneCountInString(key) > maxAttributeKeyRunes {
		return false
	}
	if numericKeyRe.MatchString(key) || quantityKeyRe.MatchString(key) {
		return false
	}
	if detail.IsPlaceholderLabel(key) {
		return false
	}
	return !rejectedKeyRe.MatchString(key)
}

func isPackagingKey(key string) bool {
	return packagingKeyRe.MatchString(textparse.CleanText(key))
}

// labelPairs collects label/value rows from tables, definition lists and
// class-matched two column grids. The result is cached on the page.
func (p *page) labelPairs() []detail.Attribute {
	if p.pairsSet {
		return p.pairs
	}
	p.pairsSet = true

	var pairs []detail.Attribute
	add := func(label, value string) {
		label = textparse.CleanText(label)
		value = textparse.CleanText(value)
		if label == "" || value == "" {
			return
		}
		// "Material:" and "Material" are the same key
		if last, size := utf8.DecodeLastRuneInString(label); last == ':' || last == '：' {
			label = textparse.CleanText(label[:len(label)-size])
		}
		pairs = append(pairs, detail.Attribute{Label: label, Value: value})
	}

	p.doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("th, td")
		switch cells.Length() {
		case 2:
			add(cells.Eq(0).Text(), cells.Eq(1).Text())
		case 4:
			add(cells.Eq(0).Text(), cells.Eq(1).Text())
			add(cells.Eq(2).Text(), cells.Eq(3).Text())
		}
	})

	p.doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		dl.Find("dt").Each(func(_ int, dt *goquery.Selection) {
			add(dt.Text(), dt.NextFiltered("dd").Text())
		})
	})

	p.doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		if !gridRowClassRe.MatchString(s.AttrOr("class", "")) {
			return
		}
		children := s.Children()
		if children.Length() != 2 {
			return
		}
		add(children.Eq(0).Text(), children.Eq(1).Text())
	})

	p.pairs = textparse.DedupBy(pairs, func(a detail.Attribute) string { return a.Label + "|" + a.Value })
	return p.pairs
}

// extractAttributes fills Attributes and Packaging from the page's label
// rows plus any dedicated packaging region.
func (p *page) extractAttributes(packagingRegion string) {
	p.safeRun("attributes", func() bool {
		for _, pair := range p.labelPairs() {
			if !looksLikeAttributeKey(pair.Label) {
				continue
			}
			if isPackagingKey(pair.Label) {
				p.raw.Packaging = append(p.raw.Packaging, detail.PackagingEntry{Name: pair.Label, Value: pair.Value})
				continue
			}
			p.raw.Attributes = append(p.raw.Attributes, pair)
		}

		if packagingRegion != "" {
			p.doc.Find(packagingRegion).Each(func(_ int, region *goquery.Selection) {
				region.Find("[class*='item'], li, tr").Each(func(_ int, row *goquery.Selection) {
					children := row.Children()
					if children.Length() != 2 {
						return
					}
					name := textparse.CleanText(children.Eq(0).Text())
					value := textparse.CleanText(children.Eq(1).Text())
					if name != "" && value != "" {
						p.raw.Packaging = append(p.raw.Packaging, detail.PackagingEntry{Name: name, Value: value})
					}
				})
			})
		}

		p.raw.Packaging = textparse.DedupBy(p.raw.Packaging, func(e detail.PackagingEntry) string { return e.Name + "|" + e.Value })
		if len(p.raw.Attributes) > 0 {
			p.raw.AddDebug("attributes:label-rows")
		}
		if len(p.raw.Packaging) > 0 {
			p.raw.AddDebug("packaging:label-rows")
		}
		return len(p.raw.Attributes) > 0 || len(p.raw.Packaging) > 0
	})
}
