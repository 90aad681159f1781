// Package extractor turns marketplace product pages into RawProductDetail
// records. Each platform has its own extractor; every field is filled by an
// ordered cascade of strategies where the first one that finds something wins.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"groupbuy/detailworker/helpers"
	"groupbuy/detailworker/internal/detail"
	"groupbuy/detailworker/internal/textparse"
	"groupbuy/detailworker/logger"
	"groupbuy/detailworker/pkg/errors"
	"groupbuy/detailworker/services/browser"
)

// Extractor pulls a raw product detail out of one platform's HTML
type Extractor interface {
	// Name returns the platform name used in logs and metrics
	Name() string
	// Matches reports whether the extractor handles pages on host
	Matches(host string) bool
	// Extract returns nil when html is empty or unparseable
	Extract(ctx context.Context, pageURL, html string) *detail.RawProductDetail
}

// BrowserAutomation reads client-rendered state from a live page. A nil
// BrowserAutomation disables the headless path.
type BrowserAutomation interface {
	SelectedVariation(ctx context.Context, pageURL string) (browser.Hint, error)
}

// page carries one extraction run
type page struct {
	ctx  context.Context
	url  string
	html string
	doc  *goquery.Document
	raw  *detail.RawProductDetail
	log  *logger.Logger

	bodyText string
	pairs    []detail.Attribute
	pairsSet bool
}

// strategy is one step of a field cascade. run reports whether it found
// the field.
type strategy struct {
	name string
	run  func(p *page) bool
}

func newPage(ctx context.Context, platform, pageURL, html string) *page {
	if strings.TrimSpace(html) == "" {
		return nil
	}

	log := logger.ForExtractor(platform)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Warn().Err(errors.NewParsing(platform, "failed to parse HTML", err)).Str("url", pageURL).Msg("Skipping page")
		return nil
	}

	return &page{
		ctx:  ctx,
		url:  pageURL,
		html: html,
		doc:  doc,
		raw:  &detail.RawProductDetail{},
		log:  log,
	}
}

// safeRun runs fn and turns a panic into a miss
func (p *page) safeRun(name string, fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn().
				Str("strategy", name).
				Str("url", p.url).
				Str("panic", fmt.Sprint(r)).
				Msg("Strategy panicked")
			ok = false
		}
	}()
	return fn()
}

// firstHit runs the strategies in order until one reports success and
// records which one fired.
func (p *page) firstHit(field string, strategies []strategy) bool {
	for _, s := range strategies {
		s := s
		if p.safeRun(field+":"+s.name, func() bool { return s.run(p) }) {
			p.raw.AddDebug(field + ":" + s.name)
			return true
		}
	}
	return false
}

// each runs every step regardless of earlier results
func (p *page) each(field string, strategies []strategy) {
	for _, s := range strategies {
		s := s
		if p.safeRun(field+":"+s.name, func() bool { return s.run(p) }) {
			p.raw.AddDebug(field + ":" + s.name)
		}
	}
}

// text returns the cleaned text of the first non-empty match among selectors
func (p *page) text(selectors ...string) string {
	for _, sel := range selectors {
		var out string
		p.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			out = textparse.CleanText(s.Text())
			return out == ""
		})
		if out != "" {
			return out
		}
	}
	return ""
}

// texts returns cleaned, de-duplicated texts of every match of selector
func (p *page) texts(selector string) []string {
	var out []string
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return textparse.DedupStrings(out)
}

// attr returns the first non-empty attribute value among selectors
func (p *page) attr(attr string, selectors ...string) string {
	for _, sel := range selectors {
		var out string
		p.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr(attr); ok {
				out = strings.TrimSpace(v)
			}
			return out == ""
		})
		if out != "" {
			return out
		}
	}
	return ""
}

// meta reads a <meta> tag by property or name
func (p *page) meta(key string) string {
	return p.attr("content", `meta[property="`+key+`"]`, `meta[name="`+key+`"]`, `meta[itemprop="`+key+`"]`)
}

// body returns the visible page text without scripts and styles
func (p *page) body() string {
	if p.bodyText != "" {
		return p.bodyText
	}
	body := p.doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	p.bodyText = textparse.CleanText(body.Text())
	return p.bodyText
}

// absolute resolves a possibly relative URL against the page URL
func (p *page) absolute(ref string) string {
	return helpers.AbsoluteURL(p.url, ref)
}

// titleFallback reads og:title and then <title>
func (p *page) titleFallback() string {
	if t := textparse.CleanText(p.meta("og:title")); t != "" {
		return t
	}
	return p.text("head title", "title")
}

// applyHandlers returns the first non-empty handler result
func applyHandlers(p *page, handlers ...func(*page) string) string {
	for _, h := range handlers {
		if h == nil {
			continue
		}
		if result := h(p); result != "" {
			return result
		}
	}
	return ""
}

func (p *page) finish() *detail.RawProductDetail {
	if p.raw.IsEmpty() {
		p.log.Debug().Str("url", p.url).Strs("debug", p.raw.Debug).Msg("Nothing extracted")
		return nil
	}
	p.log.Debug().
		Str("url", p.url).
		Strs("debug", p.raw.Debug).
		Msg("Extraction finished")
	return p.raw
}
