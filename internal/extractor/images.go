package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"groupbuy/detailworker/internal/textparse"
)

const maxGallery = 24

var (
	scriptImageRe     = regexp.MustCompile(`(?i)(?:https?:)?(?:\\?/){2}[a-z0-9.-]+\.[a-z]{2,}(?:\\?/[^"'\s\\()<>]+)+?\.(?:jpe?g|png|webp)`)
	backgroundImageRe = regexp.MustCompile(`(?i)background(?:-image)?\s*:\s*url\(\s*['"]?([^'")]+)['"]?\s*\)`)
	// tiny hashed sprites such as TB1abc-16-16.png or O1CN01x-120-40.png
	lowResHashedRe = regexp.MustCompile(`(?i)-\d{1,3}-\d{1,3}\.(?:png|gif|jpe?g)$`)
	// thumbnails resized to 100px or less, e.g. foo.jpg_50x50.jpg
	smallResizeRe = regexp.MustCompile(`(?i)_(\d{1,3})x(\d{1,3})[a-z0-9]*\.(?:jpe?g|png|webp)$`)

	// whole path words only, so "silicone" never reads as "icon"
	badImageWordRe = regexp.MustCompile(`(?i)(?:^|[/_.\-])(?:logo|icon|sprite|badge|avatar|flag|watermark|loading|placeholder|qrcode|qr-code|emoji|spacer|pixel|blank)s?(?:[/_.\-\d]|$)`)

	badImageMarkers = []string{"/tps/", "1x1", "data:image", "rating-star"}

	badAltMarkers = []string{
		"logo", "icon", "avatar", "flag", "badge", "qr", "verified", "gold supplier",
		"trade assurance", "payment", "visa", "mastercard",
	}

	blockedImageHosts = []string{
		"gtms01.alicdn.com", "gtms02.alicdn.com", "img.alicdn.com/tps",
		"assets.alicdn.com", "u.alicdn.com", "sc01.alicdn.com/kf/ha",
	}
)

// isBadImage reports URLs that are badges, sprites, logos or tiny
// thumbnails rather than product photos.
func isBadImage(src string) bool {
	lower := strings.ToLower(strings.TrimSpace(src))
	if lower == "" {
		return true
	}
	if strings.HasSuffix(lower, ".gif") || strings.HasSuffix(lower, ".svg") {
		return true
	}
	if badImageWordRe.MatchString(lower) {
		return true
	}
	for _, m := range badImageMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	for _, h := range blockedImageHosts {
		if strings.Contains(lower, h) {
			return true
		}
	}
	if lowResHashedRe.MatchString(lower) {
		return true
	}
	if m := smallResizeRe.FindStringSubmatch(lower); m != nil {
		w, _ := textparse.FirstInt(m[1])
		h, _ := textparse.FirstInt(m[2])
		if w <= 100 && h <= 100 {
			return true
		}
	}
	return false
}

func badAlt(alt string) bool {
	lower := strings.ToLower(alt)
	for _, m := range badAltMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// imageCandidates holds the three candidate pools in discovery order
type imageCandidates struct {
	script     []string
	tags       []string
	background []string
}

func (p *page) collectImages() imageCandidates {
	var c imageCandidates

	p.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("src"); ok {
			return
		}
		for _, m := range scriptImageRe.FindAllString(s.Text(), 200) {
			c.script = append(c.script, strings.ReplaceAll(m, `\/`, "/"))
		}
	})

	p.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if badAlt(s.AttrOr("alt", "")) {
			return
		}
		for _, attr := range []string{"data-src", "data-lazy-src", "data-original", "src"} {
			if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
				c.tags = append(c.tags, v)
				return
			}
		}
	})

	p.doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		if m := backgroundImageRe.FindStringSubmatch(s.AttrOr("style", "")); m != nil {
			c.background = append(c.background, m[1])
		}
	})

	return c
}

// cleanImages resolves, filters and de-duplicates candidate URLs
func (p *page) cleanImages(lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, src := range list {
			abs := p.absolute(src)
			if abs == "" || isBadImage(abs) {
				continue
			}
			out = append(out, abs)
		}
	}
	out = textparse.DedupBy(out, func(s string) string { return s })
	if len(out) > maxGallery {
		out = out[:maxGallery]
	}
	return out
}

// extractImages fills the gallery and picks the hero image: first valid
// background image, then og:image, then the first gallery entry.
func (p *page) extractImages() {
	p.safeRun("images", func() bool {
		c := p.collectImages()
		backgrounds := p.cleanImages(c.background)
		p.raw.Gallery = p.cleanImages(c.script, c.tags, c.background)

		switch og := p.absolute(p.meta("og:image")); {
		case len(backgrounds) > 0:
			p.raw.HeroImage = backgrounds[0]
			p.raw.AddDebug("hero:background")
		case og != "" && !isBadImage(og):
			p.raw.HeroImage = og
			p.raw.AddDebug("hero:og-image")
		case len(p.raw.Gallery) > 0:
			p.raw.HeroImage = p.raw.Gallery[0]
			p.raw.AddDebug("hero:gallery")
		}
		return p.raw.HeroImage != ""
	})
}
