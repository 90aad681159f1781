// Package browser reads client-rendered state (the selected SKU label and
// the matching hero image) that plain HTML fetches never see.
package browser

import (
	"context"
	"strings"
	"time"

	"groupbuy/detailworker/config"
	"groupbuy/detailworker/logger"
)

// DefaultTimeout is the budget for one headless page visit. It is far
// longer than the HTML fetch timeout because a browser launch and a full
// page load happen inside it.
const DefaultTimeout = 45 * time.Second

// Hint is what a headless visit could read from the rendered page
type Hint struct {
	Label   string `json:"label"`
	HeroURL string `json:"hero"`
}

// Empty reports whether the visit found nothing useful
func (h Hint) Empty() bool {
	return strings.TrimSpace(h.Label) == "" && strings.TrimSpace(h.HeroURL) == ""
}

// Automation visits a page in a real browser
type Automation interface {
	SelectedVariation(ctx context.Context, pageURL string) (Hint, error)
	Close() error
}

// selectedSkuScript runs inside the page and returns {label, hero}
const selectedSkuScript = `() => {
  const pick = (sel) => {
    const el = document.querySelector(sel);
    if (!el) return '';
    return (el.getAttribute('title') || el.getAttribute('aria-label') || el.textContent || '').trim();
  };
  const label = pick('[data-testid="sku-selected"]') ||
    pick('.sku-item--selected') ||
    pick('.sku-info .selected') ||
    pick('[class*="sku"][class*="selected"]') ||
    pick('[class*="sku"][class*="active"]');
  const img = document.querySelector('[class*="main-image"] img, .detail-gallery-img, [data-testid="media-image"] img');
  return { label: label, hero: img ? (img.currentSrc || img.src || '') : '' };
}`

// NewFromConfig returns the automation selected by BROWSER_MODE, or nil when
// headless assistance is disabled.
func NewFromConfig(cfg *config.Config) Automation {
	if !cfg.HeadlessEnabled {
		return nil
	}

	timeout := cfg.BrowserTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log := logger.ForBrowser()
	switch cfg.BrowserMode {
	case "rod":
		log.Info().Dur("timeout", timeout).Msg("Headless assist via local Chromium")
		return NewRodBrowser(timeout)
	default:
		log.Info().Str("addr", cfg.ChromeDBAddr).Dur("timeout", timeout).Msg("Headless assist via ChromeDB")
		return NewChromeDBClient(cfg.ChromeDBAddr, timeout)
	}
}
