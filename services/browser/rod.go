package browser

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"groupbuy/detailworker/logger"
	"groupbuy/detailworker/pkg/errors"
)

// RodBrowser drives a local headless Chromium, launched on first use
type RodBrowser struct {
	Timeout time.Duration

	mu      sync.Mutex
	browser *rod.Browser
}

// NewRodBrowser creates a lazily launched local browser
func NewRodBrowser(timeout time.Duration) *RodBrowser {
	return &RodBrowser{Timeout: timeout}
}

func (r *RodBrowser) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	url, err := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("remote-allow-origins", "*").
		Launch()
	if err != nil {
		return nil, errors.NewBrowser("rod", "launch browser", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		return nil, errors.NewBrowser("rod", "connect browser", err)
	}

	logger.ForBrowser().Info().Str("control_url", url).Msg("Local browser started")
	r.browser = b
	return b, nil
}

// SelectedVariation opens pageURL in a new tab and reads the selected SKU
func (r *RodBrowser) SelectedVariation(ctx context.Context, pageURL string) (Hint, error) {
	b, err := r.connect()
	if err != nil {
		return Hint{}, err
	}

	page, err := b.Context(ctx).Timeout(r.Timeout).Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return Hint{}, errors.NewBrowser("rod", "open page", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return Hint{}, errors.NewBrowser("rod", "wait for load", err)
	}

	res, err := page.Eval(selectedSkuScript)
	if err != nil {
		return Hint{}, errors.NewBrowser("rod", "evaluate selected sku", err)
	}

	return Hint{
		Label:   strings.TrimSpace(res.Value.Get("label").Str()),
		HeroURL: strings.TrimSpace(res.Value.Get("hero").Str()),
	}, nil
}

// Close shuts the local browser down if it was started
func (r *RodBrowser) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}
