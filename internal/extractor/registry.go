package extractor

import (
	"context"

	"groupbuy/detailworker/helpers"
	"groupbuy/detailworker/internal/detail"
	"groupbuy/detailworker/logger"
)

// Registry picks the extractor for a page by hostname
type Registry struct {
	extractors []Extractor
	fallback   Extractor
}

// NewRegistry wires the platform extractors. automation may be nil, which
// disables the headless variation lookup.
func NewRegistry(automation BrowserAutomation) *Registry {
	return &Registry{
		extractors: []Extractor{
			NewAlibabaExtractor(automation),
			NewConfigurableExtractor(MadeInChinaConfig),
			NewConfigurableExtractor(IndiaMARTConfig),
		},
		fallback: GenericExtractor{},
	}
}

// NewRegistryWith builds a registry from explicit extractors. fallback may
// be nil, in which case unknown hosts yield nothing.
func NewRegistryWith(fallback Extractor, extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors, fallback: fallback}
}

// For returns the extractor handling pageURL, or nil
func (r *Registry) For(pageURL string) Extractor {
	host := helpers.HostOf(pageURL)
	if host == "" {
		return nil
	}
	for _, e := range r.extractors {
		if e.Matches(host) {
			return e
		}
	}
	return r.fallback
}

// Extract dispatches html to the matching extractor. It returns nil for
// empty html and for URLs nothing handles.
func (r *Registry) Extract(ctx context.Context, pageURL, html string) *detail.RawProductDetail {
	e := r.For(pageURL)
	if e == nil {
		logger.ForExtractor("registry").Debug().Str("url", pageURL).Msg("No extractor for host")
		return nil
	}
	return e.Extract(ctx, pageURL, html)
}
