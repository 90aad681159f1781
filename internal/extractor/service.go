package extractor

import (
	"context"

	"groupbuy/detailworker/helpers"
	"groupbuy/detailworker/internal/detail"
)

// Service fetches a product page and runs the matching extractor
type Service struct {
	Fetcher  helpers.Fetcher
	Registry *Registry
}

// NewService creates a Service
func NewService(fetcher helpers.Fetcher, registry *Registry) *Service {
	return &Service{Fetcher: fetcher, Registry: registry}
}

// Extract returns nil when the page could not be fetched or nothing was
// extracted.
func (s *Service) Extract(ctx context.Context, pageURL string) *detail.RawProductDetail {
	html := s.Fetcher.Fetch(ctx, pageURL)
	if html == "" {
		return nil
	}
	return s.Registry.Extract(ctx, pageURL, html)
}
