// Package store persists aggregator listings and their cached product
// detail blobs.
package store

import (
	"context"
	stderrors "errors"
	"time"

	"groupbuy/detailworker/internal/detail"
)

// ErrNotFound is returned when a listing id is unknown
var ErrNotFound = stderrors.New("listing not found")

// Listing is one aggregator row plus its cached detail
type Listing struct {
	ID        string
	URL       string
	Title     string
	PriceRaw  string
	PriceMin  *float64
	PriceMax  *float64
	Currency  string
	OrdersRaw string
	Image     string

	// DetailJSON is the persisted detail blob, nil when never scraped
	DetailJSON       []byte
	DetailUpdatedAt  *time.Time
	LastScrapeStatus string
}

// Fallback returns what the listing itself knows about the product
func (l Listing) Fallback() detail.ListingFallback {
	return detail.ListingFallback{
		Title:     l.Title,
		PriceRaw:  l.PriceRaw,
		PriceMin:  l.PriceMin,
		PriceMax:  l.PriceMax,
		Currency:  l.Currency,
		OrdersRaw: l.OrdersRaw,
		Image:     l.Image,
	}
}

// DetailUpdate is the single write a refresh makes. A nil
// LastScrapeStatus leaves the stored status untouched.
type DetailUpdate struct {
	DetailJSON       []byte
	DetailUpdatedAt  time.Time
	LastScrapeStatus *string
}

// ListingStore is the persisted tier of the detail cache
type ListingStore interface {
	// Get returns ErrNotFound for an unknown id
	Get(ctx context.Context, id string) (*Listing, error)
	// Update returns ErrNotFound for an unknown id
	Update(ctx context.Context, id string, update DetailUpdate) error
	// ListStale returns listings never scraped or scraped before the cutoff,
	// oldest first
	ListStale(ctx context.Context, before time.Time, limit int) ([]Listing, error)
}

const listingColumns = `id, url, title, price_raw, price_min, price_max, currency, orders_raw, image, detail_json, detail_updated_at, last_scrape_status`
