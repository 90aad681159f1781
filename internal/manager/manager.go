// Package manager implements the two tier product detail cache: a short
// lived memo keyed by listing URL in front of the persisted detail blob,
// with live extraction on a miss.
package manager

import (
	"context"
	"encoding/json"
	"time"

	"groupbuy/detailworker/internal/detail"
	"groupbuy/detailworker/logger"
	"groupbuy/detailworker/services/cache"
	"groupbuy/detailworker/services/store"
)

const (
	DefaultMemoryTTL       = 5 * time.Minute
	DefaultFreshnessWindow = 24 * time.Hour
)

// Source names the tier that answered a lookup
type Source string

const (
	SourceMemory   Source = "memory"
	SourceStore    Source = "store"
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Extractor fetches and extracts a product page. It returns nil when the
// page could not be fetched or held nothing.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) *detail.RawProductDetail
}

// Result is the answer to a lookup. Raw is nil when nothing could be
// extracted; Detail is always fully shaped, built from the listing alone in
// that case.
type Result struct {
	Raw    *detail.RawProductDetail
	Detail detail.NormalizedDetail
	Grade  detail.Grade
	Source Source
}

// Options configures a Manager. Store and Extractor are required.
type Options struct {
	Store     store.ListingStore
	Memo      cache.Memo
	Extractor Extractor
	// Clock defaults to time.Now
	Clock           func() time.Time
	MemoryTTL       time.Duration
	FreshnessWindow time.Duration
	// Metrics may be nil
	Metrics *Metrics
}

// Manager answers detail lookups. It is safe for concurrent use; two
// callers missing on the same URL both extract and the last write wins.
type Manager struct {
	store     store.ListingStore
	memo      cache.Memo
	extractor Extractor
	clock     func() time.Time
	memoryTTL time.Duration
	freshness time.Duration
	metrics   *Metrics
	log       *logger.Logger
}

// New creates a Manager, filling unset options with defaults
func New(opts Options) *Manager {
	m := &Manager{
		store:     opts.Store,
		memo:      opts.Memo,
		extractor: opts.Extractor,
		clock:     opts.Clock,
		memoryTTL: opts.MemoryTTL,
		freshness: opts.FreshnessWindow,
		metrics:   opts.Metrics,
		log:       logger.ForCache(),
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	if m.memoryTTL <= 0 {
		m.memoryTTL = DefaultMemoryTTL
	}
	if m.freshness <= 0 {
		m.freshness = DefaultFreshnessWindow
	}
	if m.memo == nil {
		m.memo = cache.NewLRUMemo(cache.DefaultMemoSize, m.memoryTTL)
	}
	return m
}

// FetchCached is the cache aware read path: a memo entry younger than the
// memory TTL, then a stored detail younger than the freshness window that
// grades OK, then a live extraction.
func (m *Manager) FetchCached(ctx context.Context, listing store.Listing) Result {
	now := m.clock()

	if entry, ok := m.memo.Get(listing.URL); ok && entry.Age(now) < m.memoryTTL {
		m.metrics.incLookup(SourceMemory)
		return m.result(entry.Value, listing, SourceMemory)
	}

	if raw := m.storedFresh(listing, now); raw != nil {
		m.memo.Set(listing.URL, cache.Entry{Value: raw, FetchedAt: now})
		m.metrics.incLookup(SourceStore)
		return m.result(raw, listing, SourceStore)
	}

	return m.live(ctx, listing, now)
}

// Refresh evicts the memo entry and extracts live, ignoring the stored
// detail's freshness.
func (m *Manager) Refresh(ctx context.Context, listing store.Listing) Result {
	m.memo.Evict(listing.URL)
	return m.live(ctx, listing, m.clock())
}

// FetchCachedByID resolves the listing through the store first. The error
// is non-nil only when the listing cannot be loaded.
func (m *Manager) FetchCachedByID(ctx context.Context, id string) (Result, error) {
	listing, err := m.store.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return m.FetchCached(ctx, *listing), nil
}

// RefreshByID resolves the listing through the store, then refreshes it
func (m *Manager) RefreshByID(ctx context.Context, id string) (Result, error) {
	listing, err := m.store.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return m.Refresh(ctx, *listing), nil
}

// storedFresh returns the persisted detail when it is young enough and
// grades OK, nil otherwise.
func (m *Manager) storedFresh(listing store.Listing, now time.Time) *detail.RawProductDetail {
	if len(listing.DetailJSON) == 0 || listing.DetailUpdatedAt == nil {
		return nil
	}
	if now.Sub(*listing.DetailUpdatedAt) >= m.freshness {
		return nil
	}
	raw := detail.DecodeStored(listing.DetailJSON)
	if raw == nil {
		m.log.Debug().Str("listing", listing.ID).Msg("Stored detail undecodable")
		return nil
	}
	if grade := detail.Classify(detail.Normalize(raw, listing.Fallback())); grade != detail.GradeOK {
		m.log.Debug().Str("listing", listing.ID).Str("grade", string(grade)).Msg("Stored detail not good enough")
		return nil
	}
	return raw
}

func (m *Manager) live(ctx context.Context, listing store.Listing, now time.Time) Result {
	start := time.Now()
	raw := m.extractor.Extract(ctx, listing.URL)
	m.metrics.observeLive(time.Since(start), raw != nil)

	// nil is memoized too so a dead page is not re-fetched inside the TTL
	m.memo.Set(listing.URL, cache.Entry{Value: raw, FetchedAt: now})

	if raw == nil {
		m.log.Info().Str("listing", listing.ID).Str("url", listing.URL).Msg("Live extraction found nothing, using listing fallback")
		m.metrics.incLookup(SourceFallback)
		return m.result(nil, listing, SourceFallback)
	}

	res := m.result(raw, listing, SourceLive)
	m.metrics.incLookup(SourceLive)
	m.metrics.incGrade(res.Grade)
	m.persist(ctx, listing, res.Detail, res.Grade, now)
	return res
}

// persist writes the normalized detail and its grade best-effort. The memo
// keeps the raw extraction. A failed write is retried once without the
// status column; a second failure is only logged.
func (m *Manager) persist(ctx context.Context, listing store.Listing, n detail.NormalizedDetail, grade detail.Grade, now time.Time) {
	if m.store == nil || listing.ID == "" {
		return
	}
	blob, err := json.Marshal(n)
	if err != nil {
		m.log.Error().Err(err).Str("listing", listing.ID).Msg("Failed to encode detail")
		return
	}

	status := string(grade)
	update := store.DetailUpdate{DetailJSON: blob, DetailUpdatedAt: now, LastScrapeStatus: &status}
	err = m.store.Update(ctx, listing.ID, update)
	if err == nil {
		return
	}
	m.metrics.incPersistFailure("with_status")
	m.log.Warn().Err(err).Str("listing", listing.ID).Msg("Detail write failed, retrying without status")

	update.LastScrapeStatus = nil
	if err := m.store.Update(ctx, listing.ID, update); err != nil {
		m.metrics.incPersistFailure("without_status")
		m.log.Error().Err(err).Str("listing", listing.ID).Msg("Detail write failed, keeping memo only")
	}
}

func (m *Manager) result(raw *detail.RawProductDetail, listing store.Listing, source Source) Result {
	n := detail.Normalize(raw, listing.Fallback())
	return Result{Raw: raw, Detail: n, Grade: detail.Classify(n), Source: source}
}
