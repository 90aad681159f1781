package manager

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupbuy/detailworker/internal/detail"
	"groupbuy/detailworker/services/cache"
	"groupbuy/detailworker/services/store"
)

var testNow = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu       sync.Mutex
	listings map[string]store.Listing
	updates  []store.DetailUpdate
	// failures makes the next n Update calls fail
	failures int
	// rejectStatus fails every Update that carries a status
	rejectStatus bool
}

func newFakeStore(listings ...store.Listing) *fakeStore {
	s := &fakeStore{listings: map[string]store.Listing{}}
	for _, l := range listings {
		s.listings[l.ID] = l
	}
	return s
}

func (s *fakeStore) Get(ctx context.Context, id string) (*store.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

func (s *fakeStore) Update(ctx context.Context, id string, update store.DetailUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
	if s.failures > 0 {
		s.failures--
		return assert.AnError
	}
	if s.rejectStatus && update.LastScrapeStatus != nil {
		return assert.AnError
	}
	l := s.listings[id]
	l.DetailJSON = update.DetailJSON
	at := update.DetailUpdatedAt
	l.DetailUpdatedAt = &at
	if update.LastScrapeStatus != nil {
		l.LastScrapeStatus = *update.LastScrapeStatus
	}
	s.listings[id] = l
	return nil
}

func (s *fakeStore) ListStale(ctx context.Context, before time.Time, limit int) ([]store.Listing, error) {
	return nil, nil
}

type countingExtractor struct {
	mu    sync.Mutex
	raw   *detail.RawProductDetail
	calls int
}

func (e *countingExtractor) Extract(ctx context.Context, pageURL string) *detail.RawProductDetail {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.raw
}

func okRaw() *detail.RawProductDetail {
	return &detail.RawProductDetail{
		Title:      "Silicone Spatula",
		PriceText:  "US$1.20 - 2.50",
		Attributes: []detail.Attribute{{Label: "Material", Value: "Silicone"}},
	}
}

func weakRaw() *detail.RawProductDetail {
	return &detail.RawProductDetail{Title: "Silicone Spatula", PriceText: "US$1.20"}
}

func storedListing(t *testing.T, raw *detail.RawProductDetail, age time.Duration) store.Listing {
	t.Helper()
	blob, err := json.Marshal(raw)
	require.NoError(t, err)
	updated := testNow.Add(-age)
	return store.Listing{
		ID:              "l-1",
		URL:             "https://www.alibaba.com/product-detail/spatula_1.html",
		Title:           "Spatula (listing)",
		PriceRaw:        "US$1.00",
		DetailJSON:      blob,
		DetailUpdatedAt: &updated,
	}
}

func newTestManager(st store.ListingStore, ex Extractor) *Manager {
	return New(Options{
		Store:     st,
		Extractor: ex,
		Memo:      cache.NewLRUMemo(16, time.Hour),
		Clock:     func() time.Time { return testNow },
		Metrics:   NewMetrics(),
	})
}

func TestFetchCachedFreshOKStoreSkipsLiveFetch(t *testing.T) {
	listing := storedListing(t, okRaw(), time.Hour)
	st := newFakeStore(listing)
	ex := &countingExtractor{raw: okRaw()}
	m := newTestManager(st, ex)

	res := m.FetchCached(context.Background(), listing)

	assert.Equal(t, 0, ex.calls)
	assert.Equal(t, SourceStore, res.Source)
	assert.Equal(t, detail.GradeOK, res.Grade)
	require.NotNil(t, res.Raw)
	assert.Equal(t, "Silicone Spatula", res.Raw.Title)
	assert.Empty(t, st.updates)

	// the store hit is memoized
	res = m.FetchCached(context.Background(), listing)
	assert.Equal(t, SourceMemory, res.Source)
	assert.Equal(t, 0, ex.calls)
}

func TestFetchCachedWeakStoreFetchesLiveOnce(t *testing.T) {
	listing := storedListing(t, weakRaw(), time.Hour)
	st := newFakeStore(listing)
	ex := &countingExtractor{raw: okRaw()}
	m := newTestManager(st, ex)

	res := m.FetchCached(context.Background(), listing)

	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, SourceLive, res.Source)
	assert.Equal(t, detail.GradeOK, res.Grade)
	require.Len(t, st.updates, 1)
	require.NotNil(t, st.updates[0].LastScrapeStatus)
	assert.Equal(t, "OK", *st.updates[0].LastScrapeStatus)
	assert.Equal(t, testNow, st.updates[0].DetailUpdatedAt)

	stored := detail.DecodeStored(st.updates[0].DetailJSON)
	require.NotNil(t, stored)
	assert.Equal(t, "Silicone Spatula", stored.Title)

	// second call is answered from memory
	res = m.FetchCached(context.Background(), listing)
	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, SourceMemory, res.Source)
}

func TestFetchCachedStaleStore(t *testing.T) {
	listing := storedListing(t, okRaw(), 25*time.Hour)
	ex := &countingExtractor{raw: okRaw()}
	m := newTestManager(newFakeStore(listing), ex)

	res := m.FetchCached(context.Background(), listing)
	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, SourceLive, res.Source)
}

func TestFetchCachedUndecodableStore(t *testing.T) {
	listing := storedListing(t, okRaw(), time.Hour)
	listing.DetailJSON = []byte(`{not json`)
	ex := &countingExtractor{raw: okRaw()}
	m := newTestManager(newFakeStore(listing), ex)

	res := m.FetchCached(context.Background(), listing)
	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, SourceLive, res.Source)
}

func TestMemoryEntryExpiresAfterTTL(t *testing.T) {
	listing := store.Listing{ID: "l-1", URL: "https://www.alibaba.com/product-detail/spatula_1.html"}
	now := testNow
	ex := &countingExtractor{raw: okRaw()}
	m := New(Options{
		Store:     newFakeStore(listing),
		Extractor: ex,
		Memo:      cache.NewLRUMemo(16, time.Hour),
		Clock:     func() time.Time { return now },
		MemoryTTL: 5 * time.Minute,
	})

	m.FetchCached(context.Background(), listing)
	now = now.Add(4 * time.Minute)
	assert.Equal(t, SourceMemory, m.FetchCached(context.Background(), listing).Source)

	now = now.Add(2 * time.Minute)
	m.FetchCached(context.Background(), listing)
	assert.Equal(t, 2, ex.calls)
}

func TestFetchFailureFallsBackToListing(t *testing.T) {
	listing := store.Listing{
		ID:        "l-9",
		URL:       "https://www.indiamart.com/proddetail/tote-9.html",
		Title:     "Cotton Tote Bag",
		PriceRaw:  "₹ 45",
		OrdersRaw: "MOQ: 500 pcs",
		Image:     "https://img.example.com/tote.jpg",
	}
	st := newFakeStore(listing)
	ex := &countingExtractor{}
	m := newTestManager(st, ex)

	res := m.FetchCached(context.Background(), listing)

	assert.Nil(t, res.Raw)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, "Cotton Tote Bag", res.Detail.Title)
	assert.Equal(t, "₹ 45", res.Detail.PriceText)
	assert.Equal(t, "https://img.example.com/tote.jpg", res.Detail.HeroImage)
	assert.NotNil(t, res.Detail.Attributes)
	assert.Equal(t, detail.GradeWeak, res.Grade)
	assert.Empty(t, st.updates)

	// the empty attempt is memoized
	res = m.FetchCached(context.Background(), listing)
	assert.Equal(t, SourceMemory, res.Source)
	assert.Equal(t, 1, ex.calls)
}

func TestRefreshBypassesCaches(t *testing.T) {
	listing := storedListing(t, okRaw(), time.Hour)
	st := newFakeStore(listing)
	ex := &countingExtractor{raw: okRaw()}
	m := newTestManager(st, ex)

	m.FetchCached(context.Background(), listing)
	assert.Equal(t, 0, ex.calls)

	res := m.Refresh(context.Background(), listing)
	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, SourceLive, res.Source)
	assert.Len(t, st.updates, 1)
}

func TestPersistRetriesWithoutStatus(t *testing.T) {
	listing := store.Listing{ID: "l-1", URL: "https://www.alibaba.com/product-detail/spatula_1.html"}
	st := newFakeStore(listing)
	st.rejectStatus = true
	raw := okRaw()
	raw.Debug = []string{"price:ladder-price"}
	raw.Gallery = []string{"https://s.alicdn.com/kf/Hspatula.jpg"}
	m := newTestManager(st, &countingExtractor{raw: raw})

	res := m.Refresh(context.Background(), listing)

	assert.Equal(t, SourceLive, res.Source)
	require.Len(t, st.updates, 2)
	assert.NotNil(t, st.updates[0].LastScrapeStatus)
	assert.Nil(t, st.updates[1].LastScrapeStatus)
	assert.Equal(t, st.updates[0].DetailJSON, st.updates[1].DetailJSON)

	saved, err := st.Get(context.Background(), "l-1")
	require.NoError(t, err)
	assert.Empty(t, saved.LastScrapeStatus)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.PersistFailures.WithLabelValues("with_status")))

	// the normalized projection is stored, the raw extraction stays in memory
	var stored detail.NormalizedDetail
	require.NoError(t, json.Unmarshal(saved.DetailJSON, &stored))
	assert.Equal(t, res.Detail, stored)
	assert.Equal(t, []detail.Pair{{"Material", "Silicone"}}, stored.Attributes)
	assert.NotContains(t, string(saved.DetailJSON), "debug")
	assert.NotContains(t, string(saved.DetailJSON), "gallery")
	assert.Equal(t, raw, res.Raw)
}

func TestPersistedDetailServesFromStore(t *testing.T) {
	listing := store.Listing{ID: "l-1", URL: "https://www.alibaba.com/product-detail/spatula_1.html"}
	st := newFakeStore(listing)
	m := newTestManager(st, &countingExtractor{raw: okRaw()})

	first := m.FetchCached(context.Background(), listing)
	require.Equal(t, SourceLive, first.Source)
	require.Len(t, st.updates, 1)
	require.NotNil(t, st.updates[0].LastScrapeStatus)
	assert.Equal(t, string(detail.GradeOK), *st.updates[0].LastScrapeStatus)

	saved, err := st.Get(context.Background(), "l-1")
	require.NoError(t, err)

	ex := &countingExtractor{raw: okRaw()}
	fresh := newTestManager(st, ex)
	res := fresh.FetchCached(context.Background(), *saved)

	assert.Equal(t, SourceStore, res.Source)
	assert.Equal(t, 0, ex.calls)
	assert.Equal(t, detail.GradeOK, res.Grade)
	assert.Equal(t, first.Detail, res.Detail)
}

func TestPersistFailureKeepsMemo(t *testing.T) {
	listing := store.Listing{ID: "l-1", URL: "https://www.alibaba.com/product-detail/spatula_1.html"}
	st := newFakeStore(listing)
	st.failures = 2
	ex := &countingExtractor{raw: okRaw()}
	m := newTestManager(st, ex)

	res := m.FetchCached(context.Background(), listing)
	require.NotNil(t, res.Raw)
	assert.Len(t, st.updates, 2)

	res = m.FetchCached(context.Background(), listing)
	assert.Equal(t, SourceMemory, res.Source)
	assert.Equal(t, "Silicone Spatula", res.Raw.Title)
	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.PersistFailures.WithLabelValues("without_status")))
}

func TestByIDLookups(t *testing.T) {
	listing := storedListing(t, okRaw(), time.Hour)
	ex := &countingExtractor{raw: okRaw()}
	m := newTestManager(newFakeStore(listing), ex)

	res, err := m.FetchCachedByID(context.Background(), "l-1")
	require.NoError(t, err)
	assert.Equal(t, SourceStore, res.Source)

	res, err = m.RefreshByID(context.Background(), "l-1")
	require.NoError(t, err)
	assert.Equal(t, SourceLive, res.Source)

	_, err = m.FetchCachedByID(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = m.RefreshByID(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMetricsCountSources(t *testing.T) {
	listing := storedListing(t, okRaw(), time.Hour)
	m := newTestManager(newFakeStore(listing), &countingExtractor{raw: okRaw()})

	m.FetchCached(context.Background(), listing)
	m.FetchCached(context.Background(), listing)
	m.Refresh(context.Background(), listing)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.LookupsTotal.WithLabelValues("store")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.LookupsTotal.WithLabelValues("memory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.LookupsTotal.WithLabelValues("live")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.GradesTotal.WithLabelValues("OK")))
}

func TestNilMetricsAndDefaults(t *testing.T) {
	listing := store.Listing{ID: "l-1", URL: "https://shop.example.com/p/1"}
	m := New(Options{Store: newFakeStore(listing), Extractor: &countingExtractor{raw: weakRaw()}})

	assert.Equal(t, DefaultMemoryTTL, m.memoryTTL)
	assert.Equal(t, DefaultFreshnessWindow, m.freshness)
	res := m.FetchCached(context.Background(), listing)
	assert.Equal(t, detail.GradeWeak, res.Grade)
}
