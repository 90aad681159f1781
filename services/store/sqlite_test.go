package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "listings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLitePutAndGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	id, err := s.PutListing(ctx, Listing{
		URL:      "https://www.alibaba.com/product-detail/x_1.html",
		Title:    "Spatula",
		PriceRaw: "US$1.20-2.50",
		PriceMin: ptr(1.2),
		Currency: "USD",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	l, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Spatula", l.Title)
	require.NotNil(t, l.PriceMin)
	assert.InDelta(t, 1.2, *l.PriceMin, 0.001)
	assert.Nil(t, l.PriceMax)
	assert.Nil(t, l.DetailJSON)
	assert.Nil(t, l.DetailUpdatedAt)
	assert.Empty(t, l.LastScrapeStatus)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteUpdate(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	id, err := s.PutListing(ctx, Listing{ID: "l-1", URL: "https://a"})
	require.NoError(t, err)
	assert.Equal(t, "l-1", id)

	now := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Update(ctx, id, DetailUpdate{
		DetailJSON:       []byte(`{"title":"A"}`),
		DetailUpdatedAt:  now,
		LastScrapeStatus: ptr("OK"),
	}))

	l, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"A"}`, string(l.DetailJSON))
	require.NotNil(t, l.DetailUpdatedAt)
	assert.True(t, now.Equal(*l.DetailUpdatedAt))
	assert.Equal(t, "OK", l.LastScrapeStatus)

	// a write without status keeps the previous one
	later := now.Add(time.Hour)
	require.NoError(t, s.Update(ctx, id, DetailUpdate{DetailJSON: []byte(`{"title":"B"}`), DetailUpdatedAt: later}))
	l, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"B"}`, string(l.DetailJSON))
	assert.Equal(t, "OK", l.LastScrapeStatus)

	// re-putting the listing keeps the cached detail
	_, err = s.PutListing(ctx, Listing{ID: id, URL: "https://a", Title: "Renamed"})
	require.NoError(t, err)
	l, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", l.Title)
	assert.NotNil(t, l.DetailJSON)

	err = s.Update(ctx, "missing", DetailUpdate{DetailUpdatedAt: now})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListStale(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)

	for _, id := range []string{"never", "old", "fresh"} {
		_, err := s.PutListing(ctx, Listing{ID: id, URL: "https://example.com/" + id})
		require.NoError(t, err)
	}
	require.NoError(t, s.Update(ctx, "old", DetailUpdate{DetailJSON: []byte(`{}`), DetailUpdatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, s.Update(ctx, "fresh", DetailUpdate{DetailJSON: []byte(`{}`), DetailUpdatedAt: now.Add(-time.Hour)}))

	stale, err := s.ListStale(ctx, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, "never", stale[0].ID)
	assert.Equal(t, "old", stale[1].ID)

	stale, err = s.ListStale(ctx, now.Add(-24*time.Hour), 1)
	require.NoError(t, err)
	assert.Len(t, stale, 1)
}
