package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPage = `<html><head>
<meta property="og:title" content="Bamboo Cutting Board">
<script type="application/ld+json">{"@type":"Product","name":"Bamboo Cutting Board","offers":{"price":"4.20","priceCurrency":"USD"},"additionalProperty":[{"name":"Material","value":"Bamboo"}]}</script>
</head><body></body></html>`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func productServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/p/board" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(productPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractCommand(t *testing.T) {
	srv := productServer(t)

	out, err := run(t, "extract", srv.URL+"/p/board")
	require.NoError(t, err)

	var got extractOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "generic", got.Extractor)
	assert.Equal(t, "OK", string(got.Grade))
	assert.Equal(t, "Bamboo Cutting Board", got.Normalized.Title)
	assert.Equal(t, "US$4.20", got.Normalized.PriceText)

	_, err = run(t, "extract", "not-a-url")
	assert.Error(t, err)
}

func TestAddFetchRefresh(t *testing.T) {
	srv := productServer(t)
	db := filepath.Join(t.TempDir(), "listings.db")

	out, err := run(t, "--sqlite", db, "add", srv.URL+"/p/board", "--title", "Board", "--price-min", "4")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = run(t, "--sqlite", db, "fetch", id)
	require.NoError(t, err)
	var first fetchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, "live", string(first.Source))
	assert.Equal(t, "OK", string(first.Grade))

	// a fresh process finds the persisted detail
	out, err = run(t, "--sqlite", db, "fetch", id)
	require.NoError(t, err)
	var second fetchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Equal(t, "store", string(second.Source))
	assert.Equal(t, first.Detail, second.Detail)

	out, err = run(t, "--sqlite", db, "refresh", id)
	require.NoError(t, err)
	var third fetchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &third))
	assert.Equal(t, "live", string(third.Source))

	_, err = run(t, "--sqlite", db, "fetch", "missing")
	assert.Error(t, err)
}

func TestFetchUnreachableListingFallsBack(t *testing.T) {
	srv := productServer(t)
	db := filepath.Join(t.TempDir(), "listings.db")

	_, err := run(t, "--sqlite", db, "add", srv.URL+"/p/gone", "--id", "gone", "--title", "Steel Ladle", "--price", "US$2.10")
	require.NoError(t, err)

	out, err := run(t, "--sqlite", db, "fetch", "gone")
	require.NoError(t, err)
	var got fetchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "fallback", string(got.Source))
	assert.Nil(t, got.Raw)
	assert.Equal(t, "Steel Ladle", got.Detail.Title)
	assert.Equal(t, "US$2.10", got.Detail.PriceText)
}
