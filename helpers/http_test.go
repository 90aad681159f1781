package helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHTTPFetcherFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that headers are set
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		assert.NotEmpty(t, r.Header.Get("Referer"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`<html><head><meta property="og:title" content="Widget"></head><body>Hello</body></html>`))
	}))
	defer server.Close()

	body := NewHTTPFetcher(time.Second, nil).Fetch(context.Background(), server.URL)
	assert.Contains(t, body, "Hello")
}

func TestHTTPFetcherFetchNonUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		// "café" in ISO-8859-1
		w.Write([]byte("<html><body>caf\xe9</body></html>"))
	}))
	defer server.Close()

	body := NewHTTPFetcher(time.Second, nil).Fetch(context.Background(), server.URL)
	assert.Contains(t, body, "café")
}

func TestHTTPFetcherFetchFailuresReturnEmpty(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "captcha interstitial",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html><body><div id="nc_1_n1z">Please slide to verify</div></body></html>`))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			assert.Empty(t, NewHTTPFetcher(time.Second, nil).Fetch(context.Background(), server.URL))
		})
	}
}

func TestHTTPFetcherFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	body := NewHTTPFetcher(10*time.Millisecond, nil).Fetch(context.Background(), server.URL)
	elapsed := time.Since(start)

	assert.Empty(t, body)
	// the requested 10ms is raised to the floor
	assert.GreaterOrEqual(t, elapsed, MinFetchTimeout)
	assert.Less(t, elapsed, 3*time.Second)
}

func TestHTTPFetcherFetchInvalidURL(t *testing.T) {
	assert.Empty(t, NewHTTPFetcher(time.Second, nil).Fetch(context.Background(), "http://invalid.url.that.does.not.exist"))
	assert.Empty(t, NewHTTPFetcher(time.Second, nil).Fetch(context.Background(), "::not a url"))
}

func TestEffectiveTimeout(t *testing.T) {
	assert.Equal(t, DefaultFetchTimeout, effectiveTimeout(0))
	assert.Equal(t, MinFetchTimeout, effectiveTimeout(100*time.Millisecond))
	assert.Equal(t, 2*time.Second, effectiveTimeout(2*time.Second))
}

type staticPicker struct{ addr string }

func (p staticPicker) Pick() (string, bool) { return p.addr, p.addr != "" }

func TestHTTPFetcherProxyClientIsReused(t *testing.T) {
	f := NewHTTPFetcher(time.Second, staticPicker{addr: "127.0.0.1:1080"})

	first := f.client()
	second := f.client()
	assert.Same(t, first, second)
	assert.NotSame(t, http.DefaultClient, first)

	direct := NewHTTPFetcher(time.Second, staticPicker{})
	assert.Same(t, http.DefaultClient, direct.client())
}
