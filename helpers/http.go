package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"

	"groupbuy/detailworker/logger"
)

const (
	// DefaultFetchTimeout bounds a single page fetch
	DefaultFetchTimeout = 3500 * time.Millisecond
	// MinFetchTimeout is the floor applied to caller supplied timeouts
	MinFetchTimeout = 800 * time.Millisecond

	maxBodyBytes = 8 << 20
)

// HTTP header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
	}
)

// Fetcher returns the raw HTML of a page. An empty string means the page
// could not be fetched; callers never see an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) string
}

// ProxyPicker hands out the SOCKS5 address the next request should use.
type ProxyPicker interface {
	Pick() (addr string, ok bool)
}

// HTTPFetcher fetches pages with browser-like headers and converts them to UTF-8.
type HTTPFetcher struct {
	// Client overrides the default client. Its Timeout is ignored in favour of Timeout.
	Client  *http.Client
	Timeout time.Duration
	Proxies ProxyPicker

	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewHTTPFetcher creates a fetcher with the given timeout and optional proxy pool
func NewHTTPFetcher(timeout time.Duration, proxies ProxyPicker) *HTTPFetcher {
	return &HTTPFetcher{Timeout: timeout, Proxies: proxies}
}

// Fetch implements Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) string {
	log := logger.ForFetcher()

	body, err := f.fetchBody(ctx, url, effectiveTimeout(f.Timeout))
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("Fetch failed")
		return ""
	}
	if DetectBlock(body) {
		log.Warn().Str("url", url).Msg("Anti-bot interstitial returned instead of product page")
		return ""
	}
	return body
}

func (f *HTTPFetcher) fetchBody(ctx context.Context, url string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := f.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("rate limited; retry after %s", resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s unexpected status code: %d", url, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
}

// client returns the client for the next request, routed through a SOCKS5
// proxy when the pool has one.
func (f *HTTPFetcher) client() *http.Client {
	if f.Proxies == nil {
		if f.Client != nil {
			return f.Client
		}
		return http.DefaultClient
	}

	addr, ok := f.Proxies.Pick()
	if !ok {
		if f.Client != nil {
			return f.Client
		}
		return http.DefaultClient
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clients == nil {
		f.clients = make(map[string]*http.Client)
	}
	if c, ok := f.clients[addr]; ok {
		return c
	}

	dialer, err := proxy.SOCKS5("tcp", addr, nil, &net.Dialer{Timeout: MinFetchTimeout})
	if err != nil {
		logger.ForFetcher().Warn().Err(err).Str("proxy", addr).Msg("Invalid SOCKS5 proxy, fetching directly")
		return http.DefaultClient
	}
	transport := &http.Transport{Proxy: nil}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, address string) (net.Conn, error) {
			return dialer.Dial(network, address)
		}
	}
	c := &http.Client{Transport: transport}
	f.clients[addr] = c
	return c
}

func effectiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultFetchTimeout
	}
	if timeout < MinFetchTimeout {
		return MinFetchTimeout
	}
	return timeout
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Referer", referers[rand.IntN(len(referers))])
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
}

// toUTF8 converts the body to UTF-8 using the Content-Type header and any
// <meta charset> in the document.
func toUTF8(body []byte, contentType string) (string, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || name == "UTF-8" {
		return string(body), nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return "", fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.String(), nil
}
