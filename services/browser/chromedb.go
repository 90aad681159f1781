package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"groupbuy/detailworker/logger"
	"groupbuy/detailworker/pkg/errors"
)

// ChromeDBClient drives a remote browserless instance through its
// /function endpoint
type ChromeDBClient struct {
	Addr    string
	Timeout time.Duration
	Client  *http.Client
}

// NewChromeDBClient creates a client for the ChromeDB server at addr
func NewChromeDBClient(addr string, timeout time.Duration) *ChromeDBClient {
	return &ChromeDBClient{
		Addr:    strings.TrimRight(addr, "/"),
		Timeout: timeout,
		Client:  &http.Client{Timeout: timeout},
	}
}

// SelectedVariation loads pageURL remotely and reads the selected SKU
func (c *ChromeDBClient) SelectedVariation(ctx context.Context, pageURL string) (Hint, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	code := fmt.Sprintf(`module.exports = async ({ page, context }) => {
  await page.setViewport({ width: 1366, height: 900 });
  await page.goto(context.url, { waitUntil: 'networkidle2', timeout: %d });
  const result = await page.evaluate(%s);
  return { data: result, type: 'application/json' };
}`, c.Timeout.Milliseconds(), selectedSkuScript)

	payload, err := json.Marshal(map[string]interface{}{
		"code":    code,
		"context": map[string]string{"url": pageURL},
	})
	if err != nil {
		return Hint{}, errors.NewBrowser("chromedb", "failed to marshal payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Addr+"/function", bytes.NewReader(payload))
	if err != nil {
		return Hint{}, errors.NewBrowser("chromedb", "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return Hint{}, errors.NewBrowser("chromedb", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Hint{}, errors.NewBrowser("chromedb", "failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Hint{}, errors.NewBrowser("chromedb", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)), nil)
	}
	if !gjson.ValidBytes(body) {
		return Hint{}, errors.NewBrowser("chromedb", "response is not JSON", nil)
	}

	// Some browserless versions wrap the function result in {"data": ...}
	doc := gjson.ParseBytes(body)
	if data := doc.Get("data"); data.IsObject() {
		doc = data
	}
	hint := Hint{
		Label:   strings.TrimSpace(doc.Get("label").String()),
		HeroURL: strings.TrimSpace(doc.Get("hero").String()),
	}

	logger.ForBrowser().Debug().
		Str("url", pageURL).
		Str("label", hint.Label).
		Msg("ChromeDB variation hint")
	return hint, nil
}

// Close is a no-op; the remote browser outlives the client
func (c *ChromeDBClient) Close() error { return nil }
