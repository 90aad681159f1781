package browser

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupbuy/detailworker/config"
	"groupbuy/detailworker/pkg/errors"
)

func newMockedClient(t *testing.T, responder httpmock.Responder) (*ChromeDBClient, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, "http://chromedb.test/function", responder)

	c := NewChromeDBClient("http://chromedb.test/", time.Second)
	c.Client = &http.Client{Transport: transport}
	return c, transport
}

func TestChromeDBSelectedVariation(t *testing.T) {
	var payload struct {
		Code    string            `json:"code"`
		Context map[string]string `json:"context"`
	}

	c, transport := newMockedClient(t, func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))
		return httpmock.NewStringResponse(http.StatusOK, `{"label":" Navy Blue ","hero":"https://img/navy.jpg"}`), nil
	})

	hint, err := c.SelectedVariation(context.Background(), "https://www.alibaba.com/product-detail/x_1.html")
	require.NoError(t, err)
	assert.Equal(t, Hint{Label: "Navy Blue", HeroURL: "https://img/navy.jpg"}, hint)
	assert.Equal(t, 1, transport.GetTotalCallCount())
	assert.Equal(t, "https://www.alibaba.com/product-detail/x_1.html", payload.Context["url"])
	assert.Contains(t, payload.Code, "page.evaluate")
}

func TestChromeDBWrappedResult(t *testing.T) {
	c, _ := newMockedClient(t, httpmock.NewStringResponder(http.StatusOK, `{"data":{"label":"Red","hero":""}}`))

	hint, err := c.SelectedVariation(context.Background(), "https://example.com/p")
	require.NoError(t, err)
	assert.Equal(t, "Red", hint.Label)
	assert.False(t, hint.Empty())
}

func TestChromeDBErrors(t *testing.T) {
	testCases := []struct {
		name      string
		responder httpmock.Responder
	}{
		{name: "server error", responder: httpmock.NewStringResponder(http.StatusBadGateway, "upstream down")},
		{name: "not json", responder: httpmock.NewStringResponder(http.StatusOK, "<html></html>")},
		{name: "transport error", responder: httpmock.NewErrorResponder(assert.AnError)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newMockedClient(t, tc.responder)

			hint, err := c.SelectedVariation(context.Background(), "https://example.com/p")
			assert.Error(t, err)
			assert.Equal(t, errors.ErrorTypeBrowser, errors.TypeOf(err))
			assert.True(t, hint.Empty())
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{HeadlessEnabled: false}
	assert.Nil(t, NewFromConfig(cfg))

	cfg = &config.Config{HeadlessEnabled: true, BrowserMode: "chromedb", ChromeDBAddr: "http://localhost:3000"}
	_, ok := NewFromConfig(cfg).(*ChromeDBClient)
	assert.True(t, ok)

	cfg.BrowserMode = "rod"
	rb, ok := NewFromConfig(cfg).(*RodBrowser)
	require.True(t, ok)
	assert.Equal(t, DefaultTimeout, rb.Timeout)
	// never launched, so closing is a no-op
	assert.NoError(t, rb.Close())
}
