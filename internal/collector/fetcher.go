package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"SignalSentinel/internal/model"
)

// CandleFetcher fetches an ordered candle window for a symbol.
type CandleFetcher interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
	Name() string
}

// Source is one strategy in the price oracle chain.
type Source interface {
	Fetch(ctx context.Context, symbol string) (model.Quote, error)
	Name() string
}

// QuoteCache keeps the last good quote per symbol.
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (model.Quote, bool, error)
	Set(ctx context.Context, q model.Quote) error
}

// quoteAssets are stripped from user input to get the base asset.
var quoteAssets = []string{"FDUSD", "USDT", "USDC", "BUSD", "USD"}

// NormalizeSymbol upper-cases the symbol and strips a trailing quote asset,
// so "btcusdt" and "BTC" both become "BTC". A bare quote asset such as
// "FDUSD" is returned as is.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, q := range quoteAssets {
		if s == q {
			return s
		}
	}
	for _, q := range quoteAssets {
		if len(s) > len(q)+1 && strings.HasSuffix(s, q) {
			return strings.TrimSuffix(s, q)
		}
	}
	return s
}

// NewHTTPClient builds a client with optional proxy support.
func NewHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// getJSON performs a GET and returns the body of a 2xx response.
func getJSON(ctx context.Context, client *http.Client, source, endpoint string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", source, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Source: source, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Source: source, StatusCode: resp.StatusCode, Err: fmt.Errorf("body: %s", truncate(string(body), 200))}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
