package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"SignalSentinel/internal/model"
)

const coinGeckoName = "coingecko"

// DefaultCoinGeckoIDs maps base symbols to CoinGecko coin ids.
var DefaultCoinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
	"LINK":  "chainlink",
	"LTC":   "litecoin",
	"TRX":   "tron",
	"ATOM":  "cosmos",
	"TON":   "the-open-network",
	"SHIB":  "shiba-inu",
}

// CoinGeckoSource is the secondary oracle source, keyed by a static id table.
type CoinGeckoSource struct {
	BaseURL string
	APIKey  string
	IDs     map[string]string
	Client  *http.Client
}

// NewCoinGeckoSource creates a source using DefaultCoinGeckoIDs.
func NewCoinGeckoSource(baseURL, apiKey string, client *http.Client) *CoinGeckoSource {
	return &CoinGeckoSource{BaseURL: baseURL, APIKey: apiKey, IDs: DefaultCoinGeckoIDs, Client: client}
}

func (s *CoinGeckoSource) Name() string { return coinGeckoName }

type coinGeckoPrice struct {
	USD          float64 `json:"usd"`
	USDMarketCap float64 `json:"usd_market_cap"`
	USD24hVol    float64 `json:"usd_24h_vol"`
	USD24hChange float64 `json:"usd_24h_change"`
}

func (s *CoinGeckoSource) Fetch(ctx context.Context, symbol string) (model.Quote, error) {
	base := NormalizeSymbol(symbol)
	id, ok := s.IDs[base]
	if !ok {
		return model.Quote{}, ErrUnmapped
	}

	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	q.Set("include_market_cap", "true")
	q.Set("include_24hr_vol", "true")
	q.Set("include_24hr_change", "true")
	var header http.Header
	if s.APIKey != "" {
		header = http.Header{"X-Cg-Demo-Api-Key": []string{s.APIKey}}
	}
	body, err := getJSON(ctx, s.Client, coinGeckoName, s.BaseURL+"/api/v3/simple/price?"+q.Encode(), header)
	if err != nil {
		return model.Quote{}, err
	}

	var result map[string]coinGeckoPrice
	if err := json.Unmarshal(body, &result); err != nil {
		return model.Quote{}, formatErr(coinGeckoName, "decode price: %v", err)
	}
	p, ok := result[id]
	if !ok {
		return model.Quote{}, formatErr(coinGeckoName, "id %q missing from response", id)
	}
	return model.Quote{
		Symbol:    base,
		Price:     p.USD,
		Change24h: p.USD24hChange,
		Volume:    p.USD24hVol,
		MarketCap: p.USDMarketCap,
		Source:    coinGeckoName,
		FetchedAt: time.Now().UTC(),
	}, nil
}
