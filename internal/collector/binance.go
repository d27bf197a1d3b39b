package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"SignalSentinel/internal/model"
)

const (
	binanceName     = "binance"
	maxKlineLimit   = 1000
	klineTupleWidth = 9
)

var binanceIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// BinanceFetcher implements CandleFetcher against the Binance spot kline endpoint.
type BinanceFetcher struct {
	BaseURL    string
	QuoteAsset string
	Client     *http.Client
}

// NewBinanceFetcher creates a kline fetcher. The client timeout bounds each request.
func NewBinanceFetcher(baseURL, quoteAsset string, client *http.Client) *BinanceFetcher {
	return &BinanceFetcher{BaseURL: baseURL, QuoteAsset: quoteAsset, Client: client}
}

func (f *BinanceFetcher) Name() string { return binanceName }

// FetchCandles issues one kline request and returns the candles oldest first.
func (f *BinanceFetcher) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	if !binanceIntervals[interval] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedInterval, interval)
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	q := url.Values{}
	q.Set("symbol", NormalizeSymbol(symbol)+f.QuoteAsset)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	body, err := getJSON(ctx, f.Client, binanceName, f.BaseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return parseKlines(body)
}

// parseKlines decodes [openTime, open, high, low, close, volume, closeTime,
// quoteVolume, trades, ...] tuples and validates ordering.
func parseKlines(body []byte) ([]model.Candle, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rows [][]any
	if err := dec.Decode(&rows); err != nil {
		return nil, formatErr(binanceName, "decode klines: %v", err)
	}
	if len(rows) == 0 {
		return nil, formatErr(binanceName, "empty kline array")
	}

	candles := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < klineTupleWidth {
			return nil, formatErr(binanceName, "kline %d has %d fields, want at least %d", i, len(row), klineTupleWidth)
		}
		var vals [klineTupleWidth]float64
		for j := 0; j < klineTupleWidth; j++ {
			v, err := toFloat(row[j])
			if err != nil {
				return nil, formatErr(binanceName, "kline %d field %d: %v", i, j, err)
			}
			vals[j] = v
		}
		c := model.Candle{
			OpenTime:    time.UnixMilli(int64(vals[0])).UTC(),
			Open:        vals[1],
			High:        vals[2],
			Low:         vals[3],
			Close:       vals[4],
			Volume:      vals[5],
			CloseTime:   time.UnixMilli(int64(vals[6])).UTC(),
			QuoteVolume: vals[7],
			TradeCount:  int64(vals[8]),
		}
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return nil, formatErr(binanceName, "kline %d has non-positive price", i)
		}
		if c.Volume < 0 {
			return nil, formatErr(binanceName, "kline %d has negative volume", i)
		}
		if !c.OpenTime.Before(c.CloseTime) {
			return nil, formatErr(binanceName, "kline %d opens at or after close", i)
		}
		candles = append(candles, c)
	}

	for i := 1; i < len(candles); i++ {
		if !candles[i-1].OpenTime.Before(candles[i].OpenTime) {
			return nil, formatErr(binanceName, "kline %d at %s is not after the previous one", i, candles[i].OpenTime.Format(time.RFC3339))
		}
	}
	return candles, nil
}

// toFloat accepts the decimal strings Binance uses for prices and the bare
// numbers it uses for timestamps and counts.
func toFloat(v any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case string:
		f, err = strconv.ParseFloat(n, 64)
	case float64:
		f = n
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", v)
	}
	return f, nil
}

// BinanceTickerSource reads the 24h ticker for one ticker-notation variant,
// such as "%sUSDT" or "%sUSDC".
type BinanceTickerSource struct {
	BaseURL  string
	Template string
	Client   *http.Client
}

// NewBinanceTickerSources returns one source per ticker template, in order.
func NewBinanceTickerSources(baseURL string, templates []string, client *http.Client) []Source {
	sources := make([]Source, 0, len(templates))
	for _, t := range templates {
		sources = append(sources, &BinanceTickerSource{BaseURL: baseURL, Template: t, Client: client})
	}
	return sources
}

func (s *BinanceTickerSource) Name() string {
	return binanceName + ":" + fmt.Sprintf(s.Template, "")
}

type binanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
}

func (s *BinanceTickerSource) Fetch(ctx context.Context, symbol string) (model.Quote, error) {
	base := NormalizeSymbol(symbol)
	q := url.Values{}
	q.Set("symbol", fmt.Sprintf(s.Template, base))
	body, err := getJSON(ctx, s.Client, s.Name(), s.BaseURL+"/api/v3/ticker/24hr?"+q.Encode(), nil)
	if err != nil {
		return model.Quote{}, err
	}

	var t binanceTicker
	if err := json.Unmarshal(body, &t); err != nil {
		return model.Quote{}, formatErr(s.Name(), "decode ticker: %v", err)
	}
	price, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return model.Quote{}, formatErr(s.Name(), "lastPrice %q: %v", t.LastPrice, err)
	}
	change, err := strconv.ParseFloat(t.PriceChangePercent, 64)
	if err != nil {
		return model.Quote{}, formatErr(s.Name(), "priceChangePercent %q: %v", t.PriceChangePercent, err)
	}
	volume, err := strconv.ParseFloat(t.QuoteVolume, 64)
	if err != nil {
		return model.Quote{}, formatErr(s.Name(), "quoteVolume %q: %v", t.QuoteVolume, err)
	}

	return model.Quote{
		Symbol:    base,
		Price:     price,
		Change24h: change,
		Volume:    volume,
		Source:    s.Name(),
		FetchedAt: time.Now().UTC(),
	}, nil
}
