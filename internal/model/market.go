package model

import "time"

// Candle represents a single candlestick bar.
type Candle struct {
	OpenTime    time.Time `json:"open_time"`
	CloseTime   time.Time `json:"close_time"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	QuoteVolume float64   `json:"quote_volume"`
	TradeCount  int64     `json:"trade_count"`
}

// Quote is a point-in-time price with 24h stats from one oracle source.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	Volume    float64   `json:"volume"`
	MarketCap float64   `json:"market_cap"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale,omitempty"` // served from cache after live sources failed
}
