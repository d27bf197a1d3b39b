package model

// MACD holds the MACD line, its signal line and the histogram.
type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Bollinger holds the Bollinger band levels.
type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSnapshot holds all indicators computed from one candle window.
type IndicatorSnapshot struct {
	RSI            float64   `json:"rsi"`
	MACD           MACD      `json:"macd"`
	Bollinger      Bollinger `json:"bollinger"`
	EMA20          float64   `json:"ema20"`
	EMA50          float64   `json:"ema50"`
	Support        float64   `json:"support"`
	Resistance     float64   `json:"resistance"`
	CurrentPrice   float64   `json:"current_price"`
	PriceChange24h float64   `json:"price_change_24h"` // percent, last two closes
	Volume24h      float64   `json:"volume_24h"`       // sum over the last 24 candles
}
