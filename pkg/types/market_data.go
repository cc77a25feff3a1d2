package types

import "time"

// OHLCV represents a single candlestick bar. A []OHLCV slice is the
// price series strategies evaluate; it is ordered oldest-first and
// treated as immutable once fetched for a cycle.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

type Ticker struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// Closes extracts the close-price series from a slice of bars.
func Closes(data []OHLCV) []float64 {
	closes := make([]float64, len(data))
	for i, bar := range data {
		closes[i] = bar.Close
	}
	return closes
}
