package strategy

import (
	"math"

	"github.com/ducminhle1904/crypto-trading-engine/internal/indicators"
	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// RSIStrategy buys oversold and sells overbought conditions based on
// the Relative Strength Index.
type RSIStrategy struct {
	period     int
	oversold   float64
	overbought float64
	rsi        *indicators.RSI
}

// NewRSIStrategy creates a new RSI strategy.
func NewRSIStrategy(period int, oversold, overbought float64) *RSIStrategy {
	return &RSIStrategy{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
		rsi:        indicators.NewRSI(period),
	}
}

// Name returns the strategy display name.
func (s *RSIStrategy) Name() string {
	return "RSI Strategy"
}

// MinDataPoints returns the minimum number of bars required.
func (s *RSIStrategy) MinDataPoints() int {
	return s.period + 10
}

// Parameters returns a snapshot of the strategy configuration.
func (s *RSIStrategy) Parameters() map[string]float64 {
	return map[string]float64{
		"period":     float64(s.period),
		"oversold":   s.oversold,
		"overbought": s.overbought,
	}
}

// Evaluate analyzes the price history and returns a trading signal.
func (s *RSIStrategy) Evaluate(data []types.OHLCV) *Signal {
	price, ts := lastBar(data)
	if len(data) < s.MinDataPoints() {
		return hold(s.Name(), s.Parameters(), 0, ts)
	}

	value, err := s.rsi.Calculate(data)
	if err != nil {
		return hold(s.Name(), s.Parameters(), price, ts)
	}

	switch {
	case value < s.oversold:
		confidence := math.Min(1.0, (s.oversold-value)/s.oversold)
		return &Signal{
			Type:       SignalBuy,
			Confidence: confidence,
			Price:      price,
			Timestamp:  ts,
			Strategy:   s.Name(),
			Parameters: s.Parameters(),
			Attributes: map[string]interface{}{
				"rsi_value":          value,
				"oversold_threshold": s.oversold,
			},
		}
	case value > s.overbought:
		confidence := math.Min(1.0, (value-s.overbought)/(100-s.overbought))
		return &Signal{
			Type:       SignalSell,
			Confidence: confidence,
			Price:      price,
			Timestamp:  ts,
			Strategy:   s.Name(),
			Parameters: s.Parameters(),
			Attributes: map[string]interface{}{
				"rsi_value":            value,
				"overbought_threshold": s.overbought,
			},
		}
	default:
		return hold(s.Name(), s.Parameters(), price, ts)
	}
}
