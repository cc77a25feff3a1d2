package strategy

import (
	"math"

	"github.com/ducminhle1904/crypto-trading-engine/internal/indicators"
	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// BollingerStrategy buys at the lower band and sells at the upper band,
// with confidence scaled by how far price has penetrated the band.
type BollingerStrategy struct {
	period int
	stdDev float64
	bands  *indicators.BollingerBands
}

// NewBollingerStrategy creates a new Bollinger Bands strategy.
func NewBollingerStrategy(period int, stdDev float64) *BollingerStrategy {
	return &BollingerStrategy{
		period: period,
		stdDev: stdDev,
		bands:  indicators.NewBollingerBands(period, stdDev),
	}
}

// Name returns the strategy display name.
func (s *BollingerStrategy) Name() string {
	return "Bollinger Bands Strategy"
}

// MinDataPoints returns the minimum number of bars required.
func (s *BollingerStrategy) MinDataPoints() int {
	return s.period + 10
}

// Parameters returns a snapshot of the strategy configuration.
func (s *BollingerStrategy) Parameters() map[string]float64 {
	return map[string]float64{
		"period":  float64(s.period),
		"std_dev": s.stdDev,
	}
}

// Evaluate analyzes the price history and returns a trading signal.
func (s *BollingerStrategy) Evaluate(data []types.OHLCV) *Signal {
	price, ts := lastBar(data)
	if len(data) < s.MinDataPoints() {
		return hold(s.Name(), s.Parameters(), 0, ts)
	}

	bands, err := s.bands.Calculate(data)
	if err != nil {
		return hold(s.Name(), s.Parameters(), price, ts)
	}

	attrs := func(percentB, bandwidth float64) map[string]interface{} {
		return map[string]interface{}{
			"upper_band":  bands.Upper,
			"middle_band": bands.Middle,
			"lower_band":  bands.Lower,
			"percent_b":   percentB,
			"bandwidth":   bandwidth,
		}
	}

	bandwidth := 0.0
	if bands.Middle != 0 {
		bandwidth = (bands.Upper - bands.Lower) / bands.Middle
	}
	percentB := 0.0
	if spread := bands.Upper - bands.Lower; spread != 0 {
		percentB = (price - bands.Lower) / spread
	}

	switch {
	case price <= bands.Lower:
		confidence := math.Min(1.0, (bands.Lower-price)/price+0.5)
		return &Signal{
			Type:       SignalBuy,
			Confidence: confidence,
			Price:      price,
			Timestamp:  ts,
			Strategy:   s.Name(),
			Parameters: s.Parameters(),
			Attributes: attrs(percentB, bandwidth),
		}
	case price >= bands.Upper:
		confidence := math.Min(1.0, (price-bands.Upper)/price+0.5)
		return &Signal{
			Type:       SignalSell,
			Confidence: confidence,
			Price:      price,
			Timestamp:  ts,
			Strategy:   s.Name(),
			Parameters: s.Parameters(),
			Attributes: attrs(percentB, bandwidth),
		}
	default:
		return hold(s.Name(), s.Parameters(), price, ts)
	}
}
