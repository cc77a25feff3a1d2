package strategy

import (
	"math"

	"github.com/ducminhle1904/crypto-trading-engine/internal/indicators"
	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// MACDStrategy trades golden and death crosses of the MACD line over
// its signal line, comparing only the two most recent samples.
type MACDStrategy struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
	macd         *indicators.MACD
}

// NewMACDStrategy creates a new MACD strategy.
func NewMACDStrategy(fast, slow, signal int) *MACDStrategy {
	return &MACDStrategy{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
		macd:         indicators.NewMACD(fast, slow, signal),
	}
}

// Name returns the strategy display name.
func (s *MACDStrategy) Name() string {
	return "MACD Strategy"
}

// MinDataPoints returns the minimum number of bars required.
func (s *MACDStrategy) MinDataPoints() int {
	return s.slowPeriod + s.signalPeriod + 10
}

// Parameters returns a snapshot of the strategy configuration.
func (s *MACDStrategy) Parameters() map[string]float64 {
	return map[string]float64{
		"fast_period":   float64(s.fastPeriod),
		"slow_period":   float64(s.slowPeriod),
		"signal_period": float64(s.signalPeriod),
	}
}

// Evaluate analyzes the price history and returns a trading signal.
func (s *MACDStrategy) Evaluate(data []types.OHLCV) *Signal {
	price, ts := lastBar(data)
	if len(data) < s.MinDataPoints() {
		return hold(s.Name(), s.Parameters(), 0, ts)
	}

	result, err := s.macd.Calculate(data)
	if err != nil {
		return hold(s.Name(), s.Parameters(), price, ts)
	}

	goldenCross := result.MACD > result.Signal && result.PrevMACD <= result.PrevSignal
	deathCross := result.MACD < result.Signal && result.PrevMACD >= result.PrevSignal
	if !goldenCross && !deathCross {
		return hold(s.Name(), s.Parameters(), price, ts)
	}

	confidence := 0.5
	if result.MACD != 0 {
		confidence = math.Min(1.0, math.Abs(result.Histogram)/math.Abs(result.MACD))
	}

	signalType := SignalBuy
	crossType := "golden_cross"
	if deathCross {
		signalType = SignalSell
		crossType = "death_cross"
	}

	return &Signal{
		Type:       signalType,
		Confidence: confidence,
		Price:      price,
		Timestamp:  ts,
		Strategy:   s.Name(),
		Parameters: s.Parameters(),
		Attributes: map[string]interface{}{
			"macd_value":   result.MACD,
			"signal_value": result.Signal,
			"histogram":    result.Histogram,
			"signal_type":  crossType,
		},
	}
}
