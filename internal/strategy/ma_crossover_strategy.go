package strategy

import (
	"math"

	"github.com/ducminhle1904/crypto-trading-engine/internal/indicators"
	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// MACrossoverStrategy trades the crossing of a fast simple moving
// average over a slow one, comparing only the two most recent samples.
type MACrossoverStrategy struct {
	fastPeriod int
	slowPeriod int
	fastMA     *indicators.SMA
	slowMA     *indicators.SMA
}

// NewMACrossoverStrategy creates a new moving average crossover strategy.
func NewMACrossoverStrategy(fast, slow int) *MACrossoverStrategy {
	return &MACrossoverStrategy{
		fastPeriod: fast,
		slowPeriod: slow,
		fastMA:     indicators.NewSMA(fast),
		slowMA:     indicators.NewSMA(slow),
	}
}

// Name returns the strategy display name.
func (s *MACrossoverStrategy) Name() string {
	return "Moving Average Crossover Strategy"
}

// MinDataPoints returns the minimum number of bars required.
func (s *MACrossoverStrategy) MinDataPoints() int {
	return s.slowPeriod + 10
}

// Parameters returns a snapshot of the strategy configuration.
func (s *MACrossoverStrategy) Parameters() map[string]float64 {
	return map[string]float64{
		"fast_period": float64(s.fastPeriod),
		"slow_period": float64(s.slowPeriod),
	}
}

// Evaluate analyzes the price history and returns a trading signal.
func (s *MACrossoverStrategy) Evaluate(data []types.OHLCV) *Signal {
	price, ts := lastBar(data)
	if len(data) < s.MinDataPoints() {
		return hold(s.Name(), s.Parameters(), 0, ts)
	}

	currFast, err := s.fastMA.Calculate(data)
	if err != nil {
		return hold(s.Name(), s.Parameters(), price, ts)
	}
	currSlow, err := s.slowMA.Calculate(data)
	if err != nil {
		return hold(s.Name(), s.Parameters(), price, ts)
	}
	prevFast, err := s.fastMA.Previous(data)
	if err != nil {
		return hold(s.Name(), s.Parameters(), price, ts)
	}
	prevSlow, err := s.slowMA.Previous(data)
	if err != nil {
		return hold(s.Name(), s.Parameters(), price, ts)
	}

	goldenCross := currFast > currSlow && prevFast <= prevSlow
	deathCross := currFast < currSlow && prevFast >= prevSlow
	if !goldenCross && !deathCross {
		return hold(s.Name(), s.Parameters(), price, ts)
	}

	signalType := SignalBuy
	crossType := "golden_cross"
	confidence := math.Min(1.0, (currFast-currSlow)/currSlow*10)
	if deathCross {
		signalType = SignalSell
		crossType = "death_cross"
		confidence = math.Min(1.0, (currSlow-currFast)/currSlow*10)
	}

	return &Signal{
		Type:       signalType,
		Confidence: confidence,
		Price:      price,
		Timestamp:  ts,
		Strategy:   s.Name(),
		Parameters: s.Parameters(),
		Attributes: map[string]interface{}{
			"fast_ma":        currFast,
			"slow_ma":        currSlow,
			"crossover_type": crossType,
		},
	}
}
