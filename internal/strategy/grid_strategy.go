package strategy

import (
	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// gridConfidence is the fixed confidence for grid entries; grid signals
// have no indicator strength to scale by.
const gridConfidence = 0.7

// GridStrategy partitions a symmetric price band around the current
// price into evenly spaced levels and trades proximity to them: BUY
// within half a grid step above the nearest lower level, SELL within
// half a step below the nearest upper level.
type GridStrategy struct {
	gridLevels  int
	gridSpacing float64
}

// NewGridStrategy creates a new grid trading strategy.
func NewGridStrategy(levels int, spacing float64) *GridStrategy {
	return &GridStrategy{
		gridLevels:  levels,
		gridSpacing: spacing,
	}
}

// Name returns the strategy display name.
func (s *GridStrategy) Name() string {
	return "Grid Trading Strategy"
}

// MinDataPoints returns the minimum number of bars required.
func (s *GridStrategy) MinDataPoints() int {
	return 50
}

// Parameters returns a snapshot of the strategy configuration.
func (s *GridStrategy) Parameters() map[string]float64 {
	return map[string]float64{
		"grid_levels":  float64(s.gridLevels),
		"grid_spacing": s.gridSpacing,
	}
}

// Evaluate analyzes the price history and returns a trading signal.
func (s *GridStrategy) Evaluate(data []types.OHLCV) *Signal {
	price, ts := lastBar(data)
	if len(data) < s.MinDataPoints() {
		return hold(s.Name(), s.Parameters(), 0, ts)
	}

	levels := s.levelsAround(price)

	var nearestBuy, nearestSell float64
	haveBuy, haveSell := false, false
	for _, level := range levels {
		if level < price {
			nearestBuy = level
			haveBuy = true
		} else if level > price && !haveSell {
			nearestSell = level
			haveSell = true
		}
	}

	halfStep := price * s.gridSpacing * 0.5

	if haveBuy && price-nearestBuy < halfStep {
		return &Signal{
			Type:       SignalBuy,
			Confidence: gridConfidence,
			Price:      price,
			Timestamp:  ts,
			Strategy:   s.Name(),
			Parameters: s.Parameters(),
			Attributes: map[string]interface{}{
				"grid_level":   nearestBuy,
				"grid_spacing": s.gridSpacing,
				"total_levels": s.gridLevels,
			},
		}
	}

	if haveSell && nearestSell-price < halfStep {
		return &Signal{
			Type:       SignalSell,
			Confidence: gridConfidence,
			Price:      price,
			Timestamp:  ts,
			Strategy:   s.Name(),
			Parameters: s.Parameters(),
			Attributes: map[string]interface{}{
				"grid_level":   nearestSell,
				"grid_spacing": s.gridSpacing,
				"total_levels": s.gridLevels,
			},
		}
	}

	return hold(s.Name(), s.Parameters(), price, ts)
}

// levelsAround returns gridLevels prices evenly spaced across a band of
// width price*spacing*levels centered on the current price.
func (s *GridStrategy) levelsAround(price float64) []float64 {
	priceRange := price * s.gridSpacing * float64(s.gridLevels)
	low := price - priceRange/2
	high := price + priceRange/2

	levels := make([]float64, s.gridLevels)
	if s.gridLevels == 1 {
		levels[0] = low
		return levels
	}
	step := (high - low) / float64(s.gridLevels-1)
	for i := range levels {
		levels[i] = low + float64(i)*step
	}
	return levels
}
