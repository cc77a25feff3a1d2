package indicators

import (
	"errors"
	"math"

	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// BollingerResult holds the three Bollinger band values.
type BollingerResult struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands calculates Bollinger Bands around a simple moving
// average using population standard deviation.
type BollingerBands struct {
	period int
	stdDev float64
}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{period: period, stdDev: stdDev}
}

// Calculate returns the bands for the most recent bar.
func (b *BollingerBands) Calculate(data []types.OHLCV) (*BollingerResult, error) {
	if len(data) < b.period {
		return nil, errors.New("insufficient data for Bollinger Bands calculation")
	}

	window := types.Closes(data[len(data)-b.period:])

	sum := 0.0
	for _, p := range window {
		sum += p
	}
	mean := sum / float64(b.period)

	variance := 0.0
	for _, p := range window {
		diff := p - mean
		variance += diff * diff
	}
	sd := math.Sqrt(variance / float64(b.period))

	return &BollingerResult{
		Upper:  mean + b.stdDev*sd,
		Middle: mean,
		Lower:  mean - b.stdDev*sd,
	}, nil
}

// GetName returns the indicator name.
func (b *BollingerBands) GetName() string {
	return "BollingerBands"
}

// GetRequiredPeriods returns the minimum number of bars needed.
func (b *BollingerBands) GetRequiredPeriods() int {
	return b.period
}
