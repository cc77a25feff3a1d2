package indicators

import (
	"errors"

	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// SMA calculates the Simple Moving Average over close prices.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate returns the SMA of the last `period` closes.
func (s *SMA) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < s.period {
		return 0, errors.New("insufficient data for SMA calculation")
	}

	sum := 0.0
	for _, bar := range data[len(data)-s.period:] {
		sum += bar.Close
	}
	return sum / float64(s.period), nil
}

// Previous returns the SMA one bar back, used for crossover detection
// against only the two most recent samples.
func (s *SMA) Previous(data []types.OHLCV) (float64, error) {
	if len(data) < s.period+1 {
		return 0, errors.New("insufficient data for previous SMA calculation")
	}
	return s.Calculate(data[:len(data)-1])
}

// GetName returns the indicator name.
func (s *SMA) GetName() string {
	return "SMA"
}

// GetRequiredPeriods returns the minimum number of bars needed.
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}
