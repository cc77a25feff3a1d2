package indicators

import (
	"errors"

	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// RSI calculates the Relative Strength Index from simple average gains
// and losses over the lookback window.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator with the given period.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Calculate returns the RSI value for the most recent bar.
func (r *RSI) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < r.period+1 {
		return 0, errors.New("insufficient data for RSI calculation")
	}

	closes := types.Closes(data)
	window := closes[len(closes)-r.period-1:]

	var gains, losses float64
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(r.period)
	avgLoss := losses / float64(r.period)

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

// GetName returns the indicator name.
func (r *RSI) GetName() string {
	return "RSI"
}

// GetRequiredPeriods returns the minimum number of bars needed.
func (r *RSI) GetRequiredPeriods() int {
	return r.period + 1
}
