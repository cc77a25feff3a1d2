package indicators

import "errors"

// EMASeries computes an Exponential Moving Average over a price series.
// The first value is seeded with the SMA of the first `period` samples,
// matching the conventional TradingView/TA-Lib initialization.
func EMASeries(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("EMA period must be positive")
	}
	if len(prices) < period {
		return nil, errors.New("insufficient data for EMA calculation")
	}

	out := make([]float64, 0, len(prices)-period+1)

	seed := 0.0
	for _, p := range prices[:period] {
		seed += p
	}
	seed /= float64(period)
	out = append(out, seed)

	multiplier := 2.0 / float64(period+1)
	ema := seed
	for _, p := range prices[period:] {
		ema = (p-ema)*multiplier + ema
		out = append(out, ema)
	}
	return out, nil
}
