package indicators

import (
	"errors"

	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// MACDResult holds the current and previous values of the MACD line,
// signal line and histogram. Two consecutive samples are enough to
// detect a crossover on the latest bar.
type MACDResult struct {
	MACD          float64
	Signal        float64
	Histogram     float64
	PrevMACD      float64
	PrevSignal    float64
	PrevHistogram float64
}

// MACD calculates the Moving Average Convergence Divergence indicator.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator with the given periods.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

// Calculate returns the MACD values for the two most recent bars.
func (m *MACD) Calculate(data []types.OHLCV) (*MACDResult, error) {
	if len(data) < m.GetRequiredPeriods() {
		return nil, errors.New("insufficient data for MACD calculation")
	}

	closes := types.Closes(data)

	fastEMA, err := EMASeries(closes, m.fastPeriod)
	if err != nil {
		return nil, err
	}
	slowEMA, err := EMASeries(closes, m.slowPeriod)
	if err != nil {
		return nil, err
	}

	// Align the fast series to the slow one; the slow EMA starts
	// slowPeriod-fastPeriod samples later.
	offset := m.slowPeriod - m.fastPeriod
	macdLine := make([]float64, len(slowEMA))
	for i := range slowEMA {
		macdLine[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalLine, err := EMASeries(macdLine, m.signalPeriod)
	if err != nil {
		return nil, err
	}
	if len(signalLine) < 2 {
		return nil, errors.New("insufficient data for MACD signal line")
	}

	curr := len(signalLine) - 1
	macdOffset := len(macdLine) - len(signalLine)

	return &MACDResult{
		MACD:          macdLine[macdOffset+curr],
		Signal:        signalLine[curr],
		Histogram:     macdLine[macdOffset+curr] - signalLine[curr],
		PrevMACD:      macdLine[macdOffset+curr-1],
		PrevSignal:    signalLine[curr-1],
		PrevHistogram: macdLine[macdOffset+curr-1] - signalLine[curr-1],
	}, nil
}

// GetName returns the indicator name.
func (m *MACD) GetName() string {
	return "MACD"
}

// GetRequiredPeriods returns the minimum number of bars needed for two
// consecutive signal-line samples.
func (m *MACD) GetRequiredPeriods() int {
	return m.slowPeriod + m.signalPeriod + 1
}
