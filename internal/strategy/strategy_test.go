package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

func barsFromCloses(closes []float64) []types.OHLCV {
	bars := make([]types.OHLCV, len(closes))
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = types.OHLCV{
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
			Timestamp: ts.Add(time.Duration(i) * time.Hour),
		}
	}
	return bars
}

func constantBars(value float64, n int) []types.OHLCV {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = value
	}
	return barsFromCloses(closes)
}

func TestAllStrategies_ShortSeriesYieldsHold(t *testing.T) {
	for _, name := range Available() {
		strat, err := New(name, nil)
		require.NoError(t, err, name)

		signal := strat.Evaluate(constantBars(100, strat.MinDataPoints()-1))
		assert.Equal(t, SignalHold, signal.Type, name)
		assert.Equal(t, 0.0, signal.Confidence, name)
	}
}

func TestRSIStrategy_OversoldYieldsBuy(t *testing.T) {
	strat := NewRSIStrategy(14, 30, 70)

	// A long decline drives RSI to 0, well below the oversold line.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 200 - float64(i)*2
	}

	signal := strat.Evaluate(barsFromCloses(closes))
	assert.Equal(t, SignalBuy, signal.Type)
	assert.Greater(t, signal.Confidence, 0.0)
	assert.LessOrEqual(t, signal.Confidence, 1.0)
	assert.Equal(t, closes[len(closes)-1], signal.Price)

	rsiValue := signal.Attributes["rsi_value"].(float64)
	assert.Less(t, rsiValue, 30.0)
}

func TestRSIStrategy_OverboughtYieldsSell(t *testing.T) {
	strat := NewRSIStrategy(14, 30, 70)

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)*2
	}

	signal := strat.Evaluate(barsFromCloses(closes))
	assert.Equal(t, SignalSell, signal.Type)
	assert.Greater(t, signal.Confidence, 0.0)
	assert.LessOrEqual(t, signal.Confidence, 1.0)
}

func TestRSIStrategy_NeutralYieldsHold(t *testing.T) {
	strat := NewRSIStrategy(14, 30, 70)

	// Alternating equal-sized moves keep RSI pinned near 50.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%2)
	}

	signal := strat.Evaluate(barsFromCloses(closes))
	assert.Equal(t, SignalHold, signal.Type)
	assert.Equal(t, 0.0, signal.Confidence)
}

func TestMACrossoverStrategy_GoldenCross(t *testing.T) {
	strat := NewMACrossoverStrategy(2, 4)

	// Flat at 100, then a jump on the last bar lifts the fast average
	// above the slow one on exactly that bar.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	closes[len(closes)-1] = 110

	signal := strat.Evaluate(barsFromCloses(closes))
	assert.Equal(t, SignalBuy, signal.Type)
	assert.Greater(t, signal.Confidence, 0.0)
	assert.Equal(t, "golden_cross", signal.Attributes["crossover_type"])
}

func TestMACrossoverStrategy_DeathCross(t *testing.T) {
	strat := NewMACrossoverStrategy(2, 4)

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	closes[len(closes)-1] = 90

	signal := strat.Evaluate(barsFromCloses(closes))
	assert.Equal(t, SignalSell, signal.Type)
	assert.Equal(t, "death_cross", signal.Attributes["crossover_type"])
}

func TestMACrossoverStrategy_NoCrossYieldsHold(t *testing.T) {
	strat := NewMACrossoverStrategy(2, 4)

	// Steady uptrend: fast stays above slow on both samples, no cross.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	signal := strat.Evaluate(barsFromCloses(closes))
	assert.Equal(t, SignalHold, signal.Type)
}

func TestBollingerStrategy_LowerBandTouchYieldsBuy(t *testing.T) {
	strat := NewBollingerStrategy(20, 2.0)

	// Mildly noisy series, then a sharp drop through the lower band.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%3)
	}
	closes[len(closes)-1] = 80

	signal := strat.Evaluate(barsFromCloses(closes))
	assert.Equal(t, SignalBuy, signal.Type)
	assert.Greater(t, signal.Confidence, 0.0)
	assert.LessOrEqual(t, signal.Confidence, 1.0)
}

func TestBollingerStrategy_UpperBandTouchYieldsSell(t *testing.T) {
	strat := NewBollingerStrategy(20, 2.0)

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%3)
	}
	closes[len(closes)-1] = 120

	signal := strat.Evaluate(barsFromCloses(closes))
	assert.Equal(t, SignalSell, signal.Type)
}

func TestBollingerStrategy_InsideBandsYieldsHold(t *testing.T) {
	strat := NewBollingerStrategy(20, 2.0)

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%3)
	}

	signal := strat.Evaluate(barsFromCloses(closes))
	assert.Equal(t, SignalHold, signal.Type)
}

func TestGridStrategy_CenteredPriceYieldsHold(t *testing.T) {
	strat := NewGridStrategy(10, 0.02)

	// The band is centered on the current price, so the nearest levels
	// sit a full half-step-plus away on both sides: 90..110 in steps of
	// 20/9 puts the neighbors at ~98.89 and ~101.11 against a 1.0
	// half-step threshold.
	signal := strat.Evaluate(constantBars(100, 60))
	assert.Equal(t, SignalHold, signal.Type)
	assert.Equal(t, 0.0, signal.Confidence)
	assert.Equal(t, 100.0, signal.Price)
}

func TestGridStrategy_LevelsSpanSymmetricBand(t *testing.T) {
	strat := NewGridStrategy(10, 0.02)

	levels := strat.levelsAround(100)
	require.Len(t, levels, 10)
	assert.InDelta(t, 90.0, levels[0], 1e-9)
	assert.InDelta(t, 110.0, levels[9], 1e-9)
	for i := 1; i < len(levels); i++ {
		assert.InDelta(t, 20.0/9.0, levels[i]-levels[i-1], 1e-9)
	}
}

func TestFactory_UnknownType(t *testing.T) {
	_, err := New("fibonacci", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestFactory_DefaultsApplied(t *testing.T) {
	strat, err := New("rsi", nil)
	require.NoError(t, err)

	params := strat.Parameters()
	assert.Equal(t, 14.0, params["period"])
	assert.Equal(t, 30.0, params["oversold"])
	assert.Equal(t, 70.0, params["overbought"])
	assert.Equal(t, 24, strat.MinDataPoints())
}

func TestFactory_OverridesMergedWithDefaults(t *testing.T) {
	strat, err := New("rsi", map[string]float64{"period": 7})
	require.NoError(t, err)

	params := strat.Parameters()
	assert.Equal(t, 7.0, params["period"])
	assert.Equal(t, 30.0, params["oversold"])
}

func TestFactory_InvalidParameters(t *testing.T) {
	cases := []struct {
		name         string
		strategyType string
		params       map[string]float64
	}{
		{"rsi zero period", "rsi", map[string]float64{"period": 0}},
		{"rsi inverted thresholds", "rsi", map[string]float64{"oversold": 80, "overbought": 20}},
		{"macd fast not below slow", "macd", map[string]float64{"fast_period": 26, "slow_period": 12}},
		{"ma_crossover equal periods", "ma_crossover", map[string]float64{"fast_period": 50}},
		{"bollinger negative std_dev", "bollinger", map[string]float64{"std_dev": -1}},
		{"grid single level", "grid_trading", map[string]float64{"grid_levels": 1}},
		{"rsi unknown parameter", "rsi", map[string]float64{"window": 14}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.strategyType, tc.params)
			assert.Error(t, err)
		})
	}
}

func TestSignal_Actionable(t *testing.T) {
	buy := &Signal{Type: SignalBuy, Confidence: 0.8}
	assert.True(t, buy.Actionable(0.6))
	assert.False(t, buy.Actionable(0.9))

	holdSignal := &Signal{Type: SignalHold, Confidence: 1.0}
	assert.False(t, holdSignal.Actionable(0.0))

	var nilSignal *Signal
	assert.False(t, nilSignal.Actionable(0.0))
}
