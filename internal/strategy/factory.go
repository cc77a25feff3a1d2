package strategy

import (
	"fmt"

	botErrors "github.com/ducminhle1904/crypto-trading-engine/internal/errors"
)

// ErrUnknownStrategy is returned by New for an unrecognized strategy type.
var ErrUnknownStrategy = botErrors.New(botErrors.CategoryConfig, "strategy", "create", "unknown strategy type")

// defaults holds the default parameter set for each strategy type.
var defaults = map[string]map[string]float64{
	"rsi": {
		"period":     14,
		"oversold":   30,
		"overbought": 70,
	},
	"macd": {
		"fast_period":   12,
		"slow_period":   26,
		"signal_period": 9,
	},
	"bollinger": {
		"period":  20,
		"std_dev": 2.0,
	},
	"ma_crossover": {
		"fast_period": 10,
		"slow_period": 50,
	},
	"grid_trading": {
		"grid_levels":  10,
		"grid_spacing": 0.02,
	},
}

// Available returns the list of supported strategy type identifiers.
func Available() []string {
	return []string{"rsi", "macd", "bollinger", "ma_crossover", "grid_trading"}
}

// Defaults returns a copy of the default parameters for a strategy type,
// or nil for an unknown type.
func Defaults(strategyType string) map[string]float64 {
	src, ok := defaults[strategyType]
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// New creates a strategy instance from a type identifier and a parameter
// set. Missing parameters fall back to defaults; invalid parameters are
// rejected at creation time rather than surfacing mid-loop.
func New(strategyType string, params map[string]float64) (Strategy, error) {
	base := Defaults(strategyType)
	if base == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategyType)
	}
	for k, v := range params {
		if _, known := base[k]; !known {
			return nil, botErrors.NewConfigError("strategy", "create",
				fmt.Sprintf("unknown parameter %q for strategy %q", k, strategyType))
		}
		base[k] = v
	}

	switch strategyType {
	case "rsi":
		period := int(base["period"])
		oversold := base["oversold"]
		overbought := base["overbought"]
		if period <= 0 {
			return nil, badParam(strategyType, "period must be positive")
		}
		if oversold <= 0 || overbought >= 100 || oversold >= overbought {
			return nil, badParam(strategyType, "thresholds must satisfy 0 < oversold < overbought < 100")
		}
		return NewRSIStrategy(period, oversold, overbought), nil

	case "macd":
		fast := int(base["fast_period"])
		slow := int(base["slow_period"])
		signal := int(base["signal_period"])
		if fast <= 0 || slow <= 0 || signal <= 0 {
			return nil, badParam(strategyType, "periods must be positive")
		}
		if fast >= slow {
			return nil, badParam(strategyType, "fast_period must be less than slow_period")
		}
		return NewMACDStrategy(fast, slow, signal), nil

	case "bollinger":
		period := int(base["period"])
		stdDev := base["std_dev"]
		if period <= 0 {
			return nil, badParam(strategyType, "period must be positive")
		}
		if stdDev <= 0 {
			return nil, badParam(strategyType, "std_dev must be positive")
		}
		return NewBollingerStrategy(period, stdDev), nil

	case "ma_crossover":
		fast := int(base["fast_period"])
		slow := int(base["slow_period"])
		if fast <= 0 || slow <= 0 {
			return nil, badParam(strategyType, "periods must be positive")
		}
		if fast >= slow {
			return nil, badParam(strategyType, "fast_period must be less than slow_period")
		}
		return NewMACrossoverStrategy(fast, slow), nil

	case "grid_trading":
		levels := int(base["grid_levels"])
		spacing := base["grid_spacing"]
		if levels < 2 {
			return nil, badParam(strategyType, "grid_levels must be at least 2")
		}
		if spacing <= 0 {
			return nil, badParam(strategyType, "grid_spacing must be positive")
		}
		return NewGridStrategy(levels, spacing), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategyType)
}

func badParam(strategyType, msg string) error {
	return botErrors.NewConfigError("strategy", "create",
		fmt.Sprintf("invalid parameters for strategy %q: %s", strategyType, msg))
}
