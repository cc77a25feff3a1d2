package strategy

import (
	"time"

	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// SignalType represents the direction of a trading signal.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// Signal represents a strategy's recommendation for the current bar.
type Signal struct {
	Type       SignalType             `json:"type"`
	Confidence float64                `json:"confidence"` // 0.0 to 1.0
	Price      float64                `json:"price"`
	Timestamp  time.Time              `json:"timestamp"`
	Strategy   string                 `json:"strategy"`
	Parameters map[string]float64     `json:"parameters"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Actionable reports whether the signal should be routed to execution
// given the configured minimum confidence.
func (s *Signal) Actionable(minConfidence float64) bool {
	return s != nil && s.Type != SignalHold && s.Confidence >= minConfidence
}

// Strategy defines the interface all trading strategies implement.
// Evaluate is a pure function over the supplied price history: it never
// mutates state, performs I/O, or fails. A series shorter than
// MinDataPoints yields a HOLD signal with confidence 0.
type Strategy interface {
	// Evaluate analyzes the price history and returns a trading signal.
	Evaluate(data []types.OHLCV) *Signal

	// Name returns the strategy display name.
	Name() string

	// MinDataPoints returns the minimum number of bars required for a
	// meaningful evaluation.
	MinDataPoints() int

	// Parameters returns a snapshot of the strategy configuration.
	Parameters() map[string]float64
}

// hold builds the degraded signal every strategy returns when the
// supplied history is too short or an indicator cannot be computed.
func hold(name string, params map[string]float64, price float64, ts time.Time) *Signal {
	return &Signal{
		Type:       SignalHold,
		Confidence: 0,
		Price:      price,
		Timestamp:  ts,
		Strategy:   name,
		Parameters: params,
	}
}

// lastBar returns the close price and timestamp of the most recent bar,
// or zero values for an empty series.
func lastBar(data []types.OHLCV) (float64, time.Time) {
	if len(data) == 0 {
		return 0, time.Now().UTC()
	}
	last := data[len(data)-1]
	return last.Close, last.Timestamp
}
