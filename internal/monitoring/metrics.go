package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_engine_trades_total",
			Help: "Total number of trades executed",
		},
		[]string{"symbol", "side", "strategy"},
	)

	tradeValue = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trading_engine_trade_value",
			Help:    "Distribution of executed trade values",
			Buckets: prometheus.ExponentialBuckets(1, 10, 8),
		},
		[]string{"symbol"},
	)

	blockedTradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_engine_blocked_trades_total",
			Help: "Trades blocked by the risk gate",
		},
		[]string{"symbol"},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trading_engine_current_price",
			Help: "Latest observed price per symbol",
		},
		[]string{"symbol"},
	)

	// Strategy metrics
	signalConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trading_engine_signal_confidence",
			Help: "Last signal confidence per strategy",
		},
		[]string{"strategy", "signal"},
	)

	// Engine metrics
	engineState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trading_engine_state",
			Help: "Engine lifecycle state (1 for the active state)",
		},
		[]string{"state"},
	)

	cyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trading_engine_cycles_total",
			Help: "Completed polling cycles",
		},
	)

	portfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trading_engine_portfolio_value",
			Help: "Total portfolio value in quote currency",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_engine_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeValue)
	prometheus.MustRegister(blockedTradesTotal)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(signalConfidence)
	prometheus.MustRegister(engineState)
	prometheus.MustRegister(cyclesTotal)
	prometheus.MustRegister(portfolioValue)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordTrade records an executed trade.
func RecordTrade(symbol, side, strategy string, value float64) {
	tradesTotal.WithLabelValues(symbol, side, strategy).Inc()
	tradeValue.WithLabelValues(symbol).Observe(value)
}

// RecordBlockedTrade records a trade stopped by the risk gate.
func RecordBlockedTrade(symbol string) {
	blockedTradesTotal.WithLabelValues(symbol).Inc()
}

// RecordPrice records the latest observed price for a symbol.
func RecordPrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// RecordSignal records a strategy's latest signal confidence.
func RecordSignal(strategy, signal string, confidence float64) {
	signalConfidence.WithLabelValues(strategy, signal).Set(confidence)
}

// RecordEngineState marks the given lifecycle state active.
func RecordEngineState(state string) {
	for _, s := range []string{"STOPPED", "RUNNING", "PAUSED", "ERROR"} {
		value := 0.0
		if s == state {
			value = 1.0
		}
		engineState.WithLabelValues(s).Set(value)
	}
}

// RecordCycle counts one completed polling cycle.
func RecordCycle() {
	cyclesTotal.Inc()
}

// RecordPortfolioValue records the current portfolio value.
func RecordPortfolioValue(value float64) {
	portfolioValue.Set(value)
}

// RecordError counts one error by category.
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
