package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything the engine consumes but does not own:
// venue credentials, global risk limits, and loop parameters.
type Config struct {
	Environment string
	LogLevel    string

	Exchange struct {
		Name    string
		APIKey  string
		Secret  string
		Testnet bool
		Demo    bool
	}

	Engine struct {
		UserID          int64
		QuoteCurrency   string
		Timeframe       string
		CandleLimit     int
		PollInterval    time.Duration
		MinConfidence   float64
		MaxRiskPerTrade float64
	}

	Strategy struct {
		Type   string
		Symbol string
	}

	Risk struct {
		MaxPositionSize      float64
		MaxPortfolioRisk     float64
		MaxDailyLoss         float64
		MaxDrawdown          float64
		CorrelationLimit     float64
		VolatilityAdjustment bool
	}

	Storage struct {
		Path string
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}
}

// Load reads configuration from environment variables, falling back to
// the stock defaults.
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	cfg.Exchange.Name = getEnv("EXCHANGE_NAME", "bybit")
	cfg.Exchange.APIKey = getEnv("EXCHANGE_API_KEY", "")
	cfg.Exchange.Secret = getEnv("EXCHANGE_SECRET", "")
	cfg.Exchange.Testnet = getEnvBool("EXCHANGE_TESTNET", true)
	cfg.Exchange.Demo = getEnvBool("EXCHANGE_DEMO", false)

	cfg.Engine.UserID = int64(getEnvInt("USER_ID", 1))
	cfg.Engine.QuoteCurrency = getEnv("QUOTE_CURRENCY", "USDT")
	cfg.Engine.Timeframe = getEnv("TIMEFRAME", "1h")
	cfg.Engine.CandleLimit = getEnvInt("CANDLE_LIMIT", 200)
	cfg.Engine.PollInterval = getEnvDuration("POLL_INTERVAL", 30*time.Second)
	cfg.Engine.MinConfidence = getEnvFloat("MIN_CONFIDENCE", 0.6)
	cfg.Engine.MaxRiskPerTrade = getEnvFloat("MAX_RISK_PER_TRADE", 0.02)

	cfg.Strategy.Type = getEnv("STRATEGY_TYPE", "rsi")
	cfg.Strategy.Symbol = getEnv("TRADING_SYMBOL", "BTCUSDT")

	cfg.Risk.MaxPositionSize = getEnvFloat("MAX_POSITION_SIZE", 0.10)
	cfg.Risk.MaxPortfolioRisk = getEnvFloat("MAX_PORTFOLIO_RISK", 0.02)
	cfg.Risk.MaxDailyLoss = getEnvFloat("MAX_DAILY_LOSS", 0.05)
	cfg.Risk.MaxDrawdown = getEnvFloat("MAX_DRAWDOWN", 0.15)
	cfg.Risk.CorrelationLimit = getEnvFloat("CORRELATION_LIMIT", 0.70)
	cfg.Risk.VolatilityAdjustment = getEnvBool("VOLATILITY_ADJUSTMENT", true)

	cfg.Storage.Path = getEnv("STORAGE_PATH", "data/trading.db")

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
