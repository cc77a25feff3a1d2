package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/joho/godotenv"

	"github.com/ducminhle1904/crypto-trading-engine/internal/config"
	"github.com/ducminhle1904/crypto-trading-engine/internal/engine"
	"github.com/ducminhle1904/crypto-trading-engine/internal/exchange/bybit"
	"github.com/ducminhle1904/crypto-trading-engine/internal/logger"
	"github.com/ducminhle1904/crypto-trading-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-trading-engine/internal/risk"
	"github.com/ducminhle1904/crypto-trading-engine/internal/storage"
)

func main() {
	var (
		envFile      = flag.String("env", ".env", "Environment file path (default: .env)")
		symbol       = flag.String("symbol", "", "Trading symbol (e.g. BTCUSDT) - overrides env")
		strategyType = flag.String("strategy", "", "Strategy type (rsi, macd, bollinger, ma_crossover, grid_trading) - overrides env")
		demo         = flag.Bool("demo", true, "Use demo trading environment - paper trading (default: true)")
	)
	flag.Parse()

	if err := loadEnvFile(*envFile); err != nil {
		log.Printf("Warning: Could not load .env file (%v), checking environment variables...", err)
	}

	fmt.Println("🚀 Trading Engine Starting...")

	cfg := config.Load()
	if *symbol != "" {
		cfg.Strategy.Symbol = *symbol
	}
	if *strategyType != "" {
		cfg.Strategy.Type = *strategyType
	}
	if *demo {
		cfg.Exchange.Demo = true
		cfg.Exchange.Testnet = false
	}

	if cfg.Exchange.APIKey == "" || cfg.Exchange.Secret == "" {
		log.Fatal("EXCHANGE_API_KEY and EXCHANGE_SECRET are required (set in environment or .env)")
	}

	appLogger, err := logger.New("trading_engine")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Close()

	store, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	venue := bybit.NewClient(bybit.Config{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.Secret,
		Testnet:   cfg.Exchange.Testnet,
		Demo:      cfg.Exchange.Demo,
	})

	riskManager := risk.NewManager(risk.Limits{
		MaxPositionSize:      cfg.Risk.MaxPositionSize,
		MaxPortfolioRisk:     cfg.Risk.MaxPortfolioRisk,
		MaxDailyLoss:         cfg.Risk.MaxDailyLoss,
		MaxDrawdown:          cfg.Risk.MaxDrawdown,
		CorrelationLimit:     cfg.Risk.CorrelationLimit,
		VolatilityAdjustment: cfg.Risk.VolatilityAdjustment,
	}, nil)

	health := monitoring.NewHealthChecker()

	bot := engine.New(engine.Config{
		UserID:          cfg.Engine.UserID,
		Exchange:        cfg.Exchange.Name,
		QuoteCurrency:   cfg.Engine.QuoteCurrency,
		Timeframe:       cfg.Engine.Timeframe,
		CandleLimit:     cfg.Engine.CandleLimit,
		PollInterval:    cfg.Engine.PollInterval,
		MinConfidence:   cfg.Engine.MinConfidence,
		MaxRiskPerTrade: cfg.Engine.MaxRiskPerTrade,
		MaxDailyLoss:    cfg.Risk.MaxDailyLoss,
		MaxDrawdown:     cfg.Risk.MaxDrawdown,
	}, venue, store, riskManager, appLogger, health)

	strategyID := fmt.Sprintf("%s-%s", cfg.Strategy.Type, cfg.Strategy.Symbol)
	if err := bot.AddStrategy(strategyID, cfg.Strategy.Type, nil, cfg.Strategy.Symbol); err != nil {
		log.Fatalf("Failed to add strategy: %v", err)
	}

	startMonitoringServers(cfg, health)

	printStartupInfo(cfg, venue)

	ctx := context.Background()
	if err := bot.Start(ctx); err != nil {
		log.Fatalf("Failed to start trading engine: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	fmt.Println("\n🛑 Shutdown signal received...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := bot.Stop(stopCtx); err != nil {
		log.Printf("Error stopping trading engine: %v", err)
	}

	printShutdownSummary(bot.Status())
	fmt.Println("✅ Trading engine stopped successfully")
}

// loadEnvFile loads environment variables from a file
func loadEnvFile(envFile string) error {
	if _, err := os.Stat(envFile); err == nil {
		return godotenv.Load(envFile)
	}
	return fmt.Errorf("env file %s not found", envFile)
}

// startMonitoringServers serves Prometheus metrics and the health probe
// on their configured ports.
func startMonitoringServers(cfg *config.Config, health *monitoring.HealthChecker) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", monitoring.MetricsHandler())
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
		if err := http.ListenAndServe(addr, metricsMux); err != nil {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.Handle("/health", health)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.HealthPort)
		if err := http.ListenAndServe(addr, healthMux); err != nil {
			log.Printf("Health server stopped: %v", err)
		}
	}()
}

// printStartupInfo prints initial startup information
func printStartupInfo(cfg *config.Config, venue *bybit.Client) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("ENGINE INITIALIZATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📊 Symbol", cfg.Strategy.Symbol},
		{"🧠 Strategy", cfg.Strategy.Type},
		{"⏰ Timeframe", cfg.Engine.Timeframe},
		{"🔁 Poll Interval", cfg.Engine.PollInterval.String()},
		{"🏪 Exchange", venue.Name()},
		{"🔧 Environment", venue.Environment()},
		{"🎯 Min Confidence", fmt.Sprintf("%.2f", cfg.Engine.MinConfidence)},
		{"⚖️ Risk Per Trade", fmt.Sprintf("%.2f%%", cfg.Engine.MaxRiskPerTrade*100)},
		{"📉 Max Daily Loss", fmt.Sprintf("%.2f%%", cfg.Risk.MaxDailyLoss*100)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 35, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// printShutdownSummary prints the session's final counters
func printShutdownSummary(status engine.Status) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("SESSION SUMMARY")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🪪 Session", status.SessionID},
		{"🔢 Total Trades", fmt.Sprintf("%d", status.TotalTrades)},
		{"💵 Start Balance", fmt.Sprintf("$%.2f", status.StartBalance)},
		{"💰 Final Balance", fmt.Sprintf("$%.2f", status.CurrentBalance)},
		{"📈 Unrealized P&L", fmt.Sprintf("$%.2f", status.TotalPnL)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
}
