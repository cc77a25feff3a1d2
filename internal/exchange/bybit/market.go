package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	botErrors "github.com/ducminhle1904/crypto-trading-engine/internal/errors"
	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// intervalForTimeframe maps engine timeframes to Bybit kline intervals.
var intervalForTimeframe = map[string]string{
	"1m":  "1",
	"3m":  "3",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"2h":  "120",
	"4h":  "240",
	"6h":  "360",
	"12h": "720",
	"1d":  "D",
	"1w":  "W",
}

// GetMarketData fetches OHLCV bars for a symbol, oldest first.
func (c *Client) GetMarketData(ctx context.Context, symbol, timeframe string, limit int) ([]types.OHLCV, error) {
	interval, ok := intervalForTimeframe[timeframe]
	if !ok {
		return nil, botErrors.NewConfigError("bybit", "get_market_data",
			fmt.Sprintf("unsupported timeframe %q", timeframe))
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
		"interval": interval,
		"limit":    limit,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, botErrors.NewVenueError("bybit", "get_market_data", err)
	}

	resultBytes, err := serverResult(result)
	if err != nil {
		return nil, botErrors.NewVenueError("bybit", "get_market_data", err)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, botErrors.NewVenueError("bybit", "get_market_data",
			fmt.Errorf("failed to unmarshal kline result: %w", err))
	}

	// Bybit kline rows: [startTime, open, high, low, close, volume, turnover],
	// newest first.
	bars := make([]types.OHLCV, 0, len(klineResult.List))
	for _, item := range klineResult.List {
		if len(item) < 6 {
			continue
		}
		bars = append(bars, types.OHLCV{
			Timestamp: time.UnixMilli(parseInt64(item[0])),
			Open:      parseFloat64(item[1]),
			High:      parseFloat64(item[2]),
			Low:       parseFloat64(item[3]),
			Close:     parseFloat64(item[4]),
			Volume:    parseFloat64(item[5]),
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars, nil
}

// GetCurrentPrice returns the latest traded price for a symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return 0, botErrors.NewVenueError("bybit", "get_current_price", err)
	}

	resultBytes, err := serverResult(result)
	if err != nil {
		return 0, botErrors.NewVenueError("bybit", "get_current_price", err)
	}

	var tickerResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return 0, botErrors.NewVenueError("bybit", "get_current_price",
			fmt.Errorf("failed to unmarshal ticker result: %w", err))
	}
	if len(tickerResult.List) == 0 {
		return 0, botErrors.NewDataError("bybit", "get_current_price",
			fmt.Errorf("no ticker data for %s", symbol))
	}

	return parseFloat64(tickerResult.List[0].LastPrice), nil
}
