package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	botErrors "github.com/ducminhle1904/crypto-trading-engine/internal/errors"
)

// demoBaseURL is Bybit's paper-trading environment.
const demoBaseURL = "https://api-demo.bybit.com"

// Config holds the configuration for the Bybit client.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool // paper trading environment
	Category  string
}

// Client implements the exchange interface against Bybit's unified
// trading account API.
type Client struct {
	httpClient *bybit_api.Client
	category   string
	testnet    bool
	demo       bool
	connected  bool
}

// NewClient creates a new Bybit client.
func NewClient(config Config) *Client {
	var baseURL string
	switch {
	case config.Demo:
		baseURL = demoBaseURL
	case config.Testnet:
		baseURL = bybit_api.TESTNET
	default:
		baseURL = bybit_api.MAINNET
	}

	if config.Category == "" {
		config.Category = "spot"
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		category:   config.Category,
		testnet:    config.Testnet,
		demo:       config.Demo,
	}
}

// Name identifies the venue.
func (c *Client) Name() string {
	return "bybit"
}

// Environment returns a string describing the configured environment.
func (c *Client) Environment() string {
	switch {
	case c.demo:
		return "demo"
	case c.testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}

// Connect verifies credentials with a wallet query.
func (c *Client) Connect(ctx context.Context) error {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
	}
	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return botErrors.NewVenueError("bybit", "connect", err)
	}
	if _, err := serverResult(result); err != nil {
		return botErrors.NewVenueError("bybit", "connect", err)
	}
	c.connected = true
	return nil
}

// Disconnect releases venue resources. The HTTP client holds no
// persistent connection, so this only clears the connected flag.
func (c *Client) Disconnect() error {
	c.connected = false
	return nil
}

// IsConnected reports whether Connect has succeeded.
func (c *Client) IsConnected() bool {
	return c.connected
}

// GetBalance returns the tradable balance for one asset.
func (c *Client) GetBalance(ctx context.Context, asset string) (float64, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
		"coin":        asset,
	}
	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return 0, botErrors.NewVenueError("bybit", "get_balance", err)
	}

	resultBytes, err := serverResult(result)
	if err != nil {
		return 0, botErrors.NewVenueError("bybit", "get_balance", err)
	}

	var wallet struct {
		List []struct {
			Coin []struct {
				Coin          string `json:"coin"`
				WalletBalance string `json:"walletBalance"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &wallet); err != nil {
		return 0, botErrors.NewVenueError("bybit", "get_balance",
			fmt.Errorf("failed to unmarshal wallet result: %w", err))
	}

	for _, account := range wallet.List {
		for _, coin := range account.Coin {
			if coin.Coin == asset {
				return parseFloat64(coin.WalletBalance), nil
			}
		}
	}
	return 0, nil
}

// serverResult verifies a raw SDK response and returns the marshaled
// result payload.
func serverResult(response interface{}) ([]byte, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}
	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return resultBytes, nil
}

func parseFloat64(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
