package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	botErrors "github.com/ducminhle1904/crypto-trading-engine/internal/errors"
	"github.com/ducminhle1904/crypto-trading-engine/internal/exchange"
)

// PlaceOrder submits an order to Bybit. Market orders ignore price;
// limit orders default to GTC.
func (c *Client) PlaceOrder(ctx context.Context, symbol string, side exchange.Side, quantity, price float64, orderType exchange.OrderType) (*exchange.Order, error) {
	if symbol == "" {
		return nil, botErrors.NewConfigError("bybit", "place_order", "symbol is required")
	}
	if quantity <= 0 {
		return nil, botErrors.NewConfigError("bybit", "place_order", "quantity must be positive")
	}
	if orderType == exchange.OrderTypeLimit && price <= 0 {
		return nil, botErrors.NewConfigError("bybit", "place_order", "price is required for limit orders")
	}

	params := map[string]interface{}{
		"category":  c.category,
		"symbol":    symbol,
		"side":      string(side),
		"orderType": string(orderType),
		"qty":       formatQuantity(quantity),
	}
	if orderType == exchange.OrderTypeLimit {
		params["price"] = formatQuantity(price)
		params["timeInForce"] = "GTC"
	}
	if c.category == "spot" && orderType == exchange.OrderTypeMarket {
		// Spot market orders size in base coin so quantities line up
		// with the position bookkeeping.
		params["marketUnit"] = "baseCoin"
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return nil, botErrors.NewVenueError("bybit", "place_order", err)
	}

	resultBytes, err := serverResult(result)
	if err != nil {
		return nil, botErrors.NewVenueError("bybit", "place_order", err)
	}

	var placed struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := json.Unmarshal(resultBytes, &placed); err != nil {
		return nil, botErrors.NewVenueError("bybit", "place_order",
			fmt.Errorf("failed to unmarshal order result: %w", err))
	}

	return &exchange.Order{
		ID:        placed.OrderID,
		Symbol:    symbol,
		Side:      side,
		Type:      orderType,
		Quantity:  quantity,
		Price:     price,
		Status:    exchange.OrderStatusNew,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// GetOrderStatus returns the current state of a submitted order. Orders
// no longer in the open set are looked up in history.
func (c *Client) GetOrderStatus(ctx context.Context, symbol, orderID string) (*exchange.Order, error) {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	if err != nil {
		return nil, botErrors.NewVenueError("bybit", "get_order_status", err)
	}
	if order, err := c.findOrder(result, orderID); err == nil && order != nil {
		return order, nil
	}

	result, err = c.httpClient.NewUtaBybitServiceWithParams(params).GetOrderHistory(ctx)
	if err != nil {
		return nil, botErrors.NewVenueError("bybit", "get_order_status", err)
	}
	order, err := c.findOrder(result, orderID)
	if err != nil {
		return nil, botErrors.NewVenueError("bybit", "get_order_status", err)
	}
	if order == nil {
		return nil, botErrors.NewDataError("bybit", "get_order_status",
			fmt.Errorf("order %s not found", orderID))
	}
	return order, nil
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
	if err != nil {
		return botErrors.NewVenueError("bybit", "cancel_order", err)
	}
	if _, err := serverResult(result); err != nil {
		return botErrors.NewVenueError("bybit", "cancel_order", err)
	}
	return nil
}

// findOrder parses an order-list response and picks out one order id.
func (c *Client) findOrder(response interface{}, orderID string) (*exchange.Order, error) {
	resultBytes, err := serverResult(response)
	if err != nil {
		return nil, err
	}

	var listResult struct {
		List []struct {
			OrderID     string `json:"orderId"`
			Symbol      string `json:"symbol"`
			Side        string `json:"side"`
			OrderType   string `json:"orderType"`
			Qty         string `json:"qty"`
			Price       string `json:"price"`
			CumExecQty  string `json:"cumExecQty"`
			AvgPrice    string `json:"avgPrice"`
			OrderStatus string `json:"orderStatus"`
			CreatedTime string `json:"createdTime"`
			UpdatedTime string `json:"updatedTime"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &listResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order list: %w", err)
	}

	for _, item := range listResult.List {
		if item.OrderID != orderID {
			continue
		}
		return &exchange.Order{
			ID:        item.OrderID,
			Symbol:    item.Symbol,
			Side:      exchange.Side(item.Side),
			Type:      exchange.OrderType(item.OrderType),
			Quantity:  parseFloat64(item.Qty),
			Price:     parseFloat64(item.Price),
			FilledQty: parseFloat64(item.CumExecQty),
			AvgPrice:  parseFloat64(item.AvgPrice),
			Status:    exchange.OrderStatus(item.OrderStatus),
			CreatedAt: time.UnixMilli(parseInt64(item.CreatedTime)),
			UpdatedAt: time.UnixMilli(parseInt64(item.UpdatedTime)),
		}, nil
	}
	return nil, nil
}

// formatQuantity renders a float without exponent notation, trimmed to
// the precision Bybit accepts.
func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
