package exchange

import (
	"context"
	"time"

	"github.com/ducminhle1904/crypto-trading-engine/pkg/types"
)

// Side represents the direction of an order.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// OrderType represents how an order executes.
type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// OrderStatus represents the venue-reported state of an order.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "New"
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled"
	OrderStatusFilled          OrderStatus = "Filled"
	OrderStatusCancelled       OrderStatus = "Cancelled"
	OrderStatusRejected        OrderStatus = "Rejected"
)

// Order is the venue's view of one submitted order.
type Order struct {
	ID        string
	Symbol    string
	Side      Side
	Type      OrderType
	Quantity  float64
	Price     float64
	FilledQty float64
	AvgPrice  float64
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filled reports whether the order is fully executed.
func (o *Order) Filled() bool {
	return o != nil && o.Status == OrderStatusFilled
}

// Exchange is the venue collaborator the engine trades through. Every
// call is blocking; implementations own their own timeouts. The engine
// treats an error return as "no data this cycle", never as fatal.
type Exchange interface {
	// Connect verifies venue connectivity and credentials.
	Connect(ctx context.Context) error

	// Disconnect releases venue resources.
	Disconnect() error

	// Name identifies the venue.
	Name() string

	// GetBalance returns the tradable balance for one asset.
	GetBalance(ctx context.Context, asset string) (float64, error)

	// GetCurrentPrice returns the latest traded price for a symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)

	// GetMarketData returns up to limit OHLCV bars for a symbol at the
	// given timeframe, oldest first.
	GetMarketData(ctx context.Context, symbol, timeframe string, limit int) ([]types.OHLCV, error)

	// PlaceOrder submits an order. Price is ignored for market orders.
	PlaceOrder(ctx context.Context, symbol string, side Side, quantity, price float64, orderType OrderType) (*Order, error)

	// GetOrderStatus returns the current state of a submitted order.
	GetOrderStatus(ctx context.Context, symbol, orderID string) (*Order, error)

	// CancelOrder cancels an open order.
	CancelOrder(ctx context.Context, symbol, orderID string) error
}
