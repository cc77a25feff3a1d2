package engine

import (
	"context"
	"time"

	"github.com/ducminhle1904/crypto-trading-engine/internal/storage"
)

// applyFill folds one confirmed fill into the stored position. Buys
// accumulate at the weighted average cost, sells reduce the quantity
// and remove the position once it reaches zero. Applying the same fill
// parameters twice yields the same average price.
func (e *Engine) applyFill(ctx context.Context, symbol, side string, quantity, price float64) error {
	existing, err := e.store.GetPosition(ctx, e.cfg.UserID, symbol)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	if side == "BUY" {
		position := &storage.PositionRecord{
			UserID:       e.cfg.UserID,
			Symbol:       symbol,
			Quantity:     quantity,
			AveragePrice: price,
			CurrentPrice: price,
			UpdatedAt:    now,
		}
		if existing != nil {
			totalQty := existing.Quantity + quantity
			position.Quantity = totalQty
			position.AveragePrice = (existing.Quantity*existing.AveragePrice + quantity*price) / totalQty
		}
		position.TotalValue = position.Quantity * price
		cost := position.Quantity * position.AveragePrice
		position.PnL = position.TotalValue - cost
		if cost > 0 {
			position.PnLPercentage = position.PnL / cost * 100
		}
		return e.store.UpsertPosition(ctx, position)
	}

	// Selling with no recorded position leaves the book untouched.
	if existing == nil {
		return nil
	}

	remaining := existing.Quantity - quantity
	if remaining <= 0 {
		return e.store.DeletePosition(ctx, e.cfg.UserID, symbol)
	}

	existing.Quantity = remaining
	existing.CurrentPrice = price
	existing.TotalValue = remaining * price
	cost := remaining * existing.AveragePrice
	existing.PnL = existing.TotalValue - cost
	if cost > 0 {
		existing.PnLPercentage = existing.PnL / cost * 100
	}
	existing.UpdatedAt = now
	return e.store.UpsertPosition(ctx, existing)
}
