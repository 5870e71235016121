package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joripage/exchange-core/pkg/exchange/model"
	"github.com/joripage/exchange-core/pkg/exchange/repo"
)

// maxFillRetries bounds how often one maker is retried after a concurrent
// fill conflict before the matcher moves to the next candidate.
const maxFillRetries = 3

// errSkipMaker aborts one fill event without aborting the pass: the maker is
// no longer eligible (filled, cancelled, or claimed by a concurrent pass).
var errSkipMaker = errors.New("maker no longer eligible")

// match runs one matching pass for the taker against resting opposite
// orders. Each fill event settles in its own transaction; committed events
// stand even if a later one fails.
func (e *Exchange) match(ctx context.Context, taker *model.Order) ([]*model.Trade, error) {
	makers, err := e.repo.Order().Resting(ctx, taker.Ticker, taker.Side.Opposite())
	if err != nil {
		return nil, fmt.Errorf("load resting orders: %w", err)
	}

	var trades []*model.Trade
	remaining := taker.Remaining()

	for _, maker := range makers {
		if remaining <= 0 {
			break
		}
		if !crosses(taker, maker) {
			// Candidates arrive best price first, so the first maker that
			// does not cross ends the scan for a limit taker.
			break
		}

		trade, err := e.settleFill(ctx, taker, maker)
		if errors.Is(err, errSkipMaker) {
			continue
		}
		if err != nil {
			// The order keeps its last committed status; no rejection is
			// recorded for a failed pass.
			return trades, fmt.Errorf("%w: %v", ErrSettlementFailure, err)
		}

		trades = append(trades, trade)
		taker.Filled += trade.Quantity
		taker.Status = taker.StatusForFill(taker.Filled)
		remaining = taker.Remaining()
	}

	e.finalizeMarketTaker(ctx, taker, trades)
	return trades, nil
}

// crosses reports whether the taker may execute against the maker. A market
// taker always crosses; a limit taker needs buy price >= ask, sell <= bid.
func crosses(taker, maker *model.Order) bool {
	if taker.Kind == model.OrderKindMarket {
		return true
	}
	if taker.Side == model.OrderSideBuy {
		return taker.Price >= maker.Price
	}
	return taker.Price <= maker.Price
}

// finalizeMarketTaker applies the market-order remainder policy: zero fills
// reject the order outright; a partial fill stands as PARTIALLY_FILLED with
// the unfilled remainder dropped. Limit remainders simply stay resting.
func (e *Exchange) finalizeMarketTaker(ctx context.Context, taker *model.Order, trades []*model.Trade) {
	if taker.Kind != model.OrderKindMarket || len(trades) > 0 {
		return
	}

	err := e.repo.RunInTx(ctx, func(tx repo.IRepo) error {
		if err := tx.Order().UpdateStatus(ctx, taker.ID, model.OrderStatusNew, model.OrderStatusRejected); err != nil {
			return err
		}
		taker.Status = model.OrderStatusRejected
		_, err := tx.OrderEvent().Create(ctx, model.NewOrderEventRejected(taker, time.Now()))
		return err
	})
	if err != nil && !errors.Is(err, repo.ErrConflict) {
		e.log.Error("reject market order failed",
			zap.String("order_id", taker.ID.String()),
			zap.Error(err))
	}
}
