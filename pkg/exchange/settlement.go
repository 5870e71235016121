package exchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joripage/exchange-core/pkg/exchange/ledger"
	"github.com/joripage/exchange-core/pkg/exchange/model"
	"github.com/joripage/exchange-core/pkg/exchange/repo"
)

// settleFill executes one fill event between the taker and one maker:
// two balance moves per side, one trade insert, two order advances and the
// audit events, all in a single transaction. On a concurrent-fill conflict
// the event is retried against refreshed state a bounded number of times,
// then the maker is skipped.
func (e *Exchange) settleFill(ctx context.Context, taker, maker *model.Order) (*model.Trade, error) {
	for attempt := 0; attempt < maxFillRetries; attempt++ {
		trade, err := e.trySettleFill(ctx, taker.ID, maker.ID)
		if errors.Is(err, repo.ErrConflict) {
			continue
		}
		return trade, err
	}
	return nil, errSkipMaker
}

func (e *Exchange) trySettleFill(ctx context.Context, takerID, makerID uuid.UUID) (*model.Trade, error) {
	var trade *model.Trade

	err := e.repo.RunInTx(ctx, func(tx repo.IRepo) error {
		taker, maker, err := lockPair(ctx, tx, takerID, makerID)
		if err != nil {
			return err
		}

		// Re-check under the lock: a concurrent pass may have consumed the
		// maker (or cancelled it) between snapshot and now.
		if !maker.Open() || maker.Remaining() <= 0 || maker.Kind != model.OrderKindLimit {
			return errSkipMaker
		}
		if !taker.Open() || taker.Remaining() <= 0 {
			return errSkipMaker
		}
		if !crosses(taker, maker) {
			return errSkipMaker
		}

		qty := taker.Remaining()
		if maker.Remaining() < qty {
			qty = maker.Remaining()
		}
		// Price-maker convention: the resting order sets the trade price.
		price := maker.Price

		buyOrder, sellOrder := taker, maker
		if taker.Side == model.OrderSideSell {
			buyOrder, sellOrder = maker, taker
		}

		// Claim the liquidity first; the CAS doubles as the no-double-spend
		// guard when the row lock is not available (e.g. in-memory stores).
		if err := tx.Order().UpdateFill(ctx, maker.ID, maker.Filled, maker.Filled+qty, maker.StatusForFill(maker.Filled+qty)); err != nil {
			return err
		}
		if err := tx.Order().UpdateFill(ctx, taker.ID, taker.Filled, taker.Filled+qty, taker.StatusForFill(taker.Filled+qty)); err != nil {
			return err
		}

		if err := e.settleLegs(ctx, tx, buyOrder, sellOrder, price, qty); err != nil {
			return err
		}

		now := time.Now()
		trade = &model.Trade{
			ID:          uuid.New(),
			Ticker:      maker.Ticker,
			BuyerID:     buyOrder.AccountID,
			SellerID:    sellOrder.AccountID,
			BuyOrderID:  buyOrder.ID,
			SellOrderID: sellOrder.ID,
			TakerSide:   taker.Side,
			Price:       price,
			Quantity:    qty,
			CreatedAt:   now,
		}
		if err := tx.Trade().Insert(ctx, trade); err != nil {
			return err
		}

		_, err = tx.OrderEvent().BulkCreate(ctx, []*model.OrderEvent{
			model.NewOrderEventTrade(taker.ID, qty, price, now),
			model.NewOrderEventTrade(maker.ID, qty, price, now),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// settleLegs moves the funds of one fill.
//
// Buyer quote leg: a limit buyer consumes its reservation at the execution
// price and gets the favorable-price surplus (own limit minus execution)
// released back to free; a market buyer pays from free, guarded. Buyer then
// receives the base quantity. Seller mirrors it: a limit seller's base
// quantity was reserved, a market seller pays base from free; seller
// receives the quote proceeds.
func (e *Exchange) settleLegs(ctx context.Context, tx repo.IRepo, buyOrder, sellOrder *model.Order, price, qty int64) error {
	base := buyOrder.Ticker
	quoteAmount := price * qty

	buyerReserved := buyOrder.Kind == model.OrderKindLimit
	if err := e.ledger.SettleTransfer(ctx, tx, buyOrder.AccountID, sellOrder.AccountID, e.quote, quoteAmount, buyerReserved); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return fmt.Errorf("market buyer underfunded: %w", err)
		}
		return err
	}
	if buyerReserved && buyOrder.Price > price {
		surplus := (buyOrder.Price - price) * qty
		if err := e.ledger.Release(ctx, tx, buyOrder.AccountID, e.quote, surplus); err != nil {
			return err
		}
	}

	sellerReserved := sellOrder.Kind == model.OrderKindLimit
	return e.ledger.SettleTransfer(ctx, tx, sellOrder.AccountID, buyOrder.AccountID, base, qty, sellerReserved)
}

// lockPair takes the row locks for both orders in a deterministic order so
// two concurrent passes over the same pair cannot deadlock.
func lockPair(ctx context.Context, tx repo.IRepo, takerID, makerID uuid.UUID) (taker, maker *model.Order, err error) {
	first, second := takerID, makerID
	if bytes.Compare(makerID[:], takerID[:]) < 0 {
		first, second = makerID, takerID
	}

	a, err := tx.Order().GetForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := tx.Order().GetForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	if a.ID == takerID {
		return a, b, nil
	}
	return b, a, nil
}
