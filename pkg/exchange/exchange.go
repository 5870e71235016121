// Package exchange implements the order matching and settlement engine:
// intake validates and reserves, the matcher pairs the incoming order with
// resting liquidity, settlement moves balances and books trades, all against
// a transactional store.
package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joripage/exchange-core/pkg/exchange/ledger"
	"github.com/joripage/exchange-core/pkg/exchange/model"
	"github.com/joripage/exchange-core/pkg/exchange/repo"
)

// TradeFeed receives committed trades, e.g. a kafka producer feeding the
// market-data tape. Publish failures are logged, never rolled into the match.
type TradeFeed interface {
	PublishTrade(ctx context.Context, t *model.Trade) error
}

type Config struct {
	// QuoteTicker is the instrument every order is priced in.
	QuoteTicker string
}

type Exchange struct {
	repo   repo.IRepo
	ledger *ledger.Ledger
	feed   TradeFeed
	log    *zap.Logger
	quote  string
}

func New(r repo.IRepo, cfg *Config, log *zap.Logger) *Exchange {
	if log == nil {
		log = zap.NewNop()
	}
	quote := "RUB"
	if cfg != nil && cfg.QuoteTicker != "" {
		quote = cfg.QuoteTicker
	}
	return &Exchange{
		repo:   r,
		ledger: ledger.New(),
		log:    log,
		quote:  quote,
	}
}

// SetTradeFeed attaches a feed publisher. Call before serving traffic.
func (e *Exchange) SetTradeFeed(feed TradeFeed) {
	e.feed = feed
}

// QuoteTicker returns the quote instrument orders are priced in.
func (e *Exchange) QuoteTicker() string {
	return e.quote
}

type SubmitOrderRequest struct {
	AccountID uuid.UUID
	Ticker    string
	Side      model.OrderSide
	Kind      model.OrderKind
	Quantity  int64
	// Price must be set for LIMIT orders and absent (zero) for MARKET.
	Price int64
}

type SubmitOrderResult struct {
	OrderID uuid.UUID
	Status  model.OrderStatus
	Filled  int64
	Trades  []*model.Trade
}

// SubmitOrder validates the intent, reserves funds for limit orders, books
// the order and immediately runs a match pass against resting liquidity.
func (e *Exchange) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*SubmitOrderResult, error) {
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:        uuid.New(),
		AccountID: req.AccountID,
		Ticker:    req.Ticker,
		Side:      req.Side,
		Kind:      req.Kind,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Filled:    0,
		Status:    model.OrderStatusNew,
	}

	err := e.repo.RunInTx(ctx, func(tx repo.IRepo) error {
		instrument, err := tx.Instrument().Get(ctx, req.Ticker)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInstrumentNotFound
		}
		if err != nil {
			return err
		}
		if !instrument.Active {
			return ErrInstrumentInactive
		}

		if ticker, amount := order.RequiredReservation(e.quote); amount > 0 {
			if err := e.ledger.Reserve(ctx, tx, order.AccountID, ticker, amount); err != nil {
				if errors.Is(err, ledger.ErrInsufficientFunds) {
					return ErrInsufficientFunds
				}
				return err
			}
		}

		if err := tx.Order().Insert(ctx, order); err != nil {
			return err
		}
		_, err = tx.OrderEvent().Create(ctx, model.NewOrderEventNew(order, time.Now()))
		return err
	})
	if err != nil {
		return nil, err
	}

	trades, matchErr := e.match(ctx, order)

	for _, t := range trades {
		e.publishTrade(ctx, t)
	}

	final, err := e.repo.Order().Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	result := &SubmitOrderResult{
		OrderID: final.ID,
		Status:  final.Status,
		Filled:  final.Filled,
		Trades:  trades,
	}
	// Committed fills stand even when a later fill event failed; surface the
	// failure alongside the partial result.
	if matchErr != nil {
		e.log.Error("match pass aborted",
			zap.String("order_id", order.ID.String()),
			zap.Error(matchErr))
		return result, matchErr
	}
	return result, nil
}

// CancelOrder cancels an open order of the account and releases the funds
// still reserved for it. The row lock makes the status check race-safe
// against a concurrent fill.
func (e *Exchange) CancelOrder(ctx context.Context, accountID, orderID uuid.UUID) error {
	return e.repo.RunInTx(ctx, func(tx repo.IRepo) error {
		order, err := tx.Order().GetForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if order.AccountID != accountID {
			return ErrNotOwner
		}
		if !order.CanCancel() {
			return ErrOrderNotCancellable
		}

		// Claim the transition before touching funds so a racing fill and a
		// cancel can never both win.
		if err := tx.Order().UpdateStatus(ctx, orderID, order.Status, model.OrderStatusCancelled); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return ErrOrderNotCancellable
			}
			return err
		}

		if ticker, amount := order.RemainingReservation(e.quote); amount > 0 {
			if err := e.ledger.Release(ctx, tx, order.AccountID, ticker, amount); err != nil {
				return err
			}
		}
		order.Status = model.OrderStatusCancelled
		_, err = tx.OrderEvent().Create(ctx, model.NewOrderEventCancelled(order, time.Now()))
		return err
	})
}

// GetOrder returns one order of the account.
func (e *Exchange) GetOrder(ctx context.Context, accountID, orderID uuid.UUID) (*model.Order, error) {
	order, err := e.repo.Order().Get(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.AccountID != accountID {
		return nil, ErrNotOwner
	}
	return order, nil
}

// ListOrders returns all orders of the account in arrival order.
func (e *Exchange) ListOrders(ctx context.Context, accountID uuid.UUID) ([]*model.Order, error) {
	return e.repo.Order().ListByAccount(ctx, accountID)
}

// Deposit credits an account's free balance. The admin surface sits outside
// the engine; this is the primitive it (and tests) use.
func (e *Exchange) Deposit(ctx context.Context, accountID uuid.UUID, ticker string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	return e.repo.RunInTx(ctx, func(tx repo.IRepo) error {
		return e.ledger.Credit(ctx, tx, accountID, ticker, amount)
	})
}

func (e *Exchange) publishTrade(ctx context.Context, t *model.Trade) {
	if e.feed == nil {
		return
	}
	if err := e.feed.PublishTrade(ctx, t); err != nil {
		e.log.Warn("publish trade failed",
			zap.String("trade_id", t.ID.String()),
			zap.Error(err))
	}
}

func validateSubmit(req *SubmitOrderRequest) error {
	if req.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if req.Side != model.OrderSideBuy && req.Side != model.OrderSideSell {
		return ErrInvalidSide
	}
	switch req.Kind {
	case model.OrderKindLimit:
		if req.Price <= 0 {
			return ErrInvalidPrice
		}
	case model.OrderKindMarket:
		if req.Price != 0 {
			return ErrInvalidPrice
		}
	default:
		return ErrInvalidPrice
	}
	return nil
}
