package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/joripage/exchange-core/pkg/exchange/model"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned by compare-and-set updates that matched no row,
	// meaning the record was concurrently mutated.
	ErrConflict = errors.New("concurrent modification")
	// ErrBalanceGuard is returned when a guarded balance update would drive
	// free or locked negative.
	ErrBalanceGuard = errors.New("balance guard rejected update")
)

// IRepo aggregates the per-entity repositories. RunInTx yields a repo bound
// to one database transaction; it is the explicit unit of work the ledger and
// settlement operate on.
type IRepo interface {
	Order() IOrder
	Trade() ITrade
	Balance() IBalance
	Instrument() IInstrument
	Account() IAccount
	OrderEvent() IOrderEvent

	RunInTx(ctx context.Context, fn func(tx IRepo) error) error
}

type IOrder interface {
	Insert(ctx context.Context, o *model.Order) error
	Get(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// GetForUpdate takes a row-level exclusive lock for the duration of the
	// enclosing transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// Resting returns open LIMIT orders of one side in matching priority:
	// best price first (lowest ask / highest bid), then arrival order.
	Resting(ctx context.Context, ticker string, side model.OrderSide) ([]*model.Order, error)
	// UpdateFill advances filled/status iff filled still equals
	// observedFilled and the order is not terminal. ErrConflict otherwise.
	UpdateFill(ctx context.Context, id uuid.UUID, observedFilled, newFilled int64, status model.OrderStatus) error
	// UpdateStatus moves status from->to, ErrConflict if status changed.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*model.Order, error)
	// Delete removes an order row; callers only invoke it for status NEW.
	Delete(ctx context.Context, id uuid.UUID) error
}

type ITrade interface {
	Insert(ctx context.Context, t *model.Trade) error
	Recent(ctx context.Context, ticker string, limit int) ([]*model.Trade, error)
	Since(ctx context.Context, ticker string, from time.Time) ([]*model.Trade, error)
}

type IBalance interface {
	Get(ctx context.Context, accountID uuid.UUID, ticker string) (*model.Balance, error)
	// Adjust applies free += freeDelta, locked += lockedDelta in one guarded
	// statement; ErrBalanceGuard if either amount would go negative or the
	// row does not exist.
	Adjust(ctx context.Context, accountID uuid.UUID, ticker string, freeDelta, lockedDelta int64) error
	// CreditFree adds amount to free, creating the row when missing.
	CreditFree(ctx context.Context, accountID uuid.UUID, ticker string, amount int64) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*model.Balance, error)
}

type IInstrument interface {
	Get(ctx context.Context, ticker string) (*model.Instrument, error)
	Upsert(ctx context.Context, in *model.Instrument) error
}

type IAccount interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
	Insert(ctx context.Context, a *model.Account) error
}

type IOrderEvent interface {
	Create(ctx context.Context, record *model.OrderEvent) (*model.OrderEvent, error)
	BulkCreate(ctx context.Context, records []*model.OrderEvent) ([]*model.OrderEvent, error)
}
