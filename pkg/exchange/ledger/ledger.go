// Package ledger holds per-(account, instrument) balances with a free and a
// locked amount. Every operation takes the transaction-bound repo as an
// explicit unit of work so balance moves always commit or roll back together
// with the order state they accompany.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/joripage/exchange-core/pkg/exchange/repo"
)

var (
	// ErrInsufficientFunds means free < amount on a reserve or debit.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvariantViolation means locked < amount on a release or locked
	// debit. Callers reserve before they consume, so this is an internal
	// consistency failure, never a user-facing rejection.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)

type Ledger struct{}

func New() *Ledger {
	return &Ledger{}
}

// Reserve moves amount from free to locked.
func (l *Ledger) Reserve(ctx context.Context, uow repo.IRepo, accountID uuid.UUID, ticker string, amount int64) error {
	if amount == 0 {
		return nil
	}
	err := uow.Balance().Adjust(ctx, accountID, ticker, -amount, amount)
	if errors.Is(err, repo.ErrBalanceGuard) {
		return ErrInsufficientFunds
	}
	return err
}

// Release moves amount from locked back to free.
func (l *Ledger) Release(ctx context.Context, uow repo.IRepo, accountID uuid.UUID, ticker string, amount int64) error {
	if amount == 0 {
		return nil
	}
	err := uow.Balance().Adjust(ctx, accountID, ticker, amount, -amount)
	if errors.Is(err, repo.ErrBalanceGuard) {
		return fmt.Errorf("%w: release %d %s for account %s", ErrInvariantViolation, amount, ticker, accountID)
	}
	return err
}

// SettleTransfer debits amount from the payer (locked when the funds were
// reserved, free otherwise) and credits the receiver's free balance.
func (l *Ledger) SettleTransfer(ctx context.Context, uow repo.IRepo, from, to uuid.UUID, ticker string, amount int64, fromLocked bool) error {
	if amount == 0 {
		return nil
	}

	var err error
	if fromLocked {
		err = uow.Balance().Adjust(ctx, from, ticker, 0, -amount)
		if errors.Is(err, repo.ErrBalanceGuard) {
			return fmt.Errorf("%w: consume %d locked %s for account %s", ErrInvariantViolation, amount, ticker, from)
		}
	} else {
		err = uow.Balance().Adjust(ctx, from, ticker, -amount, 0)
		if errors.Is(err, repo.ErrBalanceGuard) {
			return ErrInsufficientFunds
		}
	}
	if err != nil {
		return err
	}

	return uow.Balance().CreditFree(ctx, to, ticker, amount)
}

// Credit adds amount to the account's free balance, creating the balance row
// when missing. Settlement credits and deposits go through here.
func (l *Ledger) Credit(ctx context.Context, uow repo.IRepo, accountID uuid.UUID, ticker string, amount int64) error {
	if amount == 0 {
		return nil
	}
	return uow.Balance().CreditFree(ctx, accountID, ticker, amount)
}
