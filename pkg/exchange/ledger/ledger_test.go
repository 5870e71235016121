package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joripage/exchange-core/pkg/exchange/model"
	"github.com/joripage/exchange-core/pkg/exchange/repo"
)

// balanceStore is a minimal repo.IRepo exposing only the balance repository,
// the single dependency the ledger has.
type balanceStore struct {
	balances map[string]*model.Balance
}

func newBalanceStore() *balanceStore {
	return &balanceStore{balances: make(map[string]*model.Balance)}
}

func key(accountID uuid.UUID, ticker string) string {
	return accountID.String() + "/" + ticker
}

func (s *balanceStore) set(accountID uuid.UUID, ticker string, free, locked int64) {
	s.balances[key(accountID, ticker)] = &model.Balance{
		AccountID: accountID,
		Ticker:    ticker,
		Free:      free,
		Locked:    locked,
	}
}

func (s *balanceStore) Order() repo.IOrder           { return nil }
func (s *balanceStore) Trade() repo.ITrade           { return nil }
func (s *balanceStore) Instrument() repo.IInstrument { return nil }
func (s *balanceStore) Account() repo.IAccount       { return nil }
func (s *balanceStore) OrderEvent() repo.IOrderEvent { return nil }
func (s *balanceStore) Balance() repo.IBalance       { return (*balanceRepo)(s) }

func (s *balanceStore) RunInTx(ctx context.Context, fn func(tx repo.IRepo) error) error {
	return fn(s)
}

type balanceRepo balanceStore

func (r *balanceRepo) Get(ctx context.Context, accountID uuid.UUID, ticker string) (*model.Balance, error) {
	b, ok := r.balances[key(accountID, ticker)]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (r *balanceRepo) Adjust(ctx context.Context, accountID uuid.UUID, ticker string, freeDelta, lockedDelta int64) error {
	b, ok := r.balances[key(accountID, ticker)]
	if !ok || b.Free+freeDelta < 0 || b.Locked+lockedDelta < 0 {
		return repo.ErrBalanceGuard
	}
	b.Free += freeDelta
	b.Locked += lockedDelta
	return nil
}

func (r *balanceRepo) CreditFree(ctx context.Context, accountID uuid.UUID, ticker string, amount int64) error {
	k := key(accountID, ticker)
	b, ok := r.balances[k]
	if !ok {
		b = &model.Balance{AccountID: accountID, Ticker: ticker, UpdatedAt: time.Now()}
		r.balances[k] = b
	}
	b.Free += amount
	return nil
}

func (r *balanceRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*model.Balance, error) {
	var out []*model.Balance
	for _, b := range r.balances {
		if b.AccountID == accountID {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}

func assertBalance(t *testing.T, s *balanceStore, accountID uuid.UUID, ticker string, free, locked int64) {
	t.Helper()
	b, err := s.Balance().Get(context.Background(), accountID, ticker)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if b.Free != free || b.Locked != locked {
		t.Fatalf("balance %s: got free=%d locked=%d, want free=%d locked=%d",
			ticker, b.Free, b.Locked, free, locked)
	}
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	s := newBalanceStore()
	l := New()
	account := uuid.New()
	s.set(account, "RUB", 1000, 0)

	if err := l.Reserve(ctx, s, account, "RUB", 600); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	assertBalance(t, s, account, "RUB", 400, 600)

	err := l.Reserve(ctx, s, account, "RUB", 500)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("over-reserve got %v, want ErrInsufficientFunds", err)
	}
	assertBalance(t, s, account, "RUB", 400, 600)
}

func TestReserveMissingBalance(t *testing.T) {
	ctx := context.Background()
	s := newBalanceStore()
	l := New()

	err := l.Reserve(ctx, s, uuid.New(), "RUB", 1)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	s := newBalanceStore()
	l := New()
	account := uuid.New()
	s.set(account, "RUB", 100, 500)

	if err := l.Release(ctx, s, account, "RUB", 500); err != nil {
		t.Fatalf("release: %v", err)
	}
	assertBalance(t, s, account, "RUB", 600, 0)

	// Releasing more than was ever locked is a consistency failure.
	err := l.Release(ctx, s, account, "RUB", 1)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("got %v, want ErrInvariantViolation", err)
	}
}

func TestSettleTransferFromLocked(t *testing.T) {
	ctx := context.Background()
	s := newBalanceStore()
	l := New()
	payer := uuid.New()
	payee := uuid.New()
	s.set(payer, "RUB", 0, 900)

	if err := l.SettleTransfer(ctx, s, payer, payee, "RUB", 900, true); err != nil {
		t.Fatalf("settle: %v", err)
	}
	assertBalance(t, s, payer, "RUB", 0, 0)
	assertBalance(t, s, payee, "RUB", 900, 0)

	err := l.SettleTransfer(ctx, s, payer, payee, "RUB", 1, true)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("got %v, want ErrInvariantViolation", err)
	}
}

func TestSettleTransferFromFree(t *testing.T) {
	ctx := context.Background()
	s := newBalanceStore()
	l := New()
	payer := uuid.New()
	payee := uuid.New()
	s.set(payer, "BTC", 5, 0)

	if err := l.SettleTransfer(ctx, s, payer, payee, "BTC", 5, false); err != nil {
		t.Fatalf("settle: %v", err)
	}
	assertBalance(t, s, payer, "BTC", 0, 0)
	assertBalance(t, s, payee, "BTC", 5, 0)

	err := l.SettleTransfer(ctx, s, payer, payee, "BTC", 1, false)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
}

func TestCreditCreatesBalance(t *testing.T) {
	ctx := context.Background()
	s := newBalanceStore()
	l := New()
	account := uuid.New()

	if err := l.Credit(ctx, s, account, "RUB", 250); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Credit(ctx, s, account, "RUB", 250); err != nil {
		t.Fatalf("credit: %v", err)
	}
	assertBalance(t, s, account, "RUB", 500, 0)
}

func TestZeroAmountIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newBalanceStore()
	l := New()
	account := uuid.New()

	if err := l.Reserve(ctx, s, account, "RUB", 0); err != nil {
		t.Fatalf("reserve zero: %v", err)
	}
	if err := l.Release(ctx, s, account, "RUB", 0); err != nil {
		t.Fatalf("release zero: %v", err)
	}
	if err := l.SettleTransfer(ctx, s, account, uuid.New(), "RUB", 0, true); err != nil {
		t.Fatalf("settle zero: %v", err)
	}
	if _, err := s.Balance().Get(ctx, account, "RUB"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("balance row should not exist, got %v", err)
	}
}
