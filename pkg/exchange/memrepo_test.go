package exchange

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joripage/exchange-core/pkg/exchange/model"
	"github.com/joripage/exchange-core/pkg/exchange/repo"
)

// memRepo is an in-memory repo.IRepo so engine tests run without postgres.
// Every operation is serialized by one mutex, which makes the CAS updates
// atomic the way single UPDATE statements are.
type memRepo struct {
	st *memState
}

type balanceKey struct {
	account uuid.UUID
	ticker  string
}

type memState struct {
	mu          sync.Mutex
	seq         int64
	orders      map[uuid.UUID]model.Order
	trades      []model.Trade
	balances    map[balanceKey]model.Balance
	instruments map[string]model.Instrument
	accounts    map[uuid.UUID]model.Account
	events      []model.OrderEvent
}

func newMemRepo() *memRepo {
	return &memRepo{
		st: &memState{
			orders:      make(map[uuid.UUID]model.Order),
			balances:    make(map[balanceKey]model.Balance),
			instruments: make(map[string]model.Instrument),
			accounts:    make(map[uuid.UUID]model.Account),
		},
	}
}

func (r *memRepo) Order() repo.IOrder           { return (*memOrderRepo)(r) }
func (r *memRepo) Trade() repo.ITrade           { return (*memTradeRepo)(r) }
func (r *memRepo) Balance() repo.IBalance       { return (*memBalanceRepo)(r) }
func (r *memRepo) Instrument() repo.IInstrument { return (*memInstrumentRepo)(r) }
func (r *memRepo) Account() repo.IAccount       { return (*memAccountRepo)(r) }
func (r *memRepo) OrderEvent() repo.IOrderEvent { return (*memOrderEventRepo)(r) }

// RunInTx runs fn against the same store. There is no rollback; the engine
// claims order state via CAS before it moves funds, which keeps the fake
// consistent under the interleavings the tests exercise.
func (r *memRepo) RunInTx(ctx context.Context, fn func(tx repo.IRepo) error) error {
	return fn(r)
}

type memOrderRepo memRepo

func (r *memOrderRepo) Insert(ctx context.Context, o *model.Order) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	r.st.seq++
	o.Seq = r.st.seq
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	r.st.orders[o.ID] = *o
	return nil
}

func (r *memOrderRepo) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	o, ok := r.st.orders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &o, nil
}

func (r *memOrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.Get(ctx, id)
}

func (r *memOrderRepo) Resting(ctx context.Context, ticker string, side model.OrderSide) ([]*model.Order, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var out []*model.Order
	for _, o := range r.st.orders {
		if o.Ticker != ticker || o.Side != side || o.Kind != model.OrderKindLimit || !o.Open() {
			continue
		}
		c := o
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			if side == model.OrderSideBuy {
				return out[i].Price > out[j].Price
			}
			return out[i].Price < out[j].Price
		}
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *memOrderRepo) UpdateFill(ctx context.Context, id uuid.UUID, observedFilled, newFilled int64, status model.OrderStatus) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	o, ok := r.st.orders[id]
	if !ok || o.Filled != observedFilled || !o.Open() {
		return repo.ErrConflict
	}
	o.Filled = newFilled
	o.Status = status
	o.UpdatedAt = time.Now()
	r.st.orders[id] = o
	return nil
}

func (r *memOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	o, ok := r.st.orders[id]
	if !ok || o.Status != from {
		return repo.ErrConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	r.st.orders[id] = o
	return nil
}

func (r *memOrderRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*model.Order, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var out []*model.Order
	for _, o := range r.st.orders {
		if o.AccountID == accountID {
			c := o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *memOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.orders[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.st.orders, id)
	return nil
}

type memTradeRepo memRepo

func (r *memTradeRepo) Insert(ctx context.Context, t *model.Trade) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	r.st.trades = append(r.st.trades, *t)
	return nil
}

func (r *memTradeRepo) Recent(ctx context.Context, ticker string, limit int) ([]*model.Trade, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var out []*model.Trade
	for i := len(r.st.trades) - 1; i >= 0 && len(out) < limit; i-- {
		if r.st.trades[i].Ticker == ticker {
			c := r.st.trades[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memTradeRepo) Since(ctx context.Context, ticker string, from time.Time) ([]*model.Trade, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var out []*model.Trade
	for _, t := range r.st.trades {
		if t.Ticker == ticker && !t.CreatedAt.Before(from) {
			c := t
			out = append(out, &c)
		}
	}
	return out, nil
}

type memBalanceRepo memRepo

func (r *memBalanceRepo) Get(ctx context.Context, accountID uuid.UUID, ticker string) (*model.Balance, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	b, ok := r.st.balances[balanceKey{accountID, ticker}]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &b, nil
}

func (r *memBalanceRepo) Adjust(ctx context.Context, accountID uuid.UUID, ticker string, freeDelta, lockedDelta int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	key := balanceKey{accountID, ticker}
	b, ok := r.st.balances[key]
	if !ok || b.Free+freeDelta < 0 || b.Locked+lockedDelta < 0 {
		return repo.ErrBalanceGuard
	}
	b.Free += freeDelta
	b.Locked += lockedDelta
	b.UpdatedAt = time.Now()
	r.st.balances[key] = b
	return nil
}

func (r *memBalanceRepo) CreditFree(ctx context.Context, accountID uuid.UUID, ticker string, amount int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	key := balanceKey{accountID, ticker}
	b := r.st.balances[key]
	b.AccountID = accountID
	b.Ticker = ticker
	b.Free += amount
	b.UpdatedAt = time.Now()
	r.st.balances[key] = b
	return nil
}

func (r *memBalanceRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*model.Balance, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var out []*model.Balance
	for _, b := range r.st.balances {
		if b.AccountID == accountID {
			c := b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

type memInstrumentRepo memRepo

func (r *memInstrumentRepo) Get(ctx context.Context, ticker string) (*model.Instrument, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	in, ok := r.st.instruments[ticker]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &in, nil
}

func (r *memInstrumentRepo) Upsert(ctx context.Context, in *model.Instrument) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	r.st.instruments[in.Ticker] = *in
	return nil
}

type memAccountRepo memRepo

func (r *memAccountRepo) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	a, ok := r.st.accounts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &a, nil
}

func (r *memAccountRepo) Insert(ctx context.Context, a *model.Account) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	r.st.accounts[a.ID] = *a
	return nil
}

type memOrderEventRepo memRepo

func (r *memOrderEventRepo) Create(ctx context.Context, record *model.OrderEvent) (*model.OrderEvent, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	r.st.events = append(r.st.events, *record)
	return record, nil
}

func (r *memOrderEventRepo) BulkCreate(ctx context.Context, records []*model.OrderEvent) ([]*model.OrderEvent, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, rec := range records {
		r.st.events = append(r.st.events, *rec)
	}
	return records, nil
}
