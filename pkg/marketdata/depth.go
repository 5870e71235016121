package marketdata

import (
	"container/heap"
	"time"

	"github.com/gammazero/deque"

	"github.com/joripage/exchange-core/pkg/exchange/model"
)

// Level is one aggregated price level of the book snapshot.
type Level struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
	Orders   int   `json:"orders"`
}

// Snapshot is a derived view over resting orders: bids best (highest) first,
// asks best (lowest) first. Only NEW/PARTIALLY_FILLED limit orders appear.
type Snapshot struct {
	Ticker    string    `json:"ticker"`
	Bids      []Level   `json:"bids"`
	Asks      []Level   `json:"asks"`
	Timestamp time.Time `json:"timestamp"`
}

// bookSide groups remaining quantities per price, FIFO within a level, with
// a heap keeping level ordering.
type bookSide struct {
	levels map[int64]*deque.Deque[int64]
	prices *priceHeap
}

func newBookSide(less func(i, j int64) bool) *bookSide {
	return &bookSide{
		levels: make(map[int64]*deque.Deque[int64]),
		prices: newPriceHeap(less),
	}
}

func (s *bookSide) add(o *model.Order) {
	if s.levels[o.Price] == nil {
		s.levels[o.Price] = &deque.Deque[int64]{}
		heap.Push(s.prices, o.Price)
	}
	s.levels[o.Price].PushBack(o.Remaining())
}

func (s *bookSide) flatten(depth int) []Level {
	out := make([]Level, 0, depth)
	for len(out) < depth {
		price, ok := s.prices.Peek()
		if !ok {
			break
		}
		heap.Pop(s.prices)

		q := s.levels[price]
		level := Level{Price: price}
		for q.Len() > 0 {
			level.Quantity += q.PopFront()
			level.Orders++
		}
		delete(s.levels, price)
		out = append(out, level)
	}
	return out
}

// buildSnapshot aggregates resting orders into price levels. bids and asks
// must already be filtered to open limit orders of the ticker.
func buildSnapshot(ticker string, bids, asks []*model.Order, depth int) *Snapshot {
	if depth <= 0 {
		depth = defaultDepth
	}

	bidSide := newBookSide(func(i, j int64) bool { return i > j }) // max-heap
	askSide := newBookSide(func(i, j int64) bool { return i < j }) // min-heap

	for _, o := range bids {
		bidSide.add(o)
	}
	for _, o := range asks {
		askSide.add(o)
	}

	return &Snapshot{
		Ticker:    ticker,
		Bids:      bidSide.flatten(depth),
		Asks:      askSide.flatten(depth),
		Timestamp: time.Now(),
	}
}
