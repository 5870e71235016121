package marketdata

import (
	"testing"

	"github.com/google/uuid"
	"github.com/joripage/exchange-core/pkg/exchange/model"
)

func restingOrder(side model.OrderSide, price, qty, filled int64) *model.Order {
	return &model.Order{
		ID:       uuid.New(),
		Ticker:   "BTC",
		Side:     side,
		Kind:     model.OrderKindLimit,
		Price:    price,
		Quantity: qty,
		Filled:   filled,
		Status:   model.OrderStatusNew,
	}
}

func TestBuildSnapshotOrderingAndAggregation(t *testing.T) {
	bids := []*model.Order{
		restingOrder(model.OrderSideBuy, 99, 5, 0),
		restingOrder(model.OrderSideBuy, 101, 3, 1),
		restingOrder(model.OrderSideBuy, 101, 2, 0),
		restingOrder(model.OrderSideBuy, 100, 4, 0),
	}
	asks := []*model.Order{
		restingOrder(model.OrderSideSell, 105, 1, 0),
		restingOrder(model.OrderSideSell, 103, 2, 0),
		restingOrder(model.OrderSideSell, 103, 6, 3),
	}

	snap := buildSnapshot("BTC", bids, asks, 10)
	if snap.Ticker != "BTC" {
		t.Fatalf("ticker = %s, want BTC", snap.Ticker)
	}

	wantBids := []Level{
		{Price: 101, Quantity: 4, Orders: 2}, // 3-1 remaining plus 2
		{Price: 100, Quantity: 4, Orders: 1},
		{Price: 99, Quantity: 5, Orders: 1},
	}
	if len(snap.Bids) != len(wantBids) {
		t.Fatalf("bids = %d levels, want %d", len(snap.Bids), len(wantBids))
	}
	for i, want := range wantBids {
		if snap.Bids[i] != want {
			t.Fatalf("bid[%d] = %+v, want %+v", i, snap.Bids[i], want)
		}
	}

	wantAsks := []Level{
		{Price: 103, Quantity: 5, Orders: 2}, // 2 plus 6-3 remaining
		{Price: 105, Quantity: 1, Orders: 1},
	}
	if len(snap.Asks) != len(wantAsks) {
		t.Fatalf("asks = %d levels, want %d", len(snap.Asks), len(wantAsks))
	}
	for i, want := range wantAsks {
		if snap.Asks[i] != want {
			t.Fatalf("ask[%d] = %+v, want %+v", i, snap.Asks[i], want)
		}
	}
}

func TestBuildSnapshotDepthCap(t *testing.T) {
	var asks []*model.Order
	for price := int64(100); price < 110; price++ {
		asks = append(asks, restingOrder(model.OrderSideSell, price, 1, 0))
	}

	snap := buildSnapshot("BTC", nil, asks, 3)
	if len(snap.Asks) != 3 {
		t.Fatalf("asks = %d levels, want 3", len(snap.Asks))
	}
	// Best (lowest) three survive the cap.
	for i, want := range []int64{100, 101, 102} {
		if snap.Asks[i].Price != want {
			t.Fatalf("ask[%d].Price = %d, want %d", i, snap.Asks[i].Price, want)
		}
	}
	if len(snap.Bids) != 0 {
		t.Fatalf("bids = %d levels, want 0", len(snap.Bids))
	}
}

func TestBuildSnapshotEmptyBook(t *testing.T) {
	snap := buildSnapshot("BTC", nil, nil, 0)
	if len(snap.Bids) != 0 || len(snap.Asks) != 0 {
		t.Fatalf("empty book produced %d bids / %d asks", len(snap.Bids), len(snap.Asks))
	}
}
