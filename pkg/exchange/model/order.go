package model

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

type OrderKind string

const (
	OrderKindLimit  OrderKind = "LIMIT"
	OrderKindMarket OrderKind = "MARKET"
)

// Order is the central entity. Price is meaningful only for LIMIT orders;
// intake rejects MARKET orders that carry one. Only settlement advances
// Filled and Status, every other field is immutable after insert.
type Order struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Seq       int64       `gorm:"->"` // bigserial, total arrival order for time priority
	AccountID uuid.UUID   `gorm:"type:uuid;index:idx_orders_account"`
	Ticker    string      `gorm:"size:10"`
	Side      OrderSide   `gorm:"size:4"`
	Kind      OrderKind   `gorm:"size:6"`
	Price     int64
	Quantity  int64
	Filled    int64
	Status    OrderStatus `gorm:"size:20;index:idx_orders_status"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Order) TableName() string {
	return "orders"
}

// Remaining returns the quantity not yet executed.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.Filled
}

// Open reports whether the order still holds resting liquidity.
func (o *Order) Open() bool {
	return o.Status == OrderStatusNew || o.Status == OrderStatusPartiallyFilled
}

// CanCancel reports whether a user cancel is still permitted. Market orders
// never rest, so a partially filled market order is terminal.
func (o *Order) CanCancel() bool {
	if o.Status == OrderStatusNew {
		return true
	}
	return o.Status == OrderStatusPartiallyFilled && o.Kind == OrderKindLimit
}

// StatusForFill returns the status an order reaches once filled has advanced
// to newFilled.
func (o *Order) StatusForFill(newFilled int64) OrderStatus {
	if newFilled >= o.Quantity {
		return OrderStatusFilled
	}
	return OrderStatusPartiallyFilled
}

// RequiredReservation computes the funds a LIMIT order locks at intake:
// price*qty of the quote instrument for a BUY, qty of the base instrument
// for a SELL. Market orders reserve nothing.
func (o *Order) RequiredReservation(quoteTicker string) (ticker string, amount int64) {
	if o.Kind != OrderKindLimit {
		return "", 0
	}
	if o.Side == OrderSideBuy {
		return quoteTicker, o.Price * o.Quantity
	}
	return o.Ticker, o.Quantity
}

// RemainingReservation computes the still-locked portion released on cancel.
func (o *Order) RemainingReservation(quoteTicker string) (ticker string, amount int64) {
	if o.Kind != OrderKindLimit {
		return "", 0
	}
	if o.Side == OrderSideBuy {
		return quoteTicker, o.Price * o.Remaining()
	}
	return o.Ticker, o.Remaining()
}
