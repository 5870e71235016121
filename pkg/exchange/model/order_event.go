package model

import (
	"time"

	"github.com/google/uuid"
)

type OrderExecType string

const (
	ExecTypeNew       OrderExecType = "NEW"
	ExecTypeTrade     OrderExecType = "TRADE"
	ExecTypeCancelled OrderExecType = "CANCELLED"
	ExecTypeRejected  OrderExecType = "REJECTED"
)

// OrderEvent is an audit record of one order transition, written inside the
// same transaction as the transition itself.
type OrderEvent struct {
	ID        int64         `gorm:"primaryKey;autoIncrement"`
	OrderID   uuid.UUID     `gorm:"type:uuid;index:idx_order_events_order"`
	ExecType  OrderExecType `gorm:"size:10"`
	Qty       int64
	Price     int64
	Timestamp time.Time
}

func (OrderEvent) TableName() string {
	return "order_events"
}

func NewOrderEventNew(o *Order, ts time.Time) *OrderEvent {
	return &OrderEvent{
		OrderID:   o.ID,
		ExecType:  ExecTypeNew,
		Qty:       o.Quantity,
		Price:     o.Price,
		Timestamp: ts,
	}
}

func NewOrderEventTrade(orderID uuid.UUID, qty, price int64, ts time.Time) *OrderEvent {
	return &OrderEvent{
		OrderID:   orderID,
		ExecType:  ExecTypeTrade,
		Qty:       qty,
		Price:     price,
		Timestamp: ts,
	}
}

func NewOrderEventCancelled(o *Order, ts time.Time) *OrderEvent {
	return &OrderEvent{
		OrderID:   o.ID,
		ExecType:  ExecTypeCancelled,
		Qty:       o.Remaining(),
		Price:     o.Price,
		Timestamp: ts,
	}
}

func NewOrderEventRejected(o *Order, ts time.Time) *OrderEvent {
	return &OrderEvent{
		OrderID:   o.ID,
		ExecType:  ExecTypeRejected,
		Qty:       o.Remaining(),
		Price:     o.Price,
		Timestamp: ts,
	}
}
