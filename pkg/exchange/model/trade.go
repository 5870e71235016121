package model

import (
	"time"

	"github.com/google/uuid"
)

// Trade is an immutable record of one execution. TakerSide tells which of the
// two order references was the incoming order of the match pass.
type Trade struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Ticker      string    `gorm:"size:10;index:idx_trades_ticker" json:"ticker"`
	BuyerID     uuid.UUID `gorm:"type:uuid" json:"buyer_id"`
	SellerID    uuid.UUID `gorm:"type:uuid" json:"seller_id"`
	BuyOrderID  uuid.UUID `gorm:"type:uuid" json:"buy_order_id"`
	SellOrderID uuid.UUID `gorm:"type:uuid" json:"sell_order_id"`
	TakerSide   OrderSide `gorm:"size:4" json:"taker_side"`
	Price       int64     `json:"price"`
	Quantity    int64     `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}
