package model

import (
	"time"

	"github.com/google/uuid"
)

// Balance is owned jointly by (account, instrument). Free and Locked never
// go negative; every mutation is a guarded single-statement update.
type Balance struct {
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Ticker    string    `gorm:"size:10;primaryKey"`
	Free      int64
	Locked    int64
	UpdatedAt time.Time
}

func (Balance) TableName() string {
	return "balances"
}

// Total returns the whole holding, reserved or not.
func (b *Balance) Total() int64 {
	return b.Free + b.Locked
}
