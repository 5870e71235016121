package model

import (
	"time"

	"github.com/google/uuid"
)

// Account owns balances and orders. Created once at registration, immutable
// afterwards as far as the engine is concerned.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255"`
	CreatedAt time.Time
}

func (Account) TableName() string {
	return "accounts"
}
