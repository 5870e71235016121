package model

import "time"

// Instrument is a tradable symbol. Orders and balances resolve to an
// existing, active instrument at intake time.
type Instrument struct {
	Ticker    string `gorm:"size:10;primaryKey"`
	Name      string `gorm:"size:255"`
	Active    bool
	CreatedAt time.Time
}

func (Instrument) TableName() string {
	return "instruments"
}
