package repo

import (
	"context"
	"time"

	"github.com/joripage/exchange-core/pkg/exchange/model"
	"gorm.io/gorm"
)

type TradeSQLRepo struct {
	db *gorm.DB
}

func NewTradeSQLRepo(db *gorm.DB) *TradeSQLRepo {
	return &TradeSQLRepo{
		db: db,
	}
}

func (s *TradeSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *TradeSQLRepo) Insert(ctx context.Context, t *model.Trade) error {
	return s.dbWithContext(ctx).Create(t).Error
}

func (s *TradeSQLRepo) Recent(ctx context.Context, ticker string, limit int) ([]*model.Trade, error) {
	var trades []*model.Trade
	err := s.dbWithContext(ctx).
		Where("ticker = ?", ticker).
		Order("created_at DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

func (s *TradeSQLRepo) Since(ctx context.Context, ticker string, from time.Time) ([]*model.Trade, error) {
	var trades []*model.Trade
	err := s.dbWithContext(ctx).
		Where("ticker = ? AND created_at >= ?", ticker, from).
		Order("created_at ASC").
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}
