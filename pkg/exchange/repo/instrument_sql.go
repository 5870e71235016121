package repo

import (
	"context"
	"errors"

	"github.com/joripage/exchange-core/pkg/exchange/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InstrumentSQLRepo struct {
	db *gorm.DB
}

func NewInstrumentSQLRepo(db *gorm.DB) *InstrumentSQLRepo {
	return &InstrumentSQLRepo{
		db: db,
	}
}

func (s *InstrumentSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *InstrumentSQLRepo) Get(ctx context.Context, ticker string) (*model.Instrument, error) {
	var in model.Instrument
	err := s.dbWithContext(ctx).First(&in, "ticker = ?", ticker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *InstrumentSQLRepo) Upsert(ctx context.Context, in *model.Instrument) error {
	return s.dbWithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticker"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "active"}),
		}).
		Create(in).Error
}
