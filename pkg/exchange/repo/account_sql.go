package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/joripage/exchange-core/pkg/exchange/model"
	"gorm.io/gorm"
)

type AccountSQLRepo struct {
	db *gorm.DB
}

func NewAccountSQLRepo(db *gorm.DB) *AccountSQLRepo {
	return &AccountSQLRepo{
		db: db,
	}
}

func (s *AccountSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *AccountSQLRepo) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var a model.Account
	err := s.dbWithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AccountSQLRepo) Insert(ctx context.Context, a *model.Account) error {
	return s.dbWithContext(ctx).Create(a).Error
}
