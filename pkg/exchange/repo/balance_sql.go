package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/joripage/exchange-core/pkg/exchange/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BalanceSQLRepo struct {
	db *gorm.DB
}

func NewBalanceSQLRepo(db *gorm.DB) *BalanceSQLRepo {
	return &BalanceSQLRepo{
		db: db,
	}
}

func (s *BalanceSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *BalanceSQLRepo) Get(ctx context.Context, accountID uuid.UUID, ticker string) (*model.Balance, error) {
	var b model.Balance
	err := s.dbWithContext(ctx).
		First(&b, "account_id = ? AND ticker = ?", accountID, ticker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Adjust is the single mutation primitive for existing balances. The guard
// keeps free and locked non-negative at every observable point; a zero
// RowsAffected means the funds were not there (or the row is missing).
func (s *BalanceSQLRepo) Adjust(ctx context.Context, accountID uuid.UUID, ticker string, freeDelta, lockedDelta int64) error {
	res := s.dbWithContext(ctx).
		Model(&model.Balance{}).
		Where("account_id = ? AND ticker = ? AND free + ? >= 0 AND locked + ? >= 0",
			accountID, ticker, freeDelta, lockedDelta).
		Updates(map[string]interface{}{
			"free":   gorm.Expr("free + ?", freeDelta),
			"locked": gorm.Expr("locked + ?", lockedDelta),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBalanceGuard
	}
	return nil
}

func (s *BalanceSQLRepo) CreditFree(ctx context.Context, accountID uuid.UUID, ticker string, amount int64) error {
	return s.dbWithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "ticker"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"free": gorm.Expr("balances.free + excluded.free"),
			}),
		}).
		Create(&model.Balance{
			AccountID: accountID,
			Ticker:    ticker,
			Free:      amount,
		}).Error
}

func (s *BalanceSQLRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*model.Balance, error) {
	var balances []*model.Balance
	err := s.dbWithContext(ctx).
		Where("account_id = ?", accountID).
		Order("ticker ASC").
		Find(&balances).Error
	if err != nil {
		return nil, err
	}
	return balances, nil
}
