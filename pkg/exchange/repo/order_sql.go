package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/joripage/exchange-core/pkg/exchange/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderSQLRepo struct {
	db *gorm.DB
}

func NewOrderSQLRepo(db *gorm.DB) *OrderSQLRepo {
	return &OrderSQLRepo{
		db: db,
	}
}

func (s *OrderSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *OrderSQLRepo) Insert(ctx context.Context, o *model.Order) error {
	return s.dbWithContext(ctx).Omit("seq").Create(o).Error
}

func (s *OrderSQLRepo) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := s.dbWithContext(ctx).First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *OrderSQLRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := s.dbWithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *OrderSQLRepo) Resting(ctx context.Context, ticker string, side model.OrderSide) ([]*model.Order, error) {
	priceOrder := "price ASC"
	if side == model.OrderSideBuy {
		priceOrder = "price DESC"
	}

	var orders []*model.Order
	err := s.dbWithContext(ctx).
		Where("ticker = ? AND side = ? AND kind = ? AND status IN ?",
			ticker, side, model.OrderKindLimit,
			[]model.OrderStatus{model.OrderStatusNew, model.OrderStatusPartiallyFilled}).
		Order(priceOrder).
		Order("seq ASC").
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderSQLRepo) UpdateFill(ctx context.Context, id uuid.UUID, observedFilled, newFilled int64, status model.OrderStatus) error {
	res := s.dbWithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND filled = ? AND status IN ?",
			id, observedFilled,
			[]model.OrderStatus{model.OrderStatusNew, model.OrderStatusPartiallyFilled}).
		Updates(map[string]interface{}{
			"filled": newFilled,
			"status": status,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *OrderSQLRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	res := s.dbWithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *OrderSQLRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*model.Order, error) {
	var orders []*model.Order
	err := s.dbWithContext(ctx).
		Where("account_id = ?", accountID).
		Order("seq ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderSQLRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.dbWithContext(ctx).Delete(&model.Order{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
