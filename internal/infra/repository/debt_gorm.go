package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type DebtGormRepository struct {
	db *gorm.DB
}

func NewDebtGormRepository(db *gorm.DB) *DebtGormRepository {
	return &DebtGormRepository{db: db}
}

func (r *DebtGormRepository) FindByID(ctx context.Context, debtID int64) (model.Debt, error) {
	var d model.Debt
	err := r.db.WithContext(ctx).Where("id = ?", debtID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Debt{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Debt{}, err
	}
	return d, nil
}

func (r *DebtGormRepository) FindByOrderID(ctx context.Context, orderID int64) (model.Debt, error) {
	var d model.Debt
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Debt{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Debt{}, err
	}
	return d, nil
}

func (r *DebtGormRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Debt, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Debt{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return []model.Debt{}, 0, err
	}

	var items []model.Debt
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Debt{}, 0, err
	}

	return items, total, nil
}

func (r *DebtGormRepository) Create(ctx context.Context, debt model.Debt) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&debt).Error; err != nil {
		return 0, err
	}
	return debt.ID, nil
}

// 入金反映。残額超過はWHEREで弾く（0行更新＝競合）
func (r *DebtGormRepository) ApplyPayment(ctx context.Context, debtID int64, amount int64) error {
	res := r.db.WithContext(ctx).Model(&model.Debt{}).
		Where("id = ? AND remaining_debt >= ?", debtID, amount).
		Updates(map[string]interface{}{
			"paid_amount":    gorm.Expr("paid_amount + ?", amount),
			"remaining_debt": gorm.Expr("remaining_debt - ?", amount),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 未入金のときだけ削除（却下時の取り消し用）
func (r *DebtGormRepository) DeleteIfUnpaid(ctx context.Context, debtID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND paid_amount = 0", debtID).
		Delete(&model.Debt{})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DebtGormRepository) ListAdmin(ctx context.Context, f repo.AdminDebtListFilter) ([]model.Debt, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Debt{})

	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.OpenOnly {
		q = q.Where("remaining_debt > 0")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Debt{}, 0, err
	}

	var items []model.Debt
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Debt{}, 0, err
	}

	return items, total, nil
}
