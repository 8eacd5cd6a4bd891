package repository

import (
	"context"

	"app/internal/domain/model"

	"gorm.io/gorm"
)

type DebtPaymentGormRepository struct {
	db *gorm.DB
}

func NewDebtPaymentGormRepository(db *gorm.DB) *DebtPaymentGormRepository {
	return &DebtPaymentGormRepository{db: db}
}

func (r *DebtPaymentGormRepository) Create(ctx context.Context, payment model.DebtPayment) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return 0, err
	}
	return payment.ID, nil
}

func (r *DebtPaymentGormRepository) ListByDebtID(ctx context.Context, debtID int64) ([]model.DebtPayment, error) {
	var payments []model.DebtPayment
	err := r.db.WithContext(ctx).Where("debt_id = ?", debtID).Order("id asc").Find(&payments).Error
	if err != nil {
		return []model.DebtPayment{}, err
	}
	return payments, nil
}
