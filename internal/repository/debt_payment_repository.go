package repository

import (
	"context"

	"app/internal/domain/model"
)

type DebtPaymentRepository interface {
	Create(ctx context.Context, payment model.DebtPayment) (int64, error)
	ListByDebtID(ctx context.Context, debtID int64) ([]model.DebtPayment, error)
}
