package repository

import (
	"context"

	"app/internal/domain/model"
)

type AdminDebtListFilter struct {
	Page   int
	Limit  int
	UserID *int64
	//trueなら残債ありだけに絞る
	OpenOnly bool
}

type DebtRepository interface {
	FindByID(ctx context.Context, debtID int64) (model.Debt, error)
	FindByOrderID(ctx context.Context, orderID int64) (model.Debt, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Debt, int64, error)
	Create(ctx context.Context, debt model.Debt) (int64, error)

	//入金反映（paid_amount加算・remaining_debt減算を1文で）
	ApplyPayment(ctx context.Context, debtID int64, amount int64) error

	//未入金の売掛を消す（却下時のみ。入金済みは消さない）
	DeleteIfUnpaid(ctx context.Context, debtID int64) (bool, error)

	ListAdmin(ctx context.Context, f AdminDebtListFilter) ([]model.Debt, int64, error)
}
