package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 売掛の取り立て。注文のステータスとは独立に動く
// （発送済みでも完了後でも、残債がある限り入金を受け付ける）。
type DebtUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
}

func NewDebtUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository) *DebtUsecase {
	return &DebtUsecase{tx: tx, auditRepo: auditRepo}
}

type RecordPaymentInput struct {
	Amount      int64
	EvidenceRef string
	Note        string
}

type DebtPaymentOutput struct {
	ID          int64     `json:"id"`
	DebtID      int64     `json:"debt_id"`
	Amount      int64     `json:"amount"`
	EvidenceRef string    `json:"evidence_ref,omitempty"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type DebtDetailOutput struct {
	DebtOutput
	IsSettled bool                `json:"is_settled"`
	Payments  []DebtPaymentOutput `json:"payments"`
}

// 入金記録。入金額は正で、残債を超えてはいけない。
// 入金行の作成と残高の更新は1トランザクション。
func (u *DebtUsecase) RecordPayment(ctx context.Context, actorAdminUserID int64, debtID int64, in RecordPaymentInput) (DebtDetailOutput, error) {
	if actorAdminUserID <= 0 {
		return DebtDetailOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if debtID <= 0 {
		return DebtDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Amount <= 0 {
		return DebtDetailOutput{}, NewHTTPError(http.StatusBadRequest, "amount must be positive")
	}

	var out DebtDetailOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		d, err := r.Debts().FindByID(ctx, debtID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//残債超過はここで弾く（完済済みへの入金もここに落ちる）
		if in.Amount > d.RemainingDebt {
			return NewHTTPError(http.StatusConflict, "amount exceeds remaining debt")
		}

		now := time.Now()
		if _, err := r.DebtPayments().Create(ctx, model.DebtPayment{
			DebtID:      debtID,
			Amount:      in.Amount,
			EvidenceRef: in.EvidenceRef,
			Note:        in.Note,
			CreatedAt:   now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//残高の反映も条件付きUPDATE（同時入金で残債を割らない）
		if err := r.Debts().ApplyPayment(ctx, debtID, in.Amount); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusConflict, "amount exceeds remaining debt")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		updated, err := r.Debts().FindByID(ctx, debtID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		payments, err := r.DebtPayments().ListByDebtID(ctx, debtID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toDebtDetailOutput(updated, payments)

		beforeJSON := fmt.Sprintf(`{"paid_amount":%d,"remaining_debt":%d}`, d.PaidAmount, d.RemainingDebt)
		afterJSON := fmt.Sprintf(`{"paid_amount":%d,"remaining_debt":%d}`, updated.PaidAmount, updated.RemainingDebt)
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionRecordDebtPayment,
			ResourceType: model.AuditResourceDebt,
			ResourceID:   debtID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})

	if err != nil {
		return DebtDetailOutput{}, err
	}
	return out, nil
}

func (u *DebtUsecase) ListMyDebts(ctx context.Context, userID int64) ([]DebtOutput, error) {
	if userID <= 0 {
		return []DebtOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []DebtOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		debts, _, err := r.Debts().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]DebtOutput, 0, len(debts))
		for _, d := range debts {
			outs = append(outs, toDebtOutput(d))
		}
		return nil
	})

	if err != nil {
		return []DebtOutput{}, err
	}
	return outs, nil
}

func (u *DebtUsecase) GetMyDebtDetail(ctx context.Context, userID int64, debtID int64) (DebtDetailOutput, error) {
	if userID <= 0 {
		return DebtDetailOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if debtID <= 0 {
		return DebtDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out DebtDetailOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		d, err := r.Debts().FindByID(ctx, debtID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if d.UserID != userID {
			//他人の売掛は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		payments, err := r.DebtPayments().ListByDebtID(ctx, debtID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toDebtDetailOutput(d, payments)
		return nil
	})

	if err != nil {
		return DebtDetailOutput{}, err
	}
	return out, nil
}

// 管理者用の売掛一覧（残債ありだけに絞れる）
func (u *DebtUsecase) ListAdmin(ctx context.Context, f repo.AdminDebtListFilter) ([]DebtOutput, error) {
	if f.Page < 1 {
		return []DebtOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []DebtOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []DebtOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		debts, _, err := r.Debts().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]DebtOutput, 0, len(debts))
		for _, d := range debts {
			outs = append(outs, toDebtOutput(d))
		}
		return nil
	})

	if err != nil {
		return []DebtOutput{}, err
	}
	return outs, nil
}

func toDebtOutput(d model.Debt) DebtOutput {
	return DebtOutput{
		ID:            d.ID,
		UserID:        d.UserID,
		OrderID:       d.OrderID,
		TotalDebt:     d.TotalDebt,
		PaidAmount:    d.PaidAmount,
		RemainingDebt: d.RemainingDebt,
		CreatedAt:     d.CreatedAt,
	}
}

func toDebtDetailOutput(d model.Debt, payments []model.DebtPayment) DebtDetailOutput {
	outPayments := make([]DebtPaymentOutput, 0, len(payments))
	for _, p := range payments {
		outPayments = append(outPayments, DebtPaymentOutput{
			ID:          p.ID,
			DebtID:      p.DebtID,
			Amount:      p.Amount,
			EvidenceRef: p.EvidenceRef,
			Note:        p.Note,
			CreatedAt:   p.CreatedAt,
		})
	}

	return DebtDetailOutput{
		DebtOutput: toDebtOutput(d),
		IsSettled:  d.IsSettled(),
		Payments:   outPayments,
	}
}
