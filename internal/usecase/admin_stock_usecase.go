package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 管理者の在庫調整（注文による増減とは別の、手動での棚卸し反映）。
type AdminStockUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
}

func NewAdminStockUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository) *AdminStockUsecase {
	return &AdminStockUsecase{tx: tx, auditRepo: auditRepo}
}

type AdjustStockInput struct {
	NewStock int64
	Reason   string
}

func (u *AdminStockUsecase) AdjustStock(ctx context.Context, actorAdminUserID int64, productID int64, in AdjustStockInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.NewStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must not be negative")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return NewHTTPError(http.StatusBadRequest, "reason required")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Inventory().SetStock(ctx, productID, in.NewStock); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//差分で履歴を残す
		now := time.Now()
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			AdminUserID: actorAdminUserID,
			Delta:       in.NewStock - p.Stock,
			Reason:      in.Reason,
			CreatedAt:   now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		beforeJSON := fmt.Sprintf(`{"stock":%d}`, p.Stock)
		afterJSON := fmt.Sprintf(`{"stock":%d}`, in.NewStock)
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})
}
