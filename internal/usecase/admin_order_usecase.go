package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
}

func NewAdminOrderUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, auditRepo: auditRepo}
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			lines, err := r.OrderLines().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, lines, nil))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// 入金確認して承認。PENDING_PAYMENT → PROCESSING。
// FULL/PARTIALは証憑が添付済みであること（中身の判断は管理者の目視）。CREDITは無条件。
func (u *AdminOrderUsecase) Approve(ctx context.Context, actorAdminUserID int64, orderID int64) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if !o.CanTransitionTo(model.OrderStatusProcessing) {
			return NewHTTPError(http.StatusConflict, "order is not awaiting payment")
		}
		if o.PaymentMethod != model.PaymentMethodCredit && strings.TrimSpace(o.PaymentEvidenceRef) == "" {
			return NewHTTPError(http.StatusConflict, "payment evidence not attached")
		}

		if err := r.Orders().UpdateFields(ctx, orderID, map[string]interface{}{
			"status":     model.OrderStatusProcessing,
			"updated_at": time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return u.writeStatusAudit(ctx, actorAdminUserID, model.AuditActionApproveOrder, orderID, o.Status, model.OrderStatusProcessing)
	})
}

// 却下。PENDING_PAYMENT → CANCELLED。
// 在庫は構成商品ごとに戻し、未入金の売掛は消す（入金済みの売掛は消さない）。
func (u *AdminOrderUsecase) Reject(ctx context.Context, actorAdminUserID int64, orderID int64) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if !o.CanTransitionTo(model.OrderStatusCancelled) {
			return NewHTTPError(http.StatusConflict, "order is not awaiting payment")
		}

		//在庫戻し（バンドル明細は現在の構成で展開する）
		lines, err := r.OrderLines().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, l := range lines {
			switch l.ItemType {
			case model.LineItemProduct:
				if err := r.Inventory().IncreaseStock(ctx, l.ItemID, l.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			case model.LineItemBundle:
				items, err := r.Bundles().ListItems(ctx, l.ItemID)
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				for _, bi := range items {
					if err := r.Inventory().IncreaseStock(ctx, bi.ProductID, bi.Quantity*l.Quantity); err != nil {
						return NewHTTPError(http.StatusInternalServerError, "db error")
					}
				}
			}
		}

		//売掛の取り消し（未入金のときだけ）
		d, err := r.Debts().FindByOrderID(ctx, orderID)
		if err != nil && err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err == nil {
			if _, err := r.Debts().DeleteIfUnpaid(ctx, d.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Orders().UpdateFields(ctx, orderID, map[string]interface{}{
			"status":     model.OrderStatusCancelled,
			"updated_at": time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return u.writeStatusAudit(ctx, actorAdminUserID, model.AuditActionRejectOrder, orderID, o.Status, model.OrderStatusCancelled)
	})
}

// 梱包証憑の添付。PROCESSINGの間だけ。ステータスは変えない。
func (u *AdminOrderUsecase) AttachPackingEvidence(ctx context.Context, actorAdminUserID int64, orderID int64, evidenceRef string) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if strings.TrimSpace(evidenceRef) == "" {
		return NewHTTPError(http.StatusBadRequest, "evidence required")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if o.Status != model.OrderStatusProcessing {
			return NewHTTPError(http.StatusConflict, "order is not processing")
		}

		if err := r.Orders().UpdateFields(ctx, orderID, map[string]interface{}{
			"packing_evidence_ref": evidenceRef,
			"updated_at":           time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

type ShipOrderInput struct {
	Method              string
	CarrierName         string
	TrackingID          string
	TrackingEvidenceRef string
}

// 発送。PROCESSING → SHIPPED。支払い方法には依存しない。
// CARRIERは業者名＋追跡番号が必須、OWN_DRIVERは追跡番号を自動採番する。
func (u *AdminOrderUsecase) Ship(ctx context.Context, actorAdminUserID int64, orderID int64, in ShipOrderInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	method := model.ShippingMethod(strings.TrimSpace(in.Method))
	carrier := strings.TrimSpace(in.CarrierName)
	tracking := strings.TrimSpace(in.TrackingID)

	switch method {
	case model.ShippingMethodCarrier:
		if carrier == "" || tracking == "" {
			return NewHTTPError(http.StatusBadRequest, "carrier_name and tracking_id required")
		}
	case model.ShippingMethodOwnDriver:
		if carrier != "" {
			return NewHTTPError(http.StatusBadRequest, "own driver takes no carrier_name")
		}
		tracking = "OWN-" + uuid.NewString()
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid shipping_method")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if !o.CanTransitionTo(model.OrderStatusShipped) {
			return NewHTTPError(http.StatusConflict, "order is not processing")
		}

		now := time.Now()
		if err := r.Orders().UpdateFields(ctx, orderID, map[string]interface{}{
			"status":                model.OrderStatusShipped,
			"shipping_method":       method,
			"carrier_name":          carrier,
			"tracking_id":           tracking,
			"tracking_evidence_ref": in.TrackingEvidenceRef,
			"shipped_at":            now,
			"updated_at":            now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return u.writeStatusAudit(ctx, actorAdminUserID, model.AuditActionShipOrder, orderID, o.Status, model.OrderStatusShipped)
	})
}

// 完了。SHIPPED → COMPLETED（唯一の成功終端）。
func (u *AdminOrderUsecase) Complete(ctx context.Context, actorAdminUserID int64, orderID int64) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if !o.CanTransitionTo(model.OrderStatusCompleted) {
			return NewHTTPError(http.StatusConflict, "order is not shipped")
		}

		if err := r.Orders().UpdateFields(ctx, orderID, map[string]interface{}{
			"status":     model.OrderStatusCompleted,
			"updated_at": time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return u.writeStatusAudit(ctx, actorAdminUserID, model.AuditActionCompleteOrder, orderID, o.Status, model.OrderStatusCompleted)
	})
}

// ステータス遷移の監査ログ（誰が・どの注文を・どこからどこへ）
func (u *AdminOrderUsecase) writeStatusAudit(ctx context.Context, actorID int64, action model.AuditAction, orderID int64, before model.OrderStatus, after model.OrderStatus) error {
	beforeJSON := `{"status":"` + string(before) + `"}`
	afterJSON := `{"status":"` + string(after) + `"}`
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
