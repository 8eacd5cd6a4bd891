package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/gateway"
	repo "app/internal/repository"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 注文番号のカウンター名
const orderNumberCounter = "order_number"

type CheckoutUsecase struct {
	tx     repo.TransactionManager
	promos gateway.PromoResolver
}

func NewCheckoutUsecase(tx repo.TransactionManager, promos gateway.PromoResolver) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, promos: promos}
}

type CheckoutLineInput struct {
	ItemType string
	ItemID   int64
	Quantity int64
}

type ShippingInput struct {
	RecipientName string
	Phone         string
	Address       string
	City          string
	Province      string
	PostalCode    string
}

type PlaceOrderInput struct {
	Lines    []CheckoutLineInput
	Shipping ShippingInput

	PaymentMethod      string
	PaidAmount         int64
	PaymentEvidenceRef string

	PromoCode string

	IdempotencyKey string
}

type OrderLineOutput struct {
	ItemType string `json:"item_type"`
	ItemID   int64  `json:"item_id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

type DebtOutput struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	OrderID       int64     `json:"order_id"`
	TotalDebt     int64     `json:"total_debt"`
	PaidAmount    int64     `json:"paid_amount"`
	RemainingDebt int64     `json:"remaining_debt"`
	CreatedAt     time.Time `json:"created_at"`
}

type OrderOutput struct {
	ID            int64             `json:"id"`
	OrderNumber   string            `json:"order_number"`
	UserID        int64             `json:"user_id"`
	Status        string            `json:"status"`
	Subtotal      int64             `json:"subtotal"`
	Discount      int64             `json:"discount"`
	Total         int64             `json:"total"`
	PaymentMethod string            `json:"payment_method"`
	PaidAmount    int64             `json:"paid_amount"`
	RemainingDebt int64             `json:"remaining_debt"`
	IsPaid        bool              `json:"is_paid"`
	Recipient     ShippingOutput    `json:"recipient"`
	Fulfillment   FulfillmentOutput `json:"fulfillment"`
	CreatedAt     time.Time         `json:"created_at"`
	Lines         []OrderLineOutput `json:"lines"`
	Debt          *DebtOutput       `json:"debt,omitempty"`
}

type ShippingOutput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code,omitempty"`
}

type FulfillmentOutput struct {
	PaymentEvidenceRef  string     `json:"payment_evidence_ref,omitempty"`
	PackingEvidenceRef  string     `json:"packing_evidence_ref,omitempty"`
	ShippingMethod      string     `json:"shipping_method,omitempty"`
	CarrierName         string     `json:"carrier_name,omitempty"`
	TrackingID          string     `json:"tracking_id,omitempty"`
	TrackingEvidenceRef string     `json:"tracking_evidence_ref,omitempty"`
	ShippedAt           *time.Time `json:"shipped_at,omitempty"`
}

// 支払い方法ごとに確定するpaid/remaining。
// ここを通らずにOrderを作らないこと（total = paid + remaining を崩さないため）。
type paymentPlan struct {
	paid      int64
	remaining int64
}

func buildPaymentPlan(method model.PaymentMethod, total int64, paidInput int64) (paymentPlan, error) {
	switch method {
	case model.PaymentMethodFull:
		return paymentPlan{paid: total, remaining: 0}, nil
	case model.PaymentMethodPartial:
		if paidInput <= 0 || paidInput >= total {
			return paymentPlan{}, NewHTTPError(http.StatusBadRequest, "paid_amount must be positive and less than total")
		}
		return paymentPlan{paid: paidInput, remaining: total - paidInput}, nil
	case model.PaymentMethodCredit:
		return paymentPlan{paid: 0, remaining: total}, nil
	default:
		return paymentPlan{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}
}

// 注文確定前の入力チェック（totalが要らないものだけ。金額の上限チェックはbuildPaymentPlanで）
func validatePlaceOrderInput(in PlaceOrderInput) error {
	if len(in.Lines) == 0 {
		return NewHTTPError(http.StatusBadRequest, "cart empty")
	}
	for _, l := range in.Lines {
		if l.Quantity < 1 {
			return NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
	}

	s := in.Shipping
	if strings.TrimSpace(s.RecipientName) == "" ||
		strings.TrimSpace(s.Phone) == "" ||
		strings.TrimSpace(s.Address) == "" ||
		strings.TrimSpace(s.City) == "" ||
		strings.TrimSpace(s.Province) == "" {
		return NewHTTPError(http.StatusBadRequest, "shipping fields required")
	}

	switch model.PaymentMethod(in.PaymentMethod) {
	case model.PaymentMethodFull:
		if strings.TrimSpace(in.PaymentEvidenceRef) == "" {
			return NewHTTPError(http.StatusBadRequest, "payment evidence required")
		}
	case model.PaymentMethodPartial:
		if strings.TrimSpace(in.PaymentEvidenceRef) == "" {
			return NewHTTPError(http.StatusBadRequest, "payment evidence required")
		}
		if in.PaidAmount <= 0 {
			return NewHTTPError(http.StatusBadRequest, "paid_amount required")
		}
	case model.PaymentMethodCredit:
		//後払いは証憑も入金額も受け取らない
		if in.PaymentEvidenceRef != "" || in.PaidAmount != 0 {
			return NewHTTPError(http.StatusBadRequest, "credit order takes no payment fields")
		}
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}

	return nil
}

// 在庫を引く単位（バンドルは構成商品に展開済み）
type stockDemand struct {
	productID int64
	qty       int64
}

func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}
	if err := validatePlaceOrderInput(in); err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput

	//注文確定は1トランザクション（注文＋明細＋在庫減算＋売掛作成が全部入るか全部入らないか）
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			return u.loadOrderOutput(ctx, r, existing, &out)
		}

		//明細を解決して在庫需要と小計を組み立てる
		orderLines := make([]model.OrderLine, 0, len(in.Lines))
		demands := make([]stockDemand, 0, len(in.Lines))
		var subtotal int64 = 0

		for _, l := range in.Lines {
			switch model.OrderLineItemType(l.ItemType) {
			case model.LineItemProduct:
				p, err := r.Products().FindByID(ctx, l.ItemID)
				if err == repo.ErrNotFound {
					return NewHTTPError(http.StatusBadRequest, "invalid item")
				}
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				if !p.IsActive {
					return NewHTTPError(http.StatusBadRequest, "invalid item")
				}

				demands = append(demands, stockDemand{productID: p.ID, qty: l.Quantity})
				orderLines = append(orderLines, model.OrderLine{
					ItemType:          model.LineItemProduct,
					ItemID:            p.ID,
					NameSnapshot:      p.Name,
					UnitPriceSnapshot: p.Price,
					Quantity:          l.Quantity,
				})
				subtotal += p.Price * l.Quantity

			case model.LineItemBundle:
				b, err := r.Bundles().FindByID(ctx, l.ItemID)
				if err == repo.ErrNotFound {
					return NewHTTPError(http.StatusBadRequest, "invalid item")
				}
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				if !b.IsActive {
					return NewHTTPError(http.StatusBadRequest, "invalid item")
				}

				//バンドルは注文時点の構成で商品在庫を消費する
				items, err := r.Bundles().ListItems(ctx, b.ID)
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				if len(items) == 0 {
					return NewHTTPError(http.StatusBadRequest, "invalid item")
				}
				for _, bi := range items {
					demands = append(demands, stockDemand{productID: bi.ProductID, qty: bi.Quantity * l.Quantity})
				}

				orderLines = append(orderLines, model.OrderLine{
					ItemType:          model.LineItemBundle,
					ItemID:            b.ID,
					NameSnapshot:      b.Name,
					UnitPriceSnapshot: b.Price,
					Quantity:          l.Quantity,
				})
				subtotal += b.Price * l.Quantity

			default:
				return NewHTTPError(http.StatusBadRequest, "invalid item_type")
			}
		}

		//在庫減算（足りなければここで全部ロールバックされる）
		for _, d := range demands {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, d.productID, d.qty)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusConflict, "out of stock")
			}
		}

		//プロモはコードから割引額に解決して、その額だけを信用する
		var promoID string
		var discount int64 = 0
		if strings.TrimSpace(in.PromoCode) != "" {
			promoID, discount, err = u.promos.Resolve(ctx, in.PromoCode, subtotal)
			if errors.Is(err, gateway.ErrInvalidPromo) {
				return NewHTTPError(http.StatusBadRequest, "invalid promo code")
			}
			if err != nil {
				//解決側の障害。何もコミットしていないので再試行してよい
				return NewHTTPError(http.StatusInternalServerError, "promo resolver error")
			}
		}
		if discount < 0 || discount > subtotal {
			return NewHTTPError(http.StatusBadRequest, "invalid discount")
		}

		total := subtotal - discount

		plan, err := buildPaymentPlan(model.PaymentMethod(in.PaymentMethod), total, in.PaidAmount)
		if err != nil {
			return err
		}

		//注文番号はカウンターで採番（行カウント由来の衝突を避ける）
		seq, err := r.Counters().Next(ctx, orderNumberCounter)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		orderNumber := fmt.Sprintf("ORD-%06d", seq)

		now := time.Now()
		order := model.Order{
			OrderNumber:        orderNumber,
			UserID:             userID,
			RecipientName:      in.Shipping.RecipientName,
			Phone:              in.Shipping.Phone,
			Address:            in.Shipping.Address,
			City:               in.Shipping.City,
			Province:           in.Shipping.Province,
			PostalCode:         in.Shipping.PostalCode,
			Subtotal:           subtotal,
			Discount:           discount,
			Total:              total,
			PaymentMethod:      model.PaymentMethod(in.PaymentMethod),
			PaidAmount:         plan.paid,
			RemainingDebt:      plan.remaining,
			Status:             model.OrderStatusPendingPayment,
			PaymentEvidenceRef: in.PaymentEvidenceRef,
			PromoID:            promoID,
			IdempotencyKey:     key,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			//競合（同時で同じキーが入った等）はもう一回検索して同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err2 == nil && found2 {
				return u.loadOrderOutput(ctx, r, ex2, &out)
			}
			return NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		order.ID = orderID

		if err := r.OrderLines().CreateBulk(ctx, orderID, orderLines); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//残額があるときだけ売掛を開く
		var debt *model.Debt
		if plan.remaining > 0 {
			d := model.Debt{
				UserID:        userID,
				OrderID:       orderID,
				TotalDebt:     plan.remaining,
				PaidAmount:    0,
				RemainingDebt: plan.remaining,
				CreatedAt:     now,
			}
			debtID, err := r.Debts().Create(ctx, d)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			d.ID = debtID
			debt = &d
		}

		out = toOrderOutput(order, orderLines, debt)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 入金証憑の添付。顧客が注文に触れる唯一の更新で、入金確認待ちの間だけ許す。
func (u *CheckoutUsecase) AttachPaymentEvidence(ctx context.Context, userID int64, orderID int64, evidenceRef string) error {
	if userID <= 0 {
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
		//他人の注文は「存在しない扱い」にする
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if o.Status != model.OrderStatusPendingPayment {
			return NewHTTPError(http.StatusConflict, "order is not awaiting payment")
		}
		if o.PaymentMethod == model.PaymentMethodCredit {
			return NewHTTPError(http.StatusBadRequest, "credit order takes no payment evidence")
		}

		if err := r.Orders().UpdateFields(ctx, orderID, map[string]interface{}{
			"payment_evidence_ref": evidenceRef,
			"updated_at":           time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

func (u *CheckoutUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
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

func (u *CheckoutUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		return u.loadOrderOutput(ctx, r, o, &out)
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 明細と（あれば）売掛を付けてOrderOutputを組み立てる
func (u *CheckoutUsecase) loadOrderOutput(ctx context.Context, r repo.TxRepos, o model.Order, out *OrderOutput) error {
	lines, err := r.OrderLines().ListByOrderID(ctx, o.ID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var debt *model.Debt
	d, err := r.Debts().FindByOrderID(ctx, o.ID)
	if err == nil {
		debt = &d
	} else if err != repo.ErrNotFound {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	*out = toOrderOutput(o, lines, debt)
	return nil
}

func toOrderOutput(o model.Order, lines []model.OrderLine, debt *model.Debt) OrderOutput {
	outLines := make([]OrderLineOutput, 0, len(lines))
	for _, l := range lines {
		outLines = append(outLines, OrderLineOutput{
			ItemType: string(l.ItemType),
			ItemID:   l.ItemID,
			Name:     l.NameSnapshot,
			Price:    l.UnitPriceSnapshot,
			Quantity: l.Quantity,
		})
	}

	out := OrderOutput{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        string(o.Status),
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		Total:         o.Total,
		PaymentMethod: string(o.PaymentMethod),
		PaidAmount:    o.PaidAmount,
		RemainingDebt: o.RemainingDebt,
		IsPaid:        o.IsPaid(),
		Recipient: ShippingOutput{
			Name:       o.RecipientName,
			Phone:      o.Phone,
			Address:    o.Address,
			City:       o.City,
			Province:   o.Province,
			PostalCode: o.PostalCode,
		},
		Fulfillment: FulfillmentOutput{
			PaymentEvidenceRef:  o.PaymentEvidenceRef,
			PackingEvidenceRef:  o.PackingEvidenceRef,
			ShippingMethod:      string(o.ShippingMethod),
			CarrierName:         o.CarrierName,
			TrackingID:          o.TrackingID,
			TrackingEvidenceRef: o.TrackingEvidenceRef,
			ShippedAt:           o.ShippedAt,
		},
		CreatedAt: o.CreatedAt,
		Lines:     outLines,
	}

	if debt != nil {
		out.Debt = &DebtOutput{
			ID:            debt.ID,
			UserID:        debt.UserID,
			OrderID:       debt.OrderID,
			TotalDebt:     debt.TotalDebt,
			PaidAmount:    debt.PaidAmount,
			RemainingDebt: debt.RemainingDebt,
			CreatedAt:     debt.CreatedAt,
		}
	}

	return out
}
