package model

import "time"

type OrderStatus string

const (
	//入金確認待ち（作成直後）
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	//確認済み・発送準備中
	OrderStatusProcessing OrderStatus = "PROCESSING"
	//発送済み
	OrderStatusShipped OrderStatus = "SHIPPED"
	//完了（終端）
	OrderStatusCompleted OrderStatus = "COMPLETED"
	//キャンセル（終端）
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type PaymentMethod string

const (
	//全額前払い
	PaymentMethodFull PaymentMethod = "FULL"
	//一部前払い（残りは売掛）
	PaymentMethodPartial PaymentMethod = "PARTIAL"
	//後払い（全額売掛）
	PaymentMethodCredit PaymentMethod = "CREDIT"
)

type ShippingMethod string

const (
	//配送業者（業者名＋追跡番号が必須）
	ShippingMethodCarrier ShippingMethod = "CARRIER"
	//自社配達（追跡番号は自動採番）
	ShippingMethodOwnDriver ShippingMethod = "OWN_DRIVER"
)

// 注文。total = subtotal - discount、total = paid_amount + remaining_debt を常に保つ。
// 配送先は注文時点のスナップショット（後の住所変更の影響を受けない）。
type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	UserID      int64  `gorm:"not null;index" json:"user_id"`

	//配送先スナップショット
	RecipientName string `gorm:"type:varchar(255);not null" json:"recipient_name"`
	Phone         string `gorm:"type:varchar(32);not null" json:"phone"`
	Address       string `gorm:"type:text;not null" json:"address"`
	City          string `gorm:"type:varchar(100);not null" json:"city"`
	Province      string `gorm:"type:varchar(100);not null" json:"province"`
	PostalCode    string `gorm:"type:varchar(16)" json:"postal_code"`

	Subtotal int64 `gorm:"not null" json:"subtotal"`
	Discount int64 `gorm:"not null;default:0" json:"discount"`
	Total    int64 `gorm:"not null" json:"total"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaidAmount    int64         `gorm:"not null;default:0" json:"paid_amount"`
	RemainingDebt int64         `gorm:"not null;default:0" json:"remaining_debt"`

	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	//FULL/PARTIALの振込証憑（CREDITはなし）
	PaymentEvidenceRef string `gorm:"type:varchar(255)" json:"payment_evidence_ref,omitempty"`

	//出荷まわり（PROCESSING以降で埋まる）
	PackingEvidenceRef  string         `gorm:"type:varchar(255)" json:"packing_evidence_ref,omitempty"`
	ShippingMethod      ShippingMethod `gorm:"type:varchar(20)" json:"shipping_method,omitempty"`
	CarrierName         string         `gorm:"type:varchar(100)" json:"carrier_name,omitempty"`
	TrackingID          string         `gorm:"type:varchar(100)" json:"tracking_id,omitempty"`
	TrackingEvidenceRef string         `gorm:"type:varchar(255)" json:"tracking_evidence_ref,omitempty"`
	ShippedAt           *time.Time     `json:"shipped_at,omitempty"`

	//プロモ適用時の識別子（割引額はDiscountに確定済み）
	PromoID string `gorm:"type:varchar(64)" json:"promo_id,omitempty"`

	IdempotencyKey string `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 支払済みかは保存せず導出する（paid_amountとの二重管理を避ける）
func (o Order) IsPaid() bool {
	return o.PaidAmount == o.Total
}

// 許可された遷移だけtrue。
// PENDING_PAYMENT → PROCESSING / CANCELLED
// PROCESSING → SHIPPED
// SHIPPED → COMPLETED
func (o Order) CanTransitionTo(next OrderStatus) bool {
	switch o.Status {
	case OrderStatusPendingPayment:
		return next == OrderStatusProcessing || next == OrderStatusCancelled
	case OrderStatusProcessing:
		return next == OrderStatusShipped
	case OrderStatusShipped:
		return next == OrderStatusCompleted
	default:
		//COMPLETED / CANCELLED は終端
		return false
	}
}
