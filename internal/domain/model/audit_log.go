package model

import "time"

// 注文の承認・出荷、在庫更新、入金記録など。
type AuditAction string

const (
	//入金確認して承認した操作。
	AuditActionApproveOrder AuditAction = "APPROVE_ORDER"
	//注文を却下した操作。
	AuditActionRejectOrder AuditAction = "REJECT_ORDER"
	//発送した操作。
	AuditActionShipOrder AuditAction = "SHIP_ORDER"
	//注文を完了にした操作。
	AuditActionCompleteOrder AuditAction = "COMPLETE_ORDER"
	//在庫を更新した操作。
	AuditActionUpdateStock AuditAction = "UPDATE_STOCK"
	//売掛への入金を記録した操作。
	AuditActionRecordDebtPayment AuditAction = "RECORD_DEBT_PAYMENT"
)

// 何に対する操作か
type AuditResourceType string

const (
	//商品に対する操作。
	AuditResourceProduct AuditResourceType = "product"

	//注文に対する操作。
	AuditResourceOrder AuditResourceType = "order"

	//売掛に対する操作。
	AuditResourceDebt AuditResourceType = "debt"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作した管理者のID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
