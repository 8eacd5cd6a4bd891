package model

import "time"

// 売掛（残債）。注文確定時に残額がある場合だけ作られる。
// total_debt = paid_amount + remaining_debt を常に保つ。
// 完済しても行は残す（remaining_debt = 0 になるだけ）。
type Debt struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	//発生元の注文（1注文につき最大1件）
	OrderID int64 `gorm:"not null;uniqueIndex" json:"order_id"`

	//作成時に確定し以後変わらない
	TotalDebt     int64 `gorm:"not null" json:"total_debt"`
	PaidAmount    int64 `gorm:"not null;default:0" json:"paid_amount"`
	RemainingDebt int64 `gorm:"not null" json:"remaining_debt"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 完済かどうかは保存せず導出する
func (d Debt) IsSettled() bool {
	return d.RemainingDebt == 0
}
