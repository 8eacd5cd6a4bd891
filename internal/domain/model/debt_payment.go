package model

import "time"

// 売掛への入金1件。作成後は不変。
// ある売掛の全入金額の合計は、その売掛のpaid_amountと常に一致する。
type DebtPayment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DebtID      int64     `gorm:"not null;index" json:"debt_id"`
	Amount      int64     `gorm:"not null" json:"amount"`
	EvidenceRef string    `gorm:"type:varchar(255)" json:"evidence_ref,omitempty"`
	Note        string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
