package model

// 採番カウンター（注文番号用）。
// 行数カウントではなくこの行をアトミックに+1して採番する。
type Counter struct {
	Name  string `gorm:"primaryKey;type:varchar(50)"`
	Value int64  `gorm:"not null"`
}
