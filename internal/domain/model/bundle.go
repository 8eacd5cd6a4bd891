package model

import (
	"time"

	"gorm.io/gorm"
)

// バンドル（固定の商品セットをまとめ価格で売る）。
// 在庫はバンドル自身には持たせず、構成商品の在庫を消費する。
type Bundle struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Price     int64          `gorm:"not null" json:"price"`
	IsActive  bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// バンドルの構成1件（商品×数量）。
type BundleItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	BundleID  int64 `gorm:"not null;index" json:"bundle_id"`
	ProductID int64 `gorm:"not null;index" json:"product_id"`
	Quantity  int64 `gorm:"not null" json:"quantity"`
}
