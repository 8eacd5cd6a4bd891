package model

import "time"

type OrderLineItemType string

const (
	//単品（書籍など）
	LineItemProduct OrderLineItemType = "PRODUCT"
	//バンドル（固定の商品セット）
	LineItemBundle OrderLineItemType = "BUNDLE"
)

// 注文明細。価格と名前は注文時点のスナップショット（カタログ改定の影響を受けない）。
// 作成後は不変。
type OrderLine struct {
	ID                int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID           int64             `gorm:"not null;index" json:"order_id"`
	ItemType          OrderLineItemType `gorm:"type:varchar(20);not null" json:"item_type"`
	ItemID            int64             `gorm:"not null;index" json:"item_id"`
	NameSnapshot      string            `gorm:"type:varchar(255);not null" json:"name_snapshot"`
	UnitPriceSnapshot int64             `gorm:"not null" json:"unit_price_snapshot"`
	Quantity          int64             `gorm:"not null" json:"quantity"`
	CreatedAt         time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
}
