package promo

import (
	"context"
	"errors"
	"time"

	"app/internal/gateway"

	"gorm.io/gorm"
)

// プロモテーブルの行。コアはこの形を知らない（割引額だけ受け取る）。
type Promo struct {
	ID        string     `gorm:"primaryKey;type:varchar(64)"`
	Code      string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	Amount    int64      `gorm:"not null"`
	MinSpend  int64      `gorm:"not null;default:0"`
	IsActive  bool       `gorm:"not null;default:true"`
	ExpiresAt *time.Time `gorm:""`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime"`
}

type GormResolver struct {
	db *gorm.DB
}

func NewGormResolver(db *gorm.DB) *GormResolver {
	return &GormResolver{db: db}
}

func (r *GormResolver) Resolve(ctx context.Context, code string, subtotal int64) (string, int64, error) {
	var p Promo
	err := r.db.WithContext(ctx).Where("code = ? AND is_active = true", code).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, gateway.ErrInvalidPromo
	}
	if err != nil {
		return "", 0, err
	}

	if p.ExpiresAt != nil && time.Now().After(*p.ExpiresAt) {
		return "", 0, gateway.ErrInvalidPromo
	}
	if subtotal < p.MinSpend {
		return "", 0, gateway.ErrInvalidPromo
	}

	//割引が小計を超えることはない
	discount := p.Amount
	if discount > subtotal {
		discount = subtotal
	}
	return p.ID, discount, nil
}
