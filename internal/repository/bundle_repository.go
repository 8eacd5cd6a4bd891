package repository

import (
	"context"

	"app/internal/domain/model"
)

type BundleRepository interface {
	FindByID(ctx context.Context, bundleID int64) (model.Bundle, error)

	//バンドルの構成（商品×数量）を取得
	ListItems(ctx context.Context, bundleID int64) ([]model.BundleItem, error)
}
