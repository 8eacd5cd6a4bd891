package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type BundleGormRepository struct {
	db *gorm.DB
}

func NewBundleGormRepository(db *gorm.DB) *BundleGormRepository {
	return &BundleGormRepository{db: db}
}

func (r *BundleGormRepository) FindByID(ctx context.Context, bundleID int64) (model.Bundle, error) {
	var b model.Bundle
	err := r.db.WithContext(ctx).Where("id = ?", bundleID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Bundle{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Bundle{}, err
	}
	return b, nil
}

func (r *BundleGormRepository) ListItems(ctx context.Context, bundleID int64) ([]model.BundleItem, error) {
	var items []model.BundleItem
	err := r.db.WithContext(ctx).Where("bundle_id = ?", bundleID).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.BundleItem{}, err
	}
	return items, nil
}
