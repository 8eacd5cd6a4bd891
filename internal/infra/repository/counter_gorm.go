package repository

import (
	"context"

	"gorm.io/gorm"
)

type CounterGormRepository struct {
	db *gorm.DB
}

func NewCounterGormRepository(db *gorm.DB) *CounterGormRepository {
	return &CounterGormRepository{db: db}
}

// 1文のupsertで採番する（行カウントではないので同時実行でも衝突しない）
func (r *CounterGormRepository) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		 RETURNING value`,
		name,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}
