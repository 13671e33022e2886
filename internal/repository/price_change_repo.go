package repository

import (
	"context"

	"feedstock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PriceChangeRepository interface {
	CreateTx(tx *gorm.DB, pc *model.PriceChange) error
	ListByMaterial(ctx context.Context, materialID uuid.UUID, page, limit int) ([]model.PriceChange, int64, error)
}

type priceChangeRepo struct{ db *gorm.DB }

func NewPriceChangeRepository(db *gorm.DB) PriceChangeRepository {
	return &priceChangeRepo{db: db}
}

func (r *priceChangeRepo) CreateTx(tx *gorm.DB, pc *model.PriceChange) error {
	return tx.Create(pc).Error
}

// ListByMaterial returns paginated price-change records for one material,
// ordered newest-first (append-only table, so this reflects natural insert order).
func (r *priceChangeRepo) ListByMaterial(ctx context.Context, materialID uuid.UUID, page, limit int) ([]model.PriceChange, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.PriceChange{}).
		Where("raw_material_id = ?", materialID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.PriceChange
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("raw_material_id = ?", materialID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Preload("Supplier").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}
