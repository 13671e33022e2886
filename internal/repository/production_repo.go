package repository

import (
	"context"
	"time"

	"feedstock/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, run *model.ProductionRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionRun, error)
	UpdateTx(tx *gorm.DB, run *model.ProductionRun) error
	ReplaceLinesTx(tx *gorm.DB, runID uuid.UUID, lines []model.ProductionLine) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, actor *uuid.UUID, at *time.Time) error
	ListByFarm(ctx context.Context, farmID uuid.UUID, includeInactive bool) ([]model.ProductionRun, error)

	// SumActiveConsumption is Σ(quantity) over lines of active runs for one
	// (farm, material) pair.
	SumActiveConsumption(ctx context.Context, farmID, materialID uuid.UUID) (decimal.Decimal, error)

	// CountActiveByFarm counts active runs on the farm (purchase-header
	// deletion is blocked while any exist).
	CountActiveByFarm(ctx context.Context, farmID uuid.UUID) (int64, error)

	// MaterialIDs returns the distinct raw materials the run consumed.
	MaterialIDs(ctx context.Context, runID uuid.UUID) ([]uuid.UUID, error)

	DB() *gorm.DB
}

type productionRepo struct{ db *gorm.DB }

func NewProductionRepository(db *gorm.DB) ProductionRepository { return &productionRepo{db: db} }

func (r *productionRepo) Create(ctx context.Context, tx *gorm.DB, run *model.ProductionRun) error {
	if tx == nil {
		tx = r.db.WithContext(ctx)
	}
	return tx.Create(run).Error
}

func (r *productionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductionRun, error) {
	var run model.ProductionRun
	err := r.db.WithContext(ctx).Preload("Lines").First(&run, id).Error
	return &run, err
}

func (r *productionRepo) UpdateTx(tx *gorm.DB, run *model.ProductionRun) error {
	return tx.Omit("Lines").Save(run).Error
}

func (r *productionRepo) ReplaceLinesTx(tx *gorm.DB, runID uuid.UUID, lines []model.ProductionLine) error {
	if err := tx.Where("production_run_id = ?", runID).Delete(&model.ProductionLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].ProductionRunID = runID
	}
	if len(lines) == 0 {
		return nil
	}
	return tx.Create(&lines).Error
}

func (r *productionRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, actor *uuid.UUID, at *time.Time) error {
	return r.db.WithContext(ctx).Model(&model.ProductionRun{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":     active,
			"deleted_by": actor,
			"deleted_at": at,
		}).Error
}

func (r *productionRepo) ListByFarm(ctx context.Context, farmID uuid.UUID, includeInactive bool) ([]model.ProductionRun, error) {
	q := r.db.WithContext(ctx).Preload("Lines").Where("farm_id = ?", farmID)
	if !includeInactive {
		q = q.Where("active = true")
	}
	var runs []model.ProductionRun
	err := q.Order("date DESC").Find(&runs).Error
	return runs, err
}

func (r *productionRepo) SumActiveConsumption(ctx context.Context, farmID, materialID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&model.ProductionLine{}).
		Select("SUM(production_lines.quantity)").
		Joins("JOIN production_runs ON production_runs.id = production_lines.production_run_id").
		Where("production_runs.farm_id = ? AND production_lines.raw_material_id = ?", farmID, materialID).
		Where("production_runs.active = true").
		Scan(&sum).Error
	if err != nil || !sum.Valid {
		return decimal.Zero, err
	}
	return sum.Decimal, nil
}

func (r *productionRepo) CountActiveByFarm(ctx context.Context, farmID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ProductionRun{}).
		Where("farm_id = ? AND active = true", farmID).
		Count(&n).Error
	return n, err
}

func (r *productionRepo) MaterialIDs(ctx context.Context, runID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.ProductionLine{}).
		Where("production_run_id = ?", runID).
		Distinct("raw_material_id").
		Pluck("raw_material_id", &ids).Error
	return ids, err
}

func (r *productionRepo) DB() *gorm.DB { return r.db }
