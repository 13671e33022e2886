package repository

import (
	"context"

	"feedstock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerRepository persists the per-(farm, material) stock ledger row and its
// optional baseline seed.
//
// UpdateRealQtyGuarded implements the optimistic-concurrency contract: the
// UPDATE is predicated on the expected version and reports whether it matched,
// instead of leaking a raw affected-row count to the service layer.
type LedgerRepository interface {
	FindRow(ctx context.Context, farmID, materialID uuid.UUID) (*model.StockLedger, error)
	ListByFarm(ctx context.Context, farmID uuid.UUID) ([]model.StockLedger, error)
	Create(ctx context.Context, row *model.StockLedger) error

	// SaveDerived updates the derived quantities of an existing row without
	// touching its version (automatic recalculation path).
	SaveDerived(ctx context.Context, row *model.StockLedger) error

	// UpdateRealQtyGuarded applies a manual correction iff the row still has
	// expectedVersion; on match the version is incremented by exactly 1.
	// Returns (false, nil) when the predicate matched zero rows.
	UpdateRealQtyGuarded(ctx context.Context, row *model.StockLedger, expectedVersion int64) (bool, error)

	FindBaseline(ctx context.Context, farmID, materialID uuid.UUID) (*model.StockBaseline, error)
	UpsertBaseline(ctx context.Context, b *model.StockBaseline) error
}

type ledgerRepo struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) LedgerRepository { return &ledgerRepo{db: db} }

func (r *ledgerRepo) FindRow(ctx context.Context, farmID, materialID uuid.UUID) (*model.StockLedger, error) {
	var row model.StockLedger
	err := r.db.WithContext(ctx).
		Where("farm_id = ? AND raw_material_id = ?", farmID, materialID).
		First(&row).Error
	return &row, err
}

func (r *ledgerRepo) ListByFarm(ctx context.Context, farmID uuid.UUID) ([]model.StockLedger, error) {
	var rows []model.StockLedger
	err := r.db.WithContext(ctx).Preload("RawMaterial").
		Where("farm_id = ?", farmID).
		Find(&rows).Error
	return rows, err
}

func (r *ledgerRepo) Create(ctx context.Context, row *model.StockLedger) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *ledgerRepo) SaveDerived(ctx context.Context, row *model.StockLedger) error {
	return r.db.WithContext(ctx).Model(&model.StockLedger{}).Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"accumulated_qty": row.AccumulatedQty,
			"system_qty":      row.SystemQty,
			"real_qty":        row.RealQty,
			"shrinkage":       row.Shrinkage,
			"warehouse_price": row.WarehousePrice,
			"stock_value":     row.StockValue,
		}).Error
}

func (r *ledgerRepo) UpdateRealQtyGuarded(ctx context.Context, row *model.StockLedger, expectedVersion int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.StockLedger{}).
		Where("id = ? AND version = ?", row.ID, expectedVersion).
		Updates(map[string]interface{}{
			"accumulated_qty": row.AccumulatedQty,
			"system_qty":      row.SystemQty,
			"real_qty":        row.RealQty,
			"shrinkage":       row.Shrinkage,
			"warehouse_price": row.WarehousePrice,
			"stock_value":     row.StockValue,
			"version":         gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ledgerRepo) FindBaseline(ctx context.Context, farmID, materialID uuid.UUID) (*model.StockBaseline, error) {
	var b model.StockBaseline
	err := r.db.WithContext(ctx).
		Where("farm_id = ? AND raw_material_id = ?", farmID, materialID).
		First(&b).Error
	return &b, err
}

func (r *ledgerRepo) UpsertBaseline(ctx context.Context, b *model.StockBaseline) error {
	var existing model.StockBaseline
	err := r.db.WithContext(ctx).
		Where("farm_id = ? AND raw_material_id = ?", b.FarmID, b.RawMaterialID).
		First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(b).Error
	}
	if err != nil {
		return err
	}
	b.ID = existing.ID
	return r.db.WithContext(ctx).Save(b).Error
}
