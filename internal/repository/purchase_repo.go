package repository

import (
	"context"
	"time"

	"feedstock/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceEvent is one priced stock inflow used by the warehouse price
// derivation: an active purchase line, or the baseline pseudo-event.
type PriceEvent struct {
	Qty       decimal.Decimal
	UnitPrice decimal.Decimal
}

// PurchaseRepository covers invoice headers and lines plus the typed
// aggregation queries the ledger derivation needs. "Active line" always means
// line.active AND header.active.
type PurchaseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, p *model.Purchase) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error)
	UpdateTx(tx *gorm.DB, p *model.Purchase) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, actor *uuid.UUID, at *time.Time) error
	ListByFarm(ctx context.Context, farmID uuid.UUID, includeInactive bool) ([]model.Purchase, error)

	FindLineByID(ctx context.Context, id uuid.UUID) (*model.PurchaseLine, error)
	CreateLineTx(tx *gorm.DB, l *model.PurchaseLine) error
	UpdateLineTx(tx *gorm.DB, l *model.PurchaseLine) error
	DeactivateLineTx(tx *gorm.DB, id uuid.UUID) error
	CountActiveLines(ctx context.Context, purchaseID uuid.UUID) (int64, error)

	// MaterialIDs returns the distinct raw materials that ever appeared on the
	// header's lines, active or not (needed by restore).
	MaterialIDs(ctx context.Context, purchaseID uuid.UUID) ([]uuid.UUID, error)

	// SumActiveQty is Σ(quantity) over active lines of active headers for one
	// (farm, material) pair.
	SumActiveQty(ctx context.Context, farmID, materialID uuid.UUID) (decimal.Decimal, error)

	// ListActivePriceEvents returns every active purchase-line event for the
	// pair, ordered oldest first.
	ListActivePriceEvents(ctx context.Context, farmID, materialID uuid.UUID) ([]PriceEvent, error)

	// LatestActiveUnitPrice returns the unit price of the most recent active
	// line for the pair, or nil when none remain.
	LatestActiveUnitPrice(ctx context.Context, farmID, materialID uuid.UUID) (*decimal.Decimal, error)

	DB() *gorm.DB
}

type purchaseRepo struct{ db *gorm.DB }

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository { return &purchaseRepo{db: db} }

func (r *purchaseRepo) Create(ctx context.Context, tx *gorm.DB, p *model.Purchase) error {
	if tx == nil {
		tx = r.db.WithContext(ctx)
	}
	return tx.Create(p).Error
}

func (r *purchaseRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	var p model.Purchase
	err := r.db.WithContext(ctx).Preload("Lines").First(&p, id).Error
	return &p, err
}

func (r *purchaseRepo) UpdateTx(tx *gorm.DB, p *model.Purchase) error {
	return tx.Omit("Lines").Save(p).Error
}

func (r *purchaseRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, actor *uuid.UUID, at *time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Purchase{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":     active,
			"deleted_by": actor,
			"deleted_at": at,
		}).Error
}

func (r *purchaseRepo) ListByFarm(ctx context.Context, farmID uuid.UUID, includeInactive bool) ([]model.Purchase, error) {
	q := r.db.WithContext(ctx).Preload("Lines").Where("farm_id = ?", farmID)
	if !includeInactive {
		q = q.Where("active = true")
	}
	var purchases []model.Purchase
	err := q.Order("date DESC").Find(&purchases).Error
	return purchases, err
}

func (r *purchaseRepo) FindLineByID(ctx context.Context, id uuid.UUID) (*model.PurchaseLine, error) {
	var l model.PurchaseLine
	err := r.db.WithContext(ctx).First(&l, id).Error
	return &l, err
}

func (r *purchaseRepo) CreateLineTx(tx *gorm.DB, l *model.PurchaseLine) error {
	return tx.Create(l).Error
}

func (r *purchaseRepo) UpdateLineTx(tx *gorm.DB, l *model.PurchaseLine) error {
	return tx.Save(l).Error
}

func (r *purchaseRepo) DeactivateLineTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&model.PurchaseLine{}).Where("id = ?", id).Update("active", false).Error
}

func (r *purchaseRepo) CountActiveLines(ctx context.Context, purchaseID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.PurchaseLine{}).
		Where("purchase_id = ? AND active = true", purchaseID).
		Count(&n).Error
	return n, err
}

func (r *purchaseRepo) MaterialIDs(ctx context.Context, purchaseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.PurchaseLine{}).
		Where("purchase_id = ?", purchaseID).
		Distinct("raw_material_id").
		Pluck("raw_material_id", &ids).Error
	return ids, err
}

func (r *purchaseRepo) SumActiveQty(ctx context.Context, farmID, materialID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&model.PurchaseLine{}).
		Select("SUM(purchase_lines.quantity)").
		Joins("JOIN purchases ON purchases.id = purchase_lines.purchase_id").
		Where("purchases.farm_id = ? AND purchase_lines.raw_material_id = ?", farmID, materialID).
		Where("purchases.active = true AND purchase_lines.active = true").
		Scan(&sum).Error
	if err != nil || !sum.Valid {
		return decimal.Zero, err
	}
	return sum.Decimal, nil
}

func (r *purchaseRepo) ListActivePriceEvents(ctx context.Context, farmID, materialID uuid.UUID) ([]PriceEvent, error) {
	var events []PriceEvent
	err := r.db.WithContext(ctx).Model(&model.PurchaseLine{}).
		Select("purchase_lines.quantity AS qty, purchase_lines.unit_price").
		Joins("JOIN purchases ON purchases.id = purchase_lines.purchase_id").
		Where("purchases.farm_id = ? AND purchase_lines.raw_material_id = ?", farmID, materialID).
		Where("purchases.active = true AND purchase_lines.active = true").
		Order("purchase_lines.created_at ASC").
		Scan(&events).Error
	return events, err
}

func (r *purchaseRepo) LatestActiveUnitPrice(ctx context.Context, farmID, materialID uuid.UUID) (*decimal.Decimal, error) {
	var l model.PurchaseLine
	err := r.db.WithContext(ctx).
		Joins("JOIN purchases ON purchases.id = purchase_lines.purchase_id").
		Where("purchases.farm_id = ? AND purchase_lines.raw_material_id = ?", farmID, materialID).
		Where("purchases.active = true AND purchase_lines.active = true").
		Order("purchase_lines.created_at DESC").
		First(&l).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &l.UnitPrice, nil
}

func (r *purchaseRepo) DB() *gorm.DB { return r.db }
