package repository

import (
	"context"

	"feedstock/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RawMaterialRepository is the data access contract for raw materials.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type RawMaterialRepository interface {
	Create(ctx context.Context, m *model.RawMaterial) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error)
	FindByCode(ctx context.Context, farmID uuid.UUID, code string) (*model.RawMaterial, error)
	ListByFarm(ctx context.Context, farmID uuid.UUID) ([]model.RawMaterial, error)
	Update(ctx context.Context, m *model.RawMaterial) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// FindByIDTx reads a material inside a caller-owned transaction, so
	// uncommitted price writes from earlier in the same transaction are
	// visible to the read.
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.RawMaterial, error)

	// UpdatePriceTx sets current_price inside a caller-owned transaction.
	UpdatePriceTx(tx *gorm.DB, id uuid.UUID, price decimal.Decimal) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type rawMaterialRepo struct{ db *gorm.DB }

func NewRawMaterialRepository(db *gorm.DB) RawMaterialRepository { return &rawMaterialRepo{db: db} }

func (r *rawMaterialRepo) Create(ctx context.Context, m *model.RawMaterial) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *rawMaterialRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error) {
	var m model.RawMaterial
	err := r.db.WithContext(ctx).First(&m, id).Error
	return &m, err
}

func (r *rawMaterialRepo) FindByCode(ctx context.Context, farmID uuid.UUID, code string) (*model.RawMaterial, error) {
	var m model.RawMaterial
	err := r.db.WithContext(ctx).
		Where("farm_id = ? AND code = ? AND active = true", farmID, code).
		First(&m).Error
	return &m, err
}

func (r *rawMaterialRepo) ListByFarm(ctx context.Context, farmID uuid.UUID) ([]model.RawMaterial, error) {
	var materials []model.RawMaterial
	err := r.db.WithContext(ctx).
		Where("farm_id = ? AND active = true", farmID).
		Order("code ASC").
		Find(&materials).Error
	return materials, err
}

func (r *rawMaterialRepo) Update(ctx context.Context, m *model.RawMaterial) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *rawMaterialRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.RawMaterial{}).Where("id = ?", id).Update("active", false).Error
}

func (r *rawMaterialRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.RawMaterial, error) {
	var m model.RawMaterial
	err := tx.First(&m, id).Error
	return &m, err
}

func (r *rawMaterialRepo) UpdatePriceTx(tx *gorm.DB, id uuid.UUID, price decimal.Decimal) error {
	return tx.Model(&model.RawMaterial{}).Where("id = ?", id).Update("current_price", price).Error
}

func (r *rawMaterialRepo) DB() *gorm.DB { return r.db }
