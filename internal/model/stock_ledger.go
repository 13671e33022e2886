package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLedger is the single persisted row per (farm, raw material) holding
// every derived inventory quantity. Rows are created lazily on the first
// recalculation and never deleted — they are recalculated toward zero instead.
//
// Version is bumped only by manual real-quantity edits (optimistic lock);
// automatic recalculation never touches it.
type StockLedger struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_farm_material"`
	RawMaterialID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_farm_material"`
	AccumulatedQty decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	SystemQty      decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	RealQty        decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	Shrinkage      decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	WarehousePrice decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	StockValue     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Version        int64           `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	RawMaterial *RawMaterial `gorm:"foreignKey:RawMaterialID"`
}

func (StockLedger) TableName() string { return "stock_ledger" }

// StockBaseline is a one-time seed representing pre-system stock for a
// (farm, raw material) pair. It participates in the ledger derivation as a
// pseudo purchase event.
type StockBaseline struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_farm_material_baseline"`
	RawMaterialID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_farm_material_baseline"`
	InitialQty    decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	InitialPrice  decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	CreatedAt     time.Time
}

func (StockBaseline) TableName() string { return "stock_baselines" }
