package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PriceReasonPurchase   = "purchase"
	PriceReasonLineEdit   = "line_edit"
	PriceReasonLineDelete = "line_delete"
	PriceReasonManual     = "manual"
)

// PriceChange records each raw-material price transition. Records are
// immutable — never deleted or modified.
type PriceChange struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RawMaterialID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierID    *uuid.UUID      `gorm:"type:uuid;index"`
	PriceBefore   decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	PriceAfter    decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	PercentDelta  decimal.Decimal `gorm:"type:decimal(8,2);not null"`
	Reason        string          `gorm:"not null;default:'purchase'"`
	CreatedAt     time.Time

	RawMaterial *RawMaterial `gorm:"foreignKey:RawMaterialID"`
	Supplier    *Supplier    `gorm:"foreignKey:SupplierID"`
}

func (PriceChange) TableName() string { return "price_changes" }
