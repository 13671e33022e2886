package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RawMaterial is a feed ingredient tracked per farm. CurrentPrice is the
// price of the most recent purchase (last write wins) and is the price used
// by production costing and recipe recalculation.
type RawMaterial struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_farm_material_code"`
	Code   string    `gorm:"not null;uniqueIndex:idx_farm_material_code"`
	Name   string    `gorm:"index;not null"`
	// CurrentPrice is per weight unit (kg)
	CurrentPrice decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	Active       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
