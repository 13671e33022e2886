package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductionRun is one execution of a recipe at a given scale. Quantities are
// snapshots taken at creation/edit time at the then-current material prices.
type ProductionRun struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID   uuid.UUID `gorm:"type:uuid;not null;index"`
	RecipeID uuid.UUID `gorm:"type:uuid;not null;index"`
	Date     time.Time `gorm:"not null"`
	// Batches produced; one batch equals the recipe base weight.
	Batches        decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	ProducedWeight decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	TotalCost      decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CostPerKg      decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	// UnderStock flags that some line consumed more than the ledger's real
	// quantity at creation time. Informational, never blocks the run.
	UnderStock bool `gorm:"not null;default:false"`
	Active     bool `gorm:"not null;default:true"`
	DeletedAt  *time.Time
	DeletedBy  *uuid.UUID `gorm:"type:uuid"`
	CreatedBy  uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Lines  []ProductionLine `gorm:"foreignKey:ProductionRunID"`
	Recipe *Recipe          `gorm:"foreignKey:RecipeID"`
}

// ProductionLine records the consumption of one raw material by a run.
type ProductionLine struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductionRunID uuid.UUID       `gorm:"type:uuid;not null;index"`
	RawMaterialID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity        decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Cost            decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt       time.Time

	RawMaterial *RawMaterial `gorm:"foreignKey:RawMaterialID"`
}
