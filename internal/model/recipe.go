package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recipe (feed formula) is a fixed-weight mixture of raw materials. Line
// quantities must sum to the base weight (1000 kg) at creation time; line
// prices/costs are refreshed by the cost cascade whenever a constituent
// material's price changes.
type Recipe struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_farm_recipe_code"`
	Code   string    `gorm:"not null;uniqueIndex:idx_farm_recipe_code"`
	Name   string    `gorm:"not null"`
	// Category names the target animal/stage (e.g. "layer", "broiler starter")
	Category  string          `gorm:"not null"`
	TotalCost decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Active    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Lines []RecipeLine `gorm:"foreignKey:RecipeID"`
}

// RecipeLine is one ingredient of a formula. UnitPrice is the material price
// at the last recompute; Percentage is Quantity relative to the base weight.
type RecipeLine struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RecipeID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	RawMaterialID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity      decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Percentage    decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Cost          decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	RawMaterial *RawMaterial `gorm:"foreignKey:RawMaterialID"`
}
