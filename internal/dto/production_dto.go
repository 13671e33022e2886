package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductionCreateRequest struct {
	RecipeID uuid.UUID       `json:"recipe_id" binding:"required"`
	Date     time.Time       `json:"date" binding:"required"`
	Batches  decimal.Decimal `json:"batches" binding:"required,gt=0"`
}

type ProductionUpdateRequest struct {
	RecipeID *uuid.UUID       `json:"recipe_id"`
	Date     *time.Time       `json:"date"`
	Batches  *decimal.Decimal `json:"batches" binding:"omitempty,gt=0"`
}
