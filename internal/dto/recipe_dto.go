package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RecipeLineRequest struct {
	RawMaterialID uuid.UUID       `json:"raw_material_id" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required,gt=0"`
}

type RecipeRequest struct {
	Code     string              `json:"code" binding:"required,max=30"`
	Name     string              `json:"name" binding:"required,max=120"`
	Category string              `json:"category" binding:"required,max=60"`
	Lines    []RecipeLineRequest `json:"lines" binding:"required,min=1,dive"`
}
