package dto

import (
	"github.com/shopspring/decimal"
)

type RawMaterialCreateRequest struct {
	Code string `json:"code" binding:"required,max=30"`
	Name string `json:"name" binding:"required,max=120"`
	// InitialPrice seeds current_price before the first purchase arrives.
	InitialPrice decimal.Decimal `json:"initial_price" binding:"omitempty,gte=0"`
}

type RawMaterialUpdateRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=120"`
	Active *bool   `json:"active"`
}

// ManualPriceRequest sets a material price outside the purchase flow
// (supervisor correction); recorded in the price history with reason "manual".
type ManualPriceRequest struct {
	Price decimal.Decimal `json:"price" binding:"required,gt=0"`
}
