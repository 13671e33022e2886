package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SetRealQtyRequest struct {
	RealQty decimal.Decimal `json:"real_qty" binding:"gte=0"`
}

type BaselineRequest struct {
	InitialQty   decimal.Decimal `json:"initial_qty" binding:"gte=0"`
	InitialPrice decimal.Decimal `json:"initial_price" binding:"gte=0"`
}

type LedgerRowResponse struct {
	ID              uuid.UUID       `json:"id"`
	FarmID          uuid.UUID       `json:"farm_id"`
	RawMaterialID   uuid.UUID       `json:"raw_material_id"`
	RawMaterialCode string          `json:"raw_material_code,omitempty"`
	RawMaterialName string          `json:"raw_material_name,omitempty"`
	AccumulatedQty  decimal.Decimal `json:"accumulated_qty"`
	SystemQty       decimal.Decimal `json:"system_qty"`
	RealQty         decimal.Decimal `json:"real_qty"`
	Shrinkage       decimal.Decimal `json:"shrinkage"`
	WarehousePrice  decimal.Decimal `json:"warehouse_price"`
	StockValue      decimal.Decimal `json:"stock_value"`
	Version         int64           `json:"version"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
