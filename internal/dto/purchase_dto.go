package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PurchaseLineRequest struct {
	RawMaterialID uuid.UUID       `json:"raw_material_id" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required,gt=0"`
	UnitPrice     decimal.Decimal `json:"unit_price" binding:"required,gte=0"`
	Subtotal      decimal.Decimal `json:"subtotal" binding:"required,gte=0"`
}

type PurchaseCreateRequest struct {
	SupplierID    uuid.UUID             `json:"supplier_id" binding:"required"`
	InvoiceNumber string                `json:"invoice_number" binding:"required,max=40"`
	Date          time.Time             `json:"date" binding:"required"`
	// Total is only honored when Lines is empty (provisional header);
	// otherwise it must match the sum of line subtotals.
	Total decimal.Decimal       `json:"total" binding:"gte=0"`
	Lines []PurchaseLineRequest `json:"lines" binding:"dive"`
}

type PurchaseLineUpdateRequest struct {
	Quantity  decimal.Decimal `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required,gte=0"`
	Subtotal  decimal.Decimal `json:"subtotal" binding:"required,gte=0"`
}
