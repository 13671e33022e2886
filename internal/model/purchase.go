package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase is an invoice header. Deletion is always soft: Active=false plus
// deletion metadata; the ledger only sums lines whose header is active.
type Purchase struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID        uuid.UUID `gorm:"type:uuid;not null;index"`
	SupplierID    uuid.UUID `gorm:"type:uuid;not null;index"`
	InvoiceNumber string    `gorm:"not null"`
	Date          time.Time `gorm:"not null"`
	// Total is the sum of line subtotals, or the caller-declared provisional
	// total while the header has no lines yet.
	Total     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Active    bool            `gorm:"not null;default:true"`
	DeletedAt *time.Time
	DeletedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedBy uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Lines    []PurchaseLine `gorm:"foreignKey:PurchaseID"`
	Supplier *Supplier      `gorm:"foreignKey:SupplierID"`
}

// PurchaseLine records one raw-material position of an invoice.
// PriceBefore keeps the material's price immediately prior to this purchase
// for the price audit trail.
type PurchaseLine struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PurchaseID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	RawMaterialID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity      decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PriceBefore   decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Active        bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	RawMaterial *RawMaterial `gorm:"foreignKey:RawMaterialID"`
}
