package model

import (
	"time"

	"github.com/google/uuid"
)

// Farm is the tenant unit: every raw material, purchase, production run and
// ledger row belongs to exactly one farm.
type Farm struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string    `gorm:"not null"`
	ContactEmail *string
	Active       bool `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
