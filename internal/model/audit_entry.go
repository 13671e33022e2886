package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is an append-only record of create/delete/restore/bulk-delete
// actions on purchases and production runs, with before/after snapshots.
type AuditEntry struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ActorID   uuid.UUID       `gorm:"type:uuid;not null"`
	Action    string          `gorm:"type:varchar(30);not null"` // create | delete | restore | bulk_delete
	Entity    string          `gorm:"type:varchar(30);not null"` // purchase | production_run
	EntityID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Before    json.RawMessage `gorm:"type:jsonb"`
	After     json.RawMessage `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (AuditEntry) TableName() string { return "audit_entries" }
