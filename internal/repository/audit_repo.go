package repository

import (
	"context"

	"feedstock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows audit entry listings.
type AuditFilter struct {
	FarmID   *uuid.UUID
	Entity   string
	EntityID *uuid.UUID
	Page     int
	Limit    int
}

type AuditRepository interface {
	Create(ctx context.Context, e *model.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]model.AuditEntry, int64, error)
}

type auditRepo struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &auditRepo{db: db} }

func (r *auditRepo) Create(ctx context.Context, e *model.AuditEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *auditRepo) List(ctx context.Context, filter AuditFilter) ([]model.AuditEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditEntry{})
	if filter.FarmID != nil {
		q = q.Where("farm_id = ?", *filter.FarmID)
	}
	if filter.Entity != "" {
		q = q.Where("entity = ?", filter.Entity)
	}
	if filter.EntityID != nil {
		q = q.Where("entity_id = ?", *filter.EntityID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var entries []model.AuditEntry
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, err
}
