package service

import (
	"context"

	"feedstock/internal/model"

	"github.com/google/uuid"
)

// AlertNotifier is the outbound port to the alerting collaborator. Delivery
// is best effort: a notification failure must never roll back the ledger
// mutation that triggered it.
type AlertNotifier interface {
	StockCritical(ctx context.Context, row *model.StockLedger) error
	StockRecovered(ctx context.Context, row *model.StockLedger) error
}

// RecalcTracker records which (farm, material) pairs have a cascade in
// flight, so a reconciliation sweep can re-derive any pair whose cascade was
// cut short by a crash. Both methods are best effort.
type RecalcTracker interface {
	MarkDirty(ctx context.Context, farmID, materialID uuid.UUID)
	ClearDirty(ctx context.Context, farmID, materialID uuid.UUID)
}
