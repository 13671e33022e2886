package worker

// notifier.go
// QueueNotifier is the service.AlertNotifier implementation: instead of
// calling the webhook inline, ledger recalculations enqueue alert jobs and
// the pool delivers them with retries and the circuit breaker. When an
// alerts mailbox is configured, each event also enqueues an email job.

import (
	"context"
	"fmt"
	"time"

	"feedstock/internal/infra"
	"feedstock/internal/model"
)

type QueueNotifier struct {
	dispatcher *Dispatcher
	alertEmail string
}

func NewQueueNotifier(dispatcher *Dispatcher, alertEmail string) *QueueNotifier {
	return &QueueNotifier{dispatcher: dispatcher, alertEmail: alertEmail}
}

func (n *QueueNotifier) StockCritical(ctx context.Context, row *model.StockLedger) error {
	if err := n.dispatcher.EnqueueAlert(ctx, n.payload("stock_critical", row)); err != nil {
		return err
	}
	return n.enqueueEmail(ctx, "Critical stock level", row, fmt.Sprintf(
		"Raw material %s on farm %s is at or below zero: counted %s kg (system %s kg).",
		row.RawMaterialID, row.FarmID, row.RealQty, row.SystemQty))
}

func (n *QueueNotifier) StockRecovered(ctx context.Context, row *model.StockLedger) error {
	if err := n.dispatcher.EnqueueAlert(ctx, n.payload("stock_recovered", row)); err != nil {
		return err
	}
	return n.enqueueEmail(ctx, "Stock level recovered", row, fmt.Sprintf(
		"Raw material %s on farm %s is back in stock: counted %s kg (system %s kg).",
		row.RawMaterialID, row.FarmID, row.RealQty, row.SystemQty))
}

func (n *QueueNotifier) enqueueEmail(ctx context.Context, subject string, row *model.StockLedger, body string) error {
	if n.alertEmail == "" {
		return nil
	}
	return n.dispatcher.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: n.alertEmail,
		Subject: subject,
		Body:    body,
	})
}

func (n *QueueNotifier) payload(event string, row *model.StockLedger) infra.StockAlertPayload {
	return infra.StockAlertPayload{
		Event:         event,
		FarmID:        row.FarmID.String(),
		RawMaterialID: row.RawMaterialID.String(),
		RealQty:       row.RealQty.String(),
		SystemQty:     row.SystemQty.String(),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
}
