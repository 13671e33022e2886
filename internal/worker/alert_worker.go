package worker

// alert_worker.go
// Delivers critical-stock alerts dequeued from QueueAlerts to the external
// webhook, behind the circuit breaker so an unavailable receiver does not get
// hammered by the whole pool.

import (
	"context"
	"encoding/json"

	"feedstock/internal/infra"

	"github.com/rs/zerolog/log"
)

type AlertWorker struct {
	webhook *infra.AlertWebhookClient
	cb      *infra.CircuitBreaker
}

func NewAlertWorker(webhook *infra.AlertWebhookClient, cb *infra.CircuitBreaker) *AlertWorker {
	return &AlertWorker{webhook: webhook, cb: cb}
}

func (w *AlertWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload infra.StockAlertPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return nil // malformed jobs are not retryable
	}
	if !w.webhook.Enabled() {
		return nil
	}

	err := w.cb.Execute(func() error {
		return w.webhook.Send(ctx, payload)
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("event", payload.Event).
			Str("raw_material_id", payload.RawMaterialID).
			Msg("alert_worker: delivery failed")
		return err
	}
	log.Info().
		Str("event", payload.Event).
		Str("farm_id", payload.FarmID).
		Msg("alert_worker: alert delivered")
	return nil
}
