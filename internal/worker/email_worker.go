package worker

// email_worker.go
// Sends alert emails (and report attachments) dequeued from QueueEmail via
// SMTP.

import (
	"context"
	"encoding/json"

	"feedstock/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail    string `json:"to_email"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	AttachPath string `json:"attach_path,omitempty"`
}

type EmailWorker struct {
	mailer *infra.Mailer
}

func NewEmailWorker(mailer *infra.Mailer) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	if err := w.mailer.Send(payload.ToEmail, payload.Subject, payload.Body, payload.AttachPath); err != nil {
		log.Error().Err(err).Str("to", payload.ToEmail).Msg("email_worker: send failed")
		return err
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: sent")
	return nil
}
