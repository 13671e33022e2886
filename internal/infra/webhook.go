package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// StockAlertPayload is posted to the configured alerting webhook whenever a
// ledger row crosses the critical threshold (real quantity <= 0) or recovers.
type StockAlertPayload struct {
	Event         string `json:"event"` // stock_critical | stock_recovered
	FarmID        string `json:"farm_id"`
	RawMaterialID string `json:"raw_material_id"`
	RealQty       string `json:"real_qty"`
	SystemQty     string `json:"system_qty"`
	OccurredAt    string `json:"occurred_at"`
}

// AlertWebhookClient delivers stock alerts to an external collaborator over
// HTTP. Failures are handled by the caller (worker retry + circuit breaker);
// the client itself does a single attempt.
type AlertWebhookClient struct {
	url        string
	httpClient *http.Client
}

func NewAlertWebhookClient(url string) *AlertWebhookClient {
	return &AlertWebhookClient{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured at all.
func (c *AlertWebhookClient) Enabled() bool { return c.url != "" }

func (c *AlertWebhookClient) Send(ctx context.Context, payload StockAlertPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("alert webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("alert webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("alert webhook: unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook: returned %d", resp.StatusCode)
	}
	return nil
}
