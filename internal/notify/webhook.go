package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// WebhookNotifier POSTs events as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(url string, logger *zap.Logger) (*WebhookNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for webhook notifier")
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}, nil
}

// Notify implements Notifier.
func (w *WebhookNotifier) Notify(ctx context.Context, event Event) {
	event = stamp(event)

	payload, err := json.Marshal(event)
	if err != nil {
		logDelivery(w.logger, "webhook", event, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		logDelivery(w.logger, "webhook", event, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		logDelivery(w.logger, "webhook", event, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		logDelivery(w.logger, "webhook", event,
			fmt.Errorf("webhook returned status %d", resp.StatusCode))
		return
	}
	logDelivery(w.logger, "webhook", event, nil)
}
