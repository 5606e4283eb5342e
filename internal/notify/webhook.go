package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const defaultWebhookTimeout = 5 * time.Second

type webhookPayload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	TriggerAt string `json:"trigger_at,omitempty"`
	TaskID    string `json:"task_id,omitempty"`
}

// Webhook posts each notification as JSON to a push gateway.
type Webhook struct {
	URL     string
	Secret  string
	Timeout time.Duration
	Client  *http.Client
}

func (w Webhook) client() *http.Client {
	if w.Client != nil {
		return w.Client
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (w Webhook) Notify(ctx context.Context, n Notification) error {
	if strings.TrimSpace(w.URL) == "" {
		return fmt.Errorf("webhook url not configured")
	}
	payload := webhookPayload{Title: n.Title, Body: n.Body, TaskID: n.TaskID}
	if !n.Immediate() {
		payload.TriggerAt = n.At.UTC().Format(time.RFC3339)
	}
	data, err := sonic.ConfigStd.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	mode := "immediate"
	if !n.Immediate() {
		mode = "scheduled"
	}
	req.Header.Set("X-Taskboard-Delivery", mode)
	if strings.TrimSpace(w.Secret) != "" {
		req.Header.Set("X-Taskboard-Secret", w.Secret)
	}
	res, err := w.client().Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
