package dispatch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"notehub/internal/circuitbreaker"
	"notehub/internal/domain"
)

// WebhookConfig points the dispatcher at the notification gateway.
type WebhookConfig struct {
	URL     string
	Secret  string // HMAC secret
	Timeout time.Duration
}

// WebhookPayload is the JSON body posted to the gateway.
type WebhookPayload struct {
	SubjectID   string          `json:"subject_id"`
	TriggerKey  string          `json:"trigger_key"`
	ScheduledAt string          `json:"scheduled_at"`
	FiredAt     string          `json:"fired_at"`
	Note        json.RawMessage `json:"note,omitempty"` // opaque trigger payload
}

// WebhookDispatcher posts HMAC-signed notifications over HTTP.
// Headers: X-Notehub-Trigger-Key, X-Notehub-Signature.
type WebhookDispatcher struct {
	config  WebhookConfig
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker // optional, nil = disabled
}

func NewWebhookDispatcher(config WebhookConfig) *WebhookDispatcher {
	return &WebhookDispatcher{
		config: config,
		client: &http.Client{},
	}
}

// WithBreaker guards the gateway with a circuit breaker. An open circuit
// fails the dispatch immediately; the failure is recorded like any other.
func (d *WebhookDispatcher) WithBreaker(cb *circuitbreaker.CircuitBreaker) *WebhookDispatcher {
	d.breaker = cb
	return d
}

func (d *WebhookDispatcher) Dispatch(ctx context.Context, event domain.FireEvent) Result {
	start := time.Now()

	if d.breaker != nil {
		if err := d.breaker.Allow(d.config.URL); err != nil {
			return Result{Error: err, Duration: time.Since(start)}
		}
	}

	result := d.send(ctx, event, start)

	if d.breaker != nil {
		if result.IsSuccess() {
			d.breaker.RecordSuccess(d.config.URL)
		} else {
			d.breaker.RecordFailure(d.config.URL)
		}
	}
	return result
}

func (d *WebhookDispatcher) send(ctx context.Context, event domain.FireEvent, start time.Time) Result {
	payload := WebhookPayload{
		SubjectID:   event.SubjectID,
		TriggerKey:  event.TriggerKey.String(),
		ScheduledAt: event.ScheduledAt.UTC().Format(time.RFC3339),
		FiredAt:     event.FiredAt.UTC().Format(time.RFC3339),
		Note:        event.Payload,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Error: fmt.Errorf("marshal: %w", err), Duration: time.Since(start)}
	}

	signature := computeSignature(d.config.Secret, body)

	timeout := d.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctxTimeout, http.MethodPost, d.config.URL, bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Errorf("create request: %w", err), Duration: time.Since(start)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Notehub-Trigger-Key", payload.TriggerKey)
	httpReq.Header.Set("X-Notehub-Signature", signature)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return Result{Error: fmt.Errorf("send: %w", err), Duration: time.Since(start)}
	}
	defer resp.Body.Close()

	return Result{StatusCode: resp.StatusCode, Duration: time.Since(start)}
}

func computeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature is for receivers to verify incoming notifications.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := computeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
