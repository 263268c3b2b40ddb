package events

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/syndrizzle/briq/pkg/webhooks"
)

// WebhookSink POSTs each event as JSON to a configured observer endpoint.
// The body hash travels in X-Briq-Content-Sha256, and with a shared secret
// configured the body is HMAC-signed so receivers can authenticate it before
// parsing. Delivery is best effort; failures are logged and dropped.
type WebhookSink struct {
	URL    string
	Secret string
	HTTP   *http.Client
}

func NewWebhookSink(url, secret string) *WebhookSink {
	return &WebhookSink{URL: url, Secret: secret, HTTP: &http.Client{}}
}

func (s *WebhookSink) Emit(ctx context.Context, e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("X-Briq-Content-Sha256", hashBytes(body))
	req.Header.Set(webhooks.EventKindHeader, e.Kind)
	if s.Secret != "" {
		req.Header.Set(webhooks.SignatureHeader, webhooks.Sign(body, s.Secret))
	}

	resp, err := s.HTTP.Do(req)
	if err != nil {
		slog.Warn("webhook delivery failed", "kind", e.Kind, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		slog.Warn("webhook rejected", "kind", e.Kind, "status", resp.StatusCode)
	}
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
