// Package webhooks signs and verifies outbound event deliveries. The sender
// HMACs the raw body with a shared secret; receivers verify before parsing.
package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

const (
	SignatureHeader = "X-Briq-Signature"
	EventKindHeader = "X-Briq-Event-Kind"

	scheme = "briq-hmac-sha256/v1"
)

// Sign returns the hex HMAC-SHA256 of rawBody under secret.
func Sign(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

type VerificationResult struct {
	Valid     bool   `json:"valid"`
	Scheme    string `json:"scheme"`
	EventKind string `json:"event_kind,omitempty"`
}

// Verify checks a received delivery against the shared secret. A missing or
// malformed signature yields Valid=false without error; only an unusable
// secret is an error.
func Verify(headers http.Header, rawBody []byte, secret string) (VerificationResult, error) {
	if strings.TrimSpace(secret) == "" {
		return VerificationResult{}, fmt.Errorf("webhook secret is empty")
	}
	res := VerificationResult{
		Scheme:    scheme,
		EventKind: strings.TrimSpace(headers.Get(EventKindHeader)),
	}
	sigHex := strings.TrimSpace(headers.Get(SignatureHeader))
	if sigHex == "" {
		return res, nil
	}
	provided, err := hex.DecodeString(sigHex)
	if err != nil {
		return res, nil
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	res.Valid = hmac.Equal(mac.Sum(nil), provided)
	return res, nil
}
