// Package rewardclient triggers per-review and mutual incentives on the
// reward ledger. Calls are best-effort from the engine's point of view.
package rewardclient

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/syndrizzle/briq/pkg/authn"
	"github.com/syndrizzle/briq/pkg/domain"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Key     ed25519.PrivateKey
}

func New(baseURL string, key ed25519.PrivateKey) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{}, Key: key}
}

func (c *Client) RewardReview(ctx context.Context, agreementID domain.ID, reviewer domain.Address) error {
	return c.post(ctx, "/rewards/review", map[string]any{"agreement_id": agreementID, "reviewer": reviewer})
}

func (c *Client) RewardMutualReview(ctx context.Context, agreementID domain.ID) error {
	return c.post(ctx, "/rewards/mutual-review", map[string]any{"agreement_id": agreementID})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	tok, err := authn.Token(c.Key, time.Now())
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("reward ledger returned %d", resp.StatusCode)
	}
	return nil
}
