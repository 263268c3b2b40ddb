// Package rewardclient triggers the first-payment incentive on the reward
// ledger. Calls are best-effort from the engine's point of view.
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

func (c *Client) RewardFirstPayment(ctx context.Context, agreementID domain.ID, tenant domain.Address) error {
	body, err := json.Marshal(map[string]any{"agreement_id": agreementID, "tenant": tenant})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/rewards/first-payment", bytes.NewReader(body))
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
