// Package assetclient moves the settlement asset through the external
// transfer service. The engine never keeps its own currency ledger; every
// transfer either fully happens or fully fails on the asset side.
package assetclient

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

func (c *Client) Transfer(ctx context.Context, from, to domain.Address, amount int64) error {
	body, err := json.Marshal(map[string]any{"from": from, "to": to, "amount": amount})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transfers", bytes.NewReader(body))
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
		return fmt.Errorf("asset service returned %d", resp.StatusCode)
	}
	return nil
}
