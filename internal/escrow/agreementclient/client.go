// Package agreementclient talks to the agreement ledger service. Mutating
// calls are attested with the escrow engine's own key, which the ledger
// recognizes as its escrow capability address.
package agreementclient

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

func (c *Client) Get(ctx context.Context, id domain.ID) (domain.Agreement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/agreements/%s", c.BaseURL, id), nil)
	if err != nil {
		return domain.Agreement{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.Agreement{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return domain.Agreement{}, domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return domain.Agreement{}, fmt.Errorf("agreement ledger returned %d", resp.StatusCode)
	}
	var out struct {
		Agreement domain.Agreement `json:"agreement"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Agreement{}, err
	}
	return out.Agreement, nil
}

func (c *Client) MarkDepositPaid(ctx context.Context, id domain.ID) error {
	return c.post(ctx, fmt.Sprintf("/agreements/%s/deposit-paid", id), nil)
}

func (c *Client) RecordRentPayment(ctx context.Context, id domain.ID, amount int64) error {
	return c.post(ctx, fmt.Sprintf("/agreements/%s/rent-payments", id), map[string]any{"amount": amount})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &buf)
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
		return fmt.Errorf("agreement ledger returned %d", resp.StatusCode)
	}
	return nil
}
