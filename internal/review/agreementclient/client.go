// Package agreementclient reads agreement snapshots from the agreement
// ledger service.
package agreementclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/syndrizzle/briq/pkg/domain"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{}}
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
