// Package registryclient talks to the external property catalog service.
package registryclient

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

func (c *Client) GetProperty(ctx context.Context, id domain.ID) (domain.Property, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/properties/%s", c.BaseURL, id), nil)
	if err != nil {
		return domain.Property{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.Property{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return domain.Property{}, domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return domain.Property{}, fmt.Errorf("registry returned %d", resp.StatusCode)
	}
	var out struct {
		Property domain.Property `json:"property"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Property{}, err
	}
	return out.Property, nil
}
