package briq

import (
	"context"
	"net/http"
	"net/url"

	"github.com/syndrizzle/briq/pkg/domain"
)

func (c *Client) TransferTokens(ctx context.Context, to domain.Address, amount int64) error {
	body := map[string]any{"to": to, "amount": amount}
	return c.do(ctx, http.MethodPost, "/rewards/transfer", body, nil, true)
}

// MintTokens is admin-only on the service side.
func (c *Client) MintTokens(ctx context.Context, to domain.Address, amount int64) error {
	body := map[string]any{"to": to, "amount": amount}
	return c.do(ctx, http.MethodPost, "/rewards/mint", body, nil, true)
}

func (c *Client) BurnTokens(ctx context.Context, amount int64) error {
	body := map[string]any{"amount": amount}
	return c.do(ctx, http.MethodPost, "/rewards/burn", body, nil, true)
}

func (c *Client) TokenBalance(ctx context.Context, addr domain.Address) (int64, error) {
	var out struct {
		Balance int64 `json:"balance"`
	}
	path := "/rewards/balances/" + url.PathEscape(string(addr))
	err := c.do(ctx, http.MethodGet, path, nil, &out, false)
	return out.Balance, err
}

func (c *Client) TotalSupply(ctx context.Context) (int64, error) {
	var out struct {
		TotalSupply int64 `json:"total_supply"`
	}
	err := c.do(ctx, http.MethodGet, "/rewards/supply", nil, &out, false)
	return out.TotalSupply, err
}

func (c *Client) TokenMetadata(ctx context.Context) (domain.TokenMetadata, error) {
	var out struct {
		Metadata domain.TokenMetadata `json:"metadata"`
	}
	err := c.do(ctx, http.MethodGet, "/rewards/metadata", nil, &out, false)
	return out.Metadata, err
}

func (c *Client) RewardConfig(ctx context.Context) (domain.RewardConfig, error) {
	var out struct {
		Config domain.RewardConfig `json:"config"`
	}
	err := c.do(ctx, http.MethodGet, "/rewards/config", nil, &out, false)
	return out.Config, err
}
