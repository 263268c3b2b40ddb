package briq

import (
	"context"
	"net/http"
	"net/url"

	"github.com/syndrizzle/briq/pkg/domain"
)

type escrowEnvelope struct {
	Escrow domain.EscrowAccount `json:"escrow"`
}

type paymentsEnvelope struct {
	Payments []domain.PaymentRecord `json:"payments"`
}

func (c *Client) FundEscrow(ctx context.Context, agreementID domain.ID) (domain.EscrowAccount, error) {
	return c.escrowAction(ctx, agreementID, "fund")
}

func (c *Client) PayRent(ctx context.Context, agreementID domain.ID) (domain.EscrowAccount, error) {
	return c.escrowAction(ctx, agreementID, "rent")
}

func (c *Client) ReleaseDeposit(ctx context.Context, agreementID domain.ID) (domain.EscrowAccount, error) {
	return c.escrowAction(ctx, agreementID, "release-deposit")
}

func (c *Client) escrowAction(ctx context.Context, agreementID domain.ID, action string) (domain.EscrowAccount, error) {
	var out escrowEnvelope
	path := "/escrow/" + url.PathEscape(string(agreementID)) + "/" + action
	err := c.do(ctx, http.MethodPost, path, nil, &out, true)
	return out.Escrow, err
}

func (c *Client) GetEscrow(ctx context.Context, agreementID domain.ID) (domain.EscrowAccount, error) {
	var out escrowEnvelope
	path := "/escrow/" + url.PathEscape(string(agreementID))
	err := c.do(ctx, http.MethodGet, path, nil, &out, false)
	return out.Escrow, err
}

func (c *Client) PaymentHistory(ctx context.Context, agreementID domain.ID) ([]domain.PaymentRecord, error) {
	var out paymentsEnvelope
	path := "/escrow/" + url.PathEscape(string(agreementID)) + "/payments"
	err := c.do(ctx, http.MethodGet, path, nil, &out, false)
	return out.Payments, err
}
