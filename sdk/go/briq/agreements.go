package briq

import (
	"context"
	"net/http"
	"net/url"

	"github.com/syndrizzle/briq/pkg/domain"
)

type CreateAgreementRequest struct {
	PropertyID domain.ID      `json:"property_id"`
	Tenant     domain.Address `json:"tenant"`
	StartDate  int64          `json:"start_date"`
	EndDate    int64          `json:"end_date"`
}

type agreementEnvelope struct {
	Agreement domain.Agreement `json:"agreement"`
}

type agreementListEnvelope struct {
	Agreements []domain.Agreement `json:"agreements"`
}

func (c *Client) CreateAgreement(ctx context.Context, req CreateAgreementRequest) (domain.Agreement, error) {
	var out agreementEnvelope
	err := c.do(ctx, http.MethodPost, "/agreements/", req, &out, true)
	return out.Agreement, err
}

func (c *Client) TenantSign(ctx context.Context, agreementID domain.ID) (domain.Agreement, error) {
	return c.agreementAction(ctx, agreementID, "tenant-sign")
}

func (c *Client) LandlordSign(ctx context.Context, agreementID domain.ID) (domain.Agreement, error) {
	return c.agreementAction(ctx, agreementID, "landlord-sign")
}

func (c *Client) CompleteAgreement(ctx context.Context, agreementID domain.ID) (domain.Agreement, error) {
	return c.agreementAction(ctx, agreementID, "complete")
}

func (c *Client) CancelAgreement(ctx context.Context, agreementID domain.ID) (domain.Agreement, error) {
	return c.agreementAction(ctx, agreementID, "cancel")
}

func (c *Client) agreementAction(ctx context.Context, agreementID domain.ID, action string) (domain.Agreement, error) {
	var out agreementEnvelope
	path := "/agreements/" + url.PathEscape(string(agreementID)) + "/" + action
	err := c.do(ctx, http.MethodPost, path, nil, &out, true)
	return out.Agreement, err
}

func (c *Client) GetAgreement(ctx context.Context, agreementID domain.ID) (domain.Agreement, error) {
	var out agreementEnvelope
	path := "/agreements/" + url.PathEscape(string(agreementID))
	err := c.do(ctx, http.MethodGet, path, nil, &out, false)
	return out.Agreement, err
}

// ListAgreements filters by at most one of tenant, landlord, or property.
// All-empty filters list everything.
func (c *Client) ListAgreements(ctx context.Context, tenant, landlord domain.Address, propertyID domain.ID) ([]domain.Agreement, error) {
	v := url.Values{}
	if tenant != "" {
		v.Set("tenant", string(tenant))
	}
	if landlord != "" {
		v.Set("landlord", string(landlord))
	}
	if propertyID != "" {
		v.Set("property_id", string(propertyID))
	}
	path := "/agreements/"
	if enc := v.Encode(); enc != "" {
		path += "?" + enc
	}
	var out agreementListEnvelope
	err := c.do(ctx, http.MethodGet, path, nil, &out, false)
	return out.Agreements, err
}
