package briq

import (
	"context"
	"net/http"
	"net/url"

	"github.com/syndrizzle/briq/pkg/domain"
)

type SubmitReviewRequest struct {
	AgreementID domain.ID `json:"agreement_id"`
	Rating      int       `json:"rating"`
	ReviewText  string    `json:"review_text"`
}

// Eligibility reports whether a review would be accepted right now, with the
// rejection reason when it would not.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
}

type reviewEnvelope struct {
	Review domain.Review `json:"review"`
}

type reviewListEnvelope struct {
	Reviews []domain.Review `json:"reviews"`
}

func (c *Client) SubmitReview(ctx context.Context, req SubmitReviewRequest) (domain.Review, error) {
	var out reviewEnvelope
	err := c.do(ctx, http.MethodPost, "/reviews/", req, &out, true)
	return out.Review, err
}

func (c *Client) ReviewEligibility(ctx context.Context, reviewer domain.Address, agreementID domain.ID) (Eligibility, error) {
	v := url.Values{}
	v.Set("reviewer", string(reviewer))
	v.Set("agreement_id", string(agreementID))
	var out Eligibility
	err := c.do(ctx, http.MethodGet, "/reviews/eligibility?"+v.Encode(), nil, &out, false)
	return out, err
}

func (c *Client) GetReview(ctx context.Context, reviewID domain.ID) (domain.Review, error) {
	var out reviewEnvelope
	path := "/reviews/" + url.PathEscape(string(reviewID))
	err := c.do(ctx, http.MethodGet, path, nil, &out, false)
	return out.Review, err
}

func (c *Client) ReviewsByAgreement(ctx context.Context, agreementID domain.ID) ([]domain.Review, error) {
	v := url.Values{}
	v.Set("agreement_id", string(agreementID))
	var out reviewListEnvelope
	err := c.do(ctx, http.MethodGet, "/reviews/?"+v.Encode(), nil, &out, false)
	return out.Reviews, err
}

func (c *Client) ReviewsByReviewer(ctx context.Context, reviewer domain.Address) ([]domain.Review, error) {
	v := url.Values{}
	v.Set("reviewer", string(reviewer))
	var out reviewListEnvelope
	err := c.do(ctx, http.MethodGet, "/reviews/?"+v.Encode(), nil, &out, false)
	return out.Reviews, err
}
