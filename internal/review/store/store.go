// Package store persists reviews: component state plus the append-only
// review table and its by-agreement/by-reviewer indices.
package store

import (
	"context"
	"errors"

	"github.com/syndrizzle/briq/pkg/domain"
)

// ErrDuplicateReview reports a second review by the same reviewer for the
// same agreement.
var ErrDuplicateReview = errors.New("reviewer already reviewed this agreement")

// State is the one-time component configuration.
type State struct {
	Admin  domain.Address `json:"admin"`
	Paused bool           `json:"paused"`
}

type Store interface {
	// InitState fails with domain.ErrAlreadyInitialized on re-init.
	InitState(ctx context.Context, s State) error
	// GetState fails with domain.ErrNotInitialized before InitState.
	GetState(ctx context.Context) (State, error)
	SetPaused(ctx context.Context, paused bool) error

	// CreateReview fails with ErrDuplicateReview when the (agreement,
	// reviewer) pair already has a review.
	CreateReview(ctx context.Context, r domain.Review) error
	// GetReview fails with domain.ErrNotFound for unknown ids.
	GetReview(ctx context.Context, id domain.ID) (domain.Review, error)

	// List queries return reviews in submission order.
	ListByAgreement(ctx context.Context, agreementID domain.ID) ([]domain.Review, error)
	ListByReviewer(ctx context.Context, reviewer domain.Address) ([]domain.Review, error)
}
