// Package store persists escrow custody: component state, one account row
// per agreement, and the append-only payment log.
package store

import (
	"context"

	"github.com/syndrizzle/briq/pkg/domain"
)

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

	// UpsertAccount creates the account on first funding and replaces it
	// on later updates.
	UpsertAccount(ctx context.Context, a domain.EscrowAccount) error
	// GetAccount fails with domain.ErrNotFound when the agreement was
	// never funded.
	GetAccount(ctx context.Context, agreementID domain.ID) (domain.EscrowAccount, error)

	AppendPayment(ctx context.Context, p domain.PaymentRecord) error
	// ListPayments returns the per-agreement log in append order. It fails
	// with domain.ErrNotFound when no account exists for the agreement.
	ListPayments(ctx context.Context, agreementID domain.ID) ([]domain.PaymentRecord, error)
}
