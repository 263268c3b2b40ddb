// Package store persists the agreement ledger: component state plus the
// append-only agreement table and its by-tenant/by-landlord/by-property
// indices. Postgres backs production; Memory backs tests and dev mode.
package store

import (
	"context"

	"github.com/syndrizzle/briq/pkg/domain"
)

// State is the one-time component configuration. Escrow is the only address
// whose payment notifications the ledger honors.
type State struct {
	Admin  domain.Address `json:"admin"`
	Escrow domain.Address `json:"escrow"`
	Paused bool           `json:"paused"`
}

type Store interface {
	// InitState fails with domain.ErrAlreadyInitialized on re-init.
	InitState(ctx context.Context, s State) error
	// GetState fails with domain.ErrNotInitialized before InitState.
	GetState(ctx context.Context) (State, error)
	SetPaused(ctx context.Context, paused bool) error

	CreateAgreement(ctx context.Context, a domain.Agreement) error
	// GetAgreement fails with domain.ErrNotFound for unknown ids.
	GetAgreement(ctx context.Context, id domain.ID) (domain.Agreement, error)
	UpdateAgreement(ctx context.Context, a domain.Agreement) error

	// List queries return agreements in insertion order.
	ListAll(ctx context.Context) ([]domain.Agreement, error)
	ListByTenant(ctx context.Context, tenant domain.Address) ([]domain.Agreement, error)
	ListByLandlord(ctx context.Context, landlord domain.Address) ([]domain.Agreement, error)
	ListByProperty(ctx context.Context, propertyID domain.ID) ([]domain.Agreement, error)
}
