// Package store persists the reward token: component state with metadata
// and reward amounts, the balance table, the supply counter, and the
// one-shot claim markers.
package store

import (
	"context"
	"errors"

	"github.com/syndrizzle/briq/pkg/domain"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOverflow            = errors.New("balance arithmetic overflow")
)

// State is the one-time component configuration. Config stays mutable
// through SetRewardConfig.
type State struct {
	Admin    domain.Address       `json:"admin"`
	Paused   bool                 `json:"paused"`
	Metadata domain.TokenMetadata `json:"metadata"`
	Config   domain.RewardConfig  `json:"config"`
}

// Credit is one mint inside a claim redemption.
type Credit struct {
	To     domain.Address `json:"to"`
	Amount int64          `json:"amount"`
}

type Store interface {
	// InitState fails with domain.ErrAlreadyInitialized on re-init.
	InitState(ctx context.Context, s State) error
	// GetState fails with domain.ErrNotInitialized before InitState.
	GetState(ctx context.Context) (State, error)
	SetPaused(ctx context.Context, paused bool) error
	SetRewardConfig(ctx context.Context, c domain.RewardConfig) error

	Balance(ctx context.Context, addr domain.Address) (int64, error)
	TotalSupply(ctx context.Context) (int64, error)

	// Transfer, Mint and Burn are atomic. Transfer and Burn fail with
	// ErrInsufficientBalance when the debit side cannot cover the amount.
	Transfer(ctx context.Context, from, to domain.Address, amount int64) error
	Mint(ctx context.Context, to domain.Address, amount int64) error
	Burn(ctx context.Context, from domain.Address, amount int64) error

	// RedeemClaim marks the key claimed and applies the credits in one
	// atomic step. It reports false without side effects when the key was
	// already claimed.
	RedeemClaim(ctx context.Context, key string, credits []Credit) (bool, error)
}
