// Package ledger owns the incentive token: transfer/mint/burn plus the three
// idempotent reward entry points. Each entry point redeems a one-shot claim
// marker atomically with its mint, so retries never double-pay.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/syndrizzle/briq/internal/reward/store"
	"github.com/syndrizzle/briq/pkg/domain"
	"github.com/syndrizzle/briq/pkg/events"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// Agreements is the read-only boundary with the agreement ledger. The
// mutual-review reward fetches the parties itself instead of trusting the
// caller's claim.
type Agreements interface {
	Get(ctx context.Context, id domain.ID) (domain.Agreement, error)
}

type Ledger struct {
	Store      store.Store
	Agreements Agreements
	Events     events.Sink
	Now        func() time.Time
}

func New(st store.Store, agreements Agreements, sink events.Sink) *Ledger {
	return &Ledger{Store: st, Agreements: agreements, Events: sink, Now: time.Now}
}

func (l *Ledger) now() int64 { return l.Now().Unix() }

func (l *Ledger) emit(ctx context.Context, kind string, fields map[string]any) {
	if l.Events != nil {
		l.Events.Emit(ctx, events.Event{Kind: kind, At: l.now(), Fields: fields})
	}
}

func (l *Ledger) requireLive(ctx context.Context) (store.State, error) {
	st, err := l.Store.GetState(ctx)
	if err != nil {
		return store.State{}, err
	}
	if st.Paused {
		return store.State{}, domain.ErrPaused
	}
	return st, nil
}

// Initialize establishes the administrator and seeds the default metadata
// and reward amounts. One-time; the caller must be the named admin.
func (l *Ledger) Initialize(ctx context.Context, caller, admin domain.Address) error {
	if caller != admin {
		return domain.ErrUnauthorized
	}
	err := l.Store.InitState(ctx, store.State{
		Admin:    admin,
		Metadata: domain.DefaultTokenMetadata(),
		Config:   domain.DefaultRewardConfig(),
	})
	if err != nil {
		return err
	}
	l.emit(ctx, "Initialized", map[string]any{"admin": admin})
	return nil
}

func (l *Ledger) Pause(ctx context.Context, caller domain.Address) error {
	return l.setPaused(ctx, caller, true, "Paused")
}

func (l *Ledger) Unpause(ctx context.Context, caller domain.Address) error {
	return l.setPaused(ctx, caller, false, "Unpaused")
}

func (l *Ledger) setPaused(ctx context.Context, caller domain.Address, paused bool, kind string) error {
	st, err := l.Store.GetState(ctx)
	if err != nil {
		return err
	}
	if caller != st.Admin {
		return domain.ErrUnauthorized
	}
	if err := l.Store.SetPaused(ctx, paused); err != nil {
		return err
	}
	l.emit(ctx, kind, nil)
	return nil
}

// SetRewardConfig replaces the incentive amounts. Admin only.
func (l *Ledger) SetRewardConfig(ctx context.Context, caller domain.Address, c domain.RewardConfig) error {
	st, err := l.requireLive(ctx)
	if err != nil {
		return err
	}
	if caller != st.Admin {
		return domain.ErrUnauthorized
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := l.Store.SetRewardConfig(ctx, c); err != nil {
		return err
	}
	l.emit(ctx, "RewardConfigSet", map[string]any{
		"first_payment_reward": c.FirstPaymentReward,
		"review_reward":        c.ReviewReward,
		"mutual_review_bonus":  c.MutualReviewBonus,
	})
	return nil
}

// Transfer moves tokens from the caller's own balance.
func (l *Ledger) Transfer(ctx context.Context, caller, to domain.Address, amount int64) error {
	if _, err := l.requireLive(ctx); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := l.Store.Transfer(ctx, caller, to, amount); err != nil {
		return err
	}
	l.emit(ctx, "Transfer", map[string]any{"from": caller, "to": to, "amount": amount})
	return nil
}

// Mint creates tokens out of thin air. Admin only.
func (l *Ledger) Mint(ctx context.Context, caller, to domain.Address, amount int64) error {
	st, err := l.requireLive(ctx)
	if err != nil {
		return err
	}
	if caller != st.Admin {
		return domain.ErrUnauthorized
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := l.Store.Mint(ctx, to, amount); err != nil {
		return err
	}
	l.emit(ctx, "Mint", map[string]any{"to": to, "amount": amount})
	return nil
}

// Burn destroys tokens from the caller's own balance.
func (l *Ledger) Burn(ctx context.Context, caller domain.Address, amount int64) error {
	if _, err := l.requireLive(ctx); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := l.Store.Burn(ctx, caller, amount); err != nil {
		return err
	}
	l.emit(ctx, "Burn", map[string]any{"from": caller, "amount": amount})
	return nil
}

// RewardFirstPayment pays the first-payment incentive to the tenant once
// per (agreement, tenant). Safe to call any number of times.
func (l *Ledger) RewardFirstPayment(ctx context.Context, agreementID domain.ID, tenant domain.Address) error {
	st, err := l.requireLive(ctx)
	if err != nil {
		return err
	}
	if st.Config.FirstPaymentReward <= 0 {
		return nil
	}
	key := fmt.Sprintf("first_payment:%s:%s", agreementID, tenant)
	return l.redeem(ctx, key, "first_payment", agreementID, []store.Credit{
		{To: tenant, Amount: st.Config.FirstPaymentReward},
	})
}

// RewardReview pays the per-review incentive once per (agreement, reviewer).
func (l *Ledger) RewardReview(ctx context.Context, agreementID domain.ID, reviewer domain.Address) error {
	st, err := l.requireLive(ctx)
	if err != nil {
		return err
	}
	if st.Config.ReviewReward <= 0 {
		return nil
	}
	key := fmt.Sprintf("review:%s:%s", agreementID, reviewer)
	return l.redeem(ctx, key, "review", agreementID, []store.Credit{
		{To: reviewer, Amount: st.Config.ReviewReward},
	})
}

// RewardMutualReview pays the mutual bonus to both parties once per
// agreement. The parties come from the agreement ledger, not the caller.
func (l *Ledger) RewardMutualReview(ctx context.Context, agreementID domain.ID) error {
	st, err := l.requireLive(ctx)
	if err != nil {
		return err
	}
	if st.Config.MutualReviewBonus <= 0 {
		return nil
	}
	if l.Agreements == nil {
		return domain.ErrNotConfigured
	}
	a, err := l.Agreements.Get(ctx, agreementID)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("mutual_review:%s", agreementID)
	return l.redeem(ctx, key, "mutual_review", agreementID, []store.Credit{
		{To: a.Tenant, Amount: st.Config.MutualReviewBonus},
		{To: a.Landlord, Amount: st.Config.MutualReviewBonus},
	})
}

func (l *Ledger) redeem(ctx context.Context, key, kind string, agreementID domain.ID, credits []store.Credit) error {
	claimed, err := l.Store.RedeemClaim(ctx, key, credits)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	for _, c := range credits {
		l.emit(ctx, "RewardIssued", map[string]any{
			"reward": kind, "agreement_id": agreementID, "to": c.To, "amount": c.Amount,
		})
	}
	return nil
}

func (l *Ledger) Metadata(ctx context.Context) (domain.TokenMetadata, error) {
	st, err := l.Store.GetState(ctx)
	if err != nil {
		return domain.TokenMetadata{}, err
	}
	return st.Metadata, nil
}

func (l *Ledger) Config(ctx context.Context) (domain.RewardConfig, error) {
	st, err := l.Store.GetState(ctx)
	if err != nil {
		return domain.RewardConfig{}, err
	}
	return st.Config, nil
}

func (l *Ledger) Balance(ctx context.Context, addr domain.Address) (int64, error) {
	return l.Store.Balance(ctx, addr)
}

func (l *Ledger) TotalSupply(ctx context.Context) (int64, error) {
	return l.Store.TotalSupply(ctx)
}
