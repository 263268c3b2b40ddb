package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/syndrizzle/briq/internal/reward/store"
	"github.com/syndrizzle/briq/pkg/domain"
	"github.com/syndrizzle/briq/pkg/events"
)

const (
	admin    = domain.Address("acct_admin")
	landlord = domain.Address("acct_landlord")
	tenant   = domain.Address("acct_tenant")
	stranger = domain.Address("acct_stranger")
)

type fakeLedger struct {
	agreements map[domain.ID]domain.Agreement
}

func (f *fakeLedger) Get(_ context.Context, id domain.ID) (domain.Agreement, error) {
	a, ok := f.agreements[id]
	if !ok {
		return domain.Agreement{}, domain.ErrNotFound
	}
	return a, nil
}

type fixture struct {
	ledger   *Ledger
	store    *store.Memory
	recorder *events.Recorder
	id       domain.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	id := domain.NewID("agr")
	led := &fakeLedger{agreements: map[domain.ID]domain.Agreement{
		id: {ID: id, Landlord: landlord, Tenant: tenant, Status: domain.StatusActive},
	}}
	st := store.NewMemory()
	rec := &events.Recorder{}

	f := &fixture{ledger: New(st, led, rec), store: st, recorder: rec, id: id}
	f.ledger.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := f.ledger.Initialize(context.Background(), admin, admin); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return f
}

func (f *fixture) balance(t *testing.T, addr domain.Address) int64 {
	t.Helper()
	bal, err := f.ledger.Balance(context.Background(), addr)
	if err != nil {
		t.Fatalf("balance %s: %v", addr, err)
	}
	return bal
}

func (f *fixture) supply(t *testing.T) int64 {
	t.Helper()
	total, err := f.ledger.TotalSupply(context.Background())
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	return total
}

func TestInitializeSeedsDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	meta, err := f.ledger.Metadata(ctx)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta != domain.DefaultTokenMetadata() {
		t.Fatalf("metadata = %+v", meta)
	}
	cfg, err := f.ledger.Config(ctx)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg != domain.DefaultRewardConfig() {
		t.Fatalf("config = %+v", cfg)
	}
	if err := f.ledger.Initialize(ctx, admin, admin); !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Fatalf("second initialize: %v", err)
	}
}

func TestMintTransferBurn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.ledger.Mint(ctx, stranger, tenant, 100); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-admin mint: %v", err)
	}
	if err := f.ledger.Mint(ctx, admin, tenant, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero mint: %v", err)
	}
	if err := f.ledger.Mint(ctx, admin, tenant, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if f.balance(t, tenant) != 100 || f.supply(t) != 100 {
		t.Fatalf("after mint: balance=%d supply=%d", f.balance(t, tenant), f.supply(t))
	}

	if err := f.ledger.Transfer(ctx, tenant, landlord, 150); !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("overdraft: %v", err)
	}
	if err := f.ledger.Transfer(ctx, tenant, landlord, 40); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if f.balance(t, tenant) != 60 || f.balance(t, landlord) != 40 {
		t.Fatalf("after transfer: %d / %d", f.balance(t, tenant), f.balance(t, landlord))
	}
	if f.supply(t) != 100 {
		t.Fatalf("transfer changed supply: %d", f.supply(t))
	}

	if err := f.ledger.Burn(ctx, landlord, 40); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if f.balance(t, landlord) != 0 || f.supply(t) != 60 {
		t.Fatalf("after burn: balance=%d supply=%d", f.balance(t, landlord), f.supply(t))
	}
	if err := f.ledger.Burn(ctx, landlord, 1); !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("burn beyond balance: %v", err)
	}
}

func TestRewardFirstPaymentIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	want := domain.DefaultRewardConfig().FirstPaymentReward

	for i := 0; i < 5; i++ {
		if err := f.ledger.RewardFirstPayment(ctx, f.id, tenant); err != nil {
			t.Fatalf("reward %d: %v", i, err)
		}
	}
	if f.balance(t, tenant) != want {
		t.Fatalf("tenant balance = %d, want %d", f.balance(t, tenant), want)
	}
	if f.supply(t) != want {
		t.Fatalf("supply = %d, want %d", f.supply(t), want)
	}
	if f.recorder.Kinds()["RewardIssued"] != 1 {
		t.Fatalf("RewardIssued events = %d", f.recorder.Kinds()["RewardIssued"])
	}
}

func TestRewardReviewPerReviewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	want := domain.DefaultRewardConfig().ReviewReward

	if err := f.ledger.RewardReview(ctx, f.id, tenant); err != nil {
		t.Fatalf("tenant reward: %v", err)
	}
	if err := f.ledger.RewardReview(ctx, f.id, tenant); err != nil {
		t.Fatalf("tenant reward repeat: %v", err)
	}
	if err := f.ledger.RewardReview(ctx, f.id, landlord); err != nil {
		t.Fatalf("landlord reward: %v", err)
	}
	if f.balance(t, tenant) != want || f.balance(t, landlord) != want {
		t.Fatalf("balances: %d / %d", f.balance(t, tenant), f.balance(t, landlord))
	}
	if f.supply(t) != 2*want {
		t.Fatalf("supply = %d", f.supply(t))
	}
}

func TestRewardMutualMintsBothParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	want := domain.DefaultRewardConfig().MutualReviewBonus

	for i := 0; i < 3; i++ {
		if err := f.ledger.RewardMutualReview(ctx, f.id); err != nil {
			t.Fatalf("mutual reward %d: %v", i, err)
		}
	}
	if f.balance(t, tenant) != want || f.balance(t, landlord) != want {
		t.Fatalf("balances: %d / %d", f.balance(t, tenant), f.balance(t, landlord))
	}
	if f.supply(t) != 2*want {
		t.Fatalf("supply = %d", f.supply(t))
	}
	if f.recorder.Kinds()["RewardIssued"] != 2 {
		t.Fatalf("RewardIssued events = %d", f.recorder.Kinds()["RewardIssued"])
	}
}

func TestRewardMutualNeedsAgreementPeer(t *testing.T) {
	f := newFixture(t)
	f.ledger.Agreements = nil
	if err := f.ledger.RewardMutualReview(context.Background(), f.id); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("mutual without peer: %v", err)
	}
}

func TestNonPositiveConfigDisablesReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.ledger.SetRewardConfig(ctx, admin, domain.RewardConfig{}); err != nil {
		t.Fatalf("set config: %v", err)
	}
	if err := f.ledger.RewardFirstPayment(ctx, f.id, tenant); err != nil {
		t.Fatalf("disabled reward: %v", err)
	}
	if err := f.ledger.RewardMutualReview(ctx, f.id); err != nil {
		t.Fatalf("disabled mutual: %v", err)
	}
	if f.supply(t) != 0 {
		t.Fatalf("disabled rewards minted: %d", f.supply(t))
	}

	// Re-enabling pays the still-unclaimed reward.
	if err := f.ledger.SetRewardConfig(ctx, admin, domain.DefaultRewardConfig()); err != nil {
		t.Fatalf("restore config: %v", err)
	}
	if err := f.ledger.RewardFirstPayment(ctx, f.id, tenant); err != nil {
		t.Fatalf("reward after re-enable: %v", err)
	}
	if f.balance(t, tenant) != domain.DefaultRewardConfig().FirstPaymentReward {
		t.Fatalf("tenant balance = %d", f.balance(t, tenant))
	}
}

func TestSetRewardConfigValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.ledger.SetRewardConfig(ctx, stranger, domain.DefaultRewardConfig()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-admin config: %v", err)
	}
	bad := domain.RewardConfig{FirstPaymentReward: -1}
	if err := f.ledger.SetRewardConfig(ctx, admin, bad); !errors.Is(err, domain.ErrNegativeRewardAmount) {
		t.Fatalf("negative config: %v", err)
	}
}

func TestPauseGatesRewards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.ledger.Pause(ctx, admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := f.ledger.RewardFirstPayment(ctx, f.id, tenant); !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("reward while paused: %v", err)
	}
	if err := f.ledger.Transfer(ctx, tenant, landlord, 1); !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("transfer while paused: %v", err)
	}
	// Queries stay available while paused.
	if _, err := f.ledger.Metadata(ctx); err != nil {
		t.Fatalf("metadata while paused: %v", err)
	}
}
