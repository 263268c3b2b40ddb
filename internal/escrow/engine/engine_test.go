package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/syndrizzle/briq/internal/escrow/store"
	"github.com/syndrizzle/briq/pkg/domain"
	"github.com/syndrizzle/briq/pkg/events"
)

const (
	admin    = domain.Address("acct_admin")
	custody  = domain.Address("acct_custody")
	landlord = domain.Address("acct_landlord")
	tenant   = domain.Address("acct_tenant")
	stranger = domain.Address("acct_stranger")
)

// fakeLedger holds agreements in memory and records the notifications the
// engine sends back.
type fakeLedger struct {
	agreements   map[domain.ID]domain.Agreement
	depositPaid  []domain.ID
	rentRecorded []int64
	notifyErr    error
}

func (f *fakeLedger) Get(_ context.Context, id domain.ID) (domain.Agreement, error) {
	a, ok := f.agreements[id]
	if !ok {
		return domain.Agreement{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeLedger) MarkDepositPaid(_ context.Context, id domain.ID) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	a := f.agreements[id]
	a.DepositPaid = true
	a.Status = domain.StatusActive
	f.agreements[id] = a
	f.depositPaid = append(f.depositPaid, id)
	return nil
}

func (f *fakeLedger) RecordRentPayment(_ context.Context, id domain.ID, amount int64) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.rentRecorded = append(f.rentRecorded, amount)
	return nil
}

// fakeAssets is a balance table with atomic transfers.
type fakeAssets struct {
	balances  map[domain.Address]int64
	transfers int
	failAfter int
}

func (f *fakeAssets) Transfer(_ context.Context, from, to domain.Address, amount int64) error {
	f.transfers++
	if f.failAfter > 0 && f.transfers > f.failAfter {
		return errors.New("transfer rejected")
	}
	if f.balances[from] < amount {
		return errors.New("insufficient balance")
	}
	f.balances[from] -= amount
	f.balances[to] += amount
	return nil
}

type fakeRewards struct {
	calls []domain.ID
	err   error
}

func (f *fakeRewards) RewardFirstPayment(_ context.Context, agreementID domain.ID, _ domain.Address) error {
	f.calls = append(f.calls, agreementID)
	return f.err
}

type fixture struct {
	engine   *Engine
	ledger   *fakeLedger
	assets   *fakeAssets
	rewards  *fakeRewards
	recorder *events.Recorder
	now      *time.Time
	id       domain.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	id := domain.NewID("agr")
	led := &fakeLedger{agreements: map[domain.ID]domain.Agreement{
		id: {
			ID: id, Landlord: landlord, Tenant: tenant,
			MonthlyRent: 1000, SecurityDeposit: 500,
			Status: domain.StatusPendingPayment,
		},
	}}
	assets := &fakeAssets{balances: map[domain.Address]int64{tenant: 10_000}}
	rewards := &fakeRewards{}
	rec := &events.Recorder{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	f := &fixture{
		engine:   New(store.NewMemory(), led, assets, custody, rec),
		ledger:   led,
		assets:   assets,
		rewards:  rewards,
		recorder: rec,
		now:      &now,
		id:       id,
	}
	f.engine.Rewards = rewards
	f.engine.Now = func() time.Time { return *f.now }
	if err := f.engine.Initialize(context.Background(), admin, admin); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return f
}

func (f *fixture) fund(t *testing.T) domain.EscrowAccount {
	t.Helper()
	acct, err := f.engine.Fund(context.Background(), tenant, f.id)
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	return acct
}

func TestFundMovesDepositAndFirstRent(t *testing.T) {
	f := newFixture(t)
	acct := f.fund(t)

	if f.assets.balances[tenant] != 10_000-1500 {
		t.Fatalf("tenant balance = %d", f.assets.balances[tenant])
	}
	if f.assets.balances[custody] != 500 {
		t.Fatalf("custody balance = %d", f.assets.balances[custody])
	}
	if f.assets.balances[landlord] != 1000 {
		t.Fatalf("landlord balance = %d", f.assets.balances[landlord])
	}
	if acct.SecurityDepositHeld != 500 || acct.TotalRentReceived != 1000 {
		t.Fatalf("account = %+v", acct)
	}
	if len(f.ledger.depositPaid) != 1 || len(f.ledger.rentRecorded) != 1 {
		t.Fatalf("notifications = %d deposit, %d rent", len(f.ledger.depositPaid), len(f.ledger.rentRecorded))
	}
	if len(f.rewards.calls) != 1 {
		t.Fatalf("reward calls = %d", len(f.rewards.calls))
	}

	log, err := f.engine.PaymentHistory(context.Background(), f.id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(log) != 2 || log[0].PaymentType != domain.PaymentSecurityDeposit || log[1].PaymentType != domain.PaymentFirstMonthRent {
		t.Fatalf("payment log = %+v", log)
	}
	evs := f.recorder.Events()
	want := []string{"Initialized", "SecurityDepositReceived", "RentReleasedToLandlord"}
	for i, kind := range want {
		if evs[i].Kind != kind {
			t.Fatalf("event[%d] = %s, want %s", i, evs[i].Kind, kind)
		}
	}
}

func TestFundRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Fund(ctx, stranger, f.id); !errors.Is(err, ErrNotTenant) {
		t.Fatalf("stranger fund: %v", err)
	}
	if _, err := f.engine.Fund(ctx, tenant, domain.NewID("agr")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown agreement: %v", err)
	}

	a := f.ledger.agreements[f.id]
	a.Status = domain.StatusDraft
	f.ledger.agreements[f.id] = a
	if _, err := f.engine.Fund(ctx, tenant, f.id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("draft fund: %v", err)
	}

	a.Status = domain.StatusPendingPayment
	a.DepositPaid = true
	f.ledger.agreements[f.id] = a
	if _, err := f.engine.Fund(ctx, tenant, f.id); !errors.Is(err, ErrAlreadyFunded) {
		t.Fatalf("refund: %v", err)
	}
}

func TestFundInsufficientBalanceMovesNothing(t *testing.T) {
	f := newFixture(t)
	f.assets.balances[tenant] = 100

	if _, err := f.engine.Fund(context.Background(), tenant, f.id); err == nil {
		t.Fatal("fund succeeded on empty wallet")
	}
	if f.assets.balances[tenant] != 100 || f.assets.balances[custody] != 0 || f.assets.balances[landlord] != 0 {
		t.Fatalf("balances moved: %+v", f.assets.balances)
	}
	if _, err := f.engine.GetEscrow(context.Background(), f.id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("account created despite failure: %v", err)
	}
}

func TestFundRetryAfterNotificationFailureAccumulates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.notifyErr = errors.New("agreement ledger down")
	if _, err := f.engine.Fund(ctx, tenant, f.id); err == nil {
		t.Fatal("fund succeeded despite failed notification")
	}

	// The first attempt moved funds before the notification failed; the
	// retry moves them again, so the book must carry both contributions.
	f.ledger.notifyErr = nil
	acct, err := f.engine.Fund(ctx, tenant, f.id)
	if err != nil {
		t.Fatalf("retried fund: %v", err)
	}
	if acct.SecurityDepositHeld != 1000 || acct.TotalRentReceived != 2000 || acct.TotalRentReleased != 2000 {
		t.Fatalf("account after retry = %+v", acct)
	}
	if f.assets.balances[custody] != 1000 || f.assets.balances[tenant] != 10_000-3000 {
		t.Fatalf("balances after retry: %+v", f.assets.balances)
	}
	log, err := f.engine.PaymentHistory(ctx, f.id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(log) != 4 {
		t.Fatalf("payment log rows = %d", len(log))
	}

	// Release returns everything custody holds, nothing stranded.
	a := f.ledger.agreements[f.id]
	a.Status = domain.StatusCompleted
	f.ledger.agreements[f.id] = a
	if _, err := f.engine.ReleaseDeposit(ctx, tenant, f.id); err != nil {
		t.Fatalf("release: %v", err)
	}
	if f.assets.balances[custody] != 0 || f.assets.balances[tenant] != 10_000-2000 {
		t.Fatalf("balances after release: %+v", f.assets.balances)
	}
}

func TestFundRewardFailureTolerated(t *testing.T) {
	f := newFixture(t)
	f.rewards.err = errors.New("reward service down")
	acct := f.fund(t)
	if acct.SecurityDepositHeld != 500 {
		t.Fatalf("account = %+v", acct)
	}
}

func TestPayRentAccrues(t *testing.T) {
	f := newFixture(t)
	f.fund(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.engine.PayRent(ctx, tenant, f.id); err != nil {
			t.Fatalf("pay rent %d: %v", i, err)
		}
	}
	acct, err := f.engine.GetEscrow(ctx, f.id)
	if err != nil {
		t.Fatalf("get escrow: %v", err)
	}
	if acct.TotalRentReceived != 3000 || acct.TotalRentReleased != 3000 {
		t.Fatalf("rent counters = %+v", acct)
	}
	if f.assets.balances[landlord] != 3000 {
		t.Fatalf("landlord balance = %d", f.assets.balances[landlord])
	}
	// The deposit never leaves custody through rent payments.
	if f.assets.balances[custody] != 500 {
		t.Fatalf("custody balance = %d", f.assets.balances[custody])
	}
	if got := f.ledger.rentRecorded; len(got) != 3 {
		t.Fatalf("rent notifications = %v", got)
	}
	// Each rent cycle announces both the receipt and the onward release.
	kinds := f.recorder.Kinds()
	if kinds["RentPaymentReceived"] != 2 || kinds["RentReleasedToLandlord"] != 3 {
		t.Fatalf("rent events = %v", kinds)
	}
}

func TestPayRentRequiresActiveAgreement(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.PayRent(context.Background(), tenant, f.id); !errors.Is(err, ErrAgreementNotActive) {
		t.Fatalf("pay rent before activation: %v", err)
	}
	f.fund(t)
	if _, err := f.engine.PayRent(context.Background(), landlord, f.id); !errors.Is(err, ErrNotTenant) {
		t.Fatalf("landlord pays rent: %v", err)
	}
}

func TestReleaseDeposit(t *testing.T) {
	f := newFixture(t)
	f.fund(t)
	ctx := context.Background()

	if _, err := f.engine.ReleaseDeposit(ctx, tenant, f.id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("release while active: %v", err)
	}

	a := f.ledger.agreements[f.id]
	a.Status = domain.StatusCompleted
	f.ledger.agreements[f.id] = a

	if _, err := f.engine.ReleaseDeposit(ctx, stranger, f.id); !errors.Is(err, ErrNotParty) {
		t.Fatalf("stranger release: %v", err)
	}

	acct, err := f.engine.ReleaseDeposit(ctx, landlord, f.id)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if acct.SecurityDepositHeld != 0 || !acct.IsDepositReleased {
		t.Fatalf("account after release = %+v", acct)
	}
	if f.assets.balances[custody] != 0 || f.assets.balances[tenant] != 10_000-1000 {
		t.Fatalf("balances after release: %+v", f.assets.balances)
	}

	if _, err := f.engine.ReleaseDeposit(ctx, tenant, f.id); !errors.Is(err, ErrDepositReleased) {
		t.Fatalf("double release: %v", err)
	}
}

func TestEmergencyWithdraw(t *testing.T) {
	f := newFixture(t)
	f.fund(t)
	ctx := context.Background()

	if err := f.engine.EmergencyWithdraw(ctx, tenant, f.id, stranger); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-admin withdraw: %v", err)
	}
	if err := f.engine.EmergencyWithdraw(ctx, admin, f.id, stranger); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if f.assets.balances[stranger] != 500 {
		t.Fatalf("recipient balance = %d", f.assets.balances[stranger])
	}
	// Nothing held anymore: a repeat is a silent no-op.
	before := f.assets.balances[stranger]
	if err := f.engine.EmergencyWithdraw(ctx, admin, f.id, stranger); err != nil {
		t.Fatalf("repeat withdraw: %v", err)
	}
	if f.assets.balances[stranger] != before {
		t.Fatalf("repeat withdraw moved funds")
	}
}

func TestQueriesUnknownAgreement(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.GetEscrow(context.Background(), f.id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get escrow before funding: %v", err)
	}
	if _, err := f.engine.PaymentHistory(context.Background(), f.id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("history before funding: %v", err)
	}
}

func TestPauseGatesMutations(t *testing.T) {
	f := newFixture(t)
	f.fund(t)
	ctx := context.Background()

	if err := f.engine.Pause(ctx, stranger); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("stranger pause: %v", err)
	}
	if err := f.engine.Pause(ctx, admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := f.engine.PayRent(ctx, tenant, f.id); !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("pay rent while paused: %v", err)
	}
	// Queries stay available while paused.
	if _, err := f.engine.GetEscrow(ctx, f.id); err != nil {
		t.Fatalf("query while paused: %v", err)
	}
	if err := f.engine.Unpause(ctx, admin); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := f.engine.PayRent(ctx, tenant, f.id); err != nil {
		t.Fatalf("pay rent after unpause: %v", err)
	}
}

func TestInitializeOnce(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.Initialize(context.Background(), admin, admin); !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Fatalf("second initialize: %v", err)
	}
	if err := f.engine.Initialize(context.Background(), stranger, admin); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("initialize as stranger: %v", err)
	}
}
