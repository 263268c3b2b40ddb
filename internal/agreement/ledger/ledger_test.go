package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/syndrizzle/briq/internal/agreement/store"
	"github.com/syndrizzle/briq/pkg/domain"
	"github.com/syndrizzle/briq/pkg/events"
)

type fakeCatalog struct {
	properties map[domain.ID]domain.Property
	err        error
}

func (f *fakeCatalog) GetProperty(_ context.Context, id domain.ID) (domain.Property, error) {
	if f.err != nil {
		return domain.Property{}, f.err
	}
	p, ok := f.properties[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}

const (
	admin    = domain.Address("acct_admin")
	escrow   = domain.Address("acct_escrow")
	landlord = domain.Address("acct_landlord")
	tenant   = domain.Address("acct_tenant")
	stranger = domain.Address("acct_stranger")
)

type fixture struct {
	ledger   *Ledger
	store    *store.Memory
	catalog  *fakeCatalog
	recorder *events.Recorder
	now      *time.Time
	property domain.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	propertyID := domain.NewID("prop")
	catalog := &fakeCatalog{properties: map[domain.ID]domain.Property{
		propertyID: {
			ID: propertyID, Owner: landlord,
			PricePerMonth: 1000, SecurityDeposit: 500,
			MinStayDays: 1, MaxStayDays: 365,
			IsActive: true, IsAvailable: true,
		},
	}}
	st := store.NewMemory()
	rec := &events.Recorder{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	f := &fixture{ledger: New(st, catalog, rec), store: st, catalog: catalog, recorder: rec, now: &now, property: propertyID}
	f.ledger.Now = func() time.Time { return *f.now }
	if err := f.ledger.Initialize(context.Background(), admin, admin, escrow); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return f
}

func (f *fixture) advance(d time.Duration) { *f.now = f.now.Add(d) }

func (f *fixture) create(t *testing.T, days int64) domain.Agreement {
	t.Helper()
	start := f.now.Unix()
	a, err := f.ledger.Create(context.Background(), landlord, f.property, tenant, start, start+days*domain.SecondsPerDay)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return a
}

func (f *fixture) createActive(t *testing.T, days int64) domain.Agreement {
	t.Helper()
	ctx := context.Background()
	a := f.create(t, days)
	if _, err := f.ledger.TenantSign(ctx, tenant, a.ID); err != nil {
		t.Fatalf("tenant sign: %v", err)
	}
	if _, err := f.ledger.LandlordSign(ctx, landlord, a.ID); err != nil {
		t.Fatalf("landlord sign: %v", err)
	}
	if err := f.ledger.MarkDepositPaid(ctx, escrow, a.ID); err != nil {
		t.Fatalf("mark deposit paid: %v", err)
	}
	got, err := f.ledger.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return got
}

func TestInitializeOnce(t *testing.T) {
	f := newFixture(t)
	err := f.ledger.Initialize(context.Background(), admin, admin, escrow)
	if !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	if err := f.ledger.Initialize(context.Background(), stranger, admin, escrow); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-admin initialize: got %v", err)
	}
}

func TestCreateSnapshotsProperty(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, 60)
	if a.Status != domain.StatusDraft {
		t.Fatalf("new agreement must be DRAFT, got %s", a.Status)
	}
	if a.MonthlyRent != 1000 || a.SecurityDeposit != 500 {
		t.Fatalf("terms not snapshotted: rent=%d deposit=%d", a.MonthlyRent, a.SecurityDeposit)
	}

	// Later catalog changes must not affect the stored agreement.
	p := f.catalog.properties[f.property]
	p.PricePerMonth = 9999
	f.catalog.properties[f.property] = p
	got, err := f.ledger.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MonthlyRent != 1000 {
		t.Fatalf("agreement re-read property terms")
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.now.Unix()
	end := start + 60*domain.SecondsPerDay

	if _, err := f.ledger.Create(ctx, stranger, f.property, tenant, start, end); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-owner create: got %v", err)
	}
	if _, err := f.ledger.Create(ctx, landlord, domain.NewID("prop"), tenant, start, end); !errors.Is(err, ErrPropertyNotUsable) {
		t.Fatalf("unknown property: got %v", err)
	}

	p := f.catalog.properties[f.property]
	p.IsActive = false
	f.catalog.properties[f.property] = p
	if _, err := f.ledger.Create(ctx, landlord, f.property, tenant, start, end); !errors.Is(err, ErrPropertyNotUsable) {
		t.Fatalf("inactive property: got %v", err)
	}

	p.IsActive, p.IsAvailable = true, false
	f.catalog.properties[f.property] = p
	if _, err := f.ledger.Create(ctx, landlord, f.property, tenant, start, end); !errors.Is(err, ErrPropertyNotAvailable) {
		t.Fatalf("unavailable property: got %v", err)
	}

	p.IsAvailable = true
	p.MinStayDays, p.MaxStayDays = 30, 90
	f.catalog.properties[f.property] = p
	if _, err := f.ledger.Create(ctx, landlord, f.property, tenant, start, start+10*domain.SecondsPerDay); !errors.Is(err, domain.ErrDurationBelowMinimum) {
		t.Fatalf("short term: got %v", err)
	}
	if _, err := f.ledger.Create(ctx, landlord, f.property, tenant, start, start+100*domain.SecondsPerDay); !errors.Is(err, domain.ErrDurationAboveMaximum) {
		t.Fatalf("long term: got %v", err)
	}
	if _, err := f.ledger.Create(ctx, landlord, f.property, tenant, start, start); !errors.Is(err, domain.ErrInvalidDates) {
		t.Fatalf("empty term: got %v", err)
	}
}

func TestSignatureFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 60)

	got, err := f.ledger.TenantSign(ctx, tenant, a.ID)
	if err != nil {
		t.Fatalf("tenant sign: %v", err)
	}
	if got.Status != domain.StatusPendingLandlordSign {
		t.Fatalf("after tenant sign: %s", got.Status)
	}
	if _, err := f.ledger.TenantSign(ctx, tenant, a.ID); !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("double tenant sign: got %v", err)
	}
	if _, err := f.ledger.TenantSign(ctx, stranger, a.ID); !errors.Is(err, ErrNotParty) {
		t.Fatalf("stranger sign: got %v", err)
	}
	if _, err := f.ledger.LandlordSign(ctx, tenant, a.ID); !errors.Is(err, ErrNotParty) {
		t.Fatalf("tenant as landlord: got %v", err)
	}

	got, err = f.ledger.LandlordSign(ctx, landlord, a.ID)
	if err != nil {
		t.Fatalf("landlord sign: %v", err)
	}
	if got.Status != domain.StatusPendingPayment {
		t.Fatalf("after both signatures: %s", got.Status)
	}
}

func TestLandlordFirstSignature(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, 60)
	got, err := f.ledger.LandlordSign(context.Background(), landlord, a.ID)
	if err != nil {
		t.Fatalf("landlord sign: %v", err)
	}
	if got.Status != domain.StatusPendingTenantSign {
		t.Fatalf("after landlord-only signature: %s", got.Status)
	}
}

func TestMarkDepositPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 60)

	// Wrong state: both signatures missing.
	if err := f.ledger.MarkDepositPaid(ctx, escrow, a.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("draft deposit mark: got %v", err)
	}

	_, _ = f.ledger.TenantSign(ctx, tenant, a.ID)
	_, _ = f.ledger.LandlordSign(ctx, landlord, a.ID)

	// Only the configured escrow address may call.
	if err := f.ledger.MarkDepositPaid(ctx, tenant, a.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("tenant deposit mark: got %v", err)
	}

	if err := f.ledger.MarkDepositPaid(ctx, escrow, a.ID); err != nil {
		t.Fatalf("deposit mark: %v", err)
	}
	got, _ := f.ledger.Get(ctx, a.ID)
	if got.Status != domain.StatusActive || !got.DepositPaid {
		t.Fatalf("expected ACTIVE with deposit paid, got %s paid=%v", got.Status, got.DepositPaid)
	}

	// Idempotent re-invocation.
	if err := f.ledger.MarkDepositPaid(ctx, escrow, a.ID); err != nil {
		t.Fatalf("repeat deposit mark must be a no-op, got %v", err)
	}
	activated := 0
	for _, e := range f.recorder.Events() {
		if e.Kind == "AgreementActivated" {
			activated++
		}
	}
	if activated != 1 {
		t.Fatalf("AgreementActivated fired %d times", activated)
	}
}

func TestRecordRentPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createActive(t, 60)

	if err := f.ledger.RecordRentPayment(ctx, tenant, a.ID, 1000); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-escrow caller: got %v", err)
	}
	if err := f.ledger.RecordRentPayment(ctx, escrow, a.ID, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := f.ledger.RecordRentPayment(ctx, escrow, a.ID, 1000); err != nil {
			t.Fatalf("rent %d: %v", i, err)
		}
	}
	got, _ := f.ledger.Get(ctx, a.ID)
	if got.TotalRentPaid != 3000 || got.MonthsPaid != 3 {
		t.Fatalf("accumulators: total=%d months=%d", got.TotalRentPaid, got.MonthsPaid)
	}

	draft := f.create(t, 60)
	if err := f.ledger.RecordRentPayment(ctx, escrow, draft.ID, 1000); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("rent on draft: got %v", err)
	}
}

func TestCompleteRequiresTermEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createActive(t, 60)

	if _, err := f.ledger.Complete(ctx, tenant, a.ID); !errors.Is(err, ErrTermNotEnded) {
		t.Fatalf("early complete: got %v", err)
	}
	if _, err := f.ledger.Complete(ctx, stranger, a.ID); !errors.Is(err, ErrNotParty) {
		t.Fatalf("stranger complete: got %v", err)
	}

	f.advance(61 * 24 * time.Hour)
	got, err := f.ledger.Complete(ctx, landlord, a.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != domain.StatusCompleted || got.CompletedAt == 0 {
		t.Fatalf("completion state: %s at=%d", got.Status, got.CompletedAt)
	}
	if _, err := f.ledger.Complete(ctx, tenant, a.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double complete: got %v", err)
	}
}

func TestCancelRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, 60)
	got, err := f.ledger.Cancel(ctx, tenant, a.ID)
	if err != nil {
		t.Fatalf("cancel draft: %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Fatalf("cancel status: %s", got.Status)
	}
	if _, err := f.ledger.Cancel(ctx, tenant, a.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double cancel: got %v", err)
	}

	active := f.createActive(t, 60)
	if _, err := f.ledger.Cancel(ctx, landlord, active.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("cancel active: got %v", err)
	}
}

func TestPauseGatesMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 60)

	if err := f.ledger.Pause(ctx, stranger); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-admin pause: got %v", err)
	}
	if err := f.ledger.Pause(ctx, admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := f.ledger.TenantSign(ctx, tenant, a.ID); !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("sign while paused: got %v", err)
	}
	start := f.now.Unix()
	if _, err := f.ledger.Create(ctx, landlord, f.property, tenant, start, start+60*domain.SecondsPerDay); !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("create while paused: got %v", err)
	}
	// Queries stay available.
	if _, err := f.ledger.Get(ctx, a.ID); err != nil {
		t.Fatalf("get while paused: %v", err)
	}

	if err := f.ledger.Unpause(ctx, admin); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := f.ledger.TenantSign(ctx, tenant, a.ID); err != nil {
		t.Fatalf("sign after unpause: %v", err)
	}
}

func TestIndicesPreserveInsertionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, 60)
	second := f.create(t, 90)

	byTenant, err := f.ledger.ListByTenant(ctx, tenant)
	if err != nil {
		t.Fatalf("list by tenant: %v", err)
	}
	if len(byTenant) != 2 || byTenant[0].ID != first.ID || byTenant[1].ID != second.ID {
		t.Fatalf("tenant index order wrong")
	}
	byProperty, err := f.ledger.ListByProperty(ctx, f.property)
	if err != nil {
		t.Fatalf("list by property: %v", err)
	}
	if len(byProperty) != 2 {
		t.Fatalf("property index size: %d", len(byProperty))
	}
	byLandlord, err := f.ledger.ListByLandlord(ctx, landlord)
	if err != nil {
		t.Fatalf("list by landlord: %v", err)
	}
	if len(byLandlord) != 2 {
		t.Fatalf("landlord index size: %d", len(byLandlord))
	}
}
