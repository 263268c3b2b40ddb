// Package ledger owns the rental agreement state machine: creation,
// bilateral signing, activation on deposit payment, rent accrual,
// completion and cancellation.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/syndrizzle/briq/internal/agreement/store"
	"github.com/syndrizzle/briq/pkg/domain"
	"github.com/syndrizzle/briq/pkg/events"
)

var (
	ErrNotParty             = errors.New("caller is not a party to this agreement")
	ErrAlreadySigned        = errors.New("party has already signed")
	ErrInvalidState         = errors.New("operation not allowed in the current agreement status")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrTermNotEnded         = errors.New("agreement term has not ended yet")
	ErrPropertyNotUsable    = errors.New("property not found or inactive")
	ErrPropertyNotAvailable = errors.New("property not available")
)

// PropertyCatalog is the read-only boundary with the external listing
// service. Any failure means the property is unusable for new agreements.
type PropertyCatalog interface {
	GetProperty(ctx context.Context, id domain.ID) (domain.Property, error)
}

type Ledger struct {
	Store   store.Store
	Catalog PropertyCatalog
	Events  events.Sink
	Now     func() time.Time
}

func New(st store.Store, catalog PropertyCatalog, sink events.Sink) *Ledger {
	return &Ledger{Store: st, Catalog: catalog, Events: sink, Now: time.Now}
}

func (l *Ledger) now() int64 { return l.Now().Unix() }

func (l *Ledger) emit(ctx context.Context, kind string, fields map[string]any) {
	if l.Events != nil {
		l.Events.Emit(ctx, events.Event{Kind: kind, At: l.now(), Fields: fields})
	}
}

// requireLive loads component state and rejects the call when paused.
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

// Initialize establishes the administrator and the escrow capability
// address. One-time; the caller must be the named admin.
func (l *Ledger) Initialize(ctx context.Context, caller, admin, escrow domain.Address) error {
	if caller != admin {
		return domain.ErrUnauthorized
	}
	if err := l.Store.InitState(ctx, store.State{Admin: admin, Escrow: escrow}); err != nil {
		return err
	}
	l.emit(ctx, "Initialized", map[string]any{"admin": admin, "escrow": escrow})
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

// Create validates the property snapshot and term, then records a new Draft
// agreement. Rent and deposit are copied from the property at this moment
// and never re-read.
func (l *Ledger) Create(ctx context.Context, landlord domain.Address, propertyID domain.ID, tenant domain.Address, startDate, endDate int64) (domain.Agreement, error) {
	if _, err := l.requireLive(ctx); err != nil {
		return domain.Agreement{}, err
	}

	property, err := l.Catalog.GetProperty(ctx, propertyID)
	if err != nil {
		return domain.Agreement{}, ErrPropertyNotUsable
	}
	if !property.IsActive {
		return domain.Agreement{}, ErrPropertyNotUsable
	}
	if !property.IsAvailable {
		return domain.Agreement{}, ErrPropertyNotAvailable
	}
	if property.Owner != landlord {
		return domain.Agreement{}, domain.ErrUnauthorized
	}
	if err := domain.ValidateTerm(startDate, endDate, property.MinStayDays, property.MaxStayDays); err != nil {
		return domain.Agreement{}, err
	}

	a := domain.Agreement{
		ID:              domain.NewID("agr"),
		PropertyID:      propertyID,
		Landlord:        landlord,
		Tenant:          tenant,
		MonthlyRent:     property.PricePerMonth,
		SecurityDeposit: property.SecurityDeposit,
		StartDate:       startDate,
		EndDate:         endDate,
		Status:          domain.StatusDraft,
		CreatedAt:       l.now(),
	}
	if err := l.Store.CreateAgreement(ctx, a); err != nil {
		return domain.Agreement{}, err
	}

	l.emit(ctx, "AgreementCreated", map[string]any{
		"agreement_id":     a.ID,
		"property_id":      a.PropertyID,
		"landlord":         a.Landlord,
		"tenant":           a.Tenant,
		"monthly_rent":     a.MonthlyRent,
		"security_deposit": a.SecurityDeposit,
	})
	return a, nil
}

// TenantSign records the tenant's signature. Signature flags are monotonic;
// signing twice is rejected.
func (l *Ledger) TenantSign(ctx context.Context, caller domain.Address, id domain.ID) (domain.Agreement, error) {
	return l.sign(ctx, caller, id, true)
}

// LandlordSign records the landlord's signature.
func (l *Ledger) LandlordSign(ctx context.Context, caller domain.Address, id domain.ID) (domain.Agreement, error) {
	return l.sign(ctx, caller, id, false)
}

func (l *Ledger) sign(ctx context.Context, caller domain.Address, id domain.ID, asTenant bool) (domain.Agreement, error) {
	if _, err := l.requireLive(ctx); err != nil {
		return domain.Agreement{}, err
	}
	a, err := l.Store.GetAgreement(ctx, id)
	if err != nil {
		return domain.Agreement{}, err
	}

	now := l.now()
	role := "LANDLORD"
	if asTenant {
		role = "TENANT"
		if caller != a.Tenant {
			return domain.Agreement{}, ErrNotParty
		}
		if a.TenantSigned {
			return domain.Agreement{}, ErrAlreadySigned
		}
		a.TenantSigned = true
		a.TenantSignedAt = now
	} else {
		if caller != a.Landlord {
			return domain.Agreement{}, ErrNotParty
		}
		if a.LandlordSigned {
			return domain.Agreement{}, ErrAlreadySigned
		}
		a.LandlordSigned = true
		a.LandlordSignedAt = now
	}
	a.Status = domain.NextStatusAfterSignature(a.TenantSigned, a.LandlordSigned)

	if err := l.Store.UpdateAgreement(ctx, a); err != nil {
		return domain.Agreement{}, err
	}
	l.emit(ctx, "AgreementSigned", map[string]any{
		"agreement_id": a.ID, "signer": caller, "role": role, "status": a.Status,
	})
	return a, nil
}

// MarkDepositPaid is the escrow-only milestone that activates an agreement.
// Re-invocation after activation is a silent no-op.
func (l *Ledger) MarkDepositPaid(ctx context.Context, caller domain.Address, id domain.ID) error {
	st, err := l.requireLive(ctx)
	if err != nil {
		return err
	}
	if caller != st.Escrow {
		return domain.ErrUnauthorized
	}
	a, err := l.Store.GetAgreement(ctx, id)
	if err != nil {
		return err
	}
	if a.DepositPaid {
		return nil
	}
	if a.Status != domain.StatusPendingPayment {
		return ErrInvalidState
	}

	a.DepositPaid = true
	a.DepositPaidAt = l.now()
	a.Status = domain.StatusActive
	if err := l.Store.UpdateAgreement(ctx, a); err != nil {
		return err
	}
	l.emit(ctx, "AgreementActivated", map[string]any{
		"agreement_id": a.ID, "deposit_paid_at": a.DepositPaidAt,
	})
	return nil
}

// RecordRentPayment is the escrow-only rent milestone. One call is one paid
// period regardless of amount.
func (l *Ledger) RecordRentPayment(ctx context.Context, caller domain.Address, id domain.ID, amount int64) error {
	st, err := l.requireLive(ctx)
	if err != nil {
		return err
	}
	if caller != st.Escrow {
		return domain.ErrUnauthorized
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	a, err := l.Store.GetAgreement(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != domain.StatusActive {
		return ErrInvalidState
	}

	a.TotalRentPaid = domain.SaturatingAdd(a.TotalRentPaid, amount)
	a.MonthsPaid++
	if err := l.Store.UpdateAgreement(ctx, a); err != nil {
		return err
	}
	l.emit(ctx, "RentPaymentRecorded", map[string]any{
		"agreement_id": a.ID, "amount": amount, "months_paid": a.MonthsPaid,
	})
	return nil
}

// Complete ends an Active agreement once its term has elapsed.
func (l *Ledger) Complete(ctx context.Context, caller domain.Address, id domain.ID) (domain.Agreement, error) {
	if _, err := l.requireLive(ctx); err != nil {
		return domain.Agreement{}, err
	}
	a, err := l.Store.GetAgreement(ctx, id)
	if err != nil {
		return domain.Agreement{}, err
	}
	if !a.IsParty(caller) {
		return domain.Agreement{}, ErrNotParty
	}
	if a.Status != domain.StatusActive {
		return domain.Agreement{}, ErrInvalidState
	}
	now := l.now()
	if now < a.EndDate {
		return domain.Agreement{}, ErrTermNotEnded
	}

	a.Status = domain.StatusCompleted
	a.CompletedAt = now
	if err := l.Store.UpdateAgreement(ctx, a); err != nil {
		return domain.Agreement{}, err
	}
	l.emit(ctx, "AgreementCompleted", map[string]any{
		"agreement_id": a.ID, "completed_at": a.CompletedAt,
	})
	return a, nil
}

// Cancel aborts an agreement before any money moved: only pre-Active
// statuses, and only while the deposit is unpaid.
func (l *Ledger) Cancel(ctx context.Context, caller domain.Address, id domain.ID) (domain.Agreement, error) {
	if _, err := l.requireLive(ctx); err != nil {
		return domain.Agreement{}, err
	}
	a, err := l.Store.GetAgreement(ctx, id)
	if err != nil {
		return domain.Agreement{}, err
	}
	if !a.IsParty(caller) {
		return domain.Agreement{}, ErrNotParty
	}
	if a.Status == domain.StatusActive || a.Status == domain.StatusCompleted ||
		a.Status == domain.StatusCancelled || a.DepositPaid {
		return domain.Agreement{}, ErrInvalidState
	}

	a.Status = domain.StatusCancelled
	if err := l.Store.UpdateAgreement(ctx, a); err != nil {
		return domain.Agreement{}, err
	}
	l.emit(ctx, "AgreementCancelled", map[string]any{"agreement_id": a.ID})
	return a, nil
}

func (l *Ledger) Get(ctx context.Context, id domain.ID) (domain.Agreement, error) {
	return l.Store.GetAgreement(ctx, id)
}

func (l *Ledger) ListByTenant(ctx context.Context, tenant domain.Address) ([]domain.Agreement, error) {
	return l.Store.ListByTenant(ctx, tenant)
}

func (l *Ledger) ListByLandlord(ctx context.Context, landlord domain.Address) ([]domain.Agreement, error) {
	return l.Store.ListByLandlord(ctx, landlord)
}

func (l *Ledger) ListByProperty(ctx context.Context, propertyID domain.ID) ([]domain.Agreement, error) {
	return l.Store.ListByProperty(ctx, propertyID)
}
