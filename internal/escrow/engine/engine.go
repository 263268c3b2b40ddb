// Package engine orchestrates custody of tenant funds: the combined
// deposit-plus-first-rent funding call, per-period rent settlement, deposit
// release after completion, and the admin emergency valve. Funds themselves
// move through the external asset service; this engine only sequences the
// transfers and keeps the custody book.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/syndrizzle/briq/internal/escrow/store"
	"github.com/syndrizzle/briq/pkg/domain"
	"github.com/syndrizzle/briq/pkg/events"
)

var (
	ErrNotTenant          = errors.New("caller is not the agreement tenant")
	ErrNotParty           = errors.New("caller is not a party to this agreement")
	ErrInvalidState       = errors.New("operation not allowed in the current agreement status")
	ErrAlreadyFunded      = errors.New("deposit already paid for this agreement")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrDepositReleased    = errors.New("security deposit already released")
	ErrNothingHeld        = errors.New("no security deposit held")
	ErrAgreementNotActive = errors.New("agreement is not active")
)

// Agreements is the boundary with the agreement ledger. MarkDepositPaid and
// RecordRentPayment are capability calls made with the engine's own key.
type Agreements interface {
	Get(ctx context.Context, id domain.ID) (domain.Agreement, error)
	MarkDepositPaid(ctx context.Context, id domain.ID) error
	RecordRentPayment(ctx context.Context, id domain.ID, amount int64) error
}

// AssetMover is the generic settlement-asset boundary. Transfer fails
// atomically on insufficient balance or missing authorization.
type AssetMover interface {
	Transfer(ctx context.Context, from, to domain.Address, amount int64) error
}

// Rewards triggers the first-payment incentive. Optional; issuance is not
// on the consistency-critical path.
type Rewards interface {
	RewardFirstPayment(ctx context.Context, agreementID domain.ID, tenant domain.Address) error
}

type Engine struct {
	Store      store.Store
	Agreements Agreements
	Assets     AssetMover
	Rewards    Rewards
	Events     events.Sink
	// Custody is the address this engine holds funds under, derived from
	// its own signing key.
	Custody domain.Address
	Now     func() time.Time
}

func New(st store.Store, agreements Agreements, assets AssetMover, custody domain.Address, sink events.Sink) *Engine {
	return &Engine{Store: st, Agreements: agreements, Assets: assets, Custody: custody, Events: sink, Now: time.Now}
}

func (e *Engine) now() int64 { return e.Now().Unix() }

func (e *Engine) emit(ctx context.Context, kind string, fields map[string]any) {
	if e.Events != nil {
		e.Events.Emit(ctx, events.Event{Kind: kind, At: e.now(), Fields: fields})
	}
}

func (e *Engine) requireLive(ctx context.Context) (store.State, error) {
	st, err := e.Store.GetState(ctx)
	if err != nil {
		return store.State{}, err
	}
	if st.Paused {
		return store.State{}, domain.ErrPaused
	}
	return st, nil
}

// Initialize establishes the administrator. One-time; the caller must be
// the named admin.
func (e *Engine) Initialize(ctx context.Context, caller, admin domain.Address) error {
	if caller != admin {
		return domain.ErrUnauthorized
	}
	if err := e.Store.InitState(ctx, store.State{Admin: admin}); err != nil {
		return err
	}
	e.emit(ctx, "Initialized", map[string]any{"admin": admin, "custody": e.Custody})
	return nil
}

func (e *Engine) Pause(ctx context.Context, caller domain.Address) error {
	return e.setPaused(ctx, caller, true, "Paused")
}

func (e *Engine) Unpause(ctx context.Context, caller domain.Address) error {
	return e.setPaused(ctx, caller, false, "Unpaused")
}

func (e *Engine) setPaused(ctx context.Context, caller domain.Address, paused bool, kind string) error {
	st, err := e.Store.GetState(ctx)
	if err != nil {
		return err
	}
	if caller != st.Admin {
		return domain.ErrUnauthorized
	}
	if err := e.Store.SetPaused(ctx, paused); err != nil {
		return err
	}
	e.emit(ctx, kind, nil)
	return nil
}

// Fund collects the security deposit plus the first month's rent in one
// transfer, forwards the rent to the landlord, and notifies the agreement
// ledger. The deposit stays under custody until release.
func (e *Engine) Fund(ctx context.Context, caller domain.Address, agreementID domain.ID) (domain.EscrowAccount, error) {
	if _, err := e.requireLive(ctx); err != nil {
		return domain.EscrowAccount{}, err
	}

	a, err := e.Agreements.Get(ctx, agreementID)
	if err != nil {
		return domain.EscrowAccount{}, err
	}
	if caller != a.Tenant {
		return domain.EscrowAccount{}, ErrNotTenant
	}
	if a.Status != domain.StatusPendingPayment {
		return domain.EscrowAccount{}, ErrInvalidState
	}
	if a.DepositPaid {
		return domain.EscrowAccount{}, ErrAlreadyFunded
	}
	total := domain.SaturatingAdd(a.SecurityDeposit, a.MonthlyRent)
	if total <= 0 {
		return domain.EscrowAccount{}, ErrInvalidAmount
	}

	// Collect the full amount, then forward the rent share. Each transfer
	// is atomic on its own; there is no compensation on a later failure.
	if err := e.Assets.Transfer(ctx, a.Tenant, e.Custody, total); err != nil {
		return domain.EscrowAccount{}, err
	}
	if err := e.Assets.Transfer(ctx, e.Custody, a.Landlord, a.MonthlyRent); err != nil {
		return domain.EscrowAccount{}, err
	}

	// A retry after a failed ledger notification lands here with funds
	// already under custody, so counters accumulate onto any existing
	// account rather than starting over.
	acct, err := e.Store.GetAccount(ctx, agreementID)
	if errors.Is(err, domain.ErrNotFound) {
		acct = domain.EscrowAccount{
			AgreementID: agreementID,
			Landlord:    a.Landlord,
			Tenant:      a.Tenant,
			CreatedAt:   e.now(),
		}
	} else if err != nil {
		return domain.EscrowAccount{}, err
	}
	acct.SecurityDepositAmount = a.SecurityDeposit
	acct.MonthlyRentAmount = a.MonthlyRent
	acct.SecurityDepositHeld = domain.SaturatingAdd(acct.SecurityDepositHeld, a.SecurityDeposit)
	acct.TotalRentReceived = domain.SaturatingAdd(acct.TotalRentReceived, a.MonthlyRent)
	acct.TotalRentReleased = domain.SaturatingAdd(acct.TotalRentReleased, a.MonthlyRent)
	if err := e.Store.UpsertAccount(ctx, acct); err != nil {
		return domain.EscrowAccount{}, err
	}
	if err := e.record(ctx, agreementID, a.Tenant, e.Custody, a.SecurityDeposit, domain.PaymentSecurityDeposit); err != nil {
		return domain.EscrowAccount{}, err
	}
	if err := e.record(ctx, agreementID, a.Tenant, a.Landlord, a.MonthlyRent, domain.PaymentFirstMonthRent); err != nil {
		return domain.EscrowAccount{}, err
	}

	e.emit(ctx, "SecurityDepositReceived", map[string]any{
		"agreement_id": agreementID, "tenant": a.Tenant, "amount": a.SecurityDeposit,
	})
	e.emit(ctx, "RentReleasedToLandlord", map[string]any{
		"agreement_id": agreementID, "landlord": a.Landlord, "amount": a.MonthlyRent,
	})

	if err := e.Agreements.MarkDepositPaid(ctx, agreementID); err != nil {
		return domain.EscrowAccount{}, err
	}
	if err := e.Agreements.RecordRentPayment(ctx, agreementID, a.MonthlyRent); err != nil {
		return domain.EscrowAccount{}, err
	}

	if e.Rewards != nil {
		if err := e.Rewards.RewardFirstPayment(ctx, agreementID, a.Tenant); err != nil {
			slog.Warn("first payment reward failed", "agreement_id", agreementID, "error", err)
		}
	}
	return acct, nil
}

// PayRent settles one rent period: tenant to custody to landlord, counters
// updated, agreement ledger notified. Every period is an explicit call.
func (e *Engine) PayRent(ctx context.Context, caller domain.Address, agreementID domain.ID) (domain.EscrowAccount, error) {
	if _, err := e.requireLive(ctx); err != nil {
		return domain.EscrowAccount{}, err
	}

	a, err := e.Agreements.Get(ctx, agreementID)
	if err != nil {
		return domain.EscrowAccount{}, err
	}
	if caller != a.Tenant {
		return domain.EscrowAccount{}, ErrNotTenant
	}
	if a.Status != domain.StatusActive {
		return domain.EscrowAccount{}, ErrAgreementNotActive
	}
	acct, err := e.Store.GetAccount(ctx, agreementID)
	if err != nil {
		return domain.EscrowAccount{}, err
	}
	rent := acct.MonthlyRentAmount
	if rent <= 0 {
		return domain.EscrowAccount{}, ErrInvalidAmount
	}

	if err := e.Assets.Transfer(ctx, a.Tenant, e.Custody, rent); err != nil {
		return domain.EscrowAccount{}, err
	}
	if err := e.Assets.Transfer(ctx, e.Custody, a.Landlord, rent); err != nil {
		return domain.EscrowAccount{}, err
	}

	acct.TotalRentReceived = domain.SaturatingAdd(acct.TotalRentReceived, rent)
	acct.TotalRentReleased = domain.SaturatingAdd(acct.TotalRentReleased, rent)
	if err := e.Store.UpsertAccount(ctx, acct); err != nil {
		return domain.EscrowAccount{}, err
	}
	if err := e.record(ctx, agreementID, a.Tenant, a.Landlord, rent, domain.PaymentMonthlyRent); err != nil {
		return domain.EscrowAccount{}, err
	}
	e.emit(ctx, "RentPaymentReceived", map[string]any{
		"agreement_id": agreementID, "tenant": a.Tenant, "amount": rent,
	})
	e.emit(ctx, "RentReleasedToLandlord", map[string]any{
		"agreement_id": agreementID, "landlord": a.Landlord, "amount": rent,
	})

	if err := e.Agreements.RecordRentPayment(ctx, agreementID, rent); err != nil {
		return domain.EscrowAccount{}, err
	}
	return acct, nil
}

// ReleaseDeposit returns the full held deposit to the tenant once the
// agreement is completed. A second release is rejected.
func (e *Engine) ReleaseDeposit(ctx context.Context, caller domain.Address, agreementID domain.ID) (domain.EscrowAccount, error) {
	if _, err := e.requireLive(ctx); err != nil {
		return domain.EscrowAccount{}, err
	}

	a, err := e.Agreements.Get(ctx, agreementID)
	if err != nil {
		return domain.EscrowAccount{}, err
	}
	if !a.IsParty(caller) {
		return domain.EscrowAccount{}, ErrNotParty
	}
	if a.Status != domain.StatusCompleted {
		return domain.EscrowAccount{}, ErrInvalidState
	}
	acct, err := e.Store.GetAccount(ctx, agreementID)
	if err != nil {
		return domain.EscrowAccount{}, err
	}
	if acct.IsDepositReleased {
		return domain.EscrowAccount{}, ErrDepositReleased
	}
	if acct.SecurityDepositHeld <= 0 {
		return domain.EscrowAccount{}, ErrNothingHeld
	}

	amount := acct.SecurityDepositHeld
	if err := e.Assets.Transfer(ctx, e.Custody, acct.Tenant, amount); err != nil {
		return domain.EscrowAccount{}, err
	}

	now := e.now()
	acct.SecurityDepositHeld = 0
	acct.IsDepositReleased = true
	acct.DepositReleasedAt = now
	if err := e.Store.UpsertAccount(ctx, acct); err != nil {
		return domain.EscrowAccount{}, err
	}
	if err := e.record(ctx, agreementID, e.Custody, acct.Tenant, amount, domain.PaymentDepositRelease); err != nil {
		return domain.EscrowAccount{}, err
	}
	e.emit(ctx, "DepositReleasedToTenant", map[string]any{
		"agreement_id": agreementID, "tenant": acct.Tenant, "amount": amount,
	})
	return acct, nil
}

// EmergencyWithdraw moves any held deposit to an arbitrary address. Admin
// escape valve for operational incidents; a no-op when nothing is held.
func (e *Engine) EmergencyWithdraw(ctx context.Context, caller domain.Address, agreementID domain.ID, to domain.Address) error {
	st, err := e.requireLive(ctx)
	if err != nil {
		return err
	}
	if caller != st.Admin {
		return domain.ErrUnauthorized
	}
	acct, err := e.Store.GetAccount(ctx, agreementID)
	if err != nil {
		return err
	}
	if acct.SecurityDepositHeld <= 0 {
		return nil
	}

	amount := acct.SecurityDepositHeld
	if err := e.Assets.Transfer(ctx, e.Custody, to, amount); err != nil {
		return err
	}
	acct.SecurityDepositHeld = 0
	acct.IsDepositReleased = true
	acct.DepositReleasedAt = e.now()
	if err := e.Store.UpsertAccount(ctx, acct); err != nil {
		return err
	}
	if err := e.record(ctx, agreementID, e.Custody, to, amount, domain.PaymentEmergencyWithdrawal); err != nil {
		return err
	}
	e.emit(ctx, "EmergencyWithdrawal", map[string]any{
		"agreement_id": agreementID, "to": to, "amount": amount,
	})
	return nil
}

func (e *Engine) GetEscrow(ctx context.Context, agreementID domain.ID) (domain.EscrowAccount, error) {
	return e.Store.GetAccount(ctx, agreementID)
}

func (e *Engine) PaymentHistory(ctx context.Context, agreementID domain.ID) ([]domain.PaymentRecord, error) {
	return e.Store.ListPayments(ctx, agreementID)
}

func (e *Engine) record(ctx context.Context, agreementID domain.ID, payer, payee domain.Address, amount int64, t domain.PaymentType) error {
	return e.Store.AppendPayment(ctx, domain.PaymentRecord{
		ID:          domain.NewID("pay"),
		AgreementID: agreementID,
		Payer:       payer,
		Payee:       payee,
		Amount:      amount,
		PaymentType: t,
		Timestamp:   e.now(),
	})
}
