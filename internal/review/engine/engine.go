// Package engine owns review eligibility and mutual-review detection. A
// party may review the other once per agreement, after thirty days of
// tenancy; when both directions exist the mutual bonus is triggered.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/syndrizzle/briq/internal/review/store"
	"github.com/syndrizzle/briq/pkg/domain"
	"github.com/syndrizzle/briq/pkg/events"
)

var (
	ErrNotParty        = errors.New("reviewer is not a party to this agreement")
	ErrNotReviewable   = errors.New("agreement is not active or completed")
	ErrTooEarly        = errors.New("review window has not opened yet")
	ErrAlreadyReviewed = errors.New("reviewer already reviewed this agreement")
)

// Agreements is the read-only boundary with the agreement ledger.
type Agreements interface {
	Get(ctx context.Context, id domain.ID) (domain.Agreement, error)
}

// Rewards triggers per-review and mutual incentives. Optional; issuance is
// not on the consistency-critical path.
type Rewards interface {
	RewardReview(ctx context.Context, agreementID domain.ID, reviewer domain.Address) error
	RewardMutualReview(ctx context.Context, agreementID domain.ID) error
}

type Engine struct {
	Store      store.Store
	Agreements Agreements
	Rewards    Rewards
	Events     events.Sink
	Now        func() time.Time
}

func New(st store.Store, agreements Agreements, sink events.Sink) *Engine {
	return &Engine{Store: st, Agreements: agreements, Events: sink, Now: time.Now}
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
	e.emit(ctx, "Initialized", map[string]any{"admin": admin})
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

// eligibility is the pure predicate over an agreement snapshot, the
// reviewer, the current time, and the existing per-agreement reviews. It
// returns the first violated condition.
func eligibility(a domain.Agreement, reviewer domain.Address, now int64, existing []domain.Review) error {
	if !a.IsParty(reviewer) {
		return ErrNotParty
	}
	if a.Status != domain.StatusActive && a.Status != domain.StatusCompleted {
		return ErrNotReviewable
	}
	if now < a.StartDate+domain.ReviewEligibilityWindow {
		return ErrTooEarly
	}
	for _, r := range existing {
		if r.Reviewer == reviewer {
			return ErrAlreadyReviewed
		}
	}
	return nil
}

// CanSubmit reports whether the reviewer may submit for the agreement right
// now, with the first blocking condition as the error.
func (e *Engine) CanSubmit(ctx context.Context, reviewer domain.Address, agreementID domain.ID) error {
	a, err := e.Agreements.Get(ctx, agreementID)
	if err != nil {
		return err
	}
	existing, err := e.Store.ListByAgreement(ctx, agreementID)
	if err != nil {
		return err
	}
	return eligibility(a, reviewer, e.now(), existing)
}

// Submit records the review and fires the downstream incentives. The review
// itself is the consistency-critical write; reward calls are best-effort.
func (e *Engine) Submit(ctx context.Context, reviewer domain.Address, agreementID domain.ID, rating int, text string) (domain.Review, error) {
	if _, err := e.requireLive(ctx); err != nil {
		return domain.Review{}, err
	}
	if err := domain.ValidateReviewInput(rating, text); err != nil {
		return domain.Review{}, err
	}

	a, err := e.Agreements.Get(ctx, agreementID)
	if err != nil {
		return domain.Review{}, err
	}
	existing, err := e.Store.ListByAgreement(ctx, agreementID)
	if err != nil {
		return domain.Review{}, err
	}
	now := e.now()
	if err := eligibility(a, reviewer, now, existing); err != nil {
		return domain.Review{}, err
	}

	role := domain.ReviewerTenant
	reviewee := a.Landlord
	if reviewer == a.Landlord {
		role = domain.ReviewerLandlord
		reviewee = a.Tenant
	}
	review := domain.Review{
		ID:           domain.NewID("rev"),
		AgreementID:  agreementID,
		Reviewer:     reviewer,
		Reviewee:     reviewee,
		ReviewerRole: role,
		Rating:       rating,
		ReviewText:   text,
		CreatedAt:    now,
	}
	if err := e.Store.CreateReview(ctx, review); err != nil {
		if errors.Is(err, store.ErrDuplicateReview) {
			return domain.Review{}, ErrAlreadyReviewed
		}
		return domain.Review{}, err
	}
	e.emit(ctx, "ReviewSubmitted", map[string]any{
		"agreement_id": agreementID, "reviewer": reviewer, "reviewee": reviewee,
		"role": role, "rating": rating,
	})

	if e.Rewards != nil {
		if err := e.Rewards.RewardReview(ctx, agreementID, reviewer); err != nil {
			slog.Warn("review reward failed", "agreement_id", agreementID, "reviewer", reviewer, "error", err)
		}
	}

	// Re-scan for the opposite direction. The mutual trigger may fire more
	// than once across retries; the reward ledger's claim marker keeps the
	// payout single.
	e.checkMutual(ctx, agreementID)
	return review, nil
}

func (e *Engine) checkMutual(ctx context.Context, agreementID domain.ID) {
	reviews, err := e.Store.ListByAgreement(ctx, agreementID)
	if err != nil {
		slog.Warn("mutual re-scan failed", "agreement_id", agreementID, "error", err)
		return
	}
	var tenantSide, landlordSide bool
	for _, r := range reviews {
		switch r.ReviewerRole {
		case domain.ReviewerTenant:
			tenantSide = true
		case domain.ReviewerLandlord:
			landlordSide = true
		}
	}
	if !tenantSide || !landlordSide {
		return
	}
	e.emit(ctx, "MutualReviewCompleted", map[string]any{"agreement_id": agreementID})
	if e.Rewards != nil {
		if err := e.Rewards.RewardMutualReview(ctx, agreementID); err != nil {
			slog.Warn("mutual review reward failed", "agreement_id", agreementID, "error", err)
		}
	}
}

func (e *Engine) Get(ctx context.Context, id domain.ID) (domain.Review, error) {
	return e.Store.GetReview(ctx, id)
}

func (e *Engine) ByAgreement(ctx context.Context, agreementID domain.ID) ([]domain.Review, error) {
	return e.Store.ListByAgreement(ctx, agreementID)
}

func (e *Engine) ByReviewer(ctx context.Context, reviewer domain.Address) ([]domain.Review, error) {
	return e.Store.ListByReviewer(ctx, reviewer)
}
