package store

import (
	"context"
	"sync"

	"github.com/syndrizzle/briq/pkg/domain"
)

type pairKey struct {
	agreement domain.ID
	reviewer  domain.Address
}

// Memory is the in-process Store used by tests and dev mode.
type Memory struct {
	mu          sync.Mutex
	state       *State
	reviews     map[domain.ID]domain.Review
	byPair      map[pairKey]domain.ID
	byAgreement map[domain.ID][]domain.ID
	byReviewer  map[domain.Address][]domain.ID
}

func NewMemory() *Memory {
	return &Memory{
		reviews:     make(map[domain.ID]domain.Review),
		byPair:      make(map[pairKey]domain.ID),
		byAgreement: make(map[domain.ID][]domain.ID),
		byReviewer:  make(map[domain.Address][]domain.ID),
	}
}

func (m *Memory) InitState(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		return domain.ErrAlreadyInitialized
	}
	m.state = &s
	return nil
}

func (m *Memory) GetState(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return State{}, domain.ErrNotInitialized
	}
	return *m.state, nil
}

func (m *Memory) SetPaused(_ context.Context, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return domain.ErrNotInitialized
	}
	m.state.Paused = paused
	return nil
}

func (m *Memory) CreateReview(_ context.Context, r domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey{agreement: r.AgreementID, reviewer: r.Reviewer}
	if _, ok := m.byPair[key]; ok {
		return ErrDuplicateReview
	}
	m.reviews[r.ID] = r
	m.byPair[key] = r.ID
	m.byAgreement[r.AgreementID] = append(m.byAgreement[r.AgreementID], r.ID)
	m.byReviewer[r.Reviewer] = append(m.byReviewer[r.Reviewer], r.ID)
	return nil
}

func (m *Memory) GetReview(_ context.Context, id domain.ID) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListByAgreement(_ context.Context, agreementID domain.ID) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hydrate(m.byAgreement[agreementID]), nil
}

func (m *Memory) ListByReviewer(_ context.Context, reviewer domain.Address) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hydrate(m.byReviewer[reviewer]), nil
}

func (m *Memory) hydrate(ids []domain.ID) []domain.Review {
	out := make([]domain.Review, 0, len(ids))
	for _, id := range ids {
		if r, ok := m.reviews[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
