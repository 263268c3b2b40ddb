package store

import (
	"context"
	"sync"

	"github.com/syndrizzle/briq/pkg/domain"
)

// Memory is the in-process Store. Index slices are append-only, preserving
// insertion order the same way the postgres sequence does.
type Memory struct {
	mu         sync.Mutex
	state      *State
	agreements map[domain.ID]domain.Agreement
	order      []domain.ID
	byTenant   map[domain.Address][]domain.ID
	byLandlord map[domain.Address][]domain.ID
	byProperty map[domain.ID][]domain.ID
}

func NewMemory() *Memory {
	return &Memory{
		agreements: make(map[domain.ID]domain.Agreement),
		byTenant:   make(map[domain.Address][]domain.ID),
		byLandlord: make(map[domain.Address][]domain.ID),
		byProperty: make(map[domain.ID][]domain.ID),
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

func (m *Memory) CreateAgreement(_ context.Context, a domain.Agreement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agreements[a.ID] = a
	m.order = append(m.order, a.ID)
	m.byTenant[a.Tenant] = append(m.byTenant[a.Tenant], a.ID)
	m.byLandlord[a.Landlord] = append(m.byLandlord[a.Landlord], a.ID)
	m.byProperty[a.PropertyID] = append(m.byProperty[a.PropertyID], a.ID)
	return nil
}

func (m *Memory) GetAgreement(_ context.Context, id domain.ID) (domain.Agreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agreements[id]
	if !ok {
		return domain.Agreement{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *Memory) UpdateAgreement(_ context.Context, a domain.Agreement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agreements[a.ID]; !ok {
		return domain.ErrNotFound
	}
	m.agreements[a.ID] = a
	return nil
}

func (m *Memory) ListAll(_ context.Context) ([]domain.Agreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hydrate(m.order), nil
}

func (m *Memory) ListByTenant(_ context.Context, tenant domain.Address) ([]domain.Agreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hydrate(m.byTenant[tenant]), nil
}

func (m *Memory) ListByLandlord(_ context.Context, landlord domain.Address) ([]domain.Agreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hydrate(m.byLandlord[landlord]), nil
}

func (m *Memory) ListByProperty(_ context.Context, propertyID domain.ID) ([]domain.Agreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hydrate(m.byProperty[propertyID]), nil
}

func (m *Memory) hydrate(ids []domain.ID) []domain.Agreement {
	out := make([]domain.Agreement, 0, len(ids))
	for _, id := range ids {
		if a, ok := m.agreements[id]; ok {
			out = append(out, a)
		}
	}
	return out
}
