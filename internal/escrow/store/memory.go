package store

import (
	"context"
	"sync"

	"github.com/syndrizzle/briq/pkg/domain"
)

// Memory is the in-process Store used by tests and dev mode.
type Memory struct {
	mu       sync.Mutex
	state    *State
	accounts map[domain.ID]domain.EscrowAccount
	payments map[domain.ID][]domain.PaymentRecord
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[domain.ID]domain.EscrowAccount),
		payments: make(map[domain.ID][]domain.PaymentRecord),
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

func (m *Memory) UpsertAccount(_ context.Context, a domain.EscrowAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.AgreementID] = a
	return nil
}

func (m *Memory) GetAccount(_ context.Context, agreementID domain.ID) (domain.EscrowAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[agreementID]
	if !ok {
		return domain.EscrowAccount{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *Memory) AppendPayment(_ context.Context, p domain.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.AgreementID] = append(m.payments[p.AgreementID], p)
	return nil
}

func (m *Memory) ListPayments(_ context.Context, agreementID domain.ID) ([]domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[agreementID]; !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.PaymentRecord, len(m.payments[agreementID]))
	copy(out, m.payments[agreementID])
	return out, nil
}
