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
	balances map[domain.Address]int64
	supply   int64
	claims   map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[domain.Address]int64),
		claims:   make(map[string]bool),
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

func (m *Memory) SetRewardConfig(_ context.Context, c domain.RewardConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return domain.ErrNotInitialized
	}
	m.state.Config = c
	return nil
}

func (m *Memory) Balance(_ context.Context, addr domain.Address) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[addr], nil
}

func (m *Memory) TotalSupply(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.supply, nil
}

func (m *Memory) Transfer(_ context.Context, from, to domain.Address, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return ErrInsufficientBalance
	}
	sum, ok := domain.CheckedAdd(m.balances[to], amount)
	if !ok {
		return ErrOverflow
	}
	m.balances[from] -= amount
	m.balances[to] = sum
	return nil
}

func (m *Memory) Mint(_ context.Context, to domain.Address, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mintLocked(to, amount)
}

func (m *Memory) mintLocked(to domain.Address, amount int64) error {
	bal, ok := domain.CheckedAdd(m.balances[to], amount)
	if !ok {
		return ErrOverflow
	}
	sup, ok := domain.CheckedAdd(m.supply, amount)
	if !ok {
		return ErrOverflow
	}
	m.balances[to] = bal
	m.supply = sup
	return nil
}

func (m *Memory) Burn(_ context.Context, from domain.Address, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return ErrInsufficientBalance
	}
	m.balances[from] -= amount
	m.supply -= amount
	return nil
}

func (m *Memory) RedeemClaim(_ context.Context, key string, credits []Credit) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims[key] {
		return false, nil
	}
	// Validate the whole redemption before applying any of it, counting
	// credits that stack on one address and the supply total, so a failed
	// redemption leaves no partial mint behind.
	staged := make(map[domain.Address]int64, len(credits))
	supply := m.supply
	for _, c := range credits {
		if _, seen := staged[c.To]; !seen {
			staged[c.To] = m.balances[c.To]
		}
		bal, ok := domain.CheckedAdd(staged[c.To], c.Amount)
		if !ok {
			return false, ErrOverflow
		}
		staged[c.To] = bal
		supply, ok = domain.CheckedAdd(supply, c.Amount)
		if !ok {
			return false, ErrOverflow
		}
	}
	for addr, bal := range staged {
		m.balances[addr] = bal
	}
	m.supply = supply
	m.claims[key] = true
	return true, nil
}
