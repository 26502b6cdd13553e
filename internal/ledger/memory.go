package ledger

import (
	"context"
	"errors"
	"sync"

	"paygate/pkg/domain"
)

// ErrInsufficientBalance is the canonical transfer failure: the debited
// principal does not hold the requested amount.
var ErrInsufficientBalance = errors.New("insufficient balance")

// MemoryLedger is an in-memory fungible-balance ledger with a manually
// advanced time index. It backs tests and single-node deployments; a real
// deployment plugs the hosting chain in behind the same interface.
type MemoryLedger struct {
	mu        sync.RWMutex
	balances  map[domain.Principal]uint64
	timeIndex uint64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[domain.Principal]uint64)}
}

func (l *MemoryLedger) CurrentTimeIndex() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.timeIndex
}

// AdvanceTo moves the clock forward. Moving backward is ignored so the
// monotonicity contract holds even under sloppy callers.
func (l *MemoryLedger) AdvanceTo(t uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t > l.timeIndex {
		l.timeIndex = t
	}
}

// Advance moves the clock forward by delta time units.
func (l *MemoryLedger) Advance(delta uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timeIndex += delta
}

// Mint credits a principal out of thin air. Bootstrap and test helper.
func (l *MemoryLedger) Mint(p domain.Principal, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[p] += amount
}

// Balance returns the current holdings of a principal.
func (l *MemoryLedger) Balance(p domain.Principal) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[p]
}

func (l *MemoryLedger) Transfer(_ context.Context, amount uint64, from, to domain.Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
