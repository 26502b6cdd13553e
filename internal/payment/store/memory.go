// Package store provides in-memory implementations of the payment engine's
// storage ports. They favor clarity over performance and back the unit tests
// as well as single-node deployments.
package store

import (
	"context"
	"sync"

	"paygate/internal/payment/models"
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// InMemoryRuleSetStore keeps one versioned rule set per agent.
type InMemoryRuleSetStore struct {
	mu       sync.RWMutex
	ruleSets map[domain.Principal]models.RuleSet
}

func NewInMemoryRuleSetStore() *InMemoryRuleSetStore {
	return &InMemoryRuleSetStore{ruleSets: make(map[domain.Principal]models.RuleSet)}
}

func (s *InMemoryRuleSetStore) Get(_ context.Context, agentID domain.Principal) (*models.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.ruleSets[agentID]
	if !ok {
		return nil, derrors.Newf(derrors.CodeRulesNotFound, "no payment rules for agent %s", agentID)
	}
	cp := rs
	return &cp, nil
}

func (s *InMemoryRuleSetStore) Put(_ context.Context, ruleSet *models.RuleSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ruleSets[ruleSet.AgentID] = *ruleSet
	return nil
}

// whitelistKey is the generation-scoped composite key. Entries under stale
// versions stay in the map as inert garbage; nothing ever deletes them.
type whitelistKey struct {
	agent     domain.Principal
	version   uint64
	recipient domain.Principal
}

// InMemoryWhitelistStore marks recipients allowed under a rule-set version.
type InMemoryWhitelistStore struct {
	mu      sync.RWMutex
	allowed map[whitelistKey]bool
}

func NewInMemoryWhitelistStore() *InMemoryWhitelistStore {
	return &InMemoryWhitelistStore{allowed: make(map[whitelistKey]bool)}
}

func (s *InMemoryWhitelistStore) Allow(_ context.Context, agentID domain.Principal, version uint64, recipient domain.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowed[whitelistKey{agentID, version, recipient}] = true
	return nil
}

func (s *InMemoryWhitelistStore) IsAllowed(_ context.Context, agentID domain.Principal, version uint64, recipient domain.Principal) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowed[whitelistKey{agentID, version, recipient}], nil
}

type spendingKey struct {
	agent  domain.Principal
	period models.Period
	bucket uint64
}

// InMemorySpendingStore accumulates per-bucket spend. Past buckets are never
// read again once time moves on; retaining them is the accepted trade-off.
type InMemorySpendingStore struct {
	mu     sync.RWMutex
	totals map[spendingKey]uint64
}

func NewInMemorySpendingStore() *InMemorySpendingStore {
	return &InMemorySpendingStore{totals: make(map[spendingKey]uint64)}
}

func (s *InMemorySpendingStore) Total(_ context.Context, agentID domain.Principal, period models.Period, bucket uint64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals[spendingKey{agentID, period, bucket}], nil
}

func (s *InMemorySpendingStore) Add(_ context.Context, agentID domain.Principal, period models.Period, bucket uint64, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[spendingKey{agentID, period, bucket}] += amount
	return nil
}

// InMemoryRateLimitStore remembers the last successful payment time per agent.
type InMemoryRateLimitStore struct {
	mu   sync.RWMutex
	last map[domain.Principal]uint64
}

func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	return &InMemoryRateLimitStore{last: make(map[domain.Principal]uint64)}
}

func (s *InMemoryRateLimitStore) Last(_ context.Context, agentID domain.Principal) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.last[agentID]
	return t, ok, nil
}

func (s *InMemoryRateLimitStore) SetLast(_ context.Context, agentID domain.Principal, timeIndex uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[agentID] = timeIndex
	return nil
}

type auditKey struct {
	agent    domain.Principal
	sequence uint64
}

// InMemoryAuditStore is the append-only payment log.
type InMemoryAuditStore struct {
	mu      sync.RWMutex
	records map[auditKey]models.PaymentRecord
	counts  map[domain.Principal]uint64
}

func NewInMemoryAuditStore() *InMemoryAuditStore {
	return &InMemoryAuditStore{
		records: make(map[auditKey]models.PaymentRecord),
		counts:  make(map[domain.Principal]uint64),
	}
}

func (s *InMemoryAuditStore) Append(_ context.Context, record *models.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := auditKey{record.AgentID, record.Sequence}
	if _, exists := s.records[key]; exists {
		return derrors.Newf(derrors.CodeInternal, "audit record %d already written for agent %s", record.Sequence, record.AgentID)
	}
	s.records[key] = *record
	if record.Sequence > s.counts[record.AgentID] {
		s.counts[record.AgentID] = record.Sequence
	}
	return nil
}

func (s *InMemoryAuditStore) Count(_ context.Context, agentID domain.Principal) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[agentID], nil
}

func (s *InMemoryAuditStore) Get(_ context.Context, agentID domain.Principal, sequence uint64) (*models.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[auditKey{agentID, sequence}]
	if !ok {
		return nil, derrors.Newf(derrors.CodeNotFound, "no audit record %d for agent %s", sequence, agentID)
	}
	cp := record
	return &cp, nil
}

// InMemoryHaltStore holds the emergency halt flags. The global flag is the
// only process-wide mutable state in the core.
type InMemoryHaltStore struct {
	mu     sync.RWMutex
	global bool
	agents map[domain.Principal]bool
}

func NewInMemoryHaltStore() *InMemoryHaltStore {
	return &InMemoryHaltStore{agents: make(map[domain.Principal]bool)}
}

func (s *InMemoryHaltStore) SetGlobal(_ context.Context, halted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = halted
	return nil
}

func (s *InMemoryHaltStore) Global(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global, nil
}

func (s *InMemoryHaltStore) SetAgent(_ context.Context, agentID domain.Principal, halted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agentID] = halted
	return nil
}

func (s *InMemoryHaltStore) Agent(_ context.Context, agentID domain.Principal) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agents[agentID], nil
}
