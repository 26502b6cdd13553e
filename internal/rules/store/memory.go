// Package store provides the in-memory rule store.
package store

import (
	"context"
	"sort"
	"sync"

	"paygate/internal/rules/models"
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// InMemoryRuleStore keeps rules in a map with a monotonic id counter.
type InMemoryRuleStore struct {
	mu     sync.RWMutex
	rules  map[uint64]*models.Rule
	nextID uint64
}

func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{rules: make(map[uint64]*models.Rule)}
}

func (s *InMemoryRuleStore) Create(_ context.Context, rule *models.Rule) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := copyRule(rule)
	cp.ID = s.nextID
	s.rules[cp.ID] = cp
	return cp.ID, nil
}

func (s *InMemoryRuleStore) Get(_ context.Context, id uint64) (*models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return nil, derrors.Newf(derrors.CodeRuleNotFound, "rule %d not found", id)
	}
	return copyRule(rule), nil
}

func (s *InMemoryRuleStore) Update(_ context.Context, rule *models.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; !ok {
		return derrors.Newf(derrors.CodeRuleNotFound, "rule %d not found", rule.ID)
	}
	s.rules[rule.ID] = copyRule(rule)
	return nil
}

func (s *InMemoryRuleStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return derrors.Newf(derrors.CodeRuleNotFound, "rule %d not found", id)
	}
	delete(s.rules, id)
	return nil
}

func (s *InMemoryRuleStore) ListByAgent(_ context.Context, agentID domain.Principal) ([]*models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Rule
	for _, rule := range s.rules {
		if rule.AgentID == agentID {
			out = append(out, copyRule(rule))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copyRule(r *models.Rule) *models.Rule {
	cp := *r
	if r.Amount != nil {
		a := *r.Amount
		cp.Amount = &a
	}
	if r.Merchant != nil {
		m := *r.Merchant
		m.Principals = append([]domain.Principal(nil), r.Merchant.Principals...)
		m.Categories = append([]string(nil), r.Merchant.Categories...)
		cp.Merchant = &m
	}
	if r.Time != nil {
		t := *r.Time
		cp.Time = &t
	}
	if r.Velocity != nil {
		v := *r.Velocity
		cp.Velocity = &v
	}
	if r.Geo != nil {
		g := *r.Geo
		g.AllowedCountries = append([]string(nil), r.Geo.AllowedCountries...)
		cp.Geo = &g
	}
	return &cp
}
