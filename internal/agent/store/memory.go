// Package store provides the in-memory agent registry store.
package store

import (
	"context"
	"sync"

	"paygate/internal/agent/models"
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// InMemoryAgentStore keeps agent records in a map guarded by a RWMutex.
// Records are copied on the way in and out so callers cannot alias store state.
type InMemoryAgentStore struct {
	mu     sync.RWMutex
	agents map[domain.Principal]*models.Agent
}

func NewInMemoryAgentStore() *InMemoryAgentStore {
	return &InMemoryAgentStore{agents: make(map[domain.Principal]*models.Agent)}
}

func (s *InMemoryAgentStore) Create(_ context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agent.ID]; ok {
		return derrors.Newf(derrors.CodeAgentExists, "agent %s already registered", agent.ID)
	}
	s.agents[agent.ID] = copyAgent(agent)
	return nil
}

func (s *InMemoryAgentStore) Get(_ context.Context, id domain.Principal) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[id]
	if !ok {
		return nil, derrors.Newf(derrors.CodeAgentNotFound, "agent %s not registered", id)
	}
	return copyAgent(agent), nil
}

func (s *InMemoryAgentStore) Update(_ context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agent.ID]; !ok {
		return derrors.Newf(derrors.CodeAgentNotFound, "agent %s not registered", agent.ID)
	}
	s.agents[agent.ID] = copyAgent(agent)
	return nil
}

func copyAgent(a *models.Agent) *models.Agent {
	cp := *a
	cp.Permissions = append([]string(nil), a.Permissions...)
	return &cp
}
