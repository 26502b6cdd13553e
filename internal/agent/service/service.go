// Package service implements the agent registry operations. All mutations go
// through the uniform admin-or-owner gate; reads are side-effect free.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"paygate/internal/agent/models"
	"paygate/internal/agent/ports"
	"paygate/internal/authz"
	"paygate/internal/ledger"
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

type Service struct {
	store     ports.AgentStore
	authority *authz.Authority
	ledger    ledger.Ledger
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store ports.AgentStore, authority *authz.Authority, ldg ledger.Ledger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("agent store is required")
	}
	if authority == nil {
		return nil, fmt.Errorf("authority is required")
	}
	if ldg == nil {
		return nil, fmt.Errorf("ledger is required")
	}

	svc := &Service{
		store:     store,
		authority: authority,
		ledger:    ldg,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc, nil
}

// Register creates a new agent owned by the caller. The agent starts active
// but unauthorized, with zero spending limits.
func (s *Service) Register(ctx context.Context, caller, agentID domain.Principal, permissions []string) error {
	if agentID.IsZero() {
		return derrors.New(derrors.CodeInvalidParams, "agent id is required")
	}
	if caller.IsZero() {
		return derrors.New(derrors.CodeUnauthorized, "caller is required")
	}
	if err := models.ValidatePermissions(permissions); err != nil {
		return err
	}

	agent := &models.Agent{
		ID:           agentID,
		Owner:        caller,
		Active:       true,
		Authorized:   false,
		Permissions:  append([]string(nil), permissions...),
		RegisteredAt: s.ledger.CurrentTimeIndex(),
	}
	if err := s.store.Create(ctx, agent); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "agent registered",
		"agent_id", agentID,
		"owner", caller,
		"permissions", len(permissions),
	)
	return nil
}

// Authorize flips the authorization flag on. Admin or owner only.
func (s *Service) Authorize(ctx context.Context, caller, agentID domain.Principal) error {
	return s.setAuthorized(ctx, caller, agentID, true)
}

// Deauthorize flips the authorization flag off. The record stays; this is a
// state change, not removal.
func (s *Service) Deauthorize(ctx context.Context, caller, agentID domain.Principal) error {
	return s.setAuthorized(ctx, caller, agentID, false)
}

func (s *Service) setAuthorized(ctx context.Context, caller, agentID domain.Principal, authorized bool) error {
	agent, err := s.store.Get(ctx, agentID)
	if err != nil {
		return err
	}
	if err := s.authority.RequireAdminOrOwner(caller, agent.Owner); err != nil {
		return err
	}

	agent.Authorized = authorized
	if err := s.store.Update(ctx, agent); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "agent authorization changed",
		"agent_id", agentID,
		"authorized", authorized,
		"caller", caller,
	)
	return nil
}

// SetSpendingLimit updates the daily and monthly caps. Rejects monthly < daily.
func (s *Service) SetSpendingLimit(ctx context.Context, caller, agentID domain.Principal, daily, monthly uint64) error {
	if err := models.ValidateLimits(daily, monthly); err != nil {
		return err
	}
	agent, err := s.store.Get(ctx, agentID)
	if err != nil {
		return err
	}
	if err := s.authority.RequireAdminOrOwner(caller, agent.Owner); err != nil {
		return err
	}

	agent.DailyLimit = daily
	agent.MonthlyLimit = monthly
	if err := s.store.Update(ctx, agent); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "agent spending limits updated",
		"agent_id", agentID,
		"daily_limit", daily,
		"monthly_limit", monthly,
	)
	return nil
}

// UpdatePermissions replaces the permission set, holding the cardinality bound.
func (s *Service) UpdatePermissions(ctx context.Context, caller, agentID domain.Principal, permissions []string) error {
	if err := models.ValidatePermissions(permissions); err != nil {
		return err
	}
	agent, err := s.store.Get(ctx, agentID)
	if err != nil {
		return err
	}
	if err := s.authority.RequireAdminOrOwner(caller, agent.Owner); err != nil {
		return err
	}

	agent.Permissions = append([]string(nil), permissions...)
	return s.store.Update(ctx, agent)
}

// Owner returns the agent's owning principal, or AgentNotFound.
func (s *Service) Owner(ctx context.Context, agentID domain.Principal) (domain.Principal, error) {
	agent, err := s.store.Get(ctx, agentID)
	if err != nil {
		return "", err
	}
	return agent.Owner, nil
}

// GetAgentInfo returns the agent record, or AgentNotFound.
func (s *Service) GetAgentInfo(ctx context.Context, agentID domain.Principal) (*models.Agent, error) {
	return s.store.Get(ctx, agentID)
}

// IsAuthorized reports whether the agent exists and is currently authorized
// and active. Unregistered agents are simply not authorized.
func (s *Service) IsAuthorized(ctx context.Context, agentID domain.Principal) bool {
	agent, err := s.store.Get(ctx, agentID)
	if err != nil {
		return false
	}
	return agent.Active && agent.Authorized
}
