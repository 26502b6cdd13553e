// Package service implements rule CRUD and the first-match evaluator.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"paygate/internal/authz"
	"paygate/internal/ledger"
	"paygate/internal/rules/models"
	"paygate/internal/rules/ports"
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// AgentLookup resolves the owning principal of an agent so rule writes can be
// gated without importing the whole registry service.
type AgentLookup interface {
	Owner(ctx context.Context, agentID domain.Principal) (domain.Principal, error)
}

type Service struct {
	store     ports.RuleStore
	agents    AgentLookup
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

func New(store ports.RuleStore, agents AgentLookup, authority *authz.Authority, ldg ledger.Ledger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("rule store is required")
	}
	if agents == nil {
		return nil, fmt.Errorf("agent lookup is required")
	}
	if authority == nil {
		return nil, fmt.Errorf("authority is required")
	}
	if ldg == nil {
		return nil, fmt.Errorf("ledger is required")
	}

	svc := &Service{
		store:     store,
		agents:    agents,
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

// requireWriteAccess gates rule mutations: admin, the agent's owner, or the
// agent principal itself.
func (s *Service) requireWriteAccess(ctx context.Context, caller, agentID domain.Principal) error {
	if caller == agentID && !caller.IsZero() {
		return nil
	}
	owner, err := s.agents.Owner(ctx, agentID)
	if err != nil {
		return err
	}
	return s.authority.RequireAdminOrOwner(caller, owner)
}

// CreateRule validates and stores a new rule, returning its id. Each agent
// may hold at most MaxRulesPerAgent rules.
func (s *Service) CreateRule(ctx context.Context, caller domain.Principal, rule *models.Rule) (uint64, error) {
	if rule == nil {
		return 0, derrors.New(derrors.CodeInvalidParams, "rule is required")
	}
	if err := rule.Validate(); err != nil {
		return 0, err
	}
	if err := s.requireWriteAccess(ctx, caller, rule.AgentID); err != nil {
		return 0, err
	}

	existing, err := s.store.ListByAgent(ctx, rule.AgentID)
	if err != nil {
		return 0, err
	}
	if len(existing) >= models.MaxRulesPerAgent {
		return 0, derrors.Newf(derrors.CodeInvalidParams, "agent already has %d rules", models.MaxRulesPerAgent)
	}

	rule.CreatedAt = s.ledger.CurrentTimeIndex()
	id, err := s.store.Create(ctx, rule)
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "rule created",
		"rule_id", id,
		"agent_id", rule.AgentID,
		"type", rule.Type,
		"action", rule.Action,
	)
	return id, nil
}

// UpdateRule replaces the rule's type, action, and parameters, keeping id,
// agent, priority, and creation time.
func (s *Service) UpdateRule(ctx context.Context, caller domain.Principal, id uint64, updated *models.Rule) error {
	if updated == nil {
		return derrors.New(derrors.CodeInvalidParams, "rule is required")
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireWriteAccess(ctx, caller, current.AgentID); err != nil {
		return err
	}

	next := *updated
	next.ID = current.ID
	next.AgentID = current.AgentID
	next.Priority = current.Priority
	next.CreatedAt = current.CreatedAt
	if err := next.Validate(); err != nil {
		return err
	}
	return s.store.Update(ctx, &next)
}

// DeleteRule removes the rule.
func (s *Service) DeleteRule(ctx context.Context, caller domain.Principal, id uint64) error {
	rule, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireWriteAccess(ctx, caller, rule.AgentID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "rule deleted", "rule_id", id, "agent_id", rule.AgentID)
	return nil
}

// SetRulePriority changes evaluation order. Lower priority evaluates first.
func (s *Service) SetRulePriority(ctx context.Context, caller domain.Principal, id, priority uint64) error {
	rule, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireWriteAccess(ctx, caller, rule.AgentID); err != nil {
		return err
	}
	rule.Priority = priority
	return s.store.Update(ctx, rule)
}

// SetRuleEnabled toggles a rule without deleting it.
func (s *Service) SetRuleEnabled(ctx context.Context, caller domain.Principal, id uint64, enabled bool) error {
	rule, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireWriteAccess(ctx, caller, rule.AgentID); err != nil {
		return err
	}
	rule.Enabled = enabled
	return s.store.Update(ctx, rule)
}

// GetRule returns a single rule.
func (s *Service) GetRule(ctx context.Context, id uint64) (*models.Rule, error) {
	return s.store.Get(ctx, id)
}

// ListRules returns all rules for an agent in ascending id order.
func (s *Service) ListRules(ctx context.Context, agentID domain.Principal) ([]*models.Rule, error) {
	return s.store.ListByAgent(ctx, agentID)
}

// Evaluate runs first-match-wins over the agent's enabled rules, ascending
// priority with rule id breaking ties. The first triggering rule's action is
// returned; when nothing triggers the result is ActionAllow. Pure read.
func (s *Service) Evaluate(ctx context.Context, agentID domain.Principal, pctx models.PaymentContext) (models.Action, error) {
	rules, err := s.store.ListByAgent(ctx, agentID)
	if err != nil {
		return "", err
	}

	enabled := rules[:0]
	for _, rule := range rules {
		if rule.Enabled {
			enabled = append(enabled, rule)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		if enabled[i].Priority != enabled[j].Priority {
			return enabled[i].Priority < enabled[j].Priority
		}
		return enabled[i].ID < enabled[j].ID
	})

	for _, rule := range enabled {
		if triggers(rule, pctx) {
			return rule.Action, nil
		}
	}
	return models.ActionAllow, nil
}

// triggers is the per-type predicate. A triggered rule overrides the default
// allow with its configured action.
func triggers(rule *models.Rule, pctx models.PaymentContext) bool {
	switch rule.Type {
	case models.TypeAmount:
		return pctx.Amount < rule.Amount.Min || pctx.Amount > rule.Amount.Max

	case models.TypeMerchant:
		listed := containsPrincipal(rule.Merchant.Principals, pctx.Recipient) ||
			(pctx.Category != "" && containsString(rule.Merchant.Categories, pctx.Category))
		if rule.Merchant.Mode == models.MerchantWhitelist {
			return !listed
		}
		return listed

	case models.TypeTime:
		if rule.Time.BusinessHoursOnly &&
			(pctx.Hour < rule.Time.StartHour || pctx.Hour > rule.Time.EndHour) {
			return true
		}
		return !rule.Time.WeekendAllowed && pctx.Weekend

	case models.TypeVelocity:
		return pctx.TxsInLastHour > rule.Velocity.MaxPerHour

	case models.TypeGeo:
		return !containsString(rule.Geo.AllowedCountries, pctx.Country)
	}
	return false
}

func containsPrincipal(list []domain.Principal, p domain.Principal) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}
