package service

import (
	"context"

	"paygate/internal/payment/models"
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// ownerOf resolves the agent's owner for the admin-or-owner gate.
func (s *Service) ownerOf(ctx context.Context, agentID domain.Principal) (domain.Principal, error) {
	agent, err := s.agents.GetAgentInfo(ctx, agentID)
	if err != nil {
		return "", err
	}
	return agent.Owner, nil
}

// UpdatePaymentRules replaces the agent's per-payment ceiling and re-seeds the
// whitelist under a freshly bumped version. Prior-version whitelist entries
// become inert without being touched.
func (s *Service) UpdatePaymentRules(ctx context.Context, caller, agentID domain.Principal, maxAmount uint64, recipients []domain.Principal) error {
	if maxAmount == 0 {
		return derrors.New(derrors.CodeInvalidParams, "max amount must be positive")
	}
	if len(recipients) > models.MaxRecipients {
		return derrors.Newf(derrors.CodeInvalidParams, "at most %d recipients per rules update", models.MaxRecipients)
	}
	for _, r := range recipients {
		if r.IsZero() {
			return derrors.New(derrors.CodeInvalidParams, "recipient cannot be empty")
		}
	}

	owner, err := s.ownerOf(ctx, agentID)
	if err != nil {
		return err
	}
	if err := s.authority.RequireAdminOrOwner(caller, owner); err != nil {
		return err
	}

	unlock := s.lockAgent(agentID)
	defer unlock()

	var version uint64 = 1
	if current, err := s.ruleSets.Get(ctx, agentID); err == nil {
		version = current.Version + 1
	} else if !derrors.HasCode(err, derrors.CodeRulesNotFound) {
		return err
	}

	ruleSet := &models.RuleSet{
		AgentID:   agentID,
		MaxAmount: maxAmount,
		Version:   version,
		UpdatedAt: s.ledger.CurrentTimeIndex(),
	}
	if err := s.ruleSets.Put(ctx, ruleSet); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "rule set write failed")
	}
	for _, recipient := range recipients {
		if err := s.whitelist.Allow(ctx, agentID, version, recipient); err != nil {
			return derrors.Wrap(err, derrors.CodeInternal, "whitelist write failed")
		}
	}

	s.logger.InfoContext(ctx, "payment rules updated",
		"agent_id", agentID,
		"max_amount", maxAmount,
		"version", version,
		"recipients", len(recipients),
	)
	return nil
}

// AddAllowedRecipient whitelists one recipient under the current rule-set
// version. Requires an existing rule set.
func (s *Service) AddAllowedRecipient(ctx context.Context, caller, agentID, recipient domain.Principal) error {
	if recipient.IsZero() {
		return derrors.New(derrors.CodeInvalidParams, "recipient is required")
	}

	owner, err := s.ownerOf(ctx, agentID)
	if err != nil {
		return err
	}
	if err := s.authority.RequireAdminOrOwner(caller, owner); err != nil {
		return err
	}

	unlock := s.lockAgent(agentID)
	defer unlock()

	ruleSet, err := s.ruleSets.Get(ctx, agentID)
	if err != nil {
		return err
	}
	if err := s.whitelist.Allow(ctx, agentID, ruleSet.Version, recipient); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "whitelist write failed")
	}

	s.logger.InfoContext(ctx, "recipient whitelisted",
		"agent_id", agentID,
		"recipient", recipient,
		"version", ruleSet.Version,
	)
	return nil
}

// GetPaymentRules returns the agent's current rule set.
func (s *Service) GetPaymentRules(ctx context.Context, agentID domain.Principal) (*models.RuleSet, error) {
	return s.ruleSets.Get(ctx, agentID)
}

// IsRecipientAllowed reports whether a recipient is whitelisted under the
// agent's current rule-set version. Read only.
func (s *Service) IsRecipientAllowed(ctx context.Context, agentID, recipient domain.Principal) (bool, error) {
	ruleSet, err := s.ruleSets.Get(ctx, agentID)
	if err != nil {
		return false, err
	}
	return s.whitelist.IsAllowed(ctx, agentID, ruleSet.Version, recipient)
}

// GetPaymentHistory returns up to min(limit, MaxHistoryReturn) most recent
// records, newest first. Sequence gaps are skipped, not errors.
func (s *Service) GetPaymentHistory(ctx context.Context, agentID domain.Principal, limit int) ([]*models.PaymentRecord, error) {
	if limit <= 0 || limit > models.MaxHistoryReturn {
		limit = models.MaxHistoryReturn
	}

	count, err := s.audit.Count(ctx, agentID)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "audit counter lookup failed")
	}

	records := make([]*models.PaymentRecord, 0, limit)
	for seq := count; seq >= 1 && len(records) < limit; seq-- {
		record, err := s.audit.Get(ctx, agentID, seq)
		if err != nil {
			if derrors.HasCode(err, derrors.CodeNotFound) {
				continue
			}
			return nil, derrors.Wrap(err, derrors.CodeInternal, "audit read failed")
		}
		records = append(records, record)
	}
	return records, nil
}

// EmergencyHalt stops all payments process-wide. Admin only. Takes effect for
// the next ExecutePayment; in-flight transitions are atomic and never observe
// a mid-flight flip.
func (s *Service) EmergencyHalt(ctx context.Context, caller domain.Principal) error {
	return s.setGlobalHalt(ctx, caller, true)
}

// EmergencyResume lifts the global halt. Admin only.
func (s *Service) EmergencyResume(ctx context.Context, caller domain.Principal) error {
	return s.setGlobalHalt(ctx, caller, false)
}

func (s *Service) setGlobalHalt(ctx context.Context, caller domain.Principal, halted bool) error {
	if err := s.authority.RequireAdmin(caller); err != nil {
		return err
	}
	if err := s.halts.SetGlobal(ctx, halted); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "halt flag write failed")
	}
	if s.metrics != nil {
		s.metrics.SetGlobalHalt(halted)
	}
	s.logger.WarnContext(ctx, "global halt flag changed", "halted", halted, "caller", caller)
	return nil
}

// HaltAgent stops one agent's payments. Admin or owner.
func (s *Service) HaltAgent(ctx context.Context, caller, agentID domain.Principal) error {
	return s.setAgentHalt(ctx, caller, agentID, true)
}

// ResumeAgent lifts a per-agent halt. Admin or owner.
func (s *Service) ResumeAgent(ctx context.Context, caller, agentID domain.Principal) error {
	return s.setAgentHalt(ctx, caller, agentID, false)
}

func (s *Service) setAgentHalt(ctx context.Context, caller, agentID domain.Principal, halted bool) error {
	owner, err := s.ownerOf(ctx, agentID)
	if err != nil {
		return err
	}
	if err := s.authority.RequireAdminOrOwner(caller, owner); err != nil {
		return err
	}
	if err := s.halts.SetAgent(ctx, agentID, halted); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "halt flag write failed")
	}
	s.logger.WarnContext(ctx, "agent halt flag changed", "agent_id", agentID, "halted", halted, "caller", caller)
	return nil
}
