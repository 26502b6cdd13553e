// Package service implements the payment policy engine: the ordered check
// pipeline, its administrative sub-operations, and the audit/history reads.
//
// Every state-touching operation for one agent runs under that agent's lock,
// so a whole ExecutePayment invocation is a single serialized transition.
// State is partitioned by agent id; different agents never contend.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	agentmodels "paygate/internal/agent/models"
	"paygate/internal/authz"
	"paygate/internal/ledger"
	"paygate/internal/payment/metrics"
	"paygate/internal/payment/models"
	"paygate/internal/payment/ports"
	rulemodels "paygate/internal/rules/models"
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// AgentDirectory is the slice of the agent registry the engine reads.
type AgentDirectory interface {
	GetAgentInfo(ctx context.Context, agentID domain.Principal) (*agentmodels.Agent, error)
}

// RuleEvaluator is the typed-rule engine consulted after all built-in checks.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, agentID domain.Principal, pctx rulemodels.PaymentContext) (rulemodels.Action, error)
}

type Service struct {
	agents    AgentDirectory
	evaluator RuleEvaluator
	authority *authz.Authority
	ledger    ledger.Ledger

	ruleSets   ports.RuleSetStore
	whitelist  ports.WhitelistStore
	spending   ports.SpendingStore
	rateLimits ports.RateLimitStore
	audit      ports.AuditStore
	halts      ports.HaltStore

	locks   sync.Map // domain.Principal -> *sync.Mutex
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Stores bundles the engine's storage ports to keep the constructor readable.
type Stores struct {
	RuleSets   ports.RuleSetStore
	Whitelist  ports.WhitelistStore
	Spending   ports.SpendingStore
	RateLimits ports.RateLimitStore
	Audit      ports.AuditStore
	Halts      ports.HaltStore
}

func New(agents AgentDirectory, evaluator RuleEvaluator, authority *authz.Authority, ldg ledger.Ledger, stores Stores, opts ...Option) (*Service, error) {
	if agents == nil {
		return nil, fmt.Errorf("agent directory is required")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("rule evaluator is required")
	}
	if authority == nil {
		return nil, fmt.Errorf("authority is required")
	}
	if ldg == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	for _, missing := range []struct {
		name string
		nil_ bool
	}{
		{"rule set store", stores.RuleSets == nil},
		{"whitelist store", stores.Whitelist == nil},
		{"spending store", stores.Spending == nil},
		{"rate limit store", stores.RateLimits == nil},
		{"audit store", stores.Audit == nil},
		{"halt store", stores.Halts == nil},
	} {
		if missing.nil_ {
			return nil, fmt.Errorf("%s is required", missing.name)
		}
	}

	svc := &Service{
		agents:     agents,
		evaluator:  evaluator,
		authority:  authority,
		ledger:     ldg,
		ruleSets:   stores.RuleSets,
		whitelist:  stores.Whitelist,
		spending:   stores.Spending,
		rateLimits: stores.RateLimits,
		audit:      stores.Audit,
		halts:      stores.Halts,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc, nil
}

// lockAgent serializes all state transitions for one agent.
func (s *Service) lockAgent(agentID domain.Principal) func() {
	val, _ := s.locks.LoadOrStore(agentID, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) deny(reason derrors.Code) {
	if s.metrics != nil {
		s.metrics.IncrementDenied(string(reason))
	}
}

// ExecutePayment runs the full policy pipeline as one atomic transition.
// Checks apply in a fixed order and the first failure aborts with no state
// written. Only attempts that pass every check reach the ledger; those, and
// only those, consume a sequence number and leave an audit record whether the
// transfer succeeds or fails.
func (s *Service) ExecutePayment(ctx context.Context, caller domain.Principal, req models.ExecuteRequest) (*models.Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Caller must be the paying agent itself. No delegation.
	if caller != req.AgentID {
		s.deny(derrors.CodeUnauthorized)
		return nil, derrors.New(derrors.CodeUnauthorized, "caller must be the paying agent")
	}

	unlock := s.lockAgent(req.AgentID)
	defer unlock()

	now := s.ledger.CurrentTimeIndex()

	if err := s.checkHalts(ctx, req.AgentID); err != nil {
		s.deny(derrors.CodeOf(err))
		return nil, err
	}

	agent, err := s.agents.GetAgentInfo(ctx, req.AgentID)
	if err != nil {
		s.deny(derrors.CodeOf(err))
		return nil, err
	}
	if !agent.Active || !agent.Authorized {
		s.deny(derrors.CodeUnauthorized)
		return nil, derrors.Newf(derrors.CodeUnauthorized, "agent %s is not authorized", req.AgentID)
	}

	ruleSet, err := s.ruleSets.Get(ctx, req.AgentID)
	if err != nil {
		s.deny(derrors.CodeOf(err))
		return nil, err
	}
	if req.Amount > ruleSet.MaxAmount {
		s.deny(derrors.CodeAmountTooHigh)
		return nil, derrors.Newf(derrors.CodeAmountTooHigh, "amount %d exceeds per-payment ceiling %d", req.Amount, ruleSet.MaxAmount)
	}

	if err := s.checkRateLimit(ctx, req.AgentID, now); err != nil {
		s.deny(derrors.CodeOf(err))
		return nil, err
	}

	allowed, err := s.whitelist.IsAllowed(ctx, req.AgentID, ruleSet.Version, req.Recipient)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "whitelist lookup failed")
	}
	if !allowed {
		s.deny(derrors.CodeRecipientNotAllowed)
		return nil, derrors.Newf(derrors.CodeRecipientNotAllowed, "recipient %s not whitelisted under rule-set version %d", req.Recipient, ruleSet.Version)
	}

	if err := s.checkSpendingLimits(ctx, agent, req.Amount, now); err != nil {
		s.deny(derrors.CodeOf(err))
		return nil, err
	}

	action, err := s.evaluator.Evaluate(ctx, req.AgentID, s.buildContext(ctx, req, now))
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "rule evaluation failed")
	}
	if action != rulemodels.ActionAllow {
		s.deny(derrors.CodeRuleBlocked)
		return nil, derrors.Newf(derrors.CodeRuleBlocked, "blocked by rule engine with action %q", action)
	}

	return s.transferAndRecord(ctx, req, now)
}

func (s *Service) checkHalts(ctx context.Context, agentID domain.Principal) error {
	global, err := s.halts.Global(ctx)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "halt flag lookup failed")
	}
	if global {
		return derrors.New(derrors.CodeHalted, "payments are globally halted")
	}
	agentHalted, err := s.halts.Agent(ctx, agentID)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "halt flag lookup failed")
	}
	if agentHalted {
		return derrors.Newf(derrors.CodeHalted, "agent %s is halted", agentID)
	}
	return nil
}

// checkRateLimit is boundary inclusive: a payment exactly RateLimitWindow
// units after the last one passes.
func (s *Service) checkRateLimit(ctx context.Context, agentID domain.Principal, now uint64) error {
	last, ok, err := s.rateLimits.Last(ctx, agentID)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "rate limit lookup failed")
	}
	if ok && now-last < models.RateLimitWindow {
		return derrors.Newf(derrors.CodeRateLimited, "only %d of %d time units elapsed since last payment", now-last, models.RateLimitWindow)
	}
	return nil
}

func (s *Service) checkSpendingLimits(ctx context.Context, agent *agentmodels.Agent, amount, now uint64) error {
	dayBucket := models.BucketFor(models.PeriodDay, now)
	daySpent, err := s.spending.Total(ctx, agent.ID, models.PeriodDay, dayBucket)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "spending lookup failed")
	}
	if daySpent+amount > agent.DailyLimit {
		return derrors.Newf(derrors.CodeDailyLimitExceeded, "daily spend %d + %d exceeds limit %d", daySpent, amount, agent.DailyLimit)
	}

	monthBucket := models.BucketFor(models.PeriodMonth, now)
	monthSpent, err := s.spending.Total(ctx, agent.ID, models.PeriodMonth, monthBucket)
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "spending lookup failed")
	}
	if monthSpent+amount > agent.MonthlyLimit {
		return derrors.Newf(derrors.CodeMonthlyLimitExceeded, "monthly spend %d + %d exceeds limit %d", monthSpent, amount, agent.MonthlyLimit)
	}
	return nil
}

// buildContext derives the rule evaluation context. Hour and weekday come
// from the time index geometry; velocity counts attempts recorded within the
// last hour of index time.
func (s *Service) buildContext(ctx context.Context, req models.ExecuteRequest, now uint64) rulemodels.PaymentContext {
	dayIndex := now / models.DayLength
	return rulemodels.PaymentContext{
		Amount:        req.Amount,
		Recipient:     req.Recipient,
		Category:      req.Category,
		Hour:          uint8((now % models.DayLength) / models.HourLength),
		Weekend:       dayIndex%7 >= 5,
		TxsInLastHour: s.recentTransactions(ctx, req.AgentID, now),
		Country:       req.Country,
	}
}

// recentTransactions walks the audit log backward counting successful
// payments newer than one hour of index time. The log is time ordered, so the
// walk stops at the first record outside the window.
func (s *Service) recentTransactions(ctx context.Context, agentID domain.Principal, now uint64) uint32 {
	count, err := s.audit.Count(ctx, agentID)
	if err != nil {
		s.logger.WarnContext(ctx, "velocity count unavailable", "agent_id", agentID, "error", err)
		return 0
	}

	var cutoff uint64
	if now > models.HourLength {
		cutoff = now - models.HourLength
	}

	var recent uint32
	for seq := count; seq >= 1; seq-- {
		record, err := s.audit.Get(ctx, agentID, seq)
		if err != nil {
			// Gaps are skipped, not fatal.
			continue
		}
		if record.TimeIndex < cutoff {
			break
		}
		if record.Success {
			recent++
		}
	}
	return recent
}

// transferAndRecord is the final pipeline step. The sequence counter advances
// and an audit record lands for every attempt that reaches this point; the
// spending accumulators and rate-limit state move only on transfer success.
func (s *Service) transferAndRecord(ctx context.Context, req models.ExecuteRequest, now uint64) (*models.Receipt, error) {
	count, err := s.audit.Count(ctx, req.AgentID)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "audit counter lookup failed")
	}
	seq := count + 1

	transferErr := s.ledger.Transfer(ctx, req.Amount, req.AgentID, req.Recipient)

	record := &models.PaymentRecord{
		AgentID:   req.AgentID,
		Sequence:  seq,
		Recipient: req.Recipient,
		Amount:    req.Amount,
		Success:   transferErr == nil,
		TimeIndex: now,
		Memo:      req.Memo,
	}
	if err := s.audit.Append(ctx, record); err != nil {
		// The transfer is externally final; losing the audit write is the
		// worst outcome this engine has, so it is loud.
		s.logger.ErrorContext(ctx, "audit append failed after transfer",
			"agent_id", req.AgentID,
			"sequence", seq,
			"transfer_success", transferErr == nil,
			"error", err,
		)
		if transferErr == nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "transfer committed but audit write failed")
		}
	}

	if transferErr != nil {
		if s.metrics != nil {
			s.metrics.IncrementTransferFailures()
		}
		s.logger.WarnContext(ctx, "ledger transfer failed",
			"agent_id", req.AgentID,
			"recipient", req.Recipient,
			"amount", req.Amount,
			"sequence", seq,
			"error", transferErr,
		)
		return nil, derrors.Wrap(transferErr, derrors.CodeTransferFailed, "ledger transfer failed")
	}

	dayBucket := models.BucketFor(models.PeriodDay, now)
	monthBucket := models.BucketFor(models.PeriodMonth, now)
	if err := s.spending.Add(ctx, req.AgentID, models.PeriodDay, dayBucket, req.Amount); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "spending update failed")
	}
	if err := s.spending.Add(ctx, req.AgentID, models.PeriodMonth, monthBucket, req.Amount); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "spending update failed")
	}
	if err := s.rateLimits.SetLast(ctx, req.AgentID, now); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "rate limit update failed")
	}

	if s.metrics != nil {
		s.metrics.IncrementExecuted()
	}
	s.logger.InfoContext(ctx, "payment executed",
		"agent_id", req.AgentID,
		"recipient", req.Recipient,
		"amount", req.Amount,
		"sequence", seq,
		"time_index", now,
	)
	return &models.Receipt{Sequence: seq, TimeIndex: now}, nil
}
