package httptransport

import (
	"context"

	agentmodels "paygate/internal/agent/models"
	paymodels "paygate/internal/payment/models"
	rulemodels "paygate/internal/rules/models"
	"paygate/pkg/domain"
)

// Bootstrapper is the one-shot administrator initialization.
type Bootstrapper interface {
	Initialize(admin domain.Principal) error
}

// AgentService is the registry surface the transport relays to.
type AgentService interface {
	Register(ctx context.Context, caller, agentID domain.Principal, permissions []string) error
	Authorize(ctx context.Context, caller, agentID domain.Principal) error
	Deauthorize(ctx context.Context, caller, agentID domain.Principal) error
	SetSpendingLimit(ctx context.Context, caller, agentID domain.Principal, daily, monthly uint64) error
	UpdatePermissions(ctx context.Context, caller, agentID domain.Principal, permissions []string) error
	GetAgentInfo(ctx context.Context, agentID domain.Principal) (*agentmodels.Agent, error)
	IsAuthorized(ctx context.Context, agentID domain.Principal) bool
}

// RuleService is the rule store and evaluator surface.
type RuleService interface {
	CreateRule(ctx context.Context, caller domain.Principal, rule *rulemodels.Rule) (uint64, error)
	UpdateRule(ctx context.Context, caller domain.Principal, id uint64, rule *rulemodels.Rule) error
	DeleteRule(ctx context.Context, caller domain.Principal, id uint64) error
	SetRulePriority(ctx context.Context, caller domain.Principal, id, priority uint64) error
	SetRuleEnabled(ctx context.Context, caller domain.Principal, id uint64, enabled bool) error
	GetRule(ctx context.Context, id uint64) (*rulemodels.Rule, error)
	ListRules(ctx context.Context, agentID domain.Principal) ([]*rulemodels.Rule, error)
	Evaluate(ctx context.Context, agentID domain.Principal, pctx rulemodels.PaymentContext) (rulemodels.Action, error)
}

// PaymentService is the policy engine surface.
type PaymentService interface {
	ExecutePayment(ctx context.Context, caller domain.Principal, req paymodels.ExecuteRequest) (*paymodels.Receipt, error)
	UpdatePaymentRules(ctx context.Context, caller, agentID domain.Principal, maxAmount uint64, recipients []domain.Principal) error
	AddAllowedRecipient(ctx context.Context, caller, agentID, recipient domain.Principal) error
	GetPaymentRules(ctx context.Context, agentID domain.Principal) (*paymodels.RuleSet, error)
	GetPaymentHistory(ctx context.Context, agentID domain.Principal, limit int) ([]*paymodels.PaymentRecord, error)
	EmergencyHalt(ctx context.Context, caller domain.Principal) error
	EmergencyResume(ctx context.Context, caller domain.Principal) error
	HaltAgent(ctx context.Context, caller, agentID domain.Principal) error
	ResumeAgent(ctx context.Context, caller, agentID domain.Principal) error
}
