// Package ports defines the storage interfaces consumed by the payment policy
// engine. Each store is agent-keyed so cross-agent operations never contend.
package ports

import (
	"context"

	"paygate/internal/payment/models"
	"paygate/pkg/domain"
)

// RuleSetStore persists per-agent versioned payment rule sets.
type RuleSetStore interface {
	// Get returns the agent's rule set or RulesNotFound.
	Get(ctx context.Context, agentID domain.Principal) (*models.RuleSet, error)

	// Put creates or replaces the agent's rule set.
	Put(ctx context.Context, ruleSet *models.RuleSet) error
}

// WhitelistStore records recipients allowed under a specific rule-set
// version. Entries are never revoked; version advancement makes them inert.
type WhitelistStore interface {
	Allow(ctx context.Context, agentID domain.Principal, version uint64, recipient domain.Principal) error
	IsAllowed(ctx context.Context, agentID domain.Principal, version uint64, recipient domain.Principal) (bool, error)
}

// SpendingStore accumulates per-agent, per-bucket spend. Mutated only after
// a successful transfer.
type SpendingStore interface {
	Total(ctx context.Context, agentID domain.Principal, period models.Period, bucket uint64) (uint64, error)
	Add(ctx context.Context, agentID domain.Principal, period models.Period, bucket uint64, amount uint64) error
}

// RateLimitStore remembers each agent's last successful payment time.
type RateLimitStore interface {
	// Last returns the time index of the agent's last successful payment;
	// ok is false when the agent has never paid.
	Last(ctx context.Context, agentID domain.Principal) (timeIndex uint64, ok bool, err error)
	SetLast(ctx context.Context, agentID domain.Principal, timeIndex uint64) error
}

// AuditStore is the append-only payment log. Sequence assignment is owned by
// the policy engine, which serializes per-agent writes.
type AuditStore interface {
	// Append writes a record at its (agent, sequence) key. Every sequence
	// increment writes a record, so the counter is the highest sequence seen.
	Append(ctx context.Context, record *models.PaymentRecord) error

	// Count returns the agent's current sequence counter (0 if none).
	Count(ctx context.Context, agentID domain.Principal) (uint64, error)

	// Get returns the record at a sequence number, or NotFound for gaps.
	Get(ctx context.Context, agentID domain.Principal, sequence uint64) (*models.PaymentRecord, error)
}

// HaltStore holds the emergency halt flags: one global, one per agent.
type HaltStore interface {
	SetGlobal(ctx context.Context, halted bool) error
	Global(ctx context.Context) (bool, error)
	SetAgent(ctx context.Context, agentID domain.Principal, halted bool) error
	Agent(ctx context.Context, agentID domain.Principal) (bool, error)
}
