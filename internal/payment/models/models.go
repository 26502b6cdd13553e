package models

import (
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// Time-index geometry. The hosting ledger's unit maps 144 indexes to a day,
// so an hour is 6 and a ~30-day month is 4320.
const (
	HourLength  = 6
	DayLength   = 144
	MonthLength = 4320

	// RateLimitWindow is the minimum gap between successful payments,
	// boundary inclusive: elapsed >= window passes.
	RateLimitWindow = 5

	// MaxHistoryReturn caps a single history page.
	MaxHistoryReturn = 20

	// MaxRecipients bounds the whitelist supplied in one rules update.
	MaxRecipients = 50

	// MaxMemoLen bounds payment memos.
	MaxMemoLen = 200
)

// Period distinguishes the two rolling spending windows.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// BucketFor derives the accumulator bucket for a period at a time index.
// Old buckets become unreferenced as time advances; nothing evicts them.
func BucketFor(period Period, timeIndex uint64) uint64 {
	if period == PeriodMonth {
		return timeIndex / MonthLength
	}
	return timeIndex / DayLength
}

// RuleSet is an agent's versioned per-payment ceiling. Every update bumps
// Version, which scopes the recipient whitelist: entries written under prior
// versions are inert without ever being deleted.
type RuleSet struct {
	AgentID   domain.Principal `json:"agent_id"`
	MaxAmount uint64           `json:"max_amount"`
	Version   uint64           `json:"version"`
	UpdatedAt uint64           `json:"updated_at"`
}

// PaymentRecord is one immutable audit-log entry, keyed by (agent, sequence).
// Sequence starts at 1 and increments once per attempt that reaches the
// transfer step, whether or not the transfer itself succeeds.
type PaymentRecord struct {
	AgentID   domain.Principal `json:"agent_id"`
	Sequence  uint64           `json:"sequence"`
	Recipient domain.Principal `json:"recipient"`
	Amount    uint64           `json:"amount"`
	Success   bool             `json:"success"`
	TimeIndex uint64           `json:"time_index"`
	Memo      string           `json:"memo,omitempty"`
}

// ExecuteRequest is the input to the policy pipeline. Category and Country
// are optional evaluation hints relayed by the backend; the core derives
// everything else itself.
type ExecuteRequest struct {
	AgentID   domain.Principal `json:"agent_id"`
	Recipient domain.Principal `json:"recipient"`
	Amount    uint64           `json:"amount"`
	Memo      string           `json:"memo,omitempty"`
	Category  string           `json:"category,omitempty"`
	Country   string           `json:"country,omitempty"`
}

// Validate rejects malformed input before the pipeline proper starts.
func (r *ExecuteRequest) Validate() error {
	if r.AgentID.IsZero() {
		return derrors.New(derrors.CodeInvalidParams, "agent id is required")
	}
	if r.Recipient.IsZero() {
		return derrors.New(derrors.CodeInvalidParams, "recipient is required")
	}
	if r.Amount == 0 {
		return derrors.New(derrors.CodeInvalidParams, "amount must be positive")
	}
	if len(r.Memo) > MaxMemoLen {
		return derrors.Newf(derrors.CodeInvalidParams, "memo exceeds %d bytes", MaxMemoLen)
	}
	return nil
}

// Receipt identifies a completed payment: the audit sequence number is the
// payment id returned to callers.
type Receipt struct {
	Sequence  uint64 `json:"sequence"`
	TimeIndex uint64 `json:"time_index"`
}
