package models

import (
	"paygate/pkg/domain"
	derrors "paygate/pkg/domain-errors"
)

// MaxPermissions bounds the permission set stored on an agent record.
const MaxPermissions = 10

// Agent is a registered payment agent. Agents are never deleted; lifecycle
// changes flip flags on the record.
type Agent struct {
	ID           domain.Principal `json:"id"`
	Owner        domain.Principal `json:"owner"`
	Active       bool             `json:"active"`
	Authorized   bool             `json:"authorized"`
	DailyLimit   uint64           `json:"daily_limit"`
	MonthlyLimit uint64           `json:"monthly_limit"`
	Permissions  []string         `json:"permissions"`
	RegisteredAt uint64           `json:"registered_at"`
}

// ValidatePermissions checks the bounded-cardinality constraint.
func ValidatePermissions(perms []string) error {
	if len(perms) > MaxPermissions {
		return derrors.Newf(derrors.CodeInvalidParams, "at most %d permissions allowed", MaxPermissions)
	}
	for _, p := range perms {
		if p == "" {
			return derrors.New(derrors.CodeInvalidParams, "permission cannot be empty")
		}
	}
	return nil
}

// ValidateLimits enforces monthly >= daily at write time.
func ValidateLimits(daily, monthly uint64) error {
	if monthly < daily {
		return derrors.New(derrors.CodeInvalidParams, "monthly limit must be at least the daily limit")
	}
	return nil
}
