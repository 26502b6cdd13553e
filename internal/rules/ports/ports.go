// Package ports defines the storage interface for the rule store.
package ports

import (
	"context"

	"paygate/internal/rules/models"
	"paygate/pkg/domain"
)

// RuleStore persists typed rules keyed by a monotonic rule id.
type RuleStore interface {
	// Create assigns the next rule id, writes the rule, and returns the id.
	Create(ctx context.Context, rule *models.Rule) (uint64, error)

	// Get returns the rule or RuleNotFound.
	Get(ctx context.Context, id uint64) (*models.Rule, error)

	// Update replaces an existing rule; returns RuleNotFound if absent.
	Update(ctx context.Context, rule *models.Rule) error

	// Delete removes a rule; returns RuleNotFound if absent.
	Delete(ctx context.Context, id uint64) error

	// ListByAgent returns the agent's rules in ascending id order.
	ListByAgent(ctx context.Context, agentID domain.Principal) ([]*models.Rule, error)
}
