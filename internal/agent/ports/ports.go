// Package ports defines the storage interface for the agent registry.
package ports

import (
	"context"

	"paygate/internal/agent/models"
	"paygate/pkg/domain"
)

// AgentStore persists agent records keyed by principal.
type AgentStore interface {
	// Create inserts a new record; returns AgentExists if present.
	Create(ctx context.Context, agent *models.Agent) error

	// Get returns the record or AgentNotFound.
	Get(ctx context.Context, id domain.Principal) (*models.Agent, error)

	// Update replaces an existing record; returns AgentNotFound if absent.
	Update(ctx context.Context, agent *models.Agent) error
}
