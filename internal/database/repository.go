// Package database defines repository interfaces for data persistence.
// It provides the abstraction over the provisioning config store so the
// business logic layer is independent of the backing database.
package database

import (
	"context"

	"mcpbox/internal/api"
)

// ConfigRepository is the workflow state store: one ProvisioningConfig
// record per installation, keyed by installation ID.
//
// Update performs a compare-and-swap on completed_step so concurrent
// step executions cannot silently overwrite each other's progress.
type ConfigRepository interface {
	// Load retrieves the config for an installation.
	// Returns (nil, nil) when no record exists; absence is the valid
	// "not started" state, not an error.
	Load(ctx context.Context, installationID string) (*api.ProvisioningConfig, error)

	// Create stores a new config record.
	// Fails with a conflict error if a record already exists.
	Create(ctx context.Context, cfg *api.ProvisioningConfig) error

	// Update persists cfg if the stored completed_step still equals
	// expectedStep. Fails with a conflict error when the stored record
	// was modified concurrently or no longer exists.
	Update(ctx context.Context, cfg *api.ProvisioningConfig, expectedStep int) error

	// Delete removes the config record. Deleting an absent record is a
	// no-op.
	Delete(ctx context.Context, installationID string) error
}
