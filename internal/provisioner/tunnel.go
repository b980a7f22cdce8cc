package provisioner

import (
	"context"
	"strings"

	"mcpbox/internal/api"
	"mcpbox/internal/cloudflare"
)

// CreateTunnel runs step 2: create (or reuse) the tunnel. A same-name
// foreign tunnel blocks the step with a conflict result unless force is
// set, in which case the conflicting tunnels are deleted first.
func (o *Orchestrator) CreateTunnel(ctx context.Context, installationID, name string, force bool) (*api.StepResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultTunnelName()
	}

	return o.runStep(ctx, installationID, StepTunnel, func(ctx context.Context, ex *execution) (*api.StepResult, error) {
		cfg := ex.cfg

		// Re-run with the recorded name: idempotent in-place update.
		// Conflict detection never runs against the config's own tunnel.
		if cfg.TunnelID != "" && cfg.TunnelName == name {
			ex.logger.Debug("tunnel already provisioned", "tunnel_id", cfg.TunnelID)
			return &api.StepResult{Outcome: api.OutcomeSuccess}, nil
		}

		conflicts, err := ex.findConflicts(ctx, api.ResourceTunnel, name)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			if !force {
				return &api.StepResult{Outcome: api.OutcomeConflict, Conflicts: conflicts}, nil
			}
			if err := ex.deleteResources(ctx, conflicts); err != nil {
				return nil, err
			}
		}

		tunnel, err := ex.cloud.CreateTunnel(ctx, cfg.AccountID, name)
		if err != nil {
			return nil, mapCloudErr("tunnel creation", err)
		}

		// Renaming replaces the config's own previous tunnel.
		if cfg.TunnelID != "" && cfg.TunnelID != tunnel.ID {
			if err := ex.cloud.DeleteTunnel(ctx, cfg.AccountID, cfg.TunnelID); err != nil && !cloudflare.IsNotFound(err) {
				ex.logger.Warn("failed to remove replaced tunnel", "tunnel_id", cfg.TunnelID, "error", err)
			}
		}

		cfg.TunnelID = tunnel.ID
		cfg.TunnelName = name
		return &api.StepResult{Outcome: api.OutcomeSuccess}, nil
	})
}
