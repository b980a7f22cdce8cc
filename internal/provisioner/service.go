package provisioner

import (
	"context"
	"strings"

	"mcpbox/internal/api"
	"mcpbox/internal/cloudflare"
)

// CreatePrivateNetworkService runs step 3: publish the private-network
// service over the tunnel created in step 2. Conflict and force
// semantics mirror the tunnel step.
func (o *Orchestrator) CreatePrivateNetworkService(ctx context.Context, installationID, name string, force bool) (*api.StepResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultServiceName()
	}

	return o.runStep(ctx, installationID, StepService, func(ctx context.Context, ex *execution) (*api.StepResult, error) {
		cfg := ex.cfg

		if cfg.ServiceID != "" && cfg.ServiceName == name {
			ex.logger.Debug("service already provisioned", "service_id", cfg.ServiceID)
			return &api.StepResult{Outcome: api.OutcomeSuccess}, nil
		}

		conflicts, err := ex.findConflicts(ctx, api.ResourceService, name)
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

		service, err := ex.cloud.CreateService(ctx, cfg.AccountID, cloudflare.ServiceParams{
			Name:     name,
			TunnelID: cfg.TunnelID,
		})
		if err != nil {
			return nil, mapCloudErr("service creation", err)
		}

		if cfg.ServiceID != "" && cfg.ServiceID != service.ID {
			if err := ex.cloud.DeleteService(ctx, cfg.AccountID, cfg.ServiceID); err != nil && !cloudflare.IsNotFound(err) {
				ex.logger.Warn("failed to remove replaced service", "service_id", cfg.ServiceID, "error", err)
			}
		}

		cfg.ServiceID = service.ID
		cfg.ServiceName = name
		return &api.StepResult{Outcome: api.OutcomeSuccess}, nil
	})
}
