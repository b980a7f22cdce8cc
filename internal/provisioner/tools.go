package provisioner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mcpbox/internal/api"
	"mcpbox/internal/constants"
	apperrors "mcpbox/internal/errors"
	"mcpbox/internal/logger"
)

// SyncTools pushes the installation's tool manifest to the deployed
// worker as runtime configuration. It requires a fully provisioned
// installation and is safe to re-run: each sync replaces the previous
// manifest wholesale.
func (o *Orchestrator) SyncTools(ctx context.Context, installationID string, tools []api.ToolManifest) (*api.SyncToolsResult, error) {
	for _, t := range tools {
		if err := validate.Var(t.Name, "required"); err != nil {
			return nil, apperrors.ErrValidation("every tool requires a name", err)
		}
	}

	release, ok := o.locks.tryAcquire(installationID)
	if !ok {
		return nil, apperrors.ErrWorkflowBusy(installationID)
	}
	defer release()

	cfg, err := o.repo.Load(ctx, installationID)
	if err != nil {
		return nil, err
	}
	if cfg == nil || cfg.CompletedStep < constants.StepCount {
		return nil, apperrors.ErrSequence(
			fmt.Sprintf("tool sync requires a fully provisioned installation, have %d of %d steps",
				completedSteps(cfg), constants.StepCount), nil)
	}

	cloud, err := o.clientFor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	manifest, err := json.Marshal(tools)
	if err != nil {
		return nil, apperrors.ErrInternalError("failed to encode tool manifest", err)
	}
	if err := cloud.PushWorkerSecrets(ctx, cfg.AccountID, cfg.WorkerName, map[string]string{
		"MCPBOX_TOOLS": string(manifest),
	}); err != nil {
		return nil, mapCloudErr("tool manifest push", err)
	}

	logger.DeriveRequestLogger(ctx, o.logger).Info("tool manifest synced",
		"installation_id", installationID,
		"worker_name", cfg.WorkerName,
		"tool_count", len(tools),
	)

	return &api.SyncToolsResult{
		WorkerName: cfg.WorkerName,
		ToolCount:  len(tools),
		SyncedAt:   time.Now().UTC(),
	}, nil
}

func completedSteps(cfg *api.ProvisioningConfig) int {
	if cfg == nil {
		return 0
	}
	return cfg.CompletedStep
}
