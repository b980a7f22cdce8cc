package provisioner

import (
	"context"
	_ "embed"
	"strings"

	"mcpbox/internal/api"
	"mcpbox/internal/cloudflare"
	apperrors "mcpbox/internal/errors"
)

// gatewayWorkerScript is the edge-proxy program deployed in step 4. It
// fronts the tunnel-published service and enforces the Access JWT once
// step 5 has pushed the OIDC configuration.
//
//go:embed gateway_worker.js
var gatewayWorkerScript []byte

// DeployWorker runs step 4: upload the gateway worker script and resolve
// its public URL. Uploading under the recorded name is an in-place
// update; a same-name foreign script blocks the step with a conflict
// result so it is never silently overwritten.
func (o *Orchestrator) DeployWorker(ctx context.Context, installationID, name, hostname string) (*api.StepResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultWorkerName()
	}
	hostname = strings.TrimSpace(hostname)
	if hostname != "" {
		if err := validate.Var(hostname, "fqdn"); err != nil {
			return nil, apperrors.ErrValidation("hostname must be a fully qualified domain name", err)
		}
	}

	return o.runStep(ctx, installationID, StepWorker, func(ctx context.Context, ex *execution) (*api.StepResult, error) {
		cfg := ex.cfg

		if cfg.WorkerName != name {
			conflicts, err := ex.findConflicts(ctx, api.ResourceWorker, name)
			if err != nil {
				return nil, err
			}
			if len(conflicts) > 0 {
				return &api.StepResult{Outcome: api.OutcomeConflict, Conflicts: conflicts}, nil
			}
		}

		worker, err := ex.cloud.DeployWorker(ctx, cfg.AccountID, name, o.script)
		if err != nil {
			return nil, mapCloudErr("worker deployment", err)
		}

		subdomain, err := ex.cloud.WorkerSubdomain(ctx, cfg.AccountID)
		if err != nil {
			return nil, mapCloudErr("worker subdomain lookup", err)
		}
		workerURL := cloudflare.WorkerURL(worker.Name, subdomain)

		baseline := map[string]string{
			"MCPBOX_INSTALLATION_ID": cfg.InstallationID,
			"MCPBOX_SERVICE_ID":      cfg.ServiceID,
		}
		if cfg.WorkerName == "" {
			// First deploy seeds an empty tool manifest; later syncs
			// replace it and must survive re-deploys.
			baseline["MCPBOX_TOOLS"] = "[]"
		}
		if err := ex.cloud.PushWorkerSecrets(ctx, cfg.AccountID, worker.Name, baseline); err != nil {
			return nil, mapCloudErr("worker configuration push", err)
		}

		// Renaming removes the previously deployed script.
		if cfg.WorkerName != "" && cfg.WorkerName != name {
			if err := ex.cloud.DeleteWorker(ctx, cfg.AccountID, cfg.WorkerName); err != nil && !cloudflare.IsNotFound(err) {
				ex.logger.Warn("failed to remove replaced worker", "worker_name", cfg.WorkerName, "error", err)
			}
		}

		cfg.WorkerName = name
		cfg.WorkerURL = workerURL
		if hostname != "" {
			cfg.Hostname = hostname
			cfg.PortalURL = "https://" + hostname
		}

		return &api.StepResult{
			Outcome:   api.OutcomeSuccess,
			WorkerURL: workerURL,
			PortalURL: cfg.PortalURL,
		}, nil
	})
}
