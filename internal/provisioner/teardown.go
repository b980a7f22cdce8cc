package provisioner

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"mcpbox/internal/api"
	"mcpbox/internal/cloudflare"
	apperrors "mcpbox/internal/errors"
	"mcpbox/internal/logger"
	"mcpbox/internal/secrets"
)

// Teardown removes every provisioned resource in reverse creation order
// (access application, worker, service, tunnel), then deletes the stored
// credential and the config record itself. Missing resources are treated
// as already removed, so running teardown twice is a no-op the second
// time. A deletion failure persists the partially cleared config and
// returns an error; re-running resumes from the first remaining
// resource.
func (o *Orchestrator) Teardown(ctx context.Context, installationID string) (*api.TeardownResult, error) {
	release, ok := o.locks.tryAcquire(installationID)
	if !ok {
		return nil, apperrors.ErrWorkflowBusy(installationID)
	}
	defer release()

	cfg, err := o.repo.Load(ctx, installationID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		// Nothing was ever provisioned (or a prior teardown finished).
		return &api.TeardownResult{Status: api.StatusInactive}, nil
	}

	log := logger.DeriveRequestLogger(ctx, o.logger).With("installation_id", installationID)

	var cloud CloudClient
	if cfg.CredentialRef != "" {
		client, cerr := o.clientFor(ctx, cfg)
		switch {
		case cerr == nil:
			cloud = client
		case apperrors.GetErrorCode(cerr) == apperrors.ErrCodeInvalidCredential:
			// The credential vanished out from under us. Cloud resources
			// cannot be removed without it; still clear the local record so
			// the installation can start over.
			log.Warn("stored credential missing during teardown; skipping control-plane deletions")
		default:
			return nil, cerr
		}
	}

	var removed []api.ResourceRef
	if cloud != nil {
		removed, err = o.teardownResources(ctx, cloud, cfg, log)
		if err != nil {
			cfg.UpdatedAt = time.Now().UTC()
			if uerr := o.repo.Update(ctx, cfg, cfg.CompletedStep); uerr != nil {
				log.Error("failed to persist partial teardown progress", "error", uerr)
			}
			return nil, err
		}
	}

	if cfg.CredentialRef != "" {
		if derr := o.creds.Delete(ctx, cfg.CredentialRef); derr != nil && !stderrors.Is(derr, secrets.ErrCredentialNotFound) {
			return nil, apperrors.ErrInternalError("failed to delete stored credential", derr)
		}
	}

	if err := o.repo.Delete(ctx, installationID); err != nil {
		return nil, err
	}

	log.Info("teardown completed", "removed", len(removed))
	return &api.TeardownResult{Status: api.StatusInactive, Removed: removed}, nil
}

// teardownResources deletes the cloud resources recorded on the config,
// clearing each field as its resource goes away so partial progress
// survives a mid-teardown failure.
func (o *Orchestrator) teardownResources(
	ctx context.Context,
	cloud CloudClient,
	cfg *api.ProvisioningConfig,
	log *slog.Logger,
) ([]api.ResourceRef, error) {
	var removed []api.ResourceRef

	steps := []struct {
		ref    api.ResourceRef
		delete func(context.Context) error
		clear  func()
	}{
		{
			ref: api.ResourceRef{ID: cfg.AccessAppID, Type: api.ResourceAccessApp, Name: accessAppName(cfg.WorkerName)},
			delete: func(ctx context.Context) error {
				return cloud.DeleteAccessApp(ctx, cfg.AccountID, cfg.AccessAppID)
			},
			clear: func() { cfg.AccessAppID = ""; cfg.AccessAppCreated = false },
		},
		{
			ref: api.ResourceRef{ID: cfg.WorkerName, Type: api.ResourceWorker, Name: cfg.WorkerName},
			delete: func(ctx context.Context) error {
				return cloud.DeleteWorker(ctx, cfg.AccountID, cfg.WorkerName)
			},
			clear: func() { cfg.WorkerName = ""; cfg.WorkerURL = "" },
		},
		{
			ref: api.ResourceRef{ID: cfg.ServiceID, Type: api.ResourceService, Name: cfg.ServiceName},
			delete: func(ctx context.Context) error {
				return cloud.DeleteService(ctx, cfg.AccountID, cfg.ServiceID)
			},
			clear: func() { cfg.ServiceID = ""; cfg.ServiceName = "" },
		},
		{
			ref: api.ResourceRef{ID: cfg.TunnelID, Type: api.ResourceTunnel, Name: cfg.TunnelName},
			delete: func(ctx context.Context) error {
				return cloud.DeleteTunnel(ctx, cfg.AccountID, cfg.TunnelID)
			},
			clear: func() { cfg.TunnelID = ""; cfg.TunnelName = "" },
		},
	}

	for _, s := range steps {
		if s.ref.ID == "" {
			continue
		}
		if err := s.delete(ctx); err != nil {
			if !cloudflare.IsNotFound(err) {
				return removed, apperrors.ErrExternalUnavailable(
					fmt.Sprintf("failed to delete %s %q during teardown; re-run to resume", s.ref.Type, s.ref.Name), err)
			}
			// Already gone counts as removed.
		}
		s.clear()
		removed = append(removed, s.ref)
		log.Info("resource removed", "resource_type", s.ref.Type, "resource_id", s.ref.ID)
	}

	return removed, nil
}
