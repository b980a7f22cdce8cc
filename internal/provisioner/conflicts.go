package provisioner

import (
	"context"
	"fmt"

	"mcpbox/internal/api"
	"mcpbox/internal/cloudflare"
	apperrors "mcpbox/internal/errors"
)

// findConflicts queries the control plane for same-name resources of
// the given type and reports every match not owned by this config.
// Ownership is decided by stored ID, never by name: an operator's own
// legitimate prior resource can coincidentally share a name.
func (ex *execution) findConflicts(ctx context.Context, resourceType api.ResourceType, name string) ([]api.ResourceRef, error) {
	cfg := ex.cfg
	var conflicts []api.ResourceRef

	switch resourceType {
	case api.ResourceTunnel:
		tunnels, err := ex.cloud.ListTunnels(ctx, cfg.AccountID, name)
		if err != nil {
			return nil, mapCloudErr("tunnel lookup", err)
		}
		for _, t := range tunnels {
			if t.Name != name || t.ID == cfg.TunnelID {
				continue
			}
			conflicts = append(conflicts, api.ResourceRef{ID: t.ID, Type: resourceType, Name: t.Name})
		}

	case api.ResourceService:
		services, err := ex.cloud.ListServices(ctx, cfg.AccountID, name)
		if err != nil {
			return nil, mapCloudErr("service lookup", err)
		}
		for _, s := range services {
			if s.Name != name || s.ID == cfg.ServiceID {
				continue
			}
			conflicts = append(conflicts, api.ResourceRef{ID: s.ID, Type: resourceType, Name: s.Name})
		}

	case api.ResourceWorker:
		// Worker script names are their identifiers, so ownership falls
		// back to the recorded worker name.
		workers, err := ex.cloud.ListWorkers(ctx, cfg.AccountID)
		if err != nil {
			return nil, mapCloudErr("worker lookup", err)
		}
		for _, w := range workers {
			if w.Name != name || w.Name == cfg.WorkerName {
				continue
			}
			conflicts = append(conflicts, api.ResourceRef{ID: w.ID, Type: resourceType, Name: w.Name})
		}

	case api.ResourceAccessApp:
		apps, err := ex.cloud.ListAccessApps(ctx, cfg.AccountID, name)
		if err != nil {
			return nil, mapCloudErr("access application lookup", err)
		}
		for _, a := range apps {
			if a.Name != name || a.ID == cfg.AccessAppID {
				continue
			}
			conflicts = append(conflicts, api.ResourceRef{ID: a.ID, Type: resourceType, Name: a.Name})
		}

	default:
		return nil, apperrors.ErrInternalError(fmt.Sprintf("unknown resource type %q", resourceType), nil)
	}

	return conflicts, nil
}

// deleteResources removes every conflicting resource ahead of a forced
// create. The first deletion failure aborts so the system is never left
// half-replaced without surfacing the error.
func (ex *execution) deleteResources(ctx context.Context, resources []api.ResourceRef) error {
	cfg := ex.cfg
	for _, r := range resources {
		var err error
		switch r.Type {
		case api.ResourceTunnel:
			err = ex.cloud.DeleteTunnel(ctx, cfg.AccountID, r.ID)
		case api.ResourceService:
			err = ex.cloud.DeleteService(ctx, cfg.AccountID, r.ID)
		case api.ResourceWorker:
			err = ex.cloud.DeleteWorker(ctx, cfg.AccountID, r.Name)
		case api.ResourceAccessApp:
			err = ex.cloud.DeleteAccessApp(ctx, cfg.AccountID, r.ID)
		default:
			return apperrors.ErrInternalError(fmt.Sprintf("unknown resource type %q", r.Type), nil)
		}
		if err != nil && !cloudflare.IsNotFound(err) {
			return apperrors.ErrExternalUnavailable(
				fmt.Sprintf("failed to delete conflicting %s %q; aborting before create", r.Type, r.Name), err)
		}
		ex.logger.Info("deleted conflicting resource", "resource_type", r.Type, "resource_id", r.ID, "name", r.Name)
	}
	return nil
}
