package provisioner

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"mcpbox/internal/api"
	"mcpbox/internal/cloudflare"
	apperrors "mcpbox/internal/errors"
)

// VerifyCredential runs step 1: verify an API token against the control
// plane, store it by reference in the secret store, and create (or
// refresh) the provisioning config bound to the token's account.
func (o *Orchestrator) VerifyCredential(ctx context.Context, installationID, token string) (*api.StepResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.ErrValidation("token is required", nil)
	}

	return o.runStep(ctx, installationID, StepCredential, func(ctx context.Context, ex *execution) (*api.StepResult, error) {
		client := o.newClient(token)
		identity, err := client.Verify(ctx)
		if err != nil {
			if cloudflare.IsUnauthorized(err) {
				return nil, apperrors.ErrInvalidCredential("the control plane rejected the token", err)
			}
			return nil, mapCloudErr("credential verification", err)
		}

		if ex.cfg == nil {
			ex.cfg = &api.ProvisioningConfig{
				ID:             uuid.NewString(),
				InstallationID: installationID,
				CreatedAt:      time.Now().UTC(),
			}
			ex.created = true
		}
		ex.cfg.AccountID = identity.AccountID
		ex.cfg.AccountRef = identity.AccountName

		ref := credentialRef(o.credentialPrefix, installationID)
		if err := o.creds.Put(ctx, ref, token); err != nil {
			return nil, apperrors.ErrInternalError("failed to store credential", err)
		}
		ex.cfg.CredentialRef = ref

		ex.logger.Info("credential verified", "account_ref", identity.AccountName)
		return &api.StepResult{Outcome: api.OutcomeSuccess}, nil
	})
}
