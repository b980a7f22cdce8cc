package provisioner

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"github.com/go-playground/validator/v10"

	"mcpbox/internal/api"
	"mcpbox/internal/cloudflare"
	apperrors "mcpbox/internal/errors"
)

var validate = validator.New()

// accessSessionDuration is how long an authenticated Access session
// stays valid before re-authentication.
const accessSessionDuration = "24h"

// ConfigureAccess runs step 5: create the Access application fronting
// the worker, attach the allow policy built from the tagged variant,
// then push freshly generated OIDC secrets into the worker runtime.
//
// The step is two-phase. Application (and policy) creation is persisted
// on the config before the secret push, so a retry after a failed push
// detects the existing application, skips re-creation, rotates the
// secret, and retries only the push phase.
func (o *Orchestrator) ConfigureAccess(ctx context.Context, installationID string, policy api.AccessPolicy) (*api.StepResult, error) {
	if err := validateAccessPolicy(policy); err != nil {
		return nil, err
	}

	return o.runStep(ctx, installationID, StepAccess, func(ctx context.Context, ex *execution) (*api.StepResult, error) {
		cfg := ex.cfg
		appName := accessAppName(cfg.WorkerName)

		var creds *cloudflare.AccessCredentials

		// Phase 1: application create. Skipped entirely when the config
		// already records an application ID.
		if cfg.AccessAppID == "" {
			conflicts, err := ex.findConflicts(ctx, api.ResourceAccessApp, appName)
			if err != nil {
				return nil, err
			}
			if len(conflicts) > 0 {
				return &api.StepResult{Outcome: api.OutcomeConflict, Conflicts: conflicts}, nil
			}

			app, err := ex.cloud.CreateAccessApp(ctx, cfg.AccountID, cloudflare.AccessAppParams{
				Name:            appName,
				Domain:          hostOf(cfg.WorkerURL),
				SessionDuration: accessSessionDuration,
			})
			if err != nil {
				return nil, mapCloudErr("access application creation", err)
			}
			cfg.AccessAppID = app.ID
			if err := ex.saveProgress(ctx); err != nil {
				return nil, err
			}
			creds = &cloudflare.AccessCredentials{
				ClientID:     app.ClientID,
				ClientSecret: app.ClientSecret,
				AUD:          app.AUD,
			}
		}

		switch {
		case !cfg.AccessAppCreated:
			if err := ex.cloud.CreateAccessPolicy(ctx, cfg.AccountID, cfg.AccessAppID, policy); err != nil {
				return nil, apperrors.ErrPartialCompletion(
					"access application exists but policy creation failed; retrying resumes here", err)
			}
			cfg.AccessAppCreated = true
			cfg.AccessPolicy = policy
			if err := ex.saveProgress(ctx); err != nil {
				return nil, err
			}
		case !policiesEqual(cfg.AccessPolicy, policy):
			// Re-run with a changed policy: attach the new allow rule set.
			if err := ex.cloud.CreateAccessPolicy(ctx, cfg.AccountID, cfg.AccessAppID, policy); err != nil {
				return nil, mapCloudErr("access policy update", err)
			}
			cfg.AccessPolicy = policy
			if err := ex.saveProgress(ctx); err != nil {
				return nil, err
			}
		}

		// Phase 2: push the OIDC secrets into the worker runtime. On a
		// resumed run the creation-time credentials are gone, so rotate.
		if creds == nil {
			rotated, err := ex.cloud.RotateAccessAppSecret(ctx, cfg.AccountID, cfg.AccessAppID)
			if err != nil {
				return nil, apperrors.ErrPartialCompletion(
					"access application exists but secret rotation failed; retrying resumes here", err)
			}
			creds = rotated
		}

		oidc := map[string]string{
			"MCPBOX_OIDC_CLIENT_ID":     creds.ClientID,
			"MCPBOX_OIDC_CLIENT_SECRET": creds.ClientSecret,
			"MCPBOX_ACCESS_AUD":         creds.AUD,
		}
		if err := ex.cloud.PushWorkerSecrets(ctx, cfg.AccountID, cfg.WorkerName, oidc); err != nil {
			return nil, apperrors.ErrPartialCompletion(
				"access application created but secret push failed; retrying resumes at the push phase", err)
		}

		return &api.StepResult{
			Outcome:   api.OutcomeSuccess,
			WorkerURL: cfg.WorkerURL,
			PortalURL: cfg.PortalURL,
		}, nil
	})
}

// validateAccessPolicy rejects malformed policy variants before any
// external call.
func validateAccessPolicy(policy api.AccessPolicy) error {
	switch policy.Mode {
	case api.AccessEveryone:
		return nil
	case api.AccessEmails:
		if len(policy.Emails) == 0 {
			return apperrors.ErrValidation("emails policy requires at least one address", nil)
		}
		for _, addr := range policy.Emails {
			if err := validate.Var(addr, "required,email"); err != nil {
				return apperrors.ErrValidation(fmt.Sprintf("invalid email address %q", addr), err)
			}
		}
		return nil
	case api.AccessEmailDomain:
		if err := validate.Var(policy.EmailDomain, "required,fqdn"); err != nil {
			return apperrors.ErrValidation("email_domain policy requires a valid domain", err)
		}
		return nil
	default:
		return apperrors.ErrValidation(fmt.Sprintf("unknown access policy mode %q", policy.Mode), nil)
	}
}

func policiesEqual(a, b api.AccessPolicy) bool {
	return a.Mode == b.Mode &&
		a.EmailDomain == b.EmailDomain &&
		slices.Equal(a.Emails, b.Emails)
}

// hostOf extracts the hostname from a URL, falling back to the raw
// string for values without a scheme.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
