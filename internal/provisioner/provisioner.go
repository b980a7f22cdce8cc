// Package provisioner implements the multi-step external-resource
// provisioning orchestrator behind the remote access setup wizard.
//
// The orchestrator drives a strictly ordered sequence of create-or-reuse
// operations against the external cloud control plane (credential,
// tunnel, private-network service, worker deployment, access policy),
// persists resumable progress in the config repository, detects naming
// conflicts against pre-existing foreign resources, and supports full,
// idempotent teardown. All execution is synchronous per request; the
// workflow is resumable because progress is persisted, not because
// anything runs in the background.
package provisioner

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"mcpbox/internal/api"
	"mcpbox/internal/cloudflare"
	"mcpbox/internal/constants"
	"mcpbox/internal/database"
	apperrors "mcpbox/internal/errors"
	"mcpbox/internal/logger"
	"mcpbox/internal/secrets"
)

// Step identifies one mutating provisioning step. Steps execute in
// ascending order; step k requires step k-1 to be complete.
type Step int

const (
	StepCredential Step = iota + 1
	StepTunnel
	StepService
	StepWorker
	StepAccess
)

func (s Step) String() string {
	switch s {
	case StepCredential:
		return "credential"
	case StepTunnel:
		return "tunnel"
	case StepService:
		return "service"
	case StepWorker:
		return "worker"
	case StepAccess:
		return "access"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// CloudClient abstracts the external control-plane API consumed by the
// step executors. *cloudflare.Client is the production implementation.
type CloudClient interface {
	Verify(ctx context.Context) (*cloudflare.Identity, error)

	ListTunnels(ctx context.Context, accountID, name string) ([]cloudflare.Tunnel, error)
	CreateTunnel(ctx context.Context, accountID, name string) (*cloudflare.Tunnel, error)
	DeleteTunnel(ctx context.Context, accountID, tunnelID string) error

	ListServices(ctx context.Context, accountID, name string) ([]cloudflare.Service, error)
	CreateService(ctx context.Context, accountID string, params cloudflare.ServiceParams) (*cloudflare.Service, error)
	DeleteService(ctx context.Context, accountID, serviceID string) error

	ListWorkers(ctx context.Context, accountID string) ([]cloudflare.Worker, error)
	DeployWorker(ctx context.Context, accountID, name string, script []byte) (*cloudflare.Worker, error)
	DeleteWorker(ctx context.Context, accountID, name string) error
	WorkerSubdomain(ctx context.Context, accountID string) (string, error)
	PushWorkerSecrets(ctx context.Context, accountID, workerName string, secrets map[string]string) error

	ListAccessApps(ctx context.Context, accountID, name string) ([]cloudflare.AccessApp, error)
	CreateAccessApp(ctx context.Context, accountID string, params cloudflare.AccessAppParams) (*cloudflare.AccessApp, error)
	RotateAccessAppSecret(ctx context.Context, accountID, appID string) (*cloudflare.AccessCredentials, error)
	CreateAccessPolicy(ctx context.Context, accountID, appID string, policy api.AccessPolicy) error
	DeleteAccessApp(ctx context.Context, accountID, appID string) error
}

// CloudClientFactory builds an API client bound to one token. The
// orchestrator constructs a fresh client per operation from the stored
// credential.
type CloudClientFactory func(apiToken string) CloudClient

// Orchestrator sequences step execution, enforces ordering invariants,
// exposes resumable status, and coordinates teardown. Side effects are
// confined to the cloud client, the config repository, and the
// credential store.
type Orchestrator struct {
	repo             database.ConfigRepository
	creds            secrets.CredentialStore
	newClient        CloudClientFactory
	logger           *slog.Logger
	script           []byte
	credentialPrefix string
	locks            lockRegistry
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkerScript overrides the embedded gateway worker script.
func WithWorkerScript(script []byte) Option {
	return func(o *Orchestrator) { o.script = script }
}

// WithCredentialPrefix sets the secret-store path prefix for stored
// credentials.
func WithCredentialPrefix(prefix string) Option {
	return func(o *Orchestrator) { o.credentialPrefix = prefix }
}

// New creates an orchestrator.
func New(
	repo database.ConfigRepository,
	creds secrets.CredentialStore,
	factory CloudClientFactory,
	log *slog.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		repo:             repo,
		creds:            creds,
		newClient:        factory,
		logger:           log,
		script:           gatewayWorkerScript,
		credentialPrefix: "/" + constants.ProjectName + "/credentials",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns the current provisioning snapshot for an installation.
// Absence of a config is the valid "not started" state. Status never
// takes the workflow lock, so clients can poll while a step runs.
func (o *Orchestrator) Status(ctx context.Context, installationID string) (*api.ProvisioningConfig, error) {
	cfg, err := o.repo.Load(ctx, installationID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &api.ProvisioningConfig{
			InstallationID: installationID,
			Status:         api.StatusInactive,
		}, nil
	}
	return cfg, nil
}

// execution carries the per-step working state shared between the
// orchestrator core and a step executor.
type execution struct {
	o        *Orchestrator
	cfg      *api.ProvisioningConfig
	cloud    CloudClient
	logger   *slog.Logger
	prevStep int  // completed_step value the CAS update is based on
	created  bool // set by the credential executor on first run
}

// saveProgress persists intermediate step state (e.g. the phase-1 marker
// of the access step) without advancing completed_step.
func (ex *execution) saveProgress(ctx context.Context) error {
	ex.cfg.UpdatedAt = time.Now().UTC()
	if ex.created {
		// First credential run: the record does not exist yet.
		if err := ex.o.repo.Create(ctx, ex.cfg); err != nil {
			return err
		}
		ex.created = false
		return nil
	}
	return ex.o.repo.Update(ctx, ex.cfg, ex.prevStep)
}

// runStep acquires the installation's workflow lock, validates ordering,
// hands off to the executor, and persists the advanced config on
// success. Conflict results are returned without mutation.
func (o *Orchestrator) runStep(
	ctx context.Context,
	installationID string,
	step Step,
	fn func(ctx context.Context, ex *execution) (*api.StepResult, error),
) (*api.StepResult, error) {
	release, ok := o.locks.tryAcquire(installationID)
	if !ok {
		return nil, apperrors.ErrWorkflowBusy(installationID)
	}
	defer release()

	cfg, err := o.repo.Load(ctx, installationID)
	if err != nil {
		return nil, err
	}

	completed := 0
	if cfg != nil {
		completed = cfg.CompletedStep
	}
	if int(step) > completed+1 {
		return nil, apperrors.ErrSequence(
			fmt.Sprintf("step %q requires %d completed steps, have %d", step, int(step)-1, completed), nil)
	}

	ex := &execution{
		o:        o,
		cfg:      cfg,
		prevStep: completed,
		logger: logger.DeriveRequestLogger(ctx, o.logger).With(
			"installation_id", installationID,
			"step", step.String(),
		),
	}

	if step != StepCredential {
		client, err := o.clientFor(ctx, cfg)
		if err != nil {
			return nil, err
		}
		ex.cloud = client
	}

	result, err := fn(ctx, ex)
	if err != nil {
		return nil, err
	}
	if result.Outcome == api.OutcomeConflict {
		ex.logger.Info("step blocked by conflicting foreign resources", "conflicts", len(result.Conflicts))
		return result, nil
	}

	cfg = ex.cfg
	if int(step) > cfg.CompletedStep {
		cfg.CompletedStep = int(step)
	}
	cfg.Status = statusForStep(cfg.CompletedStep)
	if err := ex.saveProgress(ctx); err != nil {
		return nil, err
	}

	ex.logger.Info("step completed", "completed_step", cfg.CompletedStep, "status", cfg.Status)
	result.Config = cfg
	return result, nil
}

// clientFor builds a cloud client from the installation's stored
// credential.
func (o *Orchestrator) clientFor(ctx context.Context, cfg *api.ProvisioningConfig) (CloudClient, error) {
	if cfg == nil || cfg.CredentialRef == "" {
		return nil, apperrors.ErrSequence("no credential on record; run the credential step first", nil)
	}
	token, err := o.creds.Get(ctx, cfg.CredentialRef)
	if err != nil {
		if stderrors.Is(err, secrets.ErrCredentialNotFound) {
			return nil, apperrors.ErrInvalidCredential("stored credential is missing; re-run the credential step", err)
		}
		return nil, apperrors.ErrInternalError("failed to read stored credential", err)
	}
	return o.newClient(token), nil
}

func statusForStep(completed int) api.ProvisioningStatus {
	switch {
	case completed <= 0:
		return api.StatusInactive
	case completed >= constants.StepCount:
		return api.StatusActive
	default:
		return api.StatusInProgress
	}
}

// mapCloudErr translates a control-plane failure into the service error
// taxonomy.
func mapCloudErr(op string, err error) error {
	switch {
	case cloudflare.IsUnauthorized(err):
		return apperrors.ErrInvalidCredential("the control plane rejected the stored credential during "+op, err)
	case cloudflare.IsTransient(err):
		return apperrors.ErrExternalUnavailable("transient control plane failure during "+op+"; safe to retry", err)
	default:
		return apperrors.ErrInternalError("the control plane rejected "+op, err)
	}
}
