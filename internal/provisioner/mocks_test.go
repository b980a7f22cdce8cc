package provisioner

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"mcpbox/internal/api"
	"mcpbox/internal/cloudflare"
	apperrors "mcpbox/internal/errors"
	"mcpbox/internal/secrets"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memRepo is an in-memory ConfigRepository with the same CAS semantics
// as the DynamoDB implementation. Failure injection goes through the
// optional func fields.
type memRepo struct {
	mu      sync.Mutex
	items   map[string]*api.ProvisioningConfig
	loadErr error
	saveErr error
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[string]*api.ProvisioningConfig)}
}

func (r *memRepo) Load(_ context.Context, installationID string) (*api.ProvisioningConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	cfg, ok := r.items[installationID]
	if !ok {
		return nil, nil
	}
	clone := *cfg
	return &clone, nil
}

func (r *memRepo) Create(_ context.Context, cfg *api.ProvisioningConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.items[cfg.InstallationID]; ok {
		return apperrors.ErrConflict("provisioning config already exists", nil)
	}
	clone := *cfg
	r.items[cfg.InstallationID] = &clone
	return nil
}

func (r *memRepo) Update(_ context.Context, cfg *api.ProvisioningConfig, expectedStep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	stored, ok := r.items[cfg.InstallationID]
	if !ok || stored.CompletedStep != expectedStep {
		return apperrors.ErrConflict("provisioning config was modified concurrently", nil)
	}
	clone := *cfg
	r.items[cfg.InstallationID] = &clone
	return nil
}

func (r *memRepo) Delete(_ context.Context, installationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	delete(r.items, installationID)
	return nil
}

// memCreds is an in-memory CredentialStore.
type memCreds struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func newMemCreds() *memCreds {
	return &memCreds{values: make(map[string]string)}
}

func (c *memCreds) Put(_ context.Context, ref, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[ref] = value
	return nil
}

func (c *memCreds) Get(_ context.Context, ref string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", c.getErr
	}
	v, ok := c.values[ref]
	if !ok {
		return "", secrets.ErrCredentialNotFound
	}
	return v, nil
}

func (c *memCreds) Delete(_ context.Context, ref string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, ref)
	return nil
}

// mockCloud implements CloudClient with overridable behavior per method.
// Unset funcs return benign defaults so tests only wire what they assert.
type mockCloud struct {
	verifyFunc func(ctx context.Context) (*cloudflare.Identity, error)

	listTunnelsFunc  func(ctx context.Context, accountID, name string) ([]cloudflare.Tunnel, error)
	createTunnelFunc func(ctx context.Context, accountID, name string) (*cloudflare.Tunnel, error)
	deleteTunnelFunc func(ctx context.Context, accountID, tunnelID string) error

	listServicesFunc  func(ctx context.Context, accountID, name string) ([]cloudflare.Service, error)
	createServiceFunc func(ctx context.Context, accountID string, params cloudflare.ServiceParams) (*cloudflare.Service, error)
	deleteServiceFunc func(ctx context.Context, accountID, serviceID string) error

	listWorkersFunc       func(ctx context.Context, accountID string) ([]cloudflare.Worker, error)
	deployWorkerFunc      func(ctx context.Context, accountID, name string, script []byte) (*cloudflare.Worker, error)
	deleteWorkerFunc      func(ctx context.Context, accountID, name string) error
	workerSubdomainFunc   func(ctx context.Context, accountID string) (string, error)
	pushWorkerSecretsFunc func(ctx context.Context, accountID, workerName string, secrets map[string]string) error

	listAccessAppsFunc        func(ctx context.Context, accountID, name string) ([]cloudflare.AccessApp, error)
	createAccessAppFunc       func(ctx context.Context, accountID string, params cloudflare.AccessAppParams) (*cloudflare.AccessApp, error)
	rotateAccessAppSecretFunc func(ctx context.Context, accountID, appID string) (*cloudflare.AccessCredentials, error)
	createAccessPolicyFunc    func(ctx context.Context, accountID, appID string, policy api.AccessPolicy) error
	deleteAccessAppFunc       func(ctx context.Context, accountID, appID string) error
}

func (m *mockCloud) Verify(ctx context.Context) (*cloudflare.Identity, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx)
	}
	return &cloudflare.Identity{AccountID: "acc-1", AccountName: "Test Account"}, nil
}

func (m *mockCloud) ListTunnels(ctx context.Context, accountID, name string) ([]cloudflare.Tunnel, error) {
	if m.listTunnelsFunc != nil {
		return m.listTunnelsFunc(ctx, accountID, name)
	}
	return nil, nil
}

func (m *mockCloud) CreateTunnel(ctx context.Context, accountID, name string) (*cloudflare.Tunnel, error) {
	if m.createTunnelFunc != nil {
		return m.createTunnelFunc(ctx, accountID, name)
	}
	return &cloudflare.Tunnel{ID: "tun-1", Name: name}, nil
}

func (m *mockCloud) DeleteTunnel(ctx context.Context, accountID, tunnelID string) error {
	if m.deleteTunnelFunc != nil {
		return m.deleteTunnelFunc(ctx, accountID, tunnelID)
	}
	return nil
}

func (m *mockCloud) ListServices(ctx context.Context, accountID, name string) ([]cloudflare.Service, error) {
	if m.listServicesFunc != nil {
		return m.listServicesFunc(ctx, accountID, name)
	}
	return nil, nil
}

func (m *mockCloud) CreateService(ctx context.Context, accountID string, params cloudflare.ServiceParams) (*cloudflare.Service, error) {
	if m.createServiceFunc != nil {
		return m.createServiceFunc(ctx, accountID, params)
	}
	return &cloudflare.Service{ID: "svc-1", Name: params.Name, TunnelID: params.TunnelID}, nil
}

func (m *mockCloud) DeleteService(ctx context.Context, accountID, serviceID string) error {
	if m.deleteServiceFunc != nil {
		return m.deleteServiceFunc(ctx, accountID, serviceID)
	}
	return nil
}

func (m *mockCloud) ListWorkers(ctx context.Context, accountID string) ([]cloudflare.Worker, error) {
	if m.listWorkersFunc != nil {
		return m.listWorkersFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *mockCloud) DeployWorker(ctx context.Context, accountID, name string, script []byte) (*cloudflare.Worker, error) {
	if m.deployWorkerFunc != nil {
		return m.deployWorkerFunc(ctx, accountID, name, script)
	}
	return &cloudflare.Worker{ID: name, Name: name}, nil
}

func (m *mockCloud) DeleteWorker(ctx context.Context, accountID, name string) error {
	if m.deleteWorkerFunc != nil {
		return m.deleteWorkerFunc(ctx, accountID, name)
	}
	return nil
}

func (m *mockCloud) WorkerSubdomain(ctx context.Context, accountID string) (string, error) {
	if m.workerSubdomainFunc != nil {
		return m.workerSubdomainFunc(ctx, accountID)
	}
	return "testsub", nil
}

func (m *mockCloud) PushWorkerSecrets(ctx context.Context, accountID, workerName string, secrets map[string]string) error {
	if m.pushWorkerSecretsFunc != nil {
		return m.pushWorkerSecretsFunc(ctx, accountID, workerName, secrets)
	}
	return nil
}

func (m *mockCloud) ListAccessApps(ctx context.Context, accountID, name string) ([]cloudflare.AccessApp, error) {
	if m.listAccessAppsFunc != nil {
		return m.listAccessAppsFunc(ctx, accountID, name)
	}
	return nil, nil
}

func (m *mockCloud) CreateAccessApp(ctx context.Context, accountID string, params cloudflare.AccessAppParams) (*cloudflare.AccessApp, error) {
	if m.createAccessAppFunc != nil {
		return m.createAccessAppFunc(ctx, accountID, params)
	}
	return &cloudflare.AccessApp{
		ID:           "app-1",
		Name:         params.Name,
		Domain:       params.Domain,
		AUD:          "aud-1",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
	}, nil
}

func (m *mockCloud) RotateAccessAppSecret(ctx context.Context, accountID, appID string) (*cloudflare.AccessCredentials, error) {
	if m.rotateAccessAppSecretFunc != nil {
		return m.rotateAccessAppSecretFunc(ctx, accountID, appID)
	}
	return &cloudflare.AccessCredentials{ClientID: "client-1", ClientSecret: "rotated-secret", AUD: "aud-1"}, nil
}

func (m *mockCloud) CreateAccessPolicy(ctx context.Context, accountID, appID string, policy api.AccessPolicy) error {
	if m.createAccessPolicyFunc != nil {
		return m.createAccessPolicyFunc(ctx, accountID, appID, policy)
	}
	return nil
}

func (m *mockCloud) DeleteAccessApp(ctx context.Context, accountID, appID string) error {
	if m.deleteAccessAppFunc != nil {
		return m.deleteAccessAppFunc(ctx, accountID, appID)
	}
	return nil
}

// newTestOrchestrator wires an orchestrator around the in-memory stores
// and a fixed mock cloud client.
func newTestOrchestrator(cloud *mockCloud) (*Orchestrator, *memRepo, *memCreds) {
	repo := newMemRepo()
	creds := newMemCreds()
	factory := func(string) CloudClient { return cloud }
	o := New(repo, creds, factory, testLogger())
	return o, repo, creds
}
