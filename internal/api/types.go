// Package api defines the wire types exchanged between the provisioning
// service and its clients (the setup wizard UI). It contains no behavior
// beyond small derived accessors so that both the server and the
// business logic can share one vocabulary.
package api

import "time"

// ErrorResponse represents an error returned to API clients.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the response to a health check request.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ProvisioningStatus describes the lifecycle state of an installation's
// provisioning workflow.
type ProvisioningStatus string

const (
	// StatusInactive means provisioning has not started or was torn down.
	StatusInactive ProvisioningStatus = "inactive"
	// StatusInProgress means at least one step completed but not all.
	StatusInProgress ProvisioningStatus = "in_progress"
	// StatusActive means every provisioning step has completed.
	StatusActive ProvisioningStatus = "active"
)

// ResourceType identifies a kind of external control-plane resource.
type ResourceType string

const (
	ResourceTunnel    ResourceType = "tunnel"
	ResourceService   ResourceType = "service"
	ResourceWorker    ResourceType = "worker"
	ResourceAccessApp ResourceType = "access_app"
)

// AccessPolicyMode selects who may authenticate through the Access
// application fronting the deployed worker.
type AccessPolicyMode string

const (
	// AccessEveryone places no restriction on authentication.
	AccessEveryone AccessPolicyMode = "everyone"
	// AccessEmails allows only an explicit list of email addresses.
	AccessEmails AccessPolicyMode = "emails"
	// AccessEmailDomain allows any address under a single domain.
	AccessEmailDomain AccessPolicyMode = "email_domain"
)

// AccessPolicy is the tagged policy variant configured in the final
// wizard step. Emails is meaningful only for AccessEmails, EmailDomain
// only for AccessEmailDomain.
type AccessPolicy struct {
	Mode        AccessPolicyMode `json:"mode"`
	Emails      []string         `json:"emails,omitempty"`
	EmailDomain string           `json:"email_domain,omitempty"`
}

// ProvisioningConfig is the single source of truth for an installation's
// provisioning progress. One record exists per installation; it is
// created by the credential step and destroyed by teardown.
//
// CredentialRef points at the secret store entry holding the API token.
// It is never serialized to clients; the token itself never appears here.
type ProvisioningConfig struct {
	ID             string             `json:"id,omitempty"`
	InstallationID string             `json:"installation_id"`
	AccountID      string             `json:"account_id,omitempty"`
	AccountRef     string             `json:"account_ref,omitempty"`
	CompletedStep  int                `json:"completed_step"`
	Status         ProvisioningStatus `json:"status"`

	TunnelID    string `json:"tunnel_id,omitempty"`
	TunnelName  string `json:"tunnel_name,omitempty"`
	ServiceID   string `json:"service_id,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	WorkerName  string `json:"worker_name,omitempty"`
	WorkerURL   string `json:"worker_url,omitempty"`
	AccessAppID string `json:"access_app_id,omitempty"`

	// AccessAppCreated records phase-1 success of the access step so a
	// retry after a failed secret push resumes at phase 2.
	AccessAppCreated bool         `json:"access_app_created,omitempty"`
	AccessPolicy     AccessPolicy `json:"access_policy,omitzero"`

	// Hostname and PortalURL are populated for installations that front
	// the worker with a managed gateway hostname.
	Hostname  string `json:"hostname,omitempty"`
	PortalURL string `json:"portal_url,omitempty"`

	CredentialRef string `json:"-"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// ResourceRef identifies one external resource by type, ID, and name.
// It is used both for conflict reporting and teardown summaries.
type ResourceRef struct {
	ID   string       `json:"id"`
	Type ResourceType `json:"resource_type"`
	Name string       `json:"name"`
}

// StepOutcome distinguishes a completed step from one blocked by
// pre-existing foreign resources.
type StepOutcome string

const (
	OutcomeSuccess  StepOutcome = "success"
	OutcomeConflict StepOutcome = "conflict"
)

// StepResult is the tri-state result of a provisioning step: success
// carries the updated config, conflict carries the blocking resources.
// Errors are reported separately and never through this type.
type StepResult struct {
	Outcome   StepOutcome         `json:"outcome"`
	Config    *ProvisioningConfig `json:"config,omitempty"`
	Conflicts []ResourceRef       `json:"conflicts,omitempty"`
	WorkerURL string              `json:"worker_url,omitempty"`
	PortalURL string              `json:"portal_url,omitempty"`
}

// TeardownResult summarizes a teardown run.
type TeardownResult struct {
	Status  ProvisioningStatus `json:"status"`
	Removed []ResourceRef      `json:"removed,omitempty"`
}

// ToolManifest describes one MCP tool exposed through the deployed
// worker. The full manifest is pushed to the worker as runtime
// configuration.
type ToolManifest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// SyncToolsResult reports a completed tool metadata sync.
type SyncToolsResult struct {
	WorkerName string    `json:"worker_name"`
	ToolCount  int       `json:"tool_count"`
	SyncedAt   time.Time `json:"synced_at"`
}

// Request bodies for the provisioning command surface.

// VerifyCredentialRequest carries the API token for the credential step.
type VerifyCredentialRequest struct {
	Token string `json:"token"`
}

// CreateTunnelRequest names the tunnel to create. An empty name selects
// the deterministic default.
type CreateTunnelRequest struct {
	Name  string `json:"name,omitempty"`
	Force bool   `json:"force,omitempty"`
}

// CreateServiceRequest names the private-network service to create.
type CreateServiceRequest struct {
	Name  string `json:"name,omitempty"`
	Force bool   `json:"force,omitempty"`
}

// DeployWorkerRequest names the worker deployment. Hostname optionally
// requests the managed-gateway variant.
type DeployWorkerRequest struct {
	Name     string `json:"name,omitempty"`
	Hostname string `json:"hostname,omitempty"`
}

// ConfigureAccessRequest carries the access policy for the final step.
type ConfigureAccessRequest struct {
	Policy AccessPolicy `json:"policy"`
}

// SyncToolsRequest carries the tool manifest to push to the worker.
type SyncToolsRequest struct {
	Tools []ToolManifest `json:"tools"`
}
