package server

import (
	"net/http"

	"mcpbox/internal/api"
	"mcpbox/internal/constants"
)

// handleHealth returns a simple health check response.
func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, api.HealthResponse{
		Status:  "ok",
		Version: *constants.GetVersion(),
	})
}

// handleStatus handles GET /api/v1/provisioning/{installationID} and
// returns the provisioning snapshot. An installation that never started
// provisioning reports status "inactive" rather than 404.
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) {
	installationID, ok := getInstallationID(w, req)
	if !ok {
		return
	}

	cfg, err := r.svc.Status(req.Context(), installationID)
	if err != nil {
		r.handleAndLogError(w, req, err, "read provisioning status")
		return
	}
	writeJSONResponse(w, http.StatusOK, cfg)
}

// handleVerifyCredential handles POST .../credential (step 1).
func (r *Router) handleVerifyCredential(w http.ResponseWriter, req *http.Request) {
	installationID, ok := getInstallationID(w, req)
	if !ok {
		return
	}
	var body api.VerifyCredentialRequest
	if err := decodeRequestBody(w, req, &body); err != nil {
		return
	}

	result, err := r.svc.VerifyCredential(req.Context(), installationID, body.Token)
	if err != nil {
		r.handleAndLogError(w, req, err, "verify credential")
		return
	}
	writeStepResult(w, result)
}

// handleCreateTunnel handles POST .../tunnel (step 2).
func (r *Router) handleCreateTunnel(w http.ResponseWriter, req *http.Request) {
	installationID, ok := getInstallationID(w, req)
	if !ok {
		return
	}
	var body api.CreateTunnelRequest
	if err := decodeRequestBody(w, req, &body); err != nil {
		return
	}

	result, err := r.svc.CreateTunnel(req.Context(), installationID, body.Name, body.Force)
	if err != nil {
		r.handleAndLogError(w, req, err, "create tunnel")
		return
	}
	writeStepResult(w, result)
}

// handleCreateService handles POST .../service (step 3).
func (r *Router) handleCreateService(w http.ResponseWriter, req *http.Request) {
	installationID, ok := getInstallationID(w, req)
	if !ok {
		return
	}
	var body api.CreateServiceRequest
	if err := decodeRequestBody(w, req, &body); err != nil {
		return
	}

	result, err := r.svc.CreatePrivateNetworkService(req.Context(), installationID, body.Name, body.Force)
	if err != nil {
		r.handleAndLogError(w, req, err, "create private network service")
		return
	}
	writeStepResult(w, result)
}

// handleDeployWorker handles POST .../worker (step 4).
func (r *Router) handleDeployWorker(w http.ResponseWriter, req *http.Request) {
	installationID, ok := getInstallationID(w, req)
	if !ok {
		return
	}
	var body api.DeployWorkerRequest
	if err := decodeRequestBody(w, req, &body); err != nil {
		return
	}

	result, err := r.svc.DeployWorker(req.Context(), installationID, body.Name, body.Hostname)
	if err != nil {
		r.handleAndLogError(w, req, err, "deploy worker")
		return
	}
	writeStepResult(w, result)
}

// handleConfigureAccess handles POST .../access (step 5).
func (r *Router) handleConfigureAccess(w http.ResponseWriter, req *http.Request) {
	installationID, ok := getInstallationID(w, req)
	if !ok {
		return
	}
	var body api.ConfigureAccessRequest
	if err := decodeRequestBody(w, req, &body); err != nil {
		return
	}

	result, err := r.svc.ConfigureAccess(req.Context(), installationID, body.Policy)
	if err != nil {
		r.handleAndLogError(w, req, err, "configure access")
		return
	}
	writeStepResult(w, result)
}

// handleTeardown handles DELETE /api/v1/provisioning/{installationID}.
func (r *Router) handleTeardown(w http.ResponseWriter, req *http.Request) {
	installationID, ok := getInstallationID(w, req)
	if !ok {
		return
	}

	result, err := r.svc.Teardown(req.Context(), installationID)
	if err != nil {
		r.handleAndLogError(w, req, err, "tear down installation")
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

// handleSyncTools handles POST .../tools/sync.
func (r *Router) handleSyncTools(w http.ResponseWriter, req *http.Request) {
	installationID, ok := getInstallationID(w, req)
	if !ok {
		return
	}
	var body api.SyncToolsRequest
	if err := decodeRequestBody(w, req, &body); err != nil {
		return
	}

	result, err := r.svc.SyncTools(req.Context(), installationID, body.Tools)
	if err != nil {
		r.handleAndLogError(w, req, err, "sync tools")
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}
