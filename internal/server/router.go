// Package server exposes the provisioning workflow over HTTP. It wires
// the chi router, request-scoped logging, and the JSON error surface
// shared by every endpoint.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mcpbox/internal/api"
)

// Provisioner is the workflow surface the HTTP layer depends on.
// *provisioner.Orchestrator is the production implementation.
type Provisioner interface {
	Status(ctx context.Context, installationID string) (*api.ProvisioningConfig, error)
	VerifyCredential(ctx context.Context, installationID, token string) (*api.StepResult, error)
	CreateTunnel(ctx context.Context, installationID, name string, force bool) (*api.StepResult, error)
	CreatePrivateNetworkService(ctx context.Context, installationID, name string, force bool) (*api.StepResult, error)
	DeployWorker(ctx context.Context, installationID, name, hostname string) (*api.StepResult, error)
	ConfigureAccess(ctx context.Context, installationID string, policy api.AccessPolicy) (*api.StepResult, error)
	Teardown(ctx context.Context, installationID string) (*api.TeardownResult, error)
	SyncTools(ctx context.Context, installationID string, tools []api.ToolManifest) (*api.SyncToolsResult, error)
}

type Router struct {
	router *chi.Mux
	svc    Provisioner
	logger *slog.Logger
}

// NewRouter creates a new chi router with routes configured.
func NewRouter(svc Provisioner, logger *slog.Logger, requestTimeout time.Duration) *Router {
	r := chi.NewRouter()
	router := &Router{
		router: r,
		svc:    svc,
		logger: logger,
	}

	r.Use(router.requestIDMiddleware)
	r.Use(router.requestLoggingMiddleware)
	r.Use(router.requestTimeoutMiddleware(requestTimeout))
	r.Use(router.recoverMiddleware)
	r.Use(setContentTypeJSONMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", router.handleHealth)

		r.Route("/provisioning/{installationID}", func(r chi.Router) {
			r.Get("/", router.handleStatus)
			r.Delete("/", router.handleTeardown)

			r.Post("/credential", router.handleVerifyCredential)
			r.Post("/tunnel", router.handleCreateTunnel)
			r.Post("/service", router.handleCreateService)
			r.Post("/worker", router.handleDeployWorker)
			r.Post("/access", router.handleConfigureAccess)
			r.Post("/tools/sync", router.handleSyncTools)
		})
	})

	return router
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// Handler returns an http.Handler for the router.
func (r *Router) Handler() http.Handler {
	return r.router
}
