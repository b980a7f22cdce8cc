package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/cobra"

	"mcpbox/internal/cloudflare"
	"mcpbox/internal/config"
	dynamorepo "mcpbox/internal/database/dynamodb"
	"mcpbox/internal/logger"
	"mcpbox/internal/provisioner"
	"mcpbox/internal/secrets"
	"mcpbox/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the provisioning HTTP server",
	Long: `Starts the HTTP server exposing the provisioning workflow API.
Configuration is read from /etc/mcpbox/config.yaml, ./config.yaml, and
MCPBOX_-prefixed environment variables.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Initialize(cfg.Environment, logger.ParseLevel(cfg.LogLevel))

	ctx := cmd.Context()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	repo := dynamorepo.NewConfigRepository(dynamodb.NewFromConfig(awsCfg), cfg.ConfigsTable, log)
	credStore := secrets.NewParameterStore(ssm.NewFromConfig(awsCfg))

	factory := func(apiToken string) provisioner.CloudClient {
		return cloudflare.NewClient(apiToken,
			cloudflare.WithBaseURL(cfg.CloudAPIBase),
			cloudflare.WithTimeout(cfg.ExternalCallTimeout),
		)
	}

	orch := provisioner.New(repo, credStore, factory, log,
		provisioner.WithCredentialPrefix(cfg.CredentialPrefix))

	router := server.NewRouter(orch, log, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr, "environment", cfg.Environment)
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("server stopped")
	return nil
}
