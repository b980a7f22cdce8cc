// Package cmd implements the mcpbox command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcpbox/internal/constants"
)

var rootCmd = &cobra.Command{
	Use:   "mcpbox",
	Short: "Provisioning service for the mcpbox remote access setup wizard",
	Long: `mcpbox drives the ordered provisioning workflow that publishes a local
MCP service through an external cloud control plane: credential
verification, tunnel, private-network service, gateway worker, and
access policy. Progress is persisted per installation, so an
interrupted setup resumes where it stopped.`,
	Version: *constants.GetVersion(),
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
