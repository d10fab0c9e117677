// Package cli provides the command-line interface for braincli.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbecker/braincli/internal/client"
	"github.com/tbecker/braincli/internal/config"
	"github.com/tbecker/braincli/internal/upload"
	"github.com/tbecker/braincli/internal/workflow"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	tenantFlag string

	// Global wiring, set up once per invocation
	cfg       config.Config
	logger    *slog.Logger
	logClose  func() error
	apiClient *client.Client
	sessions  *workflow.Manager
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "braincli",
	Short: "Client for the business-brain backend",
	Long: `Braincli drives a business-brain backend: generate company artifacts
from an intake, work through the completion-enhancement flow (answer the
gaps the analysis found, attach files, save and regenerate), and ask the
tenant's conversational brain questions.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logClose = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)

		apiClient = client.New(cfg.ServerURL, logger)
		uploads := upload.New(apiClient, cfg.UploadConcurrency, logger)
		sessions = workflow.NewManager(apiClient, uploads, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logClose != nil {
			if err := logClose(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// tenantID resolves the tenant from the --tenant flag or the configured
// default.
func tenantID() (string, error) {
	if tenantFlag != "" {
		return tenantFlag, nil
	}
	if cfg.DefaultTenant != "" {
		return cfg.DefaultTenant, nil
	}
	return "", fmt.Errorf("no tenant given: pass --tenant or set default_tenant in the config")
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&tenantFlag, "tenant", "t", "", "tenant id to operate on")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(enhanceCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(tenantsCmd)
	rootCmd.AddCommand(askCmd)
}
