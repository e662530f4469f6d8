package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/env-bootstrap/internal/config"
	"github.com/oshokin/env-bootstrap/internal/logger"
	"github.com/oshokin/env-bootstrap/internal/service/bootstrap"
	"github.com/oshokin/env-bootstrap/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// pythonPath overrides the configured interpreter.
	pythonPath string
	// requirementsPath overrides the configured dependency manifest.
	requirementsPath string
	// packageSpec overrides the configured named package.
	packageSpec string
	// skipUpgrade disables the leading pip self-upgrade step.
	skipUpgrade bool
	// quiet suppresses the progress markers on stdout.
	quiet bool
	// logLevel sets the minimum level for structured logs.
	logLevel string

	// rootCmd represents the base command that prepares the Python environment.
	rootCmd = &cobra.Command{
		Use:   "env-bootstrap",
		Short: "Upgrade pip and install the project's dependencies",
		Long: "Prepare a Python environment in a fixed sequence: upgrade pip to the latest " +
			"release, install every dependency from the requirements manifest, then install " +
			"one named package with its optional extras. The first failing step halts the run.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &bootstrap.Options{
				ConfigPath:   configPath,
				Python:       pythonPath,
				Requirements: requirementsPath,
				Package:      packageSpec,
				SkipUpgrade:  skipUpgrade,
				Quiet:        quiet,
			}

			return bootstrap.Run(ctx, options)
		},
	}
)

// Execute runs the env-bootstrap CLI and exits with non-zero status on error.
// A failed install step propagates the package manager's exit code.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		var stepErr *bootstrap.StepError
		if errors.As(err, &stepErr) {
			os.Exit(stepErr.ExitCode())
		}

		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVar(&pythonPath, "python", "", "python interpreter driving pip")
	rootCmd.Flags().StringVarP(&requirementsPath, "requirements", "r", "",
		"path to the dependency manifest (default "+config.DefaultRequirementsFilename+")")
	rootCmd.Flags().StringVarP(&packageSpec, "package", "p", "",
		"named package spec with optional extras (default "+config.DefaultPackage+")")
	rootCmd.Flags().BoolVar(&skipUpgrade, "no-upgrade", false, "skip the pip self-upgrade step")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress markers")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}
