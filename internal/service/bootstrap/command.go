package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/env-bootstrap/internal/config"
	"github.com/oshokin/env-bootstrap/internal/logger"
	"github.com/oshokin/env-bootstrap/internal/pip"
)

var errBootstrapAlreadyRunning = errors.New("the bootstrap is already running")

// Markers are the optional plain-text progress lines on stdout. They wrap the
// whole install sequence and never influence control flow or exit status.
const (
	StartingMarker = "Bootstrap starting"
	FinishedMarker = "Bootstrap finished"
)

// Step identifies which external invocation of the sequence produced an error.
type Step int

// The bootstrap sequence in its strict order.
const (
	StepUpgrade Step = iota
	StepManifestInstall
	StepNamedInstall
)

// String names the step for error messages and logs.
func (s Step) String() string {
	switch s {
	case StepUpgrade:
		return "pip self-upgrade"
	case StepManifestInstall:
		return "manifest install"
	case StepNamedInstall:
		return "named package install"
	default:
		return fmt.Sprintf("unknown step %d", int(s))
	}
}

// StepError is the single error kind crossing the runner boundary: an
// external command failure tagged with the step that produced it.
type StepError struct {
	// Step is the sequence position that failed.
	Step Step
	// Err is the underlying package-manager error.
	Err error
}

// Error renders the failed step together with the pip error text.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitCode surfaces the failing process's exit code for propagation,
// falling back to 1 when no code was observed.
func (e *StepError) ExitCode() int {
	var cmdErr *pip.CommandError
	if errors.As(e.Err, &cmdErr) && cmdErr.ExitCode != 0 {
		return cmdErr.ExitCode
	}

	return 1
}

// Options are inputs accepted by the bootstrap entry point. String fields
// left empty and booleans left false defer to the configuration file.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Python overrides the configured interpreter.
	Python string
	// Requirements overrides the configured manifest path.
	Requirements string
	// Package overrides the configured named package spec.
	Package string
	// SkipUpgrade disables the leading pip self-upgrade step.
	SkipUpgrade bool
	// Quiet suppresses the progress markers.
	Quiet bool

	// Manager substitutes the package manager, nil means real pip.
	Manager pip.Manager
	// Output receives the progress markers, nil means os.Stdout.
	Output io.Writer
}

// runner holds the collaborators for a single bootstrap execution.
// It is intentionally unexported—call Run(ctx, Options) from callers.
type runner struct {
	cfg     *config.Config
	manager pip.Manager
	out     io.Writer
}

// Run executes the bootstrap sequence and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "env-bootstrap")

	r, cleanup, err := newRunner(ctx, opts)
	defer cleanup(ctx)

	if err != nil {
		return err
	}

	if err = r.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Bootstrap run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Bootstrap completed")

	return nil
}

// newRunner loads configuration, applies flag overrides, validates the
// package spec and takes the single-run marker.
func newRunner(ctx context.Context, opts *Options) (*runner, func(context.Context), error) {
	noop := func(context.Context) {}

	if IsBootstrapRunningNow(ctx) {
		return nil, noop, errBootstrapAlreadyRunning
	}

	marker, err := os.Create(MarkerFilename)
	if err != nil {
		return nil, noop, err
	}

	if err = marker.Close(); err != nil {
		return nil, removeMarker, err
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, removeMarker, err
	}

	// The spec string is validated up front; pip still receives it verbatim.
	if _, err = pip.ParseSpec(cfg.Package); err != nil {
		return nil, removeMarker, fmt.Errorf("package spec: %w", err)
	}

	manager := opts.Manager
	if manager == nil {
		manager = pip.NewExecManager(cfg.Python, pip.WithTimeout(cfg.StepTimeout))
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	r := &runner{
		cfg:     cfg,
		manager: manager,
		out:     out,
	}

	return r, removeMarker, nil
}

// resolveConfig loads the settings file when one is present and folds the
// command-line overrides on top. A missing default settings file is not an
// error: the conventional defaults apply.
func resolveConfig(opts *Options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	switch {
	case opts.ConfigPath != "":
		cfg, err = config.Load(opts.ConfigPath)
	case fileExists(config.DefaultConfigFilename):
		cfg, err = config.Load(config.DefaultConfigFilename)
	default:
		cfg = config.Default()
	}

	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if opts.Python != "" {
		cfg.Python = opts.Python
	}

	if opts.Requirements != "" {
		cfg.Requirements = opts.Requirements
	}

	if opts.Package != "" {
		cfg.Package = opts.Package
	}

	if opts.SkipUpgrade {
		cfg.SkipUpgrade = true
	}

	if opts.Quiet {
		cfg.Quiet = true
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// run executes the fixed sequence: pip self-upgrade, manifest install, named
// package install. Exit status is checked after every step and the first
// failure halts the run (fail-fast), tagged with the step that produced it.
func (r *runner) run(ctx context.Context) error {
	r.emitMarker(StartingMarker)

	if r.cfg.SkipUpgrade {
		logger.Info(ctx, "Skipping pip self-upgrade")
	} else {
		logger.Info(ctx, "Upgrading pip to the latest release")

		if err := r.manager.SelfUpgrade(ctx); err != nil {
			return &StepError{Step: StepUpgrade, Err: err}
		}
	}

	logger.InfoKV(ctx, "Installing manifest dependencies", "manifest", r.cfg.Requirements)

	if err := r.manager.InstallRequirements(ctx, r.cfg.Requirements); err != nil {
		return &StepError{Step: StepManifestInstall, Err: err}
	}

	logger.InfoKV(ctx, "Installing named package", "package", r.cfg.Package)

	if err := r.manager.Install(ctx, r.cfg.Package); err != nil {
		return &StepError{Step: StepNamedInstall, Err: err}
	}

	r.emitMarker(FinishedMarker)

	return nil
}

// emitMarker writes one progress line unless markers are suppressed.
func (r *runner) emitMarker(marker string) {
	if r.cfg.Quiet {
		return
	}

	_, _ = fmt.Fprintln(r.out, marker)
}

// removeMarker deletes the single-run marker if it is still present.
func removeMarker(ctx context.Context) {
	if _, err := os.Stat(MarkerFilename); err == nil {
		_ = os.Remove(MarkerFilename)
	}

	logger.Info(ctx, "The bootstrap has been stopped")
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
