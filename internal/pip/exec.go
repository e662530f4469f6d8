package pip

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/oshokin/env-bootstrap/internal/logger"
)

const (
	// exitCodeTimeout is synthesized when the process was killed by a deadline.
	exitCodeTimeout = 124
	// exitCodeUnknown is synthesized when no exit code could be observed.
	exitCodeUnknown = 1
)

// ExecManager drives the real pip through "<python> -m pip" invocations.
// Output streams through to the host so pip's own progress stays visible.
type ExecManager struct {
	python  string
	timeout time.Duration
	dir     string
	stdout  io.Writer
	stderr  io.Writer
}

// Option mutates an ExecManager during construction.
type Option func(*ExecManager)

// WithTimeout bounds every pip invocation with the given duration.
func WithTimeout(d time.Duration) Option {
	return func(m *ExecManager) {
		m.timeout = d
	}
}

// WithWorkDir runs pip from the given working directory.
func WithWorkDir(dir string) Option {
	return func(m *ExecManager) {
		m.dir = dir
	}
}

// WithStdout redirects pip's standard output, mostly for tests.
func WithStdout(w io.Writer) Option {
	return func(m *ExecManager) {
		m.stdout = w
	}
}

// WithStderr redirects pip's standard error, mostly for tests.
func WithStderr(w io.Writer) Option {
	return func(m *ExecManager) {
		m.stderr = w
	}
}

// NewExecManager returns a Manager backed by the given python interpreter.
func NewExecManager(python string, opts ...Option) *ExecManager {
	m := &ExecManager{
		python: python,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SelfUpgrade upgrades pip in place to the latest release.
func (m *ExecManager) SelfUpgrade(ctx context.Context) error {
	return m.run(ctx, "install", "--upgrade", "pip")
}

// InstallRequirements installs every dependency listed in the manifest at path.
func (m *ExecManager) InstallRequirements(ctx context.Context, path string) error {
	return m.run(ctx, "install", "-r", path)
}

// Install installs one package spec as a single literal argument.
func (m *ExecManager) Install(ctx context.Context, spec string) error {
	return m.run(ctx, "install", spec)
}

// run executes one pip subcommand and converts a failure into a CommandError.
func (m *ExecManager) run(ctx context.Context, pipArgs ...string) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	args := append([]string{"-m", "pip"}, pipArgs...)

	logger.DebugKV(ctx, "Running package manager",
		"command", m.python+" "+strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, m.python, args...)
	cmd.Dir = m.dir
	cmd.Stdout = m.stdout
	cmd.Stderr = m.stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	return &CommandError{
		Args:     append([]string{m.python}, args...),
		ExitCode: exitCodeOf(ctx, err),
		Err:      err,
	}
}

// exitCodeOf extracts the process exit code, synthesizing one when the
// process was never started or was killed by the context deadline.
func exitCodeOf(ctx context.Context, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode()
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return exitCodeTimeout
	}

	return exitCodeUnknown
}
