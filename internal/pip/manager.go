package pip

import (
	"context"
	"fmt"
	"strings"
)

// Manager exposes the three package-manager operations the bootstrap relies on.
// Every operation maps to one external process whose exit status is observed.
type Manager interface {
	// SelfUpgrade upgrades pip itself to the latest release, no version pin.
	SelfUpgrade(ctx context.Context) error

	// InstallRequirements performs a bulk install from the manifest at path.
	// The path is handed to pip verbatim; the file is never read here.
	InstallRequirements(ctx context.Context, path string) error

	// Install installs a single package spec, extras included, as one
	// literal argument (e.g. "python-telegram-bot[webhooks]").
	Install(ctx context.Context, spec string) error
}

// CommandError reports a failed package-manager invocation.
type CommandError struct {
	// Args is the full argv of the failed command, executable included.
	Args []string
	// ExitCode is the observed process exit code, or a synthesized
	// non-zero code when the process never produced one.
	ExitCode int
	// Err is the underlying error from the process runner.
	Err error
}

// Error renders the failed command together with its exit code.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: exit code %d: %v", strings.Join(e.Args, " "), e.ExitCode, e.Err)
}

// Unwrap exposes the underlying process error for errors.Is/As.
func (e *CommandError) Unwrap() error {
	return e.Err
}
