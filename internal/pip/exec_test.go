package pip

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeStub creates an executable that records its arguments and exits with code.
func writeStub(t *testing.T, dir string, exitCode string) (stub, log string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("stub executables require a POSIX shell")
	}

	log = filepath.Join(dir, "invocations.log")
	stub = filepath.Join(dir, "python-stub")

	script := "#!/bin/sh\necho \"$@\" >> \"" + log + "\"\nexit " + exitCode + "\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))

	return stub, log
}

// TestExecManagerArgv verifies each operation produces the expected pip argv.
func TestExecManagerArgv(t *testing.T) {
	t.Parallel()

	stub, log := writeStub(t, t.TempDir(), "0")
	manager := NewExecManager(stub)

	ctx := context.Background()
	require.NoError(t, manager.SelfUpgrade(ctx))
	require.NoError(t, manager.InstallRequirements(ctx, "requirements.txt"))
	require.NoError(t, manager.Install(ctx, "python-telegram-bot[webhooks]"))

	contents, err := os.ReadFile(log)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	require.Equal(t, []string{
		"-m pip install --upgrade pip",
		"-m pip install -r requirements.txt",
		"-m pip install python-telegram-bot[webhooks]",
	}, lines)
}

// TestExecManagerExitCode ensures a non-zero exit maps to a CommandError.
func TestExecManagerExitCode(t *testing.T) {
	t.Parallel()

	stub, _ := writeStub(t, t.TempDir(), "7")
	manager := NewExecManager(stub)

	err := manager.Install(context.Background(), "flask")
	require.Error(t, err)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.Equal(t, 7, cmdErr.ExitCode)
	require.Contains(t, cmdErr.Error(), "flask")
}

// TestExecManagerMissingExecutable synthesizes a non-zero code when the
// interpreter cannot be started at all.
func TestExecManagerMissingExecutable(t *testing.T) {
	t.Parallel()

	manager := NewExecManager(filepath.Join(t.TempDir(), "no-such-python"))

	err := manager.SelfUpgrade(context.Background())
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	require.Equal(t, exitCodeUnknown, cmdErr.ExitCode)
}
