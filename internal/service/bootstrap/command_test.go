package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/env-bootstrap/internal/config"
	"github.com/oshokin/env-bootstrap/internal/pip"
)

// fakeManager is a minimal in-memory pip.Manager recording invocations.
type fakeManager struct {
	// calls stores the invocation sequence in order.
	calls []string
	// out mirrors each call as a line, emulating pip's own output.
	out io.Writer
	// upgradeErr is returned from SelfUpgrade.
	upgradeErr error
	// requirementsErr is returned from InstallRequirements.
	requirementsErr error
	// installErr is returned from Install.
	installErr error
}

func (f *fakeManager) SelfUpgrade(context.Context) error {
	f.record("self-upgrade")
	return f.upgradeErr
}

func (f *fakeManager) InstallRequirements(_ context.Context, path string) error {
	f.record("requirements " + path)
	return f.requirementsErr
}

func (f *fakeManager) Install(_ context.Context, spec string) error {
	f.record("install " + spec)
	return f.installErr
}

func (f *fakeManager) record(call string) {
	f.calls = append(f.calls, call)

	if f.out != nil {
		_, _ = fmt.Fprintln(f.out, "pip: "+call)
	}
}

// TestRun_OrderAndMarkers verifies the strict step order and that the
// progress markers bracket all package-manager output.
func TestRun_OrderAndMarkers(t *testing.T) {
	chdir(t, t.TempDir())

	var out bytes.Buffer

	fake := &fakeManager{out: &out}
	opts := &Options{
		Requirements: "reqs.txt",
		Package:      "python-telegram-bot[webhooks]",
		Manager:      fake,
		Output:       &out,
	}

	require.NoError(t, Run(context.Background(), opts))

	require.Equal(t, []string{
		"self-upgrade",
		"requirements reqs.txt",
		"install python-telegram-bot[webhooks]",
	}, fake.calls)

	require.Equal(t,
		StartingMarker+"\n"+
			"pip: self-upgrade\n"+
			"pip: requirements reqs.txt\n"+
			"pip: install python-telegram-bot[webhooks]\n"+
			FinishedMarker+"\n",
		out.String())

	// The run marker is gone after the run.
	_, err := os.Stat(MarkerFilename)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

// TestRun_SkipUpgrade ensures the leading self-upgrade step can be disabled.
func TestRun_SkipUpgrade(t *testing.T) {
	chdir(t, t.TempDir())

	fake := new(fakeManager)
	opts := &Options{
		Package:     "flask",
		SkipUpgrade: true,
		Quiet:       true,
		Manager:     fake,
		Output:      io.Discard,
	}

	require.NoError(t, Run(context.Background(), opts))
	require.Equal(t, []string{
		"requirements " + config.DefaultRequirementsFilename,
		"install flask",
	}, fake.calls)
}

// TestRun_Quiet ensures markers are fully suppressed.
func TestRun_Quiet(t *testing.T) {
	chdir(t, t.TempDir())

	var out bytes.Buffer

	opts := &Options{
		Package: "flask",
		Quiet:   true,
		Manager: new(fakeManager),
		Output:  &out,
	}

	require.NoError(t, Run(context.Background(), opts))
	require.Empty(t, out.String())
}

// TestRun_FailFast verifies that the first failing step halts the sequence
// and tags the error with the step that produced it.
func TestRun_FailFast(t *testing.T) {
	errBoom := errors.New("boom")

	cases := []struct {
		name      string
		configure func(*fakeManager)
		wantStep  Step
		wantCalls int
	}{
		{
			name:      "upgrade",
			configure: func(f *fakeManager) { f.upgradeErr = errBoom },
			wantStep:  StepUpgrade,
			wantCalls: 1,
		},
		{
			name:      "manifest install",
			configure: func(f *fakeManager) { f.requirementsErr = errBoom },
			wantStep:  StepManifestInstall,
			wantCalls: 2,
		},
		{
			name:      "named install",
			configure: func(f *fakeManager) { f.installErr = errBoom },
			wantStep:  StepNamedInstall,
			wantCalls: 3,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chdir(t, t.TempDir())

			var out bytes.Buffer

			fake := new(fakeManager)
			tc.configure(fake)

			opts := &Options{
				Package: "flask",
				Manager: fake,
				Output:  &out,
			}

			err := Run(context.Background(), opts)
			require.Error(t, err)

			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			require.Equal(t, tc.wantStep, stepErr.Step)
			require.ErrorIs(t, err, errBoom)
			require.Len(t, fake.calls, tc.wantCalls)

			// A failed run never reaches the finished marker.
			require.NotContains(t, out.String(), FinishedMarker)
		})
	}
}

// TestStepError_ExitCode checks exit-code propagation from the pip layer.
func TestStepError_ExitCode(t *testing.T) {
	t.Parallel()

	cmdErr := &pip.CommandError{
		Args:     []string{"python3", "-m", "pip", "install", "-r", "missing.txt"},
		ExitCode: 2,
		Err:      errors.New("exit status 2"),
	}
	stepErr := &StepError{Step: StepManifestInstall, Err: cmdErr}

	require.Equal(t, 2, stepErr.ExitCode())
	require.Contains(t, stepErr.Error(), "manifest install")

	// No observable code falls back to a generic non-zero.
	plain := &StepError{Step: StepUpgrade, Err: errors.New("spawn failed")}
	require.Equal(t, 1, plain.ExitCode())
}

// TestRun_AlreadyRunning refuses to start while a fresh run marker exists.
func TestRun_AlreadyRunning(t *testing.T) {
	chdir(t, t.TempDir())

	require.NoError(t, os.WriteFile(MarkerFilename, nil, 0o600))

	opts := &Options{
		Package: "flask",
		Manager: new(fakeManager),
		Output:  io.Discard,
	}

	err := Run(context.Background(), opts)
	require.ErrorIs(t, err, errBootstrapAlreadyRunning)
}

// TestRun_InvalidSpec rejects a malformed package spec before any invocation.
func TestRun_InvalidSpec(t *testing.T) {
	chdir(t, t.TempDir())

	fake := new(fakeManager)
	opts := &Options{
		Package: "flask[async",
		Manager: fake,
		Output:  io.Discard,
	}

	err := Run(context.Background(), opts)
	require.Error(t, err)
	require.Empty(t, fake.calls)
}

// TestRun_Repeated ensures two consecutive runs issue identical sequences,
// leaving idempotence of the installs themselves to pip.
func TestRun_Repeated(t *testing.T) {
	chdir(t, t.TempDir())

	first := new(fakeManager)
	second := new(fakeManager)

	for _, fake := range []*fakeManager{first, second} {
		opts := &Options{
			Package: "gspread",
			Quiet:   true,
			Manager: fake,
			Output:  io.Discard,
		}
		require.NoError(t, Run(context.Background(), opts))
	}

	require.Equal(t, first.calls, second.calls)
}

// TestRun_ConfigFileAndOverrides loads settings from YAML and lets flags win.
func TestRun_ConfigFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfgPath := filepath.Join(dir, "settings.yaml")
	cfg := &config.Config{
		Requirements: "from-config.txt",
		Package:      "aiohttp[speedups]",
		SkipUpgrade:  true,
	}
	require.NoError(t, config.Save(cfgPath, cfg))

	fake := new(fakeManager)
	opts := &Options{
		ConfigPath: cfgPath,
		Package:    "aiohttp[speedups,brotli]",
		Quiet:      true,
		Manager:    fake,
		Output:     io.Discard,
	}

	require.NoError(t, Run(context.Background(), opts))
	require.Equal(t, []string{
		"requirements from-config.txt",
		"install aiohttp[speedups,brotli]",
	}, fake.calls)
}
