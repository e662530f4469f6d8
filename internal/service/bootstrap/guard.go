package bootstrap

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/env-bootstrap/internal/logger"
)

const (
	// MarkerFilename marks that a bootstrap is running right now to avoid
	// two runs mutating the same environment concurrently.
	MarkerFilename = "env-bootstrap-run-marker.bin"

	// markerLifetime is the period after which a run marker is considered
	// stale. Install steps may legitimately take minutes, so it is generous.
	markerLifetime = 30 * time.Minute

	// baseExecutable is the bootstrap binary name; the platform helper
	// appends the extension when needed.
	baseExecutable = "env-bootstrap"
)

// IsBootstrapRunningNow checks presence of a marker file and attempts recovery
// if it looks stale.
func IsBootstrapRunningNow(ctx context.Context) bool {
	logger.Info(ctx, "Checking for the presence of a run marker")

	fileInfo, err := os.Stat(MarkerFilename)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The run marker is too old, attempting cleanup")

		if err = terminateProcessByName(bootstrapExecutable()); err != nil {
			return true
		}

		if err = os.Remove(MarkerFilename); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "Run marker not found, continuing")
		return false
	}

	logger.Infof(ctx, "Unable to read run marker: %v", err)

	return false
}

// terminateProcessByName tries to kill processes with the provided executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// getExecutableExtension returns ".exe" on Windows and "" elsewhere.
func getExecutableExtension() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return ".exe"
	}

	return ""
}

func bootstrapExecutable() string {
	return baseExecutable + getExecutableExtension()
}
