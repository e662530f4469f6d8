package bootstrap

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// chdir switches the working directory for the duration of the test and
// restores the previous one on cleanup, mirroring testing.T.Chdir which is
// unavailable on Go toolchains older than 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()

	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
