//go:build !windows

package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeComm(t *testing.T, root, pid, comm string) {
	t.Helper()
	dir := filepath.Join(root, pid)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0o644))
}

func TestHostListsMatchingProcesses(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeComm(t, root, "300", "RobloxPlayerBet")
	writeComm(t, root, "12", "RobloxPlayerBet")
	writeComm(t, root, "40", "bash")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "self"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "77"), 0o755))

	host := NewHost("")
	host.ProcRoot = root

	pids, err := host.ListClientProcesses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{12, 300}, pids)
}

func TestHostListFailsWithoutProcRoot(t *testing.T) {
	t.Parallel()

	host := NewHost("client")
	host.ProcRoot = filepath.Join(t.TempDir(), "missing")

	_, err := host.ListClientProcesses(context.Background())
	require.Error(t, err)
}

func TestHostWindowIntrospectionUnsupported(t *testing.T) {
	t.Parallel()

	host := NewHost("client")
	_, err := host.FindMainWindow(1)
	assert.True(t, errors.Is(err, errors.ErrUnsupported))
	_, err = host.WindowTitle(0)
	assert.True(t, errors.Is(err, errors.ErrUnsupported))
}

func TestHostTerminateRejectsInvalidPID(t *testing.T) {
	t.Parallel()

	require.Error(t, NewHost("client").Terminate(0))
}
