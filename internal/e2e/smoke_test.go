package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	_, stderr, err := runBottingctl(t, binaryPath, home, "cookie-one\n",
		"account", "add", "--id", "4410021", "--name", "alt-one", "--credential-stdin",
	)
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runBottingctl(t, binaryPath, home, "", "account", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "4410021\talt-one\tstored\n", stdout)

	stdout, stderr, err = runBottingctl(t, binaryPath, home, "", "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "No session has been started yet.")

	stdout, stderr, err = runBottingctl(t, binaryPath, home, "",
		"resolve", "--place", "920587237", "--job", "vip:2c3d4e5f-aaaa-bbbb-cccc-0123456789ab",
	)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "join: private (access code)")

	stdout, stderr, err = runBottingctl(t, binaryPath, home, "", "version")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.NotEmpty(t, strings.TrimSpace(stdout))
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "bottingctl-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/bottingctl")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build bottingctl binary: %s", string(output))
	return binaryPath
}

func runBottingctl(t *testing.T, binaryPath, home, input string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home, "BOTTINGCTL_SECRETS_PASS=false")
	cmd.Stdin = strings.NewReader(input)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
