package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tomlrepo "github.com/bnema/bottingctl/internal/adapters/repo/toml"
	"github.com/bnema/bottingctl/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountAddThenList(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "account", "add", "--id", "101", "--name", "alt-one", "--credential", "cookie-101")
	require.NoError(t, err)
	assert.Contains(t, stdout, "account 101 saved")

	stdout, _, err = executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Equal(t, "101\talt-one\tstored\n", stdout)

	secret, err := os.ReadFile(filepath.Join(home, ".bottingctl", "secrets", "bottingctl", "account", "101", "credential"))
	require.NoError(t, err)
	assert.Equal(t, "cookie-101", strings.TrimSpace(string(secret)))

	accounts, err := os.ReadFile(filepath.Join(home, ".bottingctl", "accounts.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(accounts), "cookie-101")
}

func TestAccountAddReadsCredentialFromStdin(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLIWithInput(t, home, "cookie-from-stdin\n", "account", "add", "--id", "7", "--credential-stdin")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Equal(t, "7\t7\tstored\n", stdout)
}

func TestAccountAddRequiresCredential(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "account", "add", "--id", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a credential is required")

	_, _, err = executeCLI(t, home, "account", "add", "--credential", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"id\" not set")
}

func TestAccountAddRejectsInvalidID(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "account", "add", "--id", "alt", "--credential", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidAccountID)
}

func TestAccountListShowsConfiguredAccounts(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Equal(t, "55\tmain\tmissing\n118\t118\tmissing\n", stdout)
}

func TestAccountRenameAndRemove(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home, "account", "add", "--id", "3", "--credential", "cookie-3")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "account", "rename", "--id", "3", "--name", "farm")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Equal(t, "3\tfarm\tstored\n", stdout)

	_, _, err = executeCLI(t, home, "account", "remove", "--id", "3")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.NoFileExists(t, filepath.Join(home, ".bottingctl", "secrets", "bottingctl", "account", "3", "credential"))

	_, _, err = executeCLI(t, home, "account", "remove", "--id", "3")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestStatusWithoutSnapshot(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No session has been started yet.")
}

func TestStatusRendersPublishedSnapshot(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))
	writeSnapshotFixture(t, home)

	stdout, _, err := executeCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Botting Session")
	assert.Contains(t, stdout, "stopped")
	assert.Contains(t, stdout, "main (55)")
	assert.Contains(t, stdout, "[running]")
	assert.Contains(t, stdout, "118 *player")
	assert.NotContains(t, stdout, "[stale]")
}

func TestStatusJSONOutput(t *testing.T) {
	home := t.TempDir()
	writeSnapshotFixture(t, home)

	stdout, _, err := executeCLI(t, home, "status", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"SessionID\": \"0b7e6c1a-5d1f-4bb8-a2a3-1e0c2f3d4e5f\"")
	assert.Contains(t, stdout, "\"Phase\": \"running-player\"")
}

func TestResolveAccessCode(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "resolve", "--place", "920587237", "--private", "--access-code", "2c3d4e5f-aaaa-bbbb-cccc-0123456789ab")
	require.NoError(t, err)
	assert.Contains(t, stdout, "place: 920587237")
	assert.Contains(t, stdout, "join: private (access code)")
	assert.Contains(t, stdout, "accessCode=2c3d4e5f-aaaa-bbbb-cccc-0123456789ab")
	assert.Contains(t, stdout, "request=RequestPrivateGame")
}

func TestResolvePublicJob(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "resolve", "--place", "42", "--job", "6f1b2c3d-job")
	require.NoError(t, err)
	assert.Contains(t, stdout, "join: public server")
	assert.Contains(t, stdout, "job: 6f1b2c3d-job")
	assert.Contains(t, stdout, "request=RequestGameJob")
}

func TestResolveShareLinkNeedsAccount(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "resolve", "--place", "42", "--job", "https://www.roblox.com/share?code=0123456789abcdef0123456789abcdef&type=Server")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass --account to resolve it")
}

func TestRunRequiresPlace(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "run", "--accounts", "1,2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"place\" not set")
}

func TestRunRejectsAccountsAndAllTogether(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "run", "--accounts", "1,2", "--all", "--place", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestRunRejectsUnknownAccounts(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLIWithInput(t, home, "stop\n", "run", "--accounts", "1,2", "--place", "5")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRunStartsSessionAndStopsFromConsole(t *testing.T) {
	home := t.TempDir()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/authentication-ticket/", r.URL.Path)
		w.Header().Set("rbx-authentication-ticket", "ticket-"+r.Header.Get("Cookie"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(api.Close)
	t.Setenv("BOTTINGCTL_API_AUTH_BASE_URL", api.URL)

	for _, id := range []string{"1", "2"} {
		_, _, err := executeCLI(t, home, "account", "add", "--id", id, "--credential", "cookie-"+id)
		require.NoError(t, err)
	}

	// No client executable is configured, so any launch that gets past the
	// ticket fails and the account backs off.
	stdout, _, err := executeCLIWithInput(t, home, "status\nbogus\nstop\n", "run", "--all", "--place", "920587237", "--launch-delay", "0s")
	require.NoError(t, err)
	assert.Contains(t, stdout, "started: 2 account(s), 0 player(s), place 920587237")
	assert.Contains(t, stdout, "Botting Session")
	assert.Contains(t, stdout, "error: unknown command \"bogus\"")
	assert.Contains(t, stdout, "session stopped")

	stdout, _, err = executeCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "stopped")
	assert.Contains(t, stdout, "accounts: 2")
}

func TestVersionCommand(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(stdout))
}

func TestUnknownCommandIsRejected(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "usage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command \"usage\"")
}

func TestInvalidConfigFailsEveryCommand(t *testing.T) {
	home := t.TempDir()
	configDir := filepath.Join(home, ".bottingctl")
	require.NoError(t, os.MkdirAll(configDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte("[log]\nformat = \"yaml\"\n"), 0o600))

	_, _, err := executeCLI(t, home, "account", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIWithInput(t, home, "", args...)
}

func executeCLIWithInput(t *testing.T, home, input string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("BOTTINGCTL_SECRETS_PASS", "false")
	t.Setenv("BOTTINGCTL_LOG_LEVEL", "error")

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeAccountsFixture(home string) error {
	configDir := filepath.Join(home, ".bottingctl")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	accounts := `version = 1

[[accounts]]
id = 118

[[accounts]]
id = 55
name = "main"
`

	return os.WriteFile(filepath.Join(configDir, "accounts.toml"), []byte(accounts), 0o600)
}

func writeSnapshotFixture(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)

	repo, err := tomlrepo.NewSnapshotRepository(viper.New())
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	due := now.Add(10 * time.Minute)
	require.NoError(t, repo.Publish(context.Background(), domain.SessionSnapshot{
		SessionID: "0b7e6c1a-5d1f-4bb8-a2a3-1e0c2f3d4e5f",
		Active:    false,
		StartedAt: now.Add(-time.Hour),
		TakenAt:   now.Add(-time.Hour),
		Config: domain.SessionConfig{
			Accounts:         []domain.AccountID{55, 118},
			Players:          []domain.AccountID{118},
			PlaceID:          920587237,
			RelaunchInterval: 19 * time.Minute,
		},
		Accounts: []domain.AccountRuntime{
			{ID: 55, Phase: domain.PhaseRunning, NextRestartAt: &due, PID: 4242},
			{ID: 118, Phase: domain.PhaseRunningPlayer, IsPlayer: true, PID: 4243},
		},
	}))
}
