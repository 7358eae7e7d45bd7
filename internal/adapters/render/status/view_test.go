package status

import (
	"strings"
	"testing"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(now time.Time) domain.SessionSnapshot {
	relaunch := now.Add(9*time.Minute + 30*time.Second)
	retry := now.Add(40 * time.Second)
	grace := now.Add(5 * time.Minute)

	return domain.SessionSnapshot{
		SessionID: "5f0c2b8e-7d0a-4d8c-9b1e-1f2a3b4c5d6e",
		Active:    true,
		StartedAt: now.Add(-(2*time.Hour + 5*time.Minute)),
		TakenAt:   now,
		Config: domain.SessionConfig{
			Accounts:         []domain.AccountID{1, 2, 3, 4},
			Players:          []domain.AccountID{2},
			PlaceID:          920587237,
			RelaunchInterval: 19 * time.Minute,
			PlayerGrace:      15 * time.Minute,
		},
		Accounts: []domain.AccountRuntime{
			{ID: 1, Phase: domain.PhaseRunning, NextRestartAt: &relaunch, PID: 4242, LastLaunchAt: now.Add(-9 * time.Minute)},
			{ID: 2, Phase: domain.PhaseRunningPlayer, IsPlayer: true, PID: 4243},
			{ID: 3, Phase: domain.PhaseRetryBackoff, NextRestartAt: &retry, RetryCount: 2, RateLimitStrikes: 1, LastError: "acquire ticket: failed after 5 attempts: rate limited"},
			{ID: 4, Phase: domain.PhasePlayerGrace, NextRestartAt: &grace, GraceUntil: &grace, PID: 4250},
		},
	}
}

func TestRenderSessionSnapshot(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	output, err := Render(sampleSnapshot(now), RenderOptions{
		Now:   now,
		Names: map[domain.AccountID]string{1: "alt-one", 2: "main"},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Botting Session")
	assert.Contains(t, output, "active")
	assert.Contains(t, output, "accounts: 4")
	assert.Contains(t, output, "players: 1")
	assert.Contains(t, output, "place: 920587237")
	assert.Contains(t, output, "up 2h05m")
	assert.Contains(t, output, "session 5f0c2b8e")

	assert.Contains(t, output, "alt-one (1)")
	assert.Contains(t, output, "main (2) *player")
	assert.Contains(t, output, "[running]")
	assert.Contains(t, output, "pid: 4242")
	assert.Contains(t, output, "launched 11:51:00")
	assert.Contains(t, output, "relaunch:")
	assert.Contains(t, output, "in 9m30s (12:09)")
	assert.Contains(t, output, "relaunch: off (player)")

	assert.Contains(t, output, "[retry-backoff]")
	assert.Contains(t, output, "retry: in 40s (12:00)")
	assert.Contains(t, output, "retries: 2  rate limits: 1")
	assert.Contains(t, output, "error: acquire ticket")

	assert.Contains(t, output, "[player-grace]")
	assert.Contains(t, output, "grace ends:")
	assert.NotContains(t, output, "[stale]")
}

func TestRenderPhaseSummaryFollowsPhaseOrder(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	output, err := Render(sampleSnapshot(now), RenderOptions{Now: now})

	require.NoError(t, err)
	running := strings.Index(output, "running 1")
	player := strings.Index(output, "running-player 1")
	backoff := strings.Index(output, "retry-backoff 1")
	require.NotEqual(t, -1, running)
	require.NotEqual(t, -1, player)
	require.NotEqual(t, -1, backoff)
	assert.Less(t, running, player)
	assert.Less(t, player, backoff)
}

func TestRenderProgressBarTracksRelaunchWindow(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	due := now.Add(19 * time.Minute)
	snapshot := domain.SessionSnapshot{
		Active:  true,
		TakenAt: now,
		Config:  domain.SessionConfig{RelaunchInterval: 19 * time.Minute},
		Accounts: []domain.AccountRuntime{
			{ID: 1, Phase: domain.PhaseRunning, NextRestartAt: &due},
		},
	}

	output, err := Render(snapshot, RenderOptions{Now: now})
	require.NoError(t, err)
	assert.Contains(t, output, "["+strings.Repeat("-", 24)+"]")

	output, err = Render(snapshot, RenderOptions{Now: due})
	require.NoError(t, err)
	assert.Contains(t, output, "["+strings.Repeat("=", 24)+"]")
	assert.Contains(t, output, "due now")
}

func TestRenderMarksStaleSnapshot(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	snapshot := sampleSnapshot(now.Add(-3 * time.Minute))

	output, err := Render(snapshot, RenderOptions{Now: now, StaleAfter: time.Minute})

	require.NoError(t, err)
	assert.Contains(t, output, "[stale] last update 3m00s ago")
}

func TestRenderDoesNotMarkStaleWhenNowNotProvided(t *testing.T) {
	snapshot := sampleSnapshot(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))

	output, err := Render(snapshot, RenderOptions{StaleAfter: time.Minute})

	require.NoError(t, err)
	assert.NotContains(t, output, "[stale]")
	assert.Contains(t, output, "at 2026-10-01T12:09:30Z")
}

func TestRenderStoppedSessionWithoutAccounts(t *testing.T) {
	output, err := Render(domain.SessionSnapshot{}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "stopped")
	assert.Contains(t, output, "No accounts in session.")
}

func TestRenderDisconnectedAccount(t *testing.T) {
	snapshot := domain.SessionSnapshot{
		Active: true,
		Accounts: []domain.AccountRuntime{
			{ID: 9, Phase: domain.PhaseDisconnectedRunning, Disconnected: true, PID: 77},
		},
	}

	output, err := Render(snapshot, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "[disconnected-running]")
	assert.Contains(t, output, "relaunch: off (disconnected)")
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0s", formatDuration(-time.Second))
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "19m00s", formatDuration(19*time.Minute))
	assert.Equal(t, "1h05m", formatDuration(65*time.Minute))
}
