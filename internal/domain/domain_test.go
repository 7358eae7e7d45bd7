package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    AccountID
		wantErr bool
	}{
		{name: "plain", raw: "42", want: 42},
		{name: "padded", raw: "  7 ", want: 7},
		{name: "zero", raw: "0", wantErr: true},
		{name: "negative", raw: "-3", wantErr: true},
		{name: "not a number", raw: "abc", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAccountID(tc.raw)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidAccountID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPhaseValid(t *testing.T) {
	t.Parallel()

	for _, phase := range Phases {
		assert.True(t, phase.Valid(), string(phase))
	}
	assert.False(t, Phase("paused").Valid())
	assert.False(t, Phase("").Valid())
}

func TestSessionConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     SessionConfig
		wantErr string
	}{
		{
			name: "valid",
			cfg:  SessionConfig{Accounts: []AccountID{1, 2}, PlaceID: 100},
		},
		{
			name:    "single account",
			cfg:     SessionConfig{Accounts: []AccountID{1}, PlaceID: 100},
			wantErr: "at least two accounts",
		},
		{
			name:    "non-positive place",
			cfg:     SessionConfig{Accounts: []AccountID{1, 2}, PlaceID: 0},
			wantErr: "place id must be positive",
		},
		{
			name:    "negative delay",
			cfg:     SessionConfig{Accounts: []AccountID{1, 2}, PlaceID: 100, LaunchDelay: -time.Second},
			wantErr: "launch delay",
		},
		{
			name:    "player outside session",
			cfg:     SessionConfig{Accounts: []AccountID{1, 2}, PlaceID: 100, Players: []AccountID{3}},
			wantErr: "player account 3",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestSessionConfigNormalizeAccountsDeduplicatesAndDropsZero(t *testing.T) {
	t.Parallel()

	cfg := SessionConfig{
		Accounts: []AccountID{3, 0, 1, 3, 2, 1},
		Players:  []AccountID{2, 2},
	}
	cfg.NormalizeAccounts()

	assert.Equal(t, []AccountID{3, 1, 2}, cfg.Accounts)
	assert.Equal(t, []AccountID{2}, cfg.Players)
}

func TestSessionConfigApplyDefaultsClampsCeiling(t *testing.T) {
	t.Parallel()

	cfg := SessionConfig{RetryCeiling: time.Hour}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultRelaunchInterval, cfg.RelaunchInterval)
	assert.Equal(t, DefaultRetryBase, cfg.RetryBase)
	assert.Equal(t, DefaultRetryCeiling, cfg.RetryCeiling)

	cfg = SessionConfig{RetryCeiling: time.Second}
	cfg.ApplyDefaults()
	assert.Equal(t, MinRetryDelay, cfg.RetryCeiling)
}

func TestAccountRuntimeDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		rt   AccountRuntime
		want bool
	}{
		{name: "queued and due", rt: AccountRuntime{Phase: PhaseQueued, NextRestartAt: &past}, want: true},
		{name: "queued not yet due", rt: AccountRuntime{Phase: PhaseQueued, NextRestartAt: &future}},
		{name: "no schedule", rt: AccountRuntime{Phase: PhaseRunning}},
		{name: "player ignores schedule", rt: AccountRuntime{Phase: PhaseRunningPlayer, IsPlayer: true, NextRestartAt: &past}},
		{name: "player restart request", rt: AccountRuntime{Phase: PhaseRestarting, IsPlayer: true, RestartRequested: true}, want: true},
		{name: "disconnected", rt: AccountRuntime{Phase: PhaseDisconnected, Disconnected: true, RestartRequested: true}},
		{name: "launching", rt: AccountRuntime{Phase: PhaseLaunching, NextRestartAt: &past}},
		{name: "grace elapsed", rt: AccountRuntime{Phase: PhasePlayerGrace, NextRestartAt: &past}, want: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.rt.Due(now))
		})
	}
}

func TestAccountRuntimeCloneDetachesTimes(t *testing.T) {
	t.Parallel()

	due := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rt := AccountRuntime{NextRestartAt: &due}
	clone := rt.Clone()
	*rt.NextRestartAt = due.Add(time.Hour)

	require.NotNil(t, clone.NextRestartAt)
	assert.Equal(t, due, *clone.NextRestartAt)
}

func TestFailureClassifier(t *testing.T) {
	t.Parallel()

	classifier := NewFailureClassifier(nil, nil)

	tests := []struct {
		name string
		text string
		want FailureKind
	}{
		{name: "english rate limit", text: "Too Many Requests", want: FailureRateLimited},
		{name: "localized rate limit", text: "Error: 请求过多，请稍后再试", want: FailureRateLimited},
		{name: "auth failure", text: "Authentication failed (Error Code: 403)", want: FailureAuth},
		{name: "plain title", text: "Game Client", want: FailureNone},
		{name: "empty", text: "", want: FailureNone},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, classifier.Classify(tc.text))
		})
	}
}

func TestFailureClassifierWrapProducesTypedErrors(t *testing.T) {
	t.Parallel()

	classifier := NewFailureClassifier([]string{" Slow Down "}, []string{"bad ticket"})

	err := classifier.Wrap("ticket", "please slow down")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))

	var rateErr *RateLimitError
	require.True(t, errors.As(fmt.Errorf("launch: %w", err), &rateErr))
	assert.Equal(t, "ticket", rateErr.Source)

	err = classifier.Wrap("ticket", "bad ticket issued")
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.False(t, IsRateLimited(err))

	assert.NoError(t, classifier.Wrap("ticket", "fine"))
}
