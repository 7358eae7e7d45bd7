package application

import (
	"testing"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Action
	}{
		{raw: "disconnect", want: ActionDisconnect},
		{raw: " Close ", want: ActionClose},
		{raw: "close+disconnect", want: ActionCloseDisconnect},
		{raw: "close_disconnect", want: ActionCloseDisconnect},
		{raw: "restart-client", want: ActionRestartClient},
		{raw: "RESTART-LOOP", want: ActionRestartLoop},
	}

	for _, tc := range tests {
		got, err := ParseAction(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseAction("reboot")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestConfigPatchValidate(t *testing.T) {
	t.Parallel()

	zero := time.Duration(0)
	negative := -time.Second
	tooHigh := time.Hour

	assert.ErrorIs(t, ConfigPatch{RelaunchInterval: &zero}.validate(), ErrValidation)
	assert.ErrorIs(t, ConfigPatch{LaunchDelay: &negative}.validate(), ErrValidation)
	assert.ErrorIs(t, ConfigPatch{RetryBase: &zero}.validate(), ErrValidation)
	assert.ErrorIs(t, ConfigPatch{RetryCeiling: &tooHigh}.validate(), ErrValidation)
	assert.ErrorIs(t, ConfigPatch{PlayerGrace: &negative}.validate(), ErrValidation)
	assert.NoError(t, ConfigPatch{LaunchDelay: &zero}.validate())
	assert.True(t, ConfigPatch{}.Empty())
}

func TestConfigPatchApply(t *testing.T) {
	t.Parallel()

	interval := 5 * time.Minute
	data := "join=1"
	cfg := domain.SessionConfig{RelaunchInterval: time.Minute, LaunchDelay: time.Second}

	ConfigPatch{RelaunchInterval: &interval, LaunchData: &data}.apply(&cfg)

	assert.Equal(t, interval, cfg.RelaunchInterval)
	assert.Equal(t, time.Second, cfg.LaunchDelay)
	assert.Equal(t, "join=1", cfg.LaunchData)
}
