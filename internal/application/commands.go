package application

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
)

type StartCommand struct {
	Config domain.SessionConfig
}

type Action string

const (
	ActionDisconnect      Action = "disconnect"
	ActionClose           Action = "close"
	ActionCloseDisconnect Action = "close-disconnect"
	ActionRestartClient   Action = "restart-client"
	ActionRestartLoop     Action = "restart-loop"
)

var Actions = []Action{
	ActionDisconnect,
	ActionClose,
	ActionCloseDisconnect,
	ActionRestartClient,
	ActionRestartLoop,
}

func (a Action) Valid() bool {
	return slices.Contains(Actions, a)
}

// ParseAction accepts the canonical names plus "close+disconnect".
func ParseAction(raw string) (Action, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "+", "-")
	normalized = strings.ReplaceAll(normalized, "_", "-")

	action := Action(normalized)
	if !action.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
	return action, nil
}

// ConfigPatch changes session settings while a session runs. Nil fields are
// left untouched; pending schedules keep their due times.
type ConfigPatch struct {
	RelaunchInterval *time.Duration
	LaunchDelay      *time.Duration
	RetryBase        *time.Duration
	RetryCeiling     *time.Duration
	PlayerGrace      *time.Duration
	LaunchData       *string
}

func (p ConfigPatch) Empty() bool {
	return p.RelaunchInterval == nil && p.LaunchDelay == nil && p.RetryBase == nil &&
		p.RetryCeiling == nil && p.PlayerGrace == nil && p.LaunchData == nil
}

func (p ConfigPatch) validate() error {
	if p.RelaunchInterval != nil && *p.RelaunchInterval <= 0 {
		return fmt.Errorf("%w: relaunch interval must be positive", ErrValidation)
	}
	if p.LaunchDelay != nil && *p.LaunchDelay < 0 {
		return fmt.Errorf("%w: launch delay must not be negative", ErrValidation)
	}
	if p.RetryBase != nil && *p.RetryBase <= 0 {
		return fmt.Errorf("%w: retry base must be positive", ErrValidation)
	}
	if p.RetryCeiling != nil && (*p.RetryCeiling < domain.MinRetryDelay || *p.RetryCeiling > domain.MaxRetryDelay) {
		return fmt.Errorf("%w: retry ceiling must be between %s and %s", ErrValidation, domain.MinRetryDelay, domain.MaxRetryDelay)
	}
	if p.PlayerGrace != nil && *p.PlayerGrace < 0 {
		return fmt.Errorf("%w: player grace must not be negative", ErrValidation)
	}
	return nil
}

func (p ConfigPatch) apply(cfg *domain.SessionConfig) {
	if p.RelaunchInterval != nil {
		cfg.RelaunchInterval = *p.RelaunchInterval
	}
	if p.LaunchDelay != nil {
		cfg.LaunchDelay = *p.LaunchDelay
	}
	if p.RetryBase != nil {
		cfg.RetryBase = *p.RetryBase
	}
	if p.RetryCeiling != nil {
		cfg.RetryCeiling = *p.RetryCeiling
	}
	if p.PlayerGrace != nil {
		cfg.PlayerGrace = *p.PlayerGrace
	}
	if p.LaunchData != nil {
		cfg.LaunchData = *p.LaunchData
	}
}
