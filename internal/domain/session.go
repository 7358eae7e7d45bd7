package domain

import (
	"fmt"
	"slices"
	"time"
)

const (
	DefaultRelaunchInterval = 19 * time.Minute
	DefaultLaunchDelay      = 20 * time.Second
	DefaultRetryBase        = 10 * time.Second
	DefaultRetryCeiling     = 300 * time.Second
	DefaultPlayerGrace      = 15 * time.Minute

	MinRetryDelay = 5 * time.Second
	MaxRetryDelay = 300 * time.Second
)

type SessionConfig struct {
	Accounts         []AccountID
	PlaceID          int64
	JobID            string
	PrivateServer    bool
	AccessCode       string
	LaunchData       string
	Players          []AccountID
	RelaunchInterval time.Duration
	LaunchDelay      time.Duration
	RetryBase        time.Duration
	RetryCeiling     time.Duration
	PlayerGrace      time.Duration
}

func (c SessionConfig) Validate() error {
	if len(c.Accounts) < 2 {
		return fmt.Errorf("at least two accounts are required, got %d", len(c.Accounts))
	}
	if c.PlaceID <= 0 {
		return fmt.Errorf("place id must be positive, got %d", c.PlaceID)
	}
	if c.RelaunchInterval < 0 {
		return fmt.Errorf("relaunch interval must not be negative")
	}
	if c.LaunchDelay < 0 {
		return fmt.Errorf("launch delay must not be negative")
	}
	if c.PlayerGrace < 0 {
		return fmt.Errorf("player grace must not be negative")
	}
	for _, player := range c.Players {
		if !slices.Contains(c.Accounts, player) {
			return fmt.Errorf("player account %s is not part of the session", player)
		}
	}

	return nil
}

// ApplyDefaults fills unset durations and clamps the retry ceiling.
func (c *SessionConfig) ApplyDefaults() {
	if c.RelaunchInterval == 0 {
		c.RelaunchInterval = DefaultRelaunchInterval
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	if c.RetryCeiling <= 0 || c.RetryCeiling > MaxRetryDelay {
		c.RetryCeiling = DefaultRetryCeiling
	}
	if c.RetryCeiling < MinRetryDelay {
		c.RetryCeiling = MinRetryDelay
	}
}

// NormalizeAccounts drops zero ids and duplicates while keeping order.
func (c *SessionConfig) NormalizeAccounts() {
	if c == nil {
		return
	}
	c.Accounts = uniqueIDs(c.Accounts)
	c.Players = uniqueIDs(c.Players)
}

func (c SessionConfig) IsPlayer(id AccountID) bool {
	return slices.Contains(c.Players, id)
}

func (c SessionConfig) Clone() SessionConfig {
	c.Accounts = slices.Clone(c.Accounts)
	c.Players = slices.Clone(c.Players)
	return c
}

func uniqueIDs(ids []AccountID) []AccountID {
	result := make([]AccountID, 0, len(ids))
	seen := make(map[AccountID]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// AccountRuntime is the scheduler's per-account state for one session.
type AccountRuntime struct {
	ID               AccountID
	Phase            Phase
	IsPlayer         bool
	Disconnected     bool
	RestartRequested bool
	// CloseRequested marks a close issued while the account was launching.
	CloseRequested   bool
	KeepSchedule     bool
	SavedDueAt       *time.Time
	RetryCount       int
	RateLimitStrikes int
	NextRestartAt    *time.Time
	GraceUntil       *time.Time
	LastError        string
	LastLaunchAt     time.Time
	PID              int
}

func NewAccountRuntime(id AccountID, player bool) *AccountRuntime {
	rt := &AccountRuntime{ID: id, Phase: PhaseQueued, IsPlayer: player}
	if player {
		rt.Phase = PhaseQueuedPlayer
	}
	return rt
}

// Due reports whether the account wants a launch at now. Players only launch
// on an explicit restart request.
func (r *AccountRuntime) Due(now time.Time) bool {
	if r.Disconnected || r.Phase == PhaseLaunching {
		return false
	}
	if r.RestartRequested {
		return true
	}
	if r.IsPlayer || !r.Phase.Schedulable() || r.NextRestartAt == nil {
		return false
	}
	return !now.Before(*r.NextRestartAt)
}

// ClearSchedule drops every pending timer and manual restart request.
func (r *AccountRuntime) ClearSchedule() {
	r.NextRestartAt = nil
	r.GraceUntil = nil
	r.SavedDueAt = nil
	r.RestartRequested = false
	r.KeepSchedule = false
}

func (r AccountRuntime) Clone() AccountRuntime {
	r.SavedDueAt = cloneTime(r.SavedDueAt)
	r.NextRestartAt = cloneTime(r.NextRestartAt)
	r.GraceUntil = cloneTime(r.GraceUntil)
	return r
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
