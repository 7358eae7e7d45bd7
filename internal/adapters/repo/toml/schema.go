package toml

import "fmt"

const (
	currentSchemaVersion         = 1
	currentSnapshotSchemaVersion = 1
)

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID   int64      `toml:"id"`
	Name string     `toml:"name,omitempty"`
	Auth authSchema `toml:"auth"`
}

type authSchema struct {
	SecretRef string `toml:"secret_ref"`
}

type snapshotFileSchema struct {
	Version int             `toml:"version"`
	Session sessionSchema   `toml:"session"`
	Config  configSchema    `toml:"config"`
	Runtime []runtimeSchema `toml:"accounts"`
}

func (s *snapshotFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSnapshotSchemaVersion
	}
}

func (s snapshotFileSchema) validateVersion() error {
	if s.Version > currentSnapshotSchemaVersion {
		return fmt.Errorf("unsupported status schema version %d (current %d)", s.Version, currentSnapshotSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ID        string `toml:"id"`
	Active    bool   `toml:"active"`
	StartedAt string `toml:"started_at,omitempty"`
	TakenAt   string `toml:"taken_at"`
}

type configSchema struct {
	Accounts         []int64 `toml:"accounts"`
	Players          []int64 `toml:"players,omitempty"`
	PlaceID          int64   `toml:"place_id"`
	JobID            string  `toml:"job_id,omitempty"`
	PrivateServer    bool    `toml:"private_server,omitempty"`
	LaunchData       string  `toml:"launch_data,omitempty"`
	RelaunchInterval string  `toml:"relaunch_interval"`
	LaunchDelay      string  `toml:"launch_delay"`
	RetryBase        string  `toml:"retry_base"`
	RetryCeiling     string  `toml:"retry_ceiling"`
	PlayerGrace      string  `toml:"player_grace"`
}

type runtimeSchema struct {
	ID               int64  `toml:"id"`
	Phase            string `toml:"phase"`
	IsPlayer         bool   `toml:"is_player,omitempty"`
	Disconnected     bool   `toml:"disconnected,omitempty"`
	RestartRequested bool   `toml:"restart_requested,omitempty"`
	RetryCount       int    `toml:"retry_count,omitempty"`
	RateLimitStrikes int    `toml:"rate_limit_strikes,omitempty"`
	NextRestartAt    string `toml:"next_restart_at,omitempty"`
	GraceUntil       string `toml:"grace_until,omitempty"`
	LastError        string `toml:"last_error,omitempty"`
	LastLaunchAt     string `toml:"last_launch_at,omitempty"`
	PID              int    `toml:"pid,omitempty"`
}
