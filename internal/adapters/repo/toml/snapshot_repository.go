package toml

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/ports"
	"github.com/spf13/viper"
)

const (
	statePathKey    = "state.path"
	stateConfigFile = "status.toml"
)

// SnapshotRepository persists the latest session snapshot so a second
// process can render it. Access codes never reach the file.
type SnapshotRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)

func NewSnapshotRepository(cfg *viper.Viper) (*SnapshotRepository, error) {
	path, err := resolvePath(cfg, statePathKey, stateConfigFile)
	if err != nil {
		return nil, err
	}

	return &SnapshotRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *SnapshotRepository) Path() string {
	return r.path
}

func (r *SnapshotRepository) Publish(ctx context.Context, snapshot domain.SessionSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file := toSnapshotSchema(snapshot)
	file.applyDefaults()
	if err := writeTOMLFile(r.path, file); err != nil {
		return fmt.Errorf("status file: %w", err)
	}
	return nil
}

// Load returns the last published snapshot, or domain.ErrNoSnapshot when
// nothing was ever written.
func (r *SnapshotRepository) Load(ctx context.Context) (domain.SessionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionSnapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var file snapshotFileSchema
	found, err := readTOMLFile(r.path, &file)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("status file: %w", err)
	}
	if !found {
		return domain.SessionSnapshot{}, domain.ErrNoSnapshot
	}
	if err := file.validateVersion(); err != nil {
		return domain.SessionSnapshot{}, err
	}

	return fromSnapshotSchema(file)
}

func toSnapshotSchema(snapshot domain.SessionSnapshot) snapshotFileSchema {
	cfg := snapshot.Config
	runtime := make([]runtimeSchema, 0, len(snapshot.Accounts))
	for _, rt := range snapshot.Accounts {
		runtime = append(runtime, runtimeSchema{
			ID:               int64(rt.ID),
			Phase:            string(rt.Phase),
			IsPlayer:         rt.IsPlayer,
			Disconnected:     rt.Disconnected,
			RestartRequested: rt.RestartRequested,
			RetryCount:       rt.RetryCount,
			RateLimitStrikes: rt.RateLimitStrikes,
			NextRestartAt:    formatTimePtr(rt.NextRestartAt),
			GraceUntil:       formatTimePtr(rt.GraceUntil),
			LastError:        rt.LastError,
			LastLaunchAt:     formatTime(rt.LastLaunchAt),
			PID:              rt.PID,
		})
	}

	return snapshotFileSchema{
		Session: sessionSchema{
			ID:        snapshot.SessionID,
			Active:    snapshot.Active,
			StartedAt: formatTime(snapshot.StartedAt),
			TakenAt:   formatTime(snapshot.TakenAt),
		},
		Config: configSchema{
			Accounts:         toInt64s(cfg.Accounts),
			Players:          toInt64s(cfg.Players),
			PlaceID:          cfg.PlaceID,
			JobID:            redactJob(cfg),
			PrivateServer:    cfg.PrivateServer,
			LaunchData:       cfg.LaunchData,
			RelaunchInterval: cfg.RelaunchInterval.String(),
			LaunchDelay:      cfg.LaunchDelay.String(),
			RetryBase:        cfg.RetryBase.String(),
			RetryCeiling:     cfg.RetryCeiling.String(),
			PlayerGrace:      cfg.PlayerGrace.String(),
		},
		Runtime: runtime,
	}
}

func fromSnapshotSchema(file snapshotFileSchema) (domain.SessionSnapshot, error) {
	cfg := domain.SessionConfig{
		Accounts:      fromInt64s(file.Config.Accounts),
		Players:       fromInt64s(file.Config.Players),
		PlaceID:       file.Config.PlaceID,
		JobID:         file.Config.JobID,
		PrivateServer: file.Config.PrivateServer,
		LaunchData:    file.Config.LaunchData,
	}
	fields := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"relaunch_interval", file.Config.RelaunchInterval, &cfg.RelaunchInterval},
		{"launch_delay", file.Config.LaunchDelay, &cfg.LaunchDelay},
		{"retry_base", file.Config.RetryBase, &cfg.RetryBase},
		{"retry_ceiling", file.Config.RetryCeiling, &cfg.RetryCeiling},
		{"player_grace", file.Config.PlayerGrace, &cfg.PlayerGrace},
	}
	for _, field := range fields {
		if field.raw == "" {
			continue
		}
		d, err := time.ParseDuration(field.raw)
		if err != nil {
			return domain.SessionSnapshot{}, fmt.Errorf("decode status %s: %w", field.name, err)
		}
		*field.target = d
	}

	accounts := make([]domain.AccountRuntime, 0, len(file.Runtime))
	for _, entry := range file.Runtime {
		phase := domain.Phase(entry.Phase)
		if !phase.Valid() {
			return domain.SessionSnapshot{}, fmt.Errorf("decode status: unknown phase %q for account %d", entry.Phase, entry.ID)
		}
		accounts = append(accounts, domain.AccountRuntime{
			ID:               domain.AccountID(entry.ID),
			Phase:            phase,
			IsPlayer:         entry.IsPlayer,
			Disconnected:     entry.Disconnected,
			RestartRequested: entry.RestartRequested,
			RetryCount:       entry.RetryCount,
			RateLimitStrikes: entry.RateLimitStrikes,
			NextRestartAt:    parseTimePtr(entry.NextRestartAt),
			GraceUntil:       parseTimePtr(entry.GraceUntil),
			LastError:        entry.LastError,
			LastLaunchAt:     parseTime(entry.LastLaunchAt),
			PID:              entry.PID,
		})
	}

	return domain.SessionSnapshot{
		SessionID: file.Session.ID,
		Active:    file.Session.Active,
		StartedAt: parseTime(file.Session.StartedAt),
		TakenAt:   parseTime(file.Session.TakenAt),
		Config:    cfg,
		Accounts:  accounts,
	}, nil
}

// redactJob drops the raw destination when it carries a private code.
func redactJob(cfg domain.SessionConfig) string {
	if cfg.PrivateServer || cfg.AccessCode != "" {
		return ""
	}
	return cfg.JobID
}

func toInt64s(ids []domain.AccountID) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}

func fromInt64s(ids []int64) []domain.AccountID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]domain.AccountID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.AccountID(id))
	}
	return out
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}

func parseTimePtr(raw string) *time.Time {
	parsed := parseTime(raw)
	if parsed.IsZero() {
		return nil
	}
	return &parsed
}
