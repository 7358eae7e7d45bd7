package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/launch"
	"github.com/bnema/bottingctl/internal/ports"
	"github.com/bnema/bottingctl/internal/tracker"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultTickInterval     = time.Second
	DefaultTicketAttempts   = 5
	DefaultTicketRetryStep  = 4 * time.Second
	DefaultRestartKillWait  = 10 * time.Second
	DefaultLaunchTimeout    = 2 * time.Minute
	DefaultStopKillDeadline = 30 * time.Second
)

// Dependencies are the collaborators a Manager drives. Publisher may be nil.
type Dependencies struct {
	Registry  ports.AccountRegistry
	Tickets   ports.TicketIssuer
	Resolver  *launch.Resolver
	Launcher  ports.ClientLauncher
	Tracker   *tracker.Tracker
	Publisher ports.StatusPublisher
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

type Options struct {
	TickInterval    time.Duration
	TicketAttempts  int
	TicketRetryStep time.Duration
	AppearTimeout   time.Duration
	RestartKillWait time.Duration
	LaunchTimeout   time.Duration
}

func (o *Options) applyDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.TicketAttempts <= 0 {
		o.TicketAttempts = DefaultTicketAttempts
	}
	if o.TicketRetryStep <= 0 {
		o.TicketRetryStep = DefaultTicketRetryStep
	}
	if o.AppearTimeout <= 0 {
		o.AppearTimeout = tracker.DefaultAppearTimeout
	}
	if o.RestartKillWait <= 0 {
		o.RestartKillWait = DefaultRestartKillWait
	}
	if o.LaunchTimeout <= 0 {
		o.LaunchTimeout = DefaultLaunchTimeout
	}
}

// Manager owns at most one running Session and is the command surface for it.
type Manager struct {
	deps Dependencies
	opts Options

	mu      sync.Mutex
	current *Session
}

func NewManager(deps Dependencies, opts Options) *Manager {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Resolver == nil {
		deps.Resolver = launch.NewResolver(nil)
	}
	opts.applyDefaults()

	return &Manager{deps: deps, opts: opts}
}

// Start validates the command, creates the session and starts its loop.
func (m *Manager) Start(ctx context.Context, cmd StartCommand) (domain.SessionSnapshot, error) {
	if m.session() != nil {
		return domain.SessionSnapshot{}, ErrAlreadyRunning
	}

	cfg := cmd.Config.Clone()
	cfg.NormalizeAccounts()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := m.requireKnown(ctx, cfg.Accounts); err != nil {
		return domain.SessionSnapshot{}, err
	}

	m.mu.Lock()
	if m.current != nil {
		m.mu.Unlock()
		return domain.SessionSnapshot{}, ErrAlreadyRunning
	}
	session := newSession(m.deps, m.opts, cfg)
	m.current = session
	m.mu.Unlock()

	session.log.Info("session started", "accounts", len(cfg.Accounts), "place_id", cfg.PlaceID, "players", len(cfg.Players))
	go session.run()

	snapshot := session.snapshot()
	m.publish(ctx, snapshot)
	return snapshot, nil
}

// Stop cancels the loop, waits for the in-flight launch to finish and clears
// the session. With closeProcesses, clients of non-player accounts are
// terminated best effort.
func (m *Manager) Stop(ctx context.Context, closeProcesses bool) error {
	session := m.session()
	if session == nil {
		return ErrNotRunning
	}

	session.cancel()
	select {
	case <-session.done:
	case <-ctx.Done():
		return fmt.Errorf("wait for session to stop: %w", ctx.Err())
	}

	if closeProcesses {
		killCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultStopKillDeadline)
		for _, id := range session.nonPlayerAccounts() {
			if !m.deps.Tracker.KillForAccount(killCtx, id) {
				session.log.Warn("client process survived stop", "account", id)
			}
		}
		cancel()
	}

	m.mu.Lock()
	if m.current == session {
		m.current = nil
	}
	m.mu.Unlock()

	snapshot := session.snapshot()
	snapshot.Active = false
	session.log.Info("session stopped", "closed_processes", closeProcesses)
	m.publish(ctx, snapshot)
	return nil
}

// AddAccounts appends known accounts to the running session; they are due
// immediately. Nothing changes unless every id is acceptable.
func (m *Manager) AddAccounts(ctx context.Context, ids []domain.AccountID) error {
	session := m.session()
	if session == nil {
		return ErrNotRunning
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: no accounts given", ErrValidation)
	}
	if err := m.requireKnown(ctx, ids); err != nil {
		return err
	}
	if err := session.addAccounts(ids); err != nil {
		return err
	}

	m.publish(ctx, session.snapshot())
	return nil
}

// SetPlayerAccounts replaces the player set. Every id must be in the session.
func (m *Manager) SetPlayerAccounts(ctx context.Context, ids []domain.AccountID) error {
	session := m.session()
	if session == nil {
		return ErrNotRunning
	}
	if err := session.setPlayers(ctx, ids); err != nil {
		return err
	}

	m.publish(ctx, session.snapshot())
	return nil
}

func (m *Manager) AccountAction(ctx context.Context, id domain.AccountID, action Action) error {
	if !action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	session := m.session()
	if session == nil {
		return ErrNotRunning
	}
	if err := session.accountAction(ctx, id, action); err != nil {
		return err
	}

	m.publish(ctx, session.snapshot())
	return nil
}

func (m *Manager) UpdateConfig(ctx context.Context, patch ConfigPatch) error {
	session := m.session()
	if session == nil {
		return ErrNotRunning
	}
	if patch.Empty() {
		return fmt.Errorf("%w: nothing to change", ErrValidation)
	}
	if err := patch.validate(); err != nil {
		return err
	}
	session.updateConfig(patch)

	m.publish(ctx, session.snapshot())
	return nil
}

// Status returns the current session snapshot, or an inactive one.
func (m *Manager) Status() domain.SessionSnapshot {
	session := m.session()
	if session == nil {
		return domain.SessionSnapshot{TakenAt: m.deps.Clock.Now()}
	}
	return session.snapshot()
}

// Running reports whether a session exists.
func (m *Manager) Running() bool {
	return m.session() != nil
}

func (m *Manager) session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) requireKnown(ctx context.Context, ids []domain.AccountID) error {
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: %w: %d", ErrValidation, domain.ErrInvalidAccountID, id)
		}
		ok, err := m.deps.Registry.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("look up account %s: %w", id, err)
		}
		if !ok {
			return fmt.Errorf("%w: account %s: %w", ErrValidation, id, domain.ErrAccountNotFound)
		}
	}
	return nil
}

func (m *Manager) publish(ctx context.Context, snapshot domain.SessionSnapshot) {
	publishSnapshot(ctx, m.deps.Publisher, m.deps.Logger, snapshot)
}

func publishSnapshot(ctx context.Context, publisher ports.StatusPublisher, logger *slog.Logger, snapshot domain.SessionSnapshot) {
	observePhases(snapshot)
	if publisher == nil {
		return
	}
	if err := publisher.Publish(context.WithoutCancel(ctx), snapshot); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("publish session snapshot", "error", err)
	}
}
