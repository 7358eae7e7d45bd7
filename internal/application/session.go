package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/launch"
	"github.com/bnema/bottingctl/internal/metrics"
	"github.com/bnema/bottingctl/internal/platform/retry"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Session is one run of the scheduler. A single mutex guards the config and
// the runtime map; it is only held for in-memory reads and writes, never
// across ticket requests, process calls or slot waits.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	deps Dependencies
	opts Options
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// limiter is the shared launch slot: burst 1, one token per launch delay.
	limiter *rate.Limiter

	mu       sync.Mutex
	config   domain.SessionConfig
	accounts map[domain.AccountID]*domain.AccountRuntime
}

func newSession(deps Dependencies, opts Options, cfg domain.SessionConfig) *Session {
	now := deps.Clock.Now()
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()

	s := &Session{
		ID:        id,
		StartedAt: now,
		deps:      deps,
		opts:      opts,
		log:       deps.Logger.With("session", id.String()),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		limiter:   rate.NewLimiter(slotLimit(cfg.LaunchDelay), 1),
		config:    cfg,
		accounts:  make(map[domain.AccountID]*domain.AccountRuntime, len(cfg.Accounts)),
	}
	for _, accountID := range cfg.Accounts {
		rt := domain.NewAccountRuntime(accountID, cfg.IsPlayer(accountID))
		if !rt.IsPlayer {
			rt.NextRestartAt = domain.TimePtr(now)
		}
		s.accounts[accountID] = rt
	}
	return s
}

func slotLimit(delay time.Duration) rate.Limit {
	if delay <= 0 {
		return rate.Inf
	}
	return rate.Every(delay)
}

// Done is closed once the loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run() {
	defer close(s.done)

	s.initialPass(s.ctx)
	for {
		select {
		case <-s.ctx.Done():
			s.log.Debug("session loop finished")
			return
		case <-s.deps.Clock.After(s.opts.TickInterval):
		}
		s.tick(s.ctx)
	}
}

// initialPass launches every configured account once, in order.
func (s *Session) initialPass(ctx context.Context) {
	s.mu.Lock()
	ids := slices.Clone(s.config.Accounts)
	s.mu.Unlock()

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		s.launchAccount(ctx, id, true)
	}
	s.publish(ctx)
}

func (s *Session) tick(ctx context.Context) {
	before := s.phases()

	s.reapDead(ctx)
	for _, id := range s.dueAccounts() {
		if ctx.Err() != nil {
			break
		}
		s.launchAccount(ctx, id, false)
	}

	if !maps.Equal(before, s.phases()) {
		s.publish(ctx)
	}
}

// reapDead applies process deaths the tracker noticed since the last tick.
func (s *Session) reapDead(ctx context.Context) {
	dead, err := s.deps.Tracker.CleanupDeadProcesses(ctx)
	if err != nil {
		s.log.Debug("reconcile client processes", "error", err)
		return
	}
	if len(dead) == 0 {
		return
	}
	metrics.ProcessDeathsTotal.Add(float64(len(dead)))

	now := s.deps.Clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range dead {
		rt, ok := s.accounts[id]
		if !ok {
			continue
		}
		rt.PID = 0

		switch {
		case rt.Phase == domain.PhaseLaunching:
			// The in-flight launch decides the outcome.
		case rt.Disconnected:
			rt.Phase = domain.PhaseDisconnected
		case rt.IsPlayer:
			rt.Phase = domain.PhaseQueuedPlayer
		case rt.Phase == domain.PhasePlayerGrace:
			// The grace deadline stands.
		case rt.Phase == domain.PhaseRunning:
			rt.Phase = domain.PhaseWaitingRejoin
			rt.NextRestartAt = domain.TimePtr(now)
		}
		s.log.Info("client process exited", "account", id, "phase", rt.Phase)
	}
}

// dueAccounts returns due accounts in config order, moving those that were
// running or backing off to restarting.
func (s *Session) dueAccounts() []domain.AccountID {
	now := s.deps.Clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []domain.AccountID
	for _, id := range s.config.Accounts {
		rt, ok := s.accounts[id]
		if !ok || !rt.Due(now) {
			continue
		}
		switch rt.Phase {
		case domain.PhaseRunning, domain.PhaseRunningPlayer, domain.PhaseRetryBackoff,
			domain.PhaseWaitingRejoin, domain.PhasePlayerGrace:
			rt.Phase = domain.PhaseRestarting
		}
		due = append(due, id)
	}
	return due
}

// waitSlot blocks until the shared launch slot is free. Reservations use the
// session clock so spacing holds under a fake clock too.
func (s *Session) waitSlot(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.deps.Clock.Now()
	reservation := s.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return errors.New("launch slot cannot be reserved")
	}
	delay := reservation.DelayFrom(now)
	metrics.SlotWaitSeconds.Observe(delay.Seconds())
	if delay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		reservation.CancelAt(s.deps.Clock.Now())
		return ctx.Err()
	case <-s.deps.Clock.After(delay):
		return nil
	}
}

// launchAccount runs one launch attempt. Cancellation is honored up to the
// slot; after that the attempt finishes on its own bounded context.
func (s *Session) launchAccount(ctx context.Context, id domain.AccountID, initial bool) {
	if err := s.waitSlot(ctx); err != nil {
		return
	}

	startedAt := s.deps.Clock.Now()
	s.mu.Lock()
	rt, ok := s.accounts[id]
	if !ok || !launchable(rt, startedAt, initial) {
		s.mu.Unlock()
		return
	}
	restartRequested := rt.RestartRequested
	rt.CloseRequested = false
	rt.Phase = domain.PhaseLaunching
	rt.LastLaunchAt = startedAt
	cfg := s.config.Clone()
	s.mu.Unlock()
	s.publish(ctx)

	launchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.LaunchTimeout)
	defer cancel()

	pid, err := s.runLaunch(launchCtx, id, cfg)
	metrics.LaunchDuration.Observe(s.deps.Clock.Since(startedAt).Seconds())
	if err == nil && s.closeRequested(id) {
		// The close arrived before the new client was tracked.
		s.deps.Tracker.KillForAccount(launchCtx, id)
	}
	s.finishLaunch(id, pid, restartRequested, err)
}

func (s *Session) closeRequested(id domain.AccountID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.accounts[id]
	return ok && rt.CloseRequested
}

func launchable(rt *domain.AccountRuntime, now time.Time, initial bool) bool {
	if initial && !rt.Disconnected && (rt.Phase == domain.PhaseQueued || rt.Phase == domain.PhaseQueuedPlayer) {
		return true
	}
	return rt.Due(now)
}

func (s *Session) runLaunch(ctx context.Context, id domain.AccountID, cfg domain.SessionConfig) (int, error) {
	tr := s.deps.Tracker

	if _, tracked := tr.Lookup(id); tracked {
		if !tr.KillForAccountGraceful(ctx, id, s.opts.RestartKillWait) {
			return 0, fmt.Errorf("previous client for account %s did not exit", id)
		}
	}

	credential, err := s.deps.Registry.Credential(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("load credential: %w", err)
	}

	job := launch.ResolveJob(cfg.JobID, cfg.PrivateServer, cfg.AccessCode)
	target, err := s.deps.Resolver.ResolvePrivateJoin(ctx, credential, cfg.PlaceID, job)
	if err != nil {
		return 0, fmt.Errorf("resolve destination: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts: s.opts.TicketAttempts,
		Delay:       retry.Linear(s.opts.TicketRetryStep),
		OnRetry: func(attempt int, err error, delay time.Duration) {
			metrics.TicketRetriesTotal.Inc()
			s.log.Info("ticket request rate limited", "account", id, "attempt", attempt, "retry_in", delay, "error", err)
		},
	}
	ticket, err := retry.Do(ctx, s.deps.Clock, policy, domain.IsRateLimited, func(ctx context.Context) (string, error) {
		return s.deps.Tickets.IssueTicket(ctx, credential)
	})
	if err != nil {
		return 0, fmt.Errorf("acquire ticket: %w", err)
	}

	baseline, err := tr.Baseline(ctx)
	if err != nil {
		return 0, fmt.Errorf("list client processes: %w", err)
	}

	token := uuid.NewString()
	s.log.Info("launching client", "account", id, "place_id", target.PlaceID, "private", target.PrivateServer)
	err = s.deps.Launcher.Launch(ctx, domain.LaunchRequest{
		AccountID:  id,
		Target:     target,
		Ticket:     ticket,
		Token:      token,
		LaunchData: cfg.LaunchData,
	})
	if err != nil {
		return 0, fmt.Errorf("launch client: %w", err)
	}

	pid, ok := tr.WaitForNewProcess(ctx, baseline, s.opts.AppearTimeout)
	if !ok {
		return 0, fmt.Errorf("%w within %s", ErrProcessNotFound, s.opts.AppearTimeout)
	}
	tr.Track(id, pid, token)

	if err := tr.DetectAuthFailure(ctx, pid); err != nil {
		tr.KillForAccount(ctx, id)
		return 0, err
	}
	return pid, nil
}

func (s *Session) finishLaunch(id domain.AccountID, pid int, restartRequested bool, launchErr error) {
	now := s.deps.Clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.accounts[id]
	if !ok {
		return
	}

	keepSchedule := restartRequested && rt.KeepSchedule
	savedDue := rt.SavedDueAt
	if restartRequested {
		rt.RestartRequested = false
		rt.KeepSchedule = false
		rt.SavedDueAt = nil
	}
	closed := rt.CloseRequested
	rt.CloseRequested = false
	rt.GraceUntil = nil

	if launchErr == nil {
		rt.RetryCount = 0
		rt.RateLimitStrikes = 0
		rt.LastError = ""

		nextDue := domain.TimePtr(now.Add(s.config.RelaunchInterval))
		if keepSchedule && savedDue != nil && savedDue.After(now) {
			nextDue = savedDue
		}

		if closed {
			rt.PID = 0
			switch {
			case rt.Disconnected:
				rt.Phase = domain.PhaseDisconnected
				rt.ClearSchedule()
			case rt.IsPlayer:
				rt.Phase = domain.PhaseQueuedPlayer
				rt.NextRestartAt = nil
			default:
				rt.Phase = domain.PhaseWaitingRejoin
				rt.NextRestartAt = nextDue
			}
			metrics.LaunchesTotal.WithLabelValues("success").Inc()
			s.log.Info("client closed during launch", "account", id, "pid", pid, "phase", rt.Phase)
			return
		}

		rt.PID = pid
		switch {
		case rt.Disconnected:
			rt.Phase = domain.PhaseDisconnectedRunning
			rt.ClearSchedule()
		case rt.IsPlayer:
			rt.Phase = domain.PhaseRunningPlayer
			rt.NextRestartAt = nil
		default:
			rt.Phase = domain.PhaseRunning
			rt.NextRestartAt = nextDue
		}

		metrics.LaunchesTotal.WithLabelValues("success").Inc()
		s.log.Info("client launched", "account", id, "pid", pid, "phase", rt.Phase)
		return
	}

	rt.PID = 0
	rt.LastError = launchErr.Error()

	// Rate-limit strikes and generic retries back off independently.
	outcome := "error"
	var delay time.Duration
	if domain.IsRateLimited(launchErr) {
		outcome = "rate_limited"
		rt.RateLimitStrikes++
		delay = RateLimitDelay(s.config.LaunchDelay, rt.RateLimitStrikes)
	} else {
		if errors.Is(launchErr, domain.ErrAuthFailed) {
			outcome = "auth_failed"
		}
		rt.RetryCount++
		delay = GenericRetryDelay(s.config.RetryBase, s.config.RetryCeiling, rt.RetryCount)
	}
	metrics.LaunchesTotal.WithLabelValues(outcome).Inc()

	switch {
	case rt.Disconnected:
		rt.Phase = domain.PhaseDisconnected
		rt.ClearSchedule()
	case rt.IsPlayer:
		rt.Phase = domain.PhaseQueuedPlayer
		rt.ClearSchedule()
	default:
		rt.Phase = domain.PhaseRetryBackoff
		rt.NextRestartAt = domain.TimePtr(now.Add(delay))
	}

	s.log.Warn("launch failed", "account", id, "retry_count", rt.RetryCount, "retry_in", delay, "outcome", outcome, "error", launchErr)
}

func (s *Session) addAccounts(ids []domain.AccountID) error {
	ids = uniqueAccountIDs(ids)
	now := s.deps.Clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.accounts[id]; ok {
			return fmt.Errorf("%w: %s", ErrAccountInSession, id)
		}
	}
	for _, id := range ids {
		rt := domain.NewAccountRuntime(id, false)
		rt.NextRestartAt = domain.TimePtr(now)
		s.accounts[id] = rt
		s.config.Accounts = append(s.config.Accounts, id)
	}

	s.log.Info("accounts added", "accounts", ids)
	return nil
}

// setPlayers applies player entry and exit for the difference between the
// current player set and ids.
func (s *Session) setPlayers(ctx context.Context, ids []domain.AccountID) error {
	ids = uniqueAccountIDs(ids)

	s.mu.Lock()
	var changed []domain.AccountID
	for _, id := range ids {
		rt, ok := s.accounts[id]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrAccountNotInSession, id)
		}
		if !rt.IsPlayer {
			changed = append(changed, id)
		}
	}
	for id, rt := range s.accounts {
		if rt.IsPlayer && !slices.Contains(ids, id) {
			changed = append(changed, id)
		}
	}
	s.mu.Unlock()

	alive := make(map[domain.AccountID]bool, len(changed))
	for _, id := range changed {
		alive[id] = s.deps.Tracker.IsAlive(ctx, id)
	}

	now := s.deps.Clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		rt := s.accounts[id]
		if rt.IsPlayer {
			continue
		}
		rt.IsPlayer = true
		rt.Disconnected = false
		rt.RetryCount = 0
		rt.RateLimitStrikes = 0
		rt.ClearSchedule()
		if rt.Phase == domain.PhaseLaunching {
			continue
		}
		if alive[id] {
			rt.Phase = domain.PhaseRunningPlayer
		} else {
			rt.Phase = domain.PhaseQueuedPlayer
		}
	}

	for id, rt := range s.accounts {
		if !rt.IsPlayer || slices.Contains(ids, id) {
			continue
		}
		rt.IsPlayer = false
		if rt.Phase == domain.PhaseLaunching {
			continue
		}
		if alive[id] {
			until := now.Add(s.config.PlayerGrace)
			rt.Phase = domain.PhasePlayerGrace
			rt.GraceUntil = domain.TimePtr(until)
			rt.NextRestartAt = domain.TimePtr(until)
		} else {
			rt.Phase = domain.PhaseQueued
			rt.GraceUntil = nil
			rt.NextRestartAt = domain.TimePtr(now)
		}
	}

	s.config.Players = slices.DeleteFunc(slices.Clone(s.config.Accounts), func(id domain.AccountID) bool {
		return !slices.Contains(ids, id)
	})
	s.log.Info("player accounts set", "players", s.config.Players)
	return nil
}

func (s *Session) accountAction(ctx context.Context, id domain.AccountID, action Action) error {
	disconnects := action == ActionDisconnect || action == ActionCloseDisconnect

	s.mu.Lock()
	rt, ok := s.accounts[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAccountNotInSession, id)
	}
	isPlayer := rt.IsPlayer
	s.mu.Unlock()

	if disconnects && isPlayer {
		return fmt.Errorf("%w: account %s", ErrPlayerDisconnect, id)
	}

	killed := false
	if action == ActionClose || action == ActionCloseDisconnect {
		killed = s.deps.Tracker.KillForAccount(ctx, id)
	}
	alive := false
	if action == ActionDisconnect {
		alive = s.deps.Tracker.IsAlive(ctx, id)
	}

	now := s.deps.Clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if disconnects && rt.IsPlayer {
		return fmt.Errorf("%w: account %s", ErrPlayerDisconnect, id)
	}
	if killed {
		rt.PID = 0
	}
	launching := rt.Phase == domain.PhaseLaunching

	switch action {
	case ActionDisconnect, ActionCloseDisconnect:
		rt.Disconnected = true
		rt.ClearSchedule()
		if launching {
			rt.CloseRequested = rt.CloseRequested || action == ActionCloseDisconnect
			break
		}
		if alive {
			rt.Phase = domain.PhaseDisconnectedRunning
		} else {
			rt.Phase = domain.PhaseDisconnected
		}
	case ActionClose:
		if launching {
			rt.CloseRequested = true
			break
		}
		switch {
		case rt.Disconnected:
			rt.Phase = domain.PhaseDisconnected
		case rt.IsPlayer:
			rt.Phase = domain.PhaseQueuedPlayer
		default:
			rt.Phase = domain.PhaseWaitingRejoin
			rt.GraceUntil = nil
			if rt.NextRestartAt == nil {
				rt.NextRestartAt = domain.TimePtr(now.Add(s.config.RelaunchInterval))
			}
		}
	case ActionRestartClient, ActionRestartLoop:
		keep := action == ActionRestartClient
		rt.Disconnected = false
		rt.CloseRequested = false
		rt.RestartRequested = true
		rt.KeepSchedule = keep
		rt.SavedDueAt = nil
		rt.GraceUntil = nil
		if keep && !rt.IsPlayer && !launching && rt.NextRestartAt != nil {
			saved := *rt.NextRestartAt
			rt.SavedDueAt = &saved
		}
		if !rt.IsPlayer {
			rt.NextRestartAt = domain.TimePtr(now)
		}
		if !launching {
			rt.Phase = domain.PhaseRestarting
		}
	}

	s.log.Info("account action applied", "account", id, "action", action, "phase", rt.Phase)
	return nil
}

func (s *Session) updateConfig(patch ConfigPatch) {
	now := s.deps.Clock.Now()
	s.mu.Lock()
	patch.apply(&s.config)
	delay := s.config.LaunchDelay
	s.mu.Unlock()

	if patch.LaunchDelay != nil {
		s.limiter.SetLimitAt(now, slotLimit(delay))
	}
	s.log.Info("session config updated")
}

func (s *Session) snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]domain.AccountRuntime, 0, len(s.accounts))
	for _, rt := range s.accounts {
		accounts = append(accounts, rt.Clone())
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	return domain.SessionSnapshot{
		SessionID: s.ID.String(),
		Active:    s.ctx.Err() == nil,
		StartedAt: s.StartedAt,
		TakenAt:   s.deps.Clock.Now(),
		Config:    s.config.Clone(),
		Accounts:  accounts,
	}
}

func (s *Session) nonPlayerAccounts() []domain.AccountID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []domain.AccountID
	for _, id := range s.config.Accounts {
		if rt, ok := s.accounts[id]; ok && !rt.IsPlayer {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Session) phases() map[domain.AccountID]domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	phases := make(map[domain.AccountID]domain.Phase, len(s.accounts))
	for id, rt := range s.accounts {
		phases[id] = rt.Phase
	}
	return phases
}

func (s *Session) publish(ctx context.Context) {
	publishSnapshot(ctx, s.deps.Publisher, s.log, s.snapshot())
}

func observePhases(snapshot domain.SessionSnapshot) {
	if !snapshot.Active {
		metrics.ObservePhases(nil)
		return
	}
	metrics.ObservePhases(snapshot.PhaseCounts())
}

func uniqueAccountIDs(ids []domain.AccountID) []domain.AccountID {
	result := make([]domain.AccountID, 0, len(ids))
	for _, id := range ids {
		if id > 0 && !slices.Contains(result, id) {
			result = append(result, id)
		}
	}
	return result
}
