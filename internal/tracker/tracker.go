package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/ports"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultPollInterval     = 400 * time.Millisecond
	DefaultAppearTimeout    = 12 * time.Second
	DefaultKillConfirm      = 1200 * time.Millisecond
	DefaultAuthDetectWindow = 8 * time.Second
	DefaultAuthPollInterval = 500 * time.Millisecond
)

type TrackedProcess struct {
	AccountID domain.AccountID
	PID       int
	Token     string
	StartedAt time.Time
}

type Options struct {
	PollInterval     time.Duration
	AppearTimeout    time.Duration
	KillConfirm      time.Duration
	AuthDetectWindow time.Duration
	AuthPollInterval time.Duration
	Classifier       domain.FailureClassifier
}

func (o *Options) applyDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.AppearTimeout <= 0 {
		o.AppearTimeout = DefaultAppearTimeout
	}
	if o.KillConfirm <= 0 {
		o.KillConfirm = DefaultKillConfirm
	}
	if o.AuthDetectWindow <= 0 {
		o.AuthDetectWindow = DefaultAuthDetectWindow
	}
	if o.AuthPollInterval <= 0 {
		o.AuthPollInterval = DefaultAuthPollInterval
	}
	if len(o.Classifier.RateLimitPhrases) == 0 && len(o.Classifier.AuthFailurePhrases) == 0 {
		o.Classifier = domain.NewFailureClassifier(nil, nil)
	}
}

// Tracker is shared by every session of a process; its map outlives any
// single session.
type Tracker struct {
	host  ports.ProcessHost
	clock clockwork.Clock
	log   *slog.Logger
	opts  Options

	mu        sync.Mutex
	byAccount map[domain.AccountID]TrackedProcess
}

func New(host ports.ProcessHost, clock clockwork.Clock, logger *slog.Logger, opts Options) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()

	return &Tracker{
		host:      host,
		clock:     clock,
		log:       logger,
		opts:      opts,
		byAccount: map[domain.AccountID]TrackedProcess{},
	}
}

func (t *Tracker) Track(id domain.AccountID, pid int, token string) TrackedProcess {
	proc := TrackedProcess{AccountID: id, PID: pid, Token: token, StartedAt: t.clock.Now()}

	t.mu.Lock()
	t.byAccount[id] = proc
	t.mu.Unlock()

	return proc
}

func (t *Tracker) Untrack(id domain.AccountID) {
	t.mu.Lock()
	delete(t.byAccount, id)
	t.mu.Unlock()
}

func (t *Tracker) Lookup(id domain.AccountID) (TrackedProcess, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	proc, ok := t.byAccount[id]
	return proc, ok
}

// Snapshot returns tracked processes ordered by account id.
func (t *Tracker) Snapshot() []TrackedProcess {
	t.mu.Lock()
	result := make([]TrackedProcess, 0, len(t.byAccount))
	for _, proc := range t.byAccount {
		result = append(result, proc)
	}
	t.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].AccountID < result[j].AccountID })
	return result
}

// Baseline lists client pids currently running, tracked or not.
func (t *Tracker) Baseline(ctx context.Context) (map[int]struct{}, error) {
	pids, err := t.host.ListClientProcesses(ctx)
	if err != nil {
		return nil, err
	}
	return pidSet(pids), nil
}

// IsAlive reports whether the account has a tracked process that still
// shows up in the host's process list.
func (t *Tracker) IsAlive(ctx context.Context, id domain.AccountID) bool {
	proc, ok := t.Lookup(id)
	if !ok {
		return false
	}
	alive, err := t.pidAlive(ctx, proc.PID)
	if err != nil {
		// Unknown is treated as alive so a flaky listing never causes a relaunch.
		return true
	}
	return alive
}

// WaitForNewProcess polls until a client pid outside baseline, and not owned
// by another account, appears. A non-positive timeout uses the default.
func (t *Tracker) WaitForNewProcess(ctx context.Context, baseline map[int]struct{}, timeout time.Duration) (int, bool) {
	if timeout <= 0 {
		timeout = t.opts.AppearTimeout
	}
	deadline := t.clock.Now().Add(timeout)

	for {
		pids, err := t.host.ListClientProcesses(ctx)
		if err != nil {
			t.log.Debug("list client processes failed", "error", err)
		}
		owned := t.ownedPIDs()
		for _, pid := range pids {
			if _, seen := baseline[pid]; seen {
				continue
			}
			if _, taken := owned[pid]; taken {
				continue
			}
			return pid, true
		}

		if !t.clock.Now().Before(deadline) {
			return 0, false
		}
		if !t.sleep(ctx, t.opts.PollInterval) {
			return 0, false
		}
	}
}

// KillForAccount terminates the account's process without waiting long. It
// untracks when the process is confirmed gone within the confirm window or
// was already gone.
func (t *Tracker) KillForAccount(ctx context.Context, id domain.AccountID) bool {
	return t.kill(ctx, id, t.opts.KillConfirm)
}

// KillForAccountGraceful terminates and waits up to timeout for the pid to
// leave the process list. The account is untracked only on confirmed exit.
func (t *Tracker) KillForAccountGraceful(ctx context.Context, id domain.AccountID, timeout time.Duration) bool {
	return t.kill(ctx, id, timeout)
}

func (t *Tracker) kill(ctx context.Context, id domain.AccountID, wait time.Duration) bool {
	proc, ok := t.Lookup(id)
	if !ok {
		return true
	}

	if err := t.host.Terminate(proc.PID); err != nil {
		t.log.Debug("terminate client process", "account", id, "pid", proc.PID, "error", err)
	}

	deadline := t.clock.Now().Add(wait)
	for {
		alive, err := t.pidAlive(ctx, proc.PID)
		if err == nil && !alive {
			t.untrackIfSame(id, proc.PID)
			return true
		}
		if !t.clock.Now().Before(deadline) {
			break
		}
		if !t.sleep(ctx, t.opts.PollInterval) {
			break
		}
	}

	t.log.Warn("client process did not exit in time", "account", id, "pid", proc.PID, "waited", wait)
	return false
}

// DetectAuthFailure watches the client window title for vendor failure
// messages. It returns nil when the window looks healthy for the whole
// detection window, when the process disappears, or when the host cannot
// read window titles.
func (t *Tracker) DetectAuthFailure(ctx context.Context, pid int) error {
	deadline := t.clock.Now().Add(t.opts.AuthDetectWindow)

	for {
		window, err := t.host.FindMainWindow(pid)
		switch {
		case errors.Is(err, errors.ErrUnsupported):
			return nil
		case err == nil:
			title, titleErr := t.host.WindowTitle(window)
			if titleErr == nil {
				if failure := t.opts.Classifier.Wrap("client window", title); failure != nil {
					return failure
				}
			}
		case !errors.Is(err, ports.ErrNoWindow):
			t.log.Debug("find client window", "pid", pid, "error", err)
		}

		if alive, listErr := t.pidAlive(ctx, pid); listErr == nil && !alive {
			return nil
		}
		if !t.clock.Now().Before(deadline) {
			return nil
		}
		if !t.sleep(ctx, t.opts.AuthPollInterval) {
			return nil
		}
	}
}

// CleanupDeadProcesses drops tracked entries whose pid vanished and returns
// their account ids. Processes removed through Kill* never show up here.
func (t *Tracker) CleanupDeadProcesses(ctx context.Context) ([]domain.AccountID, error) {
	pids, err := t.host.ListClientProcesses(ctx)
	if err != nil {
		return nil, err
	}
	live := pidSet(pids)

	t.mu.Lock()
	var dead []domain.AccountID
	for id, proc := range t.byAccount {
		if _, ok := live[proc.PID]; ok {
			continue
		}
		delete(t.byAccount, id)
		dead = append(dead, id)
	}
	t.mu.Unlock()

	sort.Slice(dead, func(i, j int) bool { return dead[i] < dead[j] })
	return dead, nil
}

func (t *Tracker) pidAlive(ctx context.Context, pid int) (bool, error) {
	pids, err := t.host.ListClientProcesses(ctx)
	if err != nil {
		return false, err
	}
	for _, candidate := range pids {
		if candidate == pid {
			return true, nil
		}
	}
	return false, nil
}

func (t *Tracker) untrackIfSame(id domain.AccountID, pid int) {
	t.mu.Lock()
	if proc, ok := t.byAccount[id]; ok && proc.PID == pid {
		delete(t.byAccount, id)
	}
	t.mu.Unlock()
}

func (t *Tracker) ownedPIDs() map[int]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	owned := make(map[int]struct{}, len(t.byAccount))
	for _, proc := range t.byAccount {
		owned[proc.PID] = struct{}{}
	}
	return owned
}

func (t *Tracker) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-t.clock.After(d):
		return true
	}
}

func pidSet(pids []int) map[int]struct{} {
	set := make(map[int]struct{}, len(pids))
	for _, pid := range pids {
		set[pid] = struct{}{}
	}
	return set
}
