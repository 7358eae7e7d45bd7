// Package porttest holds in-memory port implementations. Test use only.
package porttest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/ports"
)

// Host is a ProcessHost backed by an in-memory pid list.
type Host struct {
	mu         sync.Mutex
	pids       []int
	titles     map[int]string
	terminated []int
	listErr    error

	// WindowsSupported makes FindMainWindow succeed for pids with a title.
	WindowsSupported bool
	// IgnoreTerminate keeps pids alive after Terminate.
	IgnoreTerminate bool
}

var _ ports.ProcessHost = (*Host)(nil)

func NewHost(pids ...int) *Host {
	return &Host{pids: slices.Clone(pids), titles: map[int]string{}}
}

func (h *Host) Add(pid int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !slices.Contains(h.pids, pid) {
		h.pids = append(h.pids, pid)
	}
}

func (h *Host) Remove(pid int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pids = slices.DeleteFunc(h.pids, func(p int) bool { return p == pid })
}

func (h *Host) Alive(pid int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Contains(h.pids, pid)
}

func (h *Host) SetTitle(pid int, title string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.titles[pid] = title
}

func (h *Host) SetListError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listErr = err
}

func (h *Host) Terminated() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.terminated)
}

func (h *Host) ListClientProcesses(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listErr != nil {
		return nil, h.listErr
	}
	return slices.Clone(h.pids), nil
}

func (h *Host) Terminate(pid int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.terminated = append(h.terminated, pid)
	if !h.IgnoreTerminate {
		h.pids = slices.DeleteFunc(h.pids, func(p int) bool { return p == pid })
	}
	return nil
}

func (h *Host) FindMainWindow(pid int) (ports.WindowHandle, error) {
	if !h.WindowsSupported {
		return 0, errors.ErrUnsupported
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.titles[pid]; !ok {
		return 0, ports.ErrNoWindow
	}
	return ports.WindowHandle(pid), nil
}

func (h *Host) WindowTitle(window ports.WindowHandle) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.titles[int(window)], nil
}

// Launcher spawns fake pids into a Host.
type Launcher struct {
	mu       sync.Mutex
	host     *Host
	nextPID  int
	requests []domain.LaunchRequest
	failures []error

	// Silent launches accept the request without a process ever appearing.
	Silent bool
	// OnLaunch runs after a pid has been added, with the request and pid.
	OnLaunch func(req domain.LaunchRequest, pid int)
}

var _ ports.ClientLauncher = (*Launcher)(nil)

func NewLauncher(host *Host, firstPID int) *Launcher {
	return &Launcher{host: host, nextPID: firstPID}
}

// FailNext queues errors returned by the next launches, in order.
func (l *Launcher) FailNext(errs ...error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, errs...)
}

func (l *Launcher) Requests() []domain.LaunchRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.requests)
}

func (l *Launcher) Launch(_ context.Context, req domain.LaunchRequest) error {
	l.mu.Lock()
	l.requests = append(l.requests, req)
	if len(l.failures) > 0 {
		err := l.failures[0]
		l.failures = l.failures[1:]
		l.mu.Unlock()
		return err
	}
	pid := l.nextPID
	l.nextPID++
	silent := l.Silent
	hook := l.OnLaunch
	l.mu.Unlock()

	if silent {
		return nil
	}
	l.host.Add(pid)
	if hook != nil {
		hook(req, pid)
	}
	return nil
}

// Registry is an AccountRegistry over a fixed credential map.
type Registry map[domain.AccountID]domain.Credential

var _ ports.AccountRegistry = Registry(nil)

func (r Registry) Exists(_ context.Context, id domain.AccountID) (bool, error) {
	_, ok := r[id]
	return ok, nil
}

func (r Registry) Credential(_ context.Context, id domain.AccountID) (domain.Credential, error) {
	cred, ok := r[id]
	if !ok {
		return "", domain.ErrAccountNotFound
	}
	return cred, nil
}

// Publisher records every published snapshot.
type Publisher struct {
	mu        sync.Mutex
	snapshots []domain.SessionSnapshot
}

var _ ports.StatusPublisher = (*Publisher)(nil)

func (p *Publisher) Publish(_ context.Context, snapshot domain.SessionSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, snapshot)
	return nil
}

func (p *Publisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

func (p *Publisher) Last() (domain.SessionSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return domain.SessionSnapshot{}, false
	}
	return p.snapshots[len(p.snapshots)-1], true
}
