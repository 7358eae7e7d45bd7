package ports

import (
	"context"
	"errors"

	"github.com/bnema/bottingctl/internal/domain"
)

var ErrNoWindow = errors.New("no main window for process")

type WindowHandle uintptr

// ProcessHost is the per-OS capability set the tracker needs. Hosts that
// cannot introspect windows return errors.ErrUnsupported from the window
// methods.
type ProcessHost interface {
	ListClientProcesses(ctx context.Context) ([]int, error)
	Terminate(pid int) error
	FindMainWindow(pid int) (WindowHandle, error)
	WindowTitle(window WindowHandle) (string, error)
}

// ClientLauncher starts the external client. It returns once the spawn was
// accepted and never waits for the client to exit.
type ClientLauncher interface {
	Launch(ctx context.Context, req domain.LaunchRequest) error
}
