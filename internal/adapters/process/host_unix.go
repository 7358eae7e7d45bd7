//go:build !windows

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bnema/bottingctl/internal/ports"
	"golang.org/x/sys/unix"
)

// Host lists client processes from procfs and signals them with SIGTERM.
// Window introspection is not available outside Windows.
type Host struct {
	ProcessName string
	ProcRoot    string
}

var _ ports.ProcessHost = (*Host)(nil)

func NewHost(processName string) *Host {
	if processName == "" {
		processName = DefaultProcessName
	}
	return &Host{ProcessName: processName, ProcRoot: "/proc"}
}

func (h *Host) ListClientProcesses(ctx context.Context) ([]int, error) {
	entries, err := os.ReadDir(h.ProcRoot)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", h.ProcRoot, err)
	}

	var pids []int
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(h.ProcRoot, entry.Name(), "comm"))
		if err != nil {
			// The process exited between ReadDir and ReadFile.
			continue
		}
		if matchesName(strings.TrimSpace(string(comm)), h.ProcessName) {
			pids = append(pids, pid)
		}
	}

	sort.Ints(pids)
	return pids, nil
}

func (h *Host) Terminate(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}

func (h *Host) FindMainWindow(int) (ports.WindowHandle, error) {
	return 0, errors.ErrUnsupported
}

func (h *Host) WindowTitle(ports.WindowHandle) (string, error) {
	return "", errors.ErrUnsupported
}
