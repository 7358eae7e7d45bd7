//go:build windows

package process

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"syscall"
	"unsafe"

	"github.com/bnema/bottingctl/internal/ports"
	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
)

// EnumWindows callbacks cannot carry Go state, so searches are serialised
// through one package-level slot.
var (
	searchMu     sync.Mutex
	searchPID    uint32
	searchResult uintptr
	enumCallback = syscall.NewCallback(enumWindowsProc)
)

type Host struct {
	ProcessName string
}

var _ ports.ProcessHost = (*Host)(nil)

func NewHost(processName string) *Host {
	if processName == "" {
		processName = DefaultProcessName
	}
	return &Host{ProcessName: processName}
}

func (h *Host) ListClientProcesses(ctx context.Context) ([]int, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("process snapshot: %w", err)
	}
	defer func() { _ = windows.CloseHandle(snapshot) }()

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Process32First(snapshot, &entry); err != nil {
		if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
			return nil, nil
		}
		return nil, fmt.Errorf("first process entry: %w", err)
	}

	var pids []int
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if matchesName(windows.UTF16ToString(entry.ExeFile[:]), h.ProcessName) {
			pids = append(pids, int(entry.ProcessID))
		}
		if err := windows.Process32Next(snapshot, &entry); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}
			return nil, fmt.Errorf("next process entry: %w", err)
		}
	}

	sort.Ints(pids)
	return pids, nil
}

func (h *Host) Terminate(pid int) error {
	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return nil
		}
		return fmt.Errorf("open pid %d: %w", pid, err)
	}
	defer func() { _ = windows.CloseHandle(handle) }()

	if err := windows.TerminateProcess(handle, 1); err != nil {
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	return nil
}

func (h *Host) FindMainWindow(pid int) (ports.WindowHandle, error) {
	if err := procEnumWindows.Find(); err != nil {
		return 0, errors.ErrUnsupported
	}

	searchMu.Lock()
	defer searchMu.Unlock()

	searchPID = uint32(pid)
	searchResult = 0
	// EnumWindows reports failure when the callback stops early.
	_, _, _ = procEnumWindows.Call(enumCallback, 0)

	if searchResult == 0 {
		return 0, ports.ErrNoWindow
	}
	return ports.WindowHandle(searchResult), nil
}

func (h *Host) WindowTitle(window ports.WindowHandle) (string, error) {
	buf := make([]uint16, 512)
	n, _, callErr := procGetWindowTextW.Call(uintptr(window), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		if errno, ok := callErr.(syscall.Errno); ok && errno != 0 {
			return "", fmt.Errorf("window title: %w", callErr)
		}
		return "", nil
	}
	return windows.UTF16ToString(buf[:n]), nil
}

func enumWindowsProc(hwnd uintptr, _ uintptr) uintptr {
	var owner uint32
	_, _, _ = procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&owner)))
	if owner != searchPID {
		return 1
	}
	visible, _, _ := procIsWindowVisible.Call(hwnd)
	if visible == 0 {
		return 1
	}
	searchResult = hwnd
	return 0
}
