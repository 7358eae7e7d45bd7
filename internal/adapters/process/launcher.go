package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/ports"
	"github.com/jonboulle/clockwork"
)

const DefaultPlaceLauncherURL = "https://assetgame.roblox.com/game/PlaceLauncher.ashx"

var ErrExecutableRequired = errors.New("client executable is required")

// Launcher spawns the game client with a launch descriptor argument.
type Launcher struct {
	Executable       string
	PlaceLauncherURL string
	Clock            clockwork.Clock
	Logger           *slog.Logger

	// start is swapped in tests.
	start func(cmd *exec.Cmd) error
}

var _ ports.ClientLauncher = (*Launcher)(nil)

func NewLauncher(executable, placeLauncherURL string, clock clockwork.Clock, logger *slog.Logger) *Launcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		Executable:       executable,
		PlaceLauncherURL: placeLauncherURL,
		Clock:            clock,
		Logger:           logger,
	}
}

func (l *Launcher) Launch(ctx context.Context, req domain.LaunchRequest) error {
	if strings.TrimSpace(l.Executable) == "" {
		return ErrExecutableRequired
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	descriptor, err := BuildDescriptor(req, l.placeLauncherURL(), l.Clock.Now())
	if err != nil {
		return err
	}

	// The child must outlive the launch context, so no CommandContext here.
	cmd := exec.Command(l.Executable, descriptor)
	start := l.start
	if start == nil {
		start = func(cmd *exec.Cmd) error { return cmd.Start() }
	}
	if err := start(cmd); err != nil {
		return fmt.Errorf("start client for account %s: %w", req.AccountID, err)
	}

	if cmd.Process != nil {
		pid := cmd.Process.Pid
		go func() {
			err := cmd.Wait()
			l.Logger.Debug("client process exited", "account", req.AccountID, "pid", pid, "error", err)
		}()
	}
	return nil
}

func (l *Launcher) placeLauncherURL() string {
	if l.PlaceLauncherURL != "" {
		return l.PlaceLauncherURL
	}
	return DefaultPlaceLauncherURL
}

// PlaceLauncherRequest builds the place launcher URL for a target.
func PlaceLauncherRequest(base string, target domain.LaunchTarget, token string) (string, error) {
	if target.PlaceID <= 0 {
		return "", fmt.Errorf("place id must be positive, got %d", target.PlaceID)
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse place launcher url: %w", err)
	}

	query := url.Values{}
	query.Set("browserTrackerId", token)
	query.Set("placeId", strconv.FormatInt(target.PlaceID, 10))
	query.Set("isPlayTogetherGame", "false")

	switch {
	case target.AccessCode != "":
		query.Set("request", "RequestPrivateGame")
		query.Set("accessCode", target.AccessCode)
	case target.LinkCode != "":
		query.Set("request", "RequestPrivateGame")
		query.Set("linkCode", target.LinkCode)
	case target.JobID != "":
		query.Set("request", "RequestGameJob")
		query.Set("gameId", target.JobID)
	default:
		query.Set("request", "RequestGame")
	}

	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// BuildDescriptor renders the protocol argument understood by the client.
func BuildDescriptor(req domain.LaunchRequest, placeLauncherURL string, now time.Time) (string, error) {
	if req.Ticket == "" {
		return "", errors.New("launch ticket is required")
	}

	placeURL, err := PlaceLauncherRequest(placeLauncherURL, req.Target, req.Token)
	if err != nil {
		return "", err
	}

	parts := []string{
		"roblox-player:1",
		"launchmode:play",
		"gameinfo:" + req.Ticket,
		"launchtime:" + strconv.FormatInt(now.UnixMilli(), 10),
		"placelauncherurl:" + url.QueryEscape(placeURL),
		"browsertrackerid:" + req.Token,
		"robloxLocale:en_us",
		"gameLocale:en_us",
	}
	if req.LaunchData != "" {
		parts = append(parts, "launchdata:"+url.QueryEscape(req.LaunchData))
	}
	return strings.Join(parts, "+"), nil
}
