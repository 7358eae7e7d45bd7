package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	statusadapter "github.com/bnema/bottingctl/internal/adapters/render/status"
	"github.com/bnema/bottingctl/internal/application"
	"github.com/bnema/bottingctl/internal/domain"
)

const (
	consolePrompt   = "bottingctl> "
	stopWaitTimeout = 3 * time.Minute
)

const consoleHelp = `commands:
  status                         show the session
  add <id>[,<id>...]             add accounts to the session
  players <id>[,<id>...]|none    replace the player accounts
  disconnect <id>                stop scheduling an account, keep its client
  close <id>                     close the client, keep the schedule
  close-disconnect <id>          close the client and stop scheduling it
  restart-client <id>            relaunch now, keep the schedule
  restart-loop <id>              relaunch now and restart the schedule
  set <key>=<value> ...          interval, delay, retry-base, retry-ceiling, grace, launch-data
  stop                           stop the session, leave clients running
  stop-close                     stop the session and close non-player clients
  help                           show this help`

// console is the line-oriented command surface of `bottingctl run`.
type console struct {
	app *app
	out io.Writer
}

func newConsole(app *app, out io.Writer) *console {
	return &console{app: app, out: out}
}

// run reads commands until stop, stop-close or ctx cancellation. At end of
// input the session keeps running until ctx is canceled.
func (c *console) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.prompt()
	for {
		select {
		case <-ctx.Done():
			return c.stop(ctx, false)
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			quit, err := c.handle(ctx, line)
			if quit {
				return err
			}
			if err != nil {
				c.printf("error: %v\n", err)
			}
			c.prompt()
		}
	}
}

// handle executes one console line. quit is set once the session stopped.
func (c *console) handle(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]
	manager := c.app.manager

	switch verb {
	case "help", "?":
		c.printf("%s\n", consoleHelp)
		return false, nil
	case "status":
		return false, c.status(ctx)
	case "add":
		ids, err := parseAccountIDs(args...)
		if err != nil {
			return false, err
		}
		if len(ids) == 0 {
			return false, errors.New("usage: add <id>[,<id>...]")
		}
		if err := manager.AddAccounts(ctx, ids); err != nil {
			return false, err
		}
		c.printf("added %d account(s)\n", len(ids))
		return false, nil
	case "players":
		if len(args) == 0 {
			return false, errors.New("usage: players <id>[,<id>...]|none")
		}
		ids, err := c.parsePlayers(args)
		if err != nil {
			return false, err
		}
		if err := manager.SetPlayerAccounts(ctx, ids); err != nil {
			return false, err
		}
		c.printf("players set: %d account(s)\n", len(ids))
		return false, nil
	case "set":
		patch, err := parseConfigPatch(args)
		if err != nil {
			return false, err
		}
		if err := manager.UpdateConfig(ctx, patch); err != nil {
			return false, err
		}
		c.printf("settings updated\n")
		return false, nil
	case "stop":
		return true, c.stop(ctx, false)
	case "stop-close":
		return true, c.stop(ctx, true)
	}

	action, err := application.ParseAction(verb)
	if err != nil {
		return false, fmt.Errorf("unknown command %q (try help)", verb)
	}
	ids, err := parseAccountIDs(args...)
	if err != nil {
		return false, err
	}
	if len(ids) != 1 {
		return false, fmt.Errorf("usage: %s <id>", action)
	}
	if err := manager.AccountAction(ctx, ids[0], action); err != nil {
		return false, err
	}
	c.printf("%s: account %s\n", action, ids[0])
	return false, nil
}

func (c *console) parsePlayers(args []string) ([]domain.AccountID, error) {
	if len(args) == 1 && strings.EqualFold(args[0], "none") {
		return nil, nil
	}
	return parseAccountIDs(args...)
}

func (c *console) status(ctx context.Context) error {
	rendered, err := c.app.statusRenderer(c.app.manager.Status(), statusadapter.RenderOptions{
		Now:   c.app.now(),
		Names: accountNames(ctx, c.app),
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}
	c.printf("%s\n", rendered)
	return nil
}

// stop waits for the loop on a context of its own so an interrupt still
// lets the in-flight launch settle.
func (c *console) stop(ctx context.Context, closeProcesses bool) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopWaitTimeout)
	defer cancel()

	if err := c.app.manager.Stop(stopCtx, closeProcesses); err != nil && !errors.Is(err, application.ErrNotRunning) {
		return fmt.Errorf("stop session: %w", err)
	}
	if closeProcesses {
		c.printf("session stopped, clients closed\n")
	} else {
		c.printf("session stopped\n")
	}
	return nil
}

func (c *console) prompt() {
	c.printf("%s", consolePrompt)
}

func (c *console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// parseConfigPatch reads key=value pairs. Durations accept Go syntax or
// bare seconds.
func parseConfigPatch(args []string) (application.ConfigPatch, error) {
	var patch application.ConfigPatch
	if len(args) == 0 {
		return patch, errors.New("usage: set <key>=<value> ...")
	}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return patch, fmt.Errorf("expected key=value, got %q", arg)
		}
		key = strings.ToLower(strings.TrimSpace(key))

		if key == "launch-data" || key == "launch_data" {
			data := value
			patch.LaunchData = &data
			continue
		}

		var target **time.Duration
		switch key {
		case "interval", "relaunch-interval":
			target = &patch.RelaunchInterval
		case "delay", "launch-delay":
			target = &patch.LaunchDelay
		case "retry-base":
			target = &patch.RetryBase
		case "retry-ceiling", "retry-max":
			target = &patch.RetryCeiling
		case "grace", "player-grace":
			target = &patch.PlayerGrace
		default:
			return patch, fmt.Errorf("unknown setting %q", key)
		}

		d, err := parseConsoleDuration(value)
		if err != nil {
			return patch, fmt.Errorf("%s: %w", key, err)
		}
		*target = &d
	}
	return patch, nil
}

func parseConsoleDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", raw)
}
