package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/bottingctl/internal/application"
	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/metrics"
	"github.com/spf13/cobra"
)

type runOptions struct {
	accounts     []string
	all          bool
	players      []string
	placeID      int64
	job          string
	private      bool
	accessCode   string
	launchData   string
	interval     time.Duration
	launchDelay  time.Duration
	retryBase    time.Duration
	retryCeiling time.Duration
	playerGrace  time.Duration
	metricsAddr  string
}

func newRunCmd(app *app) *cobra.Command {
	var opts runOptions
	defaults := app.config.Session

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a session and steer it from an interactive console",
		Long: "run launches one client per account, keeps relaunching them on the configured interval and reads console commands " +
			"from stdin (type help). Interrupting the process stops the session and leaves the clients running.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessionConfig, err := opts.sessionConfig(cmd.Context(), app)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if opts.metricsAddr != "" {
				shutdown, err := serveMetrics(opts.metricsAddr, app)
				if err != nil {
					return err
				}
				defer shutdown()
			}

			snapshot, err := app.manager.Start(ctx, application.StartCommand{Config: sessionConfig})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %s started: %d account(s), %d player(s), place %d\n",
				shortSessionID(snapshot.SessionID), len(snapshot.Config.Accounts), len(snapshot.Config.Players), snapshot.Config.PlaceID)

			return newConsole(app, cmd.OutOrStdout()).run(ctx, cmd.InOrStdin())
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&opts.accounts, "accounts", nil, "Account IDs to run, in launch order (comma separated)")
	flags.BoolVar(&opts.all, "all", false, "Run every registered account")
	flags.StringSliceVar(&opts.players, "players", nil, "Account IDs played by hand: launched once, never relaunched")
	flags.Int64Var(&opts.placeID, "place", 0, "Place ID to join")
	flags.StringVar(&opts.job, "job", "", "Job ID, private server link or share link (prefix vip: for private)")
	flags.BoolVar(&opts.private, "private", false, "Treat --job as a private server")
	flags.StringVar(&opts.accessCode, "access-code", "", "Private server access or link code")
	flags.StringVar(&opts.launchData, "launch-data", "", "Launch data passed to the client")
	flags.DurationVar(&opts.interval, "interval", defaults.RelaunchInterval, "Relaunch interval for non-player accounts")
	flags.DurationVar(&opts.launchDelay, "launch-delay", defaults.LaunchDelay, "Minimum spacing between two launches")
	flags.DurationVar(&opts.retryBase, "retry-base", defaults.RetryBase, "First backoff after a failed launch")
	flags.DurationVar(&opts.retryCeiling, "retry-ceiling", defaults.RetryCeiling, "Longest backoff after failed launches")
	flags.DurationVar(&opts.playerGrace, "player-grace", defaults.PlayerGrace, "Time a former player keeps its client before relaunch")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")
	_ = cmd.MarkFlagRequired("place")
	cmd.MarkFlagsMutuallyExclusive("accounts", "all")

	return cmd
}

func (o runOptions) sessionConfig(ctx context.Context, app *app) (domain.SessionConfig, error) {
	var accounts []domain.AccountID
	var err error
	if o.all {
		accounts, err = registeredAccountIDs(ctx, app)
	} else {
		accounts, err = parseAccountIDs(o.accounts...)
	}
	if err != nil {
		return domain.SessionConfig{}, err
	}
	if len(accounts) == 0 {
		return domain.SessionConfig{}, errors.New("no accounts selected: pass --accounts or --all")
	}

	players, err := parseAccountIDs(o.players...)
	if err != nil {
		return domain.SessionConfig{}, err
	}

	return domain.SessionConfig{
		Accounts:         accounts,
		Players:          players,
		PlaceID:          o.placeID,
		JobID:            o.job,
		PrivateServer:    o.private,
		AccessCode:       o.accessCode,
		LaunchData:       o.launchData,
		RelaunchInterval: o.interval,
		LaunchDelay:      o.launchDelay,
		RetryBase:        o.retryBase,
		RetryCeiling:     o.retryCeiling,
		PlayerGrace:      o.playerGrace,
	}, nil
}

// serveMetrics binds addr before returning so a busy port fails the command.
func serveMetrics(addr string, app *app) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("metrics server stopped", "error", err)
		}
	}()
	app.logger.Info("serving metrics", "addr", listener.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			app.logger.Error("metrics server shutdown", "error", err)
		}
	}, nil
}

func shortSessionID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
