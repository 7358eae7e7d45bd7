package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bnema/bottingctl/internal/adapters/gameapi"
	"github.com/bnema/bottingctl/internal/adapters/process"
	statusadapter "github.com/bnema/bottingctl/internal/adapters/render/status"
	tomlrepo "github.com/bnema/bottingctl/internal/adapters/repo/toml"
	chainstore "github.com/bnema/bottingctl/internal/adapters/secrets/chain"
	"github.com/bnema/bottingctl/internal/application"
	"github.com/bnema/bottingctl/internal/config"
	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/launch"
	"github.com/bnema/bottingctl/internal/platform/logging"
	"github.com/bnema/bottingctl/internal/ports"
	"github.com/bnema/bottingctl/internal/tracker"
	"github.com/jonboulle/clockwork"
)

type app struct {
	config         *config.Config
	logger         *slog.Logger
	service        *application.Service
	snapshots      ports.SnapshotRepository
	resolver       *launch.Resolver
	manager        *application.Manager
	statusRenderer func(domain.SessionSnapshot, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	v, err := config.NewViper()
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}
	snapshots, err := tomlrepo.NewSnapshotRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire status repository: %w", err)
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(cfg.Secrets.Dir, cfg.Secrets.UsePass)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}
	service := application.NewService(repo, secretStore)

	classifier := cfg.Detection.Classifier()
	client := gameapi.Client{
		HTTPClient:     http.DefaultClient,
		RequestTimeout: cfg.API.RequestTimeout,
		Classifier:     classifier,
	}
	resolver := launch.NewResolver(gameapi.NewShareLinkResolver(cfg.API.ShareLinksBaseURL, client, logger))

	clock := clockwork.NewRealClock()
	host := process.NewHost(cfg.Client.ProcessName)

	manager := application.NewManager(application.Dependencies{
		Registry:  service,
		Tickets:   gameapi.NewTicketIssuer(cfg.API.AuthBaseURL, client),
		Resolver:  resolver,
		Launcher:  process.NewLauncher(cfg.Client.Executable, cfg.Client.PlaceLauncherURL, clock, logger),
		Tracker:   tracker.New(host, clock, logger, tracker.Options{Classifier: classifier}),
		Publisher: snapshots,
		Clock:     clock,
		Logger:    logger,
	}, application.Options{})

	return &app{
		config:         cfg,
		logger:         logger,
		service:        service,
		snapshots:      snapshots,
		resolver:       resolver,
		manager:        manager,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}
