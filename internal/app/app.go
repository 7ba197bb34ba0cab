package app

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/mgnrega-portal/internal/cache"
	"github.com/bobmcallan/mgnrega-portal/internal/client"
	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/config"
	"github.com/bobmcallan/mgnrega-portal/internal/dashboard"
	"github.com/bobmcallan/mgnrega-portal/internal/export"
	"github.com/bobmcallan/mgnrega-portal/internal/handlers"
	"github.com/bobmcallan/mgnrega-portal/internal/mcp"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
	"github.com/bobmcallan/mgnrega-portal/internal/storage/badger"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Client   *client.MGNREGAClient
	Source   dashboard.Source
	Service  *dashboard.Service
	Storage  *badger.Manager
	Browser  *export.ChromeBrowser
	Exporter *export.Exporter

	// HTTP handlers
	PageHandler           *handlers.PageHandler
	HomeHandler           *handlers.HomeHandler
	DashboardHandler      *handlers.DashboardHandler
	APIHandler            *handlers.APIHandler
	HealthHandler         *handlers.HealthHandler
	VersionHandler        *handlers.VersionHandler
	UpstreamHealthHandler *handlers.UpstreamHealthHandler
	MCPHandler            *mcp.Handler
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	if err := a.initServices(); err != nil {
		a.Close()
		return nil, err
	}
	a.initHandlers()

	logger.Info().
		Str("source", cfg.Data.Source).
		Bool("snapshots", a.Storage != nil).
		Bool("export", a.Exporter != nil).
		Msg("application initialization complete")

	return a, nil
}

// initServices builds the data source, cache, snapshot store and exporter.
func (a *App) initServices() error {
	cfg := a.Config

	a.Client = client.NewMGNREGAClient(cfg.API.URL, cfg.API.GetTimeout())

	switch cfg.Data.Source {
	case "mock":
		fx := dashboard.DefaultFixture()
		if cfg.Data.FixturePath != "" {
			loaded, err := dashboard.LoadFixture(cfg.Data.FixturePath)
			if err != nil {
				return fmt.Errorf("failed to load fixture: %w", err)
			}
			fx = loaded
		}
		a.Source = dashboard.NewMockSource(fx, cfg.Data.GetMockDelay())
		a.Logger.Info().Int("districts", len(fx.Districts)).Msg("using mock district data")
	default:
		a.Source = dashboard.NewAPISource(a.Client)
		a.Logger.Info().Str("url", cfg.API.URL).Msg("using MGNREGA API")
	}

	var snapshots dashboard.SnapshotStore
	if cfg.Storage.Badger.Enabled {
		mgr, err := badger.NewManager(a.Logger, &cfg.Storage.Badger)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		a.Storage = mgr
		snapshots = mgr.Reports()
	}

	reportCache := cache.New[*models.Report](cfg.Cache.GetTTL(), cfg.Cache.MaxEntries)
	a.Service = dashboard.NewService(a.Source, reportCache, snapshots, a.Logger)

	if cfg.Export.Enabled {
		a.Browser = export.NewChromeBrowser(export.ChromeConfig{
			RemoteURL: cfg.Export.RemoteURL,
			ExecPath:  cfg.Export.ChromePath,
			Headless:  cfg.Export.Headless,
		}, a.Logger)
		a.Exporter = export.New(a.Browser, export.Options{
			Scale:   cfg.Export.Scale,
			Timeout: cfg.Export.GetTimeout(),
		}, a.Logger)
	}

	return nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.PageHandler = handlers.NewPageHandler(a.Logger, a.Config.IsDevMode())
	a.PageHandler.SetMCPEnabled(a.Config.MCP.Enabled)
	a.HomeHandler = handlers.NewHomeHandler(a.Logger, a.Service)
	a.APIHandler = handlers.NewAPIHandler(a.Logger, a.Service)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.Config.Data.Source)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)

	var exporter handlers.ReportExporter
	if a.Exporter != nil {
		exporter = a.Exporter
	}
	a.DashboardHandler = handlers.NewDashboardHandler(a.Logger, a.Service, exporter)

	var pinger handlers.Pinger
	if a.Config.Data.Source != "mock" {
		pinger = a.Client
	}
	a.UpstreamHealthHandler = handlers.NewUpstreamHealthHandler(a.Logger, pinger, a.Config.Data.Source)

	if a.Config.MCP.Enabled {
		a.MCPHandler = mcp.NewHandler(a.Service, a.Logger)
	}

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	if a.Browser != nil {
		a.Browser.Close()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close snapshot store: %w", err)
		}
	}
	return nil
}
