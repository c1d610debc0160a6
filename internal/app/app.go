package app

import (
	"context"
	"fmt"

	"github.com/valyala/fasthttp"

	"neurovision/internal/retention"
	"neurovision/pkg/api/auth"
	"neurovision/pkg/config"
	"neurovision/pkg/registry"
	"neurovision/pkg/resolver"
	"neurovision/pkg/sensor"
	"neurovision/pkg/session"
	"neurovision/pkg/state"
	"neurovision/pkg/store"
)

// App groups server state and components.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string
	paths     state.Paths

	registry  *registry.Registry
	resolver  *resolver.Resolver
	sessions  *session.Manager
	archive   *store.Store
	retention *retention.Manager
	gateway   *auth.Gateway
	hwSensor  *sensor.Sensor

	retentionCancel context.CancelFunc
	srvFast         *fasthttp.Server
	state           string

	// baseCtx parents blocking request waits; cancelled on Shutdown.
	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// New sets up resources that don't need a running context: config
// validation, the report archive and the session manager. It does not start
// the http server; call Run for that.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	if err := config.ValidateConfig(eff); err != nil {
		return nil, err
	}
	cfg := eff.Config

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		paths:     state.PathsFor(eff.DataPath),
		registry:  registry.Default(),
		state:     "initialized",
	}
	a.resolver = resolver.New(a.registry)
	a.baseCtx, a.baseCancel = context.WithCancel(context.Background())

	if cfg.Archive.Enabled {
		if err := state.EnsureStateDirs(a.paths); err != nil {
			return nil, err
		}
		archive, err := store.Open(a.paths.Store, store.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to open pebble at %s: %w", a.paths.Store, err)
		}
		a.archive = archive
		a.retention = retention.New(cfg.Retention, archive, a.paths.Retention)
	}

	a.sessions = session.NewManager(sessionOptions(cfg, a))
	a.hwSensor = sensor.NewSensor(sensor.MonitorConfig{
		Path:           eff.DataPath,
		PollInterval:   cfg.Sensor.PollInterval.Duration(),
		DiskHighPct:    cfg.Sensor.DiskHighPct,
		DiskLowPct:     cfg.Sensor.DiskLowPct,
		MemHighPct:     cfg.Sensor.MemHighPct,
		RecoveryWindow: cfg.Sensor.RecoveryWindow.Duration(),
	})
	return a, nil
}

// sessionOptions maps the session config onto manager options. With
// simulated latency off every delay is zero.
func sessionOptions(cfg *config.Config, a *App) session.Options {
	sc := cfg.Session
	opts := session.Options{
		MaxUploadSize: cfg.Server.MaxUploadSize.Int64(),
		IdleTTL:       sc.IdleTTL.Duration(),
		MaxSessions:   sc.MaxSessions,
		Registry:      a.registry,
		Resolver:      a.resolver,
	}
	if sc.LatencyEnabled() {
		opts.ResponseDelay = sc.ResponseDelay.Duration()
		opts.ResponseJitter = sc.ResponseJitter.Duration()
		opts.ReportDelay = sc.ReportDelay.Duration()
		opts.ProcessingDelay = sc.ProcessingDelay.Duration()
	}
	// a nil *store.Store must not become a non-nil Archiver
	if a.archive != nil {
		opts.Archiver = a.archive
	}
	return opts
}

// Run starts background work and the http server, and blocks until ctx is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	if a.retention != nil {
		rctx, cancel := context.WithCancel(ctx)
		a.retentionCancel = cancel
		a.retention.Start(rctx)
	}

	a.sessions.StartSweeper(a.eff.Config.Session.SweepInterval.Duration())
	a.hwSensor.Start()

	errCh := a.startHTTP(ctx)
	a.state = "running"

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}
