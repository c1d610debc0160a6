package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/valyala/fasthttp"

	"neurovision/pkg/api"
	"neurovision/pkg/api/auth"
	"neurovision/pkg/api/router"
	adminRoutes "neurovision/pkg/api/routes/admin"
	frontendRoutes "neurovision/pkg/api/routes/frontend"
	"neurovision/pkg/logger"
)

// waitTimeout bounds ?wait=true message requests.
const waitTimeout = 30 * time.Second

// printBanner logs the startup summary and build info.
func (a *App) printBanner() {
	cfg := a.eff.Config
	verStr := a.version
	if a.commit != "none" && a.commit != "" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" && a.buildDate != "" {
		verStr += " @ " + a.buildDate
	}
	sc := cfg.Session
	items := []string{
		fmt.Sprintf("version: %s", verStr),
		fmt.Sprintf("addr: %s", a.eff.Addr),
		fmt.Sprintf("data_path: %s", a.eff.DataPath),
		fmt.Sprintf("config_source: %s", a.eff.Source),
		fmt.Sprintf("regions: %d", len(a.registry.Regions())),
		fmt.Sprintf("max_upload_size: %s", humanize.IBytes(uint64(cfg.Server.MaxUploadSize.Int64()))),
		fmt.Sprintf("max_sessions: %s", humanize.Comma(int64(sc.MaxSessions))),
		fmt.Sprintf("session_idle_ttl: %s", sc.IdleTTL.Duration()),
		fmt.Sprintf("session_sweep_interval: %s", sc.SweepInterval.Duration()),
		fmt.Sprintf("simulate_latency: %t", sc.LatencyEnabled()),
		fmt.Sprintf("archive_enabled: %t", cfg.Archive.Enabled),
		fmt.Sprintf("retention_enabled: %t", cfg.Retention.Enabled),
		fmt.Sprintf("sensor_disk_high_pct: %d", cfg.Sensor.DiskHighPct),
	}
	if sc.LatencyEnabled() {
		items = append(items,
			fmt.Sprintf("response_delay: %s ± %s", sc.ResponseDelay.Duration(), sc.ResponseJitter.Duration()),
			fmt.Sprintf("report_delay: %s", sc.ReportDelay.Duration()),
			fmt.Sprintf("processing_delay: %s", sc.ProcessingDelay.Duration()),
		)
	}
	logger.LogConfigSummary("neurovision_startup", items)
}

// readyzHandlerFast reports 503 until the archive (when enabled) is open,
// and while the archive disk is above its high-water mark.
func (a *App) readyzHandlerFast(ctx *fasthttp.RequestCtx) {
	if a.eff.Config.Archive.Enabled {
		if !a.archive.Ready() {
			router.WriteJSONStatus(ctx, fasthttp.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		if a.hwSensor.DiskPressure() {
			router.WriteJSONStatus(ctx, fasthttp.StatusServiceUnavailable, map[string]string{"status": "disk pressure"})
			return
		}
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	router.WriteJSONStatus(ctx, fasthttp.StatusOK, map[string]string{"status": "ok", "version": ver})
}

func (a *App) healthzHandlerFast(ctx *fasthttp.RequestCtx) {
	router.WriteJSONStatus(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
}

// handler builds the routed API behind the security gateway.
func (a *App) handler() fasthttp.RequestHandler {
	cfg := a.eff.Config
	secCfg := auth.SecConfig{
		AllowedOrigins: append([]string{}, cfg.Security.CORS.AllowedOrigins...),
		RPS:            cfg.Security.RateLimit.RPS,
		Burst:          cfg.Security.RateLimit.Burst,
		IPWhitelist:    append([]string{}, cfg.Security.IPWhitelist...),
		AdminKeys:      map[string]struct{}{},
	}
	for _, k := range cfg.Security.APIKeys.Admin {
		secCfg.AdminKeys[k] = struct{}{}
	}
	if a.gateway == nil {
		a.gateway = auth.NewGateway(secCfg)
	}

	admin := &adminRoutes.Handlers{Sessions: a.sessions, BaseContext: a.baseCtx}
	if a.archive != nil {
		admin.Archive = a.archive
	}
	if a.retention != nil {
		admin.Purger = a.retention
	}

	r := router.New()
	r.GET("/healthz", a.healthzHandlerFast)
	r.GET("/readyz", a.readyzHandlerFast)
	api.RegisterRoutes(r, api.Deps{
		Frontend: &frontendRoutes.Handlers{
			Sessions:    a.sessions,
			Registry:    a.registry,
			Resolver:    a.resolver,
			WaitTimeout: waitTimeout,
			BaseContext: a.baseCtx,
		},
		Admin: admin,
	})
	return a.gateway.Middleware(r.Handler)
}

// startHTTP builds and starts the fasthttp server, returning a channel that
// delivers its exit error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	const (
		readBufferSize       = 64 * 1024
		bodyMargin           = 64 * 1024 // multipart framing around the scan
		readTimeout          = 30 * time.Second
		writeTimeout         = 60 * time.Second // covers ?wait=true and report generation
		idleTimeout          = 30 * time.Second
		maxKeepaliveDuration = 2 * time.Minute
	)
	a.srvFast = &fasthttp.Server{
		Handler:              a.handler(),
		Name:                 "neurovision",
		ReadBufferSize:       readBufferSize,
		MaxRequestBodySize:   int(a.eff.Config.Server.MaxUploadSize.Int64()) + bodyMargin,
		ReduceMemoryUsage:    true,
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		MaxKeepaliveDuration: maxKeepaliveDuration,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listening", "addr", a.eff.Addr)
		errCh <- a.srvFast.ListenAndServe(a.eff.Addr)
	}()
	return errCh
}
