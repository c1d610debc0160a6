package shutdown

import (
	"context"

	"github.com/valyala/fasthttp"

	"neurovision/pkg/api/auth"
	"neurovision/pkg/logger"
	"neurovision/pkg/sensor"
	"neurovision/pkg/session"
	"neurovision/pkg/store"
)

// Components are the long-lived pieces torn down by ShutdownApp. Nil fields
// are skipped.
type Components struct {
	Server          *fasthttp.Server
	RetentionCancel context.CancelFunc
	Sessions        *session.Manager
	Gateway         *auth.Gateway
	Sensor          *sensor.Sensor
	Archive         *store.Store
}

// ShutdownApp stops accepting requests, then stops background work, then
// closes the archive. Errors are logged; the first one is returned.
func ShutdownApp(ctx context.Context, c Components) error {
	logger.Info("shutdown_requested")
	var first error

	// stop accepting new requests
	if c.Server != nil {
		logger.Info("shutdown_stopping_http")
		done := make(chan error, 1)
		go func() { done <- c.Server.Shutdown() }()
		var err error
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		if err != nil {
			logger.Error("shutdown_http_error", "error", err)
			first = err
		}
	}

	if c.RetentionCancel != nil {
		logger.Info("shutdown_stopping_retention")
		c.RetentionCancel()
	}

	// cancels pending responses and report generation
	if c.Sessions != nil {
		logger.Info("shutdown_closing_sessions", "active", c.Sessions.Len())
		c.Sessions.Close()
	}

	if c.Gateway != nil {
		c.Gateway.Close()
	}

	if c.Sensor != nil {
		logger.Info("shutdown_stopping_sensor")
		c.Sensor.Stop()
	}

	if c.Archive != nil {
		logger.Info("shutdown_closing_archive", "path", c.Archive.Path())
		if err := c.Archive.Close(); err != nil {
			logger.Error("shutdown_archive_close_error", "error", err)
			if first == nil {
				first = err
			}
		}
	}

	logger.Info("shutdown_complete")
	return first
}
