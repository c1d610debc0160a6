package app

import (
	"context"

	"neurovision/pkg/state/shutdown"
)

func (a *App) Shutdown(ctx context.Context) error {
	a.state = "shutting_down"
	if a.baseCancel != nil {
		a.baseCancel()
	}
	err := shutdown.ShutdownApp(ctx, shutdown.Components{
		Server:          a.srvFast,
		RetentionCancel: a.retentionCancel,
		Sessions:        a.sessions,
		Gateway:         a.gateway,
		Sensor:          a.hwSensor,
		Archive:         a.archive,
	})
	if err == nil {
		a.state = "stopped"
	}
	return err
}
