package config

import (
	"fmt"
	"strings"

	"github.com/adhocore/gronx"
)

// ValidateConfig fails fast on configuration that cannot run.
func ValidateConfig(eff EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}
	if strings.TrimSpace(eff.DataPath) == "" {
		return fmt.Errorf("data path is empty: set --data flag, NEUROVISION_DATA_PATH env, or server.data_path in config")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", cfg.Server.Port)
	}
	if cfg.Session.ResponseJitter.Duration() < 0 {
		return fmt.Errorf("session.response_jitter must not be negative")
	}
	if cfg.Session.IdleTTL.Duration() < cfg.Session.SweepInterval.Duration() {
		return fmt.Errorf("session.idle_ttl (%s) must be at least session.sweep_interval (%s)",
			cfg.Session.IdleTTL.Duration(), cfg.Session.SweepInterval.Duration())
	}

	sn := cfg.Sensor
	for name, v := range map[string]int{"disk_high_pct": sn.DiskHighPct, "disk_low_pct": sn.DiskLowPct, "mem_high_pct": sn.MemHighPct} {
		if v < 0 || v > 100 {
			return fmt.Errorf("sensor.%s must be between 0 and 100, got %d", name, v)
		}
	}
	if sn.DiskLowPct > sn.DiskHighPct {
		return fmt.Errorf("sensor.disk_low_pct (%d) must not exceed sensor.disk_high_pct (%d)", sn.DiskLowPct, sn.DiskHighPct)
	}

	ret := cfg.Retention
	if ret.Enabled {
		if !cfg.Archive.Enabled {
			return fmt.Errorf("retention.enabled requires archive.enabled")
		}
		if !gronx.New().IsValid(ret.Cron) {
			return fmt.Errorf("invalid retention.cron: not a valid cron expression")
		}
		if ret.Period.Duration() <= 0 {
			return fmt.Errorf("retention.period must be positive")
		}
	}
	return nil
}
