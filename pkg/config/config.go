package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults
const (
	defaultPort          = 8080
	defaultDataPath      = "./.neurovision"
	defaultMaxUploadSize = 10 * 1024 * 1024 // 10 MiB, as advertised by the upload panel

	defaultRateRPS   = 50
	defaultRateBurst = 100

	defaultSessionIdleTTL       = 30 * time.Minute
	defaultSessionSweepInterval = time.Minute
	defaultMaxSessions          = 10000
	defaultResponseDelay        = 800 * time.Millisecond
	defaultReportDelay          = 2500 * time.Millisecond
	defaultProcessingDelay      = 2000 * time.Millisecond

	defaultRetentionCron   = "0 2 * * *" // daily at 02:00
	defaultRetentionPeriod = 30 * 24 * time.Hour

	defaultSensorPoll     = 30 * time.Second
	defaultDiskHighPct    = 90
	defaultDiskLowPct     = 80
	defaultMemHighPct     = 90
	defaultSensorRecovery = 5 * time.Minute
)

// Addr returns the HTTP server address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults fills in missing values. Zero durations mean "use the default".
func (c *Config) ApplyDefaults() {
	if c.Server.DataPath == "" {
		c.Server.DataPath = defaultDataPath
	}
	if c.Server.MaxUploadSize <= 0 {
		c.Server.MaxUploadSize = SizeBytes(defaultMaxUploadSize)
	}

	// security defaults: rate limiting
	if c.Security.RateLimit.RPS <= 0 {
		c.Security.RateLimit.RPS = defaultRateRPS
	}
	if c.Security.RateLimit.Burst <= 0 {
		c.Security.RateLimit.Burst = defaultRateBurst
	}

	// session defaults
	s := &c.Session
	if s.IdleTTL.Duration() == 0 {
		s.IdleTTL = Duration(defaultSessionIdleTTL)
	}
	if s.SweepInterval.Duration() == 0 {
		s.SweepInterval = Duration(defaultSessionSweepInterval)
	}
	if s.MaxSessions <= 0 {
		s.MaxSessions = defaultMaxSessions
	}
	if s.ResponseDelay.Duration() == 0 {
		s.ResponseDelay = Duration(defaultResponseDelay)
	}
	if s.ReportDelay.Duration() == 0 {
		s.ReportDelay = Duration(defaultReportDelay)
	}
	if s.ProcessingDelay.Duration() == 0 {
		s.ProcessingDelay = Duration(defaultProcessingDelay)
	}

	// retention defaults
	if c.Retention.Cron == "" {
		c.Retention.Cron = defaultRetentionCron
	}
	if c.Retention.Period.Duration() == 0 {
		c.Retention.Period = Duration(defaultRetentionPeriod)
	}

	// sensor defaults
	sn := &c.Sensor
	if sn.PollInterval.Duration() == 0 {
		sn.PollInterval = Duration(defaultSensorPoll)
	}
	if sn.DiskHighPct == 0 {
		sn.DiskHighPct = defaultDiskHighPct
	}
	if sn.DiskLowPct == 0 {
		sn.DiskLowPct = defaultDiskLowPct
	}
	if sn.MemHighPct == 0 {
		sn.MemHighPct = defaultMemHighPct
	}
	if sn.RecoveryWindow.Duration() == 0 {
		sn.RecoveryWindow = Duration(defaultSensorRecovery)
	}
}

// ResolveConfigPath returns the config file path, preferring flag, then env.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("NEUROVISION_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
