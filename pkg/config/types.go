package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
	Session   SessionConfig   `yaml:"session"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Retention RetentionConfig `yaml:"retention"`
	Sensor    SensorConfig    `yaml:"sensor"`
}

// ServerConfig holds http listener and data directory settings.
type ServerConfig struct {
	Address       string    `yaml:"address"`
	Port          int       `yaml:"port"`
	DataPath      string    `yaml:"data_path"`
	MaxUploadSize SizeBytes `yaml:"max_upload_size"`
}

// SecurityConfig holds CORS, rate limiting and admin key settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
	APIKeys     struct {
		Admin []string `yaml:"admin"`
	} `yaml:"api_keys"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SessionConfig controls session lifetime and the simulated latency of the assistant.
type SessionConfig struct {
	IdleTTL       Duration `yaml:"idle_ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
	MaxSessions   int      `yaml:"max_sessions"`
	// SimulateLatency toggles every artificial delay below. Defaults to true.
	SimulateLatency *bool    `yaml:"simulate_latency"`
	ResponseDelay   Duration `yaml:"response_delay"`
	ResponseJitter  Duration `yaml:"response_jitter"`
	ReportDelay     Duration `yaml:"report_delay"`
	ProcessingDelay Duration `yaml:"processing_delay"`
}

// LatencyEnabled reports whether simulated delays are on.
func (s SessionConfig) LatencyEnabled() bool {
	return s.SimulateLatency == nil || *s.SimulateLatency
}

// ArchiveConfig controls the pebble-backed report archive.
type ArchiveConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RetentionConfig holds configuration for the archive purge runner.
type RetentionConfig struct {
	Enabled bool     `yaml:"enabled"`
	Cron    string   `yaml:"cron"`
	Period  Duration `yaml:"period"`
	DryRun  bool     `yaml:"dry_run"`
}

// SensorConfig controls the resource sensor watching the data path.
type SensorConfig struct {
	PollInterval   Duration `yaml:"poll_interval"`
	DiskHighPct    int      `yaml:"disk_high_pct"`
	DiskLowPct     int      `yaml:"disk_low_pct"`
	MemHighPct     int      `yaml:"mem_high_pct"`
	RecoveryWindow Duration `yaml:"recovery_window"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "10MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	v, err := ParseSizeBytes(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSizeBytes parses "10MB", "512KiB" or a plain byte count.
func ParseSizeBytes(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

func (s SizeBytes) String() string { return humanize.Bytes(uint64(s)) }

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	v, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDuration parses a Go duration string or a number of seconds.
func ParseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return Duration(td), nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(f * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("invalid duration value: %q", raw)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
