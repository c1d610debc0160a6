package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
)

// holds parsed command-line flag values and which were set
type Flags struct {
	Addr   string
	Data   string
	Config string
	Set    map[string]bool
}

// holds the result of LoadEffectiveConfig
type EffectiveConfigResult struct {
	Config   *Config
	Addr     string
	DataPath string
	Source   string // "flags", "config", or "env"
}

// ParseConfigFlags parses command-line args. Only three values can be passed
// as flags; everything else comes from the config file or env.
func ParseConfigFlags(args []string) (Flags, error) {
	set := flag.NewFlagSet("neurovision", flag.ContinueOnError)
	addrPtr := set.String("addr", ":8080", "HTTP listen address")
	dataPtr := set.String("data", defaultDataPath, "data directory (report archive, state)")
	cfgPtr := set.String("config", "./config.yaml", "Path to config file")
	if err := set.Parse(args); err != nil {
		return Flags{}, err
	}

	// record which flags were set explicitly
	setFlags := make(map[string]bool)
	set.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	return Flags{Addr: *addrPtr, Data: *dataPtr, Config: *cfgPtr, Set: setFlags}, nil
}

// ParseConfigFile loads the config file, returning config, found bool, and error.
// A missing file is not an error unless --config was given explicitly.
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := LoadConfigFile(cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// ParseConfigEnvs loads NEUROVISION_* environment variables into a new Config.
func ParseConfigEnvs() (*Config, bool, error) {
	envs := map[string]string{
		"ADDR":            os.Getenv("NEUROVISION_ADDR"),
		"SERVER_ADDRESS":  os.Getenv("NEUROVISION_SERVER_ADDRESS"),
		"SERVER_PORT":     os.Getenv("NEUROVISION_SERVER_PORT"),
		"DATA_PATH":       os.Getenv("NEUROVISION_DATA_PATH"),
		"MAX_UPLOAD_SIZE": os.Getenv("NEUROVISION_MAX_UPLOAD_SIZE"),

		"CORS_ORIGINS":   os.Getenv("NEUROVISION_CORS_ORIGINS"),
		"RATE_RPS":       os.Getenv("NEUROVISION_RATE_RPS"),
		"RATE_BURST":     os.Getenv("NEUROVISION_RATE_BURST"),
		"IP_WHITELIST":   os.Getenv("NEUROVISION_IP_WHITELIST"),
		"API_ADMIN_KEYS": os.Getenv("NEUROVISION_API_ADMIN_KEYS"),

		"LOG_LEVEL": os.Getenv("NEUROVISION_LOG_LEVEL"),

		"SESSION_IDLE_TTL":         os.Getenv("NEUROVISION_SESSION_IDLE_TTL"),
		"SESSION_SWEEP_INTERVAL":   os.Getenv("NEUROVISION_SESSION_SWEEP_INTERVAL"),
		"SESSION_MAX":              os.Getenv("NEUROVISION_SESSION_MAX"),
		"SESSION_SIMULATE_LATENCY": os.Getenv("NEUROVISION_SESSION_SIMULATE_LATENCY"),
		"SESSION_RESPONSE_DELAY":   os.Getenv("NEUROVISION_SESSION_RESPONSE_DELAY"),
		"SESSION_RESPONSE_JITTER":  os.Getenv("NEUROVISION_SESSION_RESPONSE_JITTER"),
		"SESSION_REPORT_DELAY":     os.Getenv("NEUROVISION_SESSION_REPORT_DELAY"),
		"SESSION_PROCESSING_DELAY": os.Getenv("NEUROVISION_SESSION_PROCESSING_DELAY"),

		"ARCHIVE_ENABLED": os.Getenv("NEUROVISION_ARCHIVE_ENABLED"),

		"RETENTION_ENABLED": os.Getenv("NEUROVISION_RETENTION_ENABLED"),
		"RETENTION_CRON":    os.Getenv("NEUROVISION_RETENTION_CRON"),
		"RETENTION_PERIOD":  os.Getenv("NEUROVISION_RETENTION_PERIOD"),
		"RETENTION_DRY_RUN": os.Getenv("NEUROVISION_RETENTION_DRY_RUN"),
	}

	// check if any env was set
	envUsed := false
	for _, v := range envs {
		if v != "" {
			envUsed = true
			break
		}
	}
	envCfg := &Config{}
	var errs []error

	parseList := func(v string) []string {
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}
	parseBool := func(v string) bool {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes":
			return true
		default:
			return false
		}
	}
	parseInt := func(name, v string) int {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("NEUROVISION_%s: %w", name, err))
		}
		return n
	}
	parseDur := func(name, v string) Duration {
		d, err := ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("NEUROVISION_%s: %w", name, err))
		}
		return d
	}

	// address: a full host:port wins over the split variables
	if v := envs["ADDR"]; v != "" {
		if h, p, err := net.SplitHostPort(v); err == nil {
			envCfg.Server.Address = h
			envCfg.Server.Port = parseInt("ADDR", p)
		} else {
			envCfg.Server.Address = v
		}
	} else {
		if host := envs["SERVER_ADDRESS"]; host != "" {
			envCfg.Server.Address = host
		}
		if port := envs["SERVER_PORT"]; port != "" {
			envCfg.Server.Port = parseInt("SERVER_PORT", port)
		}
	}
	if v := envs["DATA_PATH"]; v != "" {
		envCfg.Server.DataPath = v
	}
	if v := envs["MAX_UPLOAD_SIZE"]; v != "" {
		size, err := ParseSizeBytes(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("NEUROVISION_MAX_UPLOAD_SIZE: %w", err))
		}
		envCfg.Server.MaxUploadSize = size
	}

	if v := envs["CORS_ORIGINS"]; v != "" {
		envCfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := envs["RATE_RPS"]; v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("NEUROVISION_RATE_RPS: %w", err))
		}
		envCfg.Security.RateLimit.RPS = f
	}
	if v := envs["RATE_BURST"]; v != "" {
		envCfg.Security.RateLimit.Burst = parseInt("RATE_BURST", v)
	}
	if v := envs["IP_WHITELIST"]; v != "" {
		envCfg.Security.IPWhitelist = parseList(v)
	}
	if v := envs["API_ADMIN_KEYS"]; v != "" {
		envCfg.Security.APIKeys.Admin = parseList(v)
	}

	if v := envs["LOG_LEVEL"]; v != "" {
		envCfg.Logging.Level = strings.TrimSpace(v)
	}

	if v := envs["SESSION_IDLE_TTL"]; v != "" {
		envCfg.Session.IdleTTL = parseDur("SESSION_IDLE_TTL", v)
	}
	if v := envs["SESSION_SWEEP_INTERVAL"]; v != "" {
		envCfg.Session.SweepInterval = parseDur("SESSION_SWEEP_INTERVAL", v)
	}
	if v := envs["SESSION_MAX"]; v != "" {
		envCfg.Session.MaxSessions = parseInt("SESSION_MAX", v)
	}
	if v := envs["SESSION_SIMULATE_LATENCY"]; v != "" {
		b := parseBool(v)
		envCfg.Session.SimulateLatency = &b
	}
	if v := envs["SESSION_RESPONSE_DELAY"]; v != "" {
		envCfg.Session.ResponseDelay = parseDur("SESSION_RESPONSE_DELAY", v)
	}
	if v := envs["SESSION_RESPONSE_JITTER"]; v != "" {
		envCfg.Session.ResponseJitter = parseDur("SESSION_RESPONSE_JITTER", v)
	}
	if v := envs["SESSION_REPORT_DELAY"]; v != "" {
		envCfg.Session.ReportDelay = parseDur("SESSION_REPORT_DELAY", v)
	}
	if v := envs["SESSION_PROCESSING_DELAY"]; v != "" {
		envCfg.Session.ProcessingDelay = parseDur("SESSION_PROCESSING_DELAY", v)
	}

	if v := envs["ARCHIVE_ENABLED"]; v != "" {
		envCfg.Archive.Enabled = parseBool(v)
	}

	if v := envs["RETENTION_ENABLED"]; v != "" {
		envCfg.Retention.Enabled = parseBool(v)
	}
	if v := envs["RETENTION_CRON"]; v != "" {
		envCfg.Retention.Cron = v
	}
	if v := envs["RETENTION_PERIOD"]; v != "" {
		envCfg.Retention.Period = parseDur("RETENTION_PERIOD", v)
	}
	if v := envs["RETENTION_DRY_RUN"]; v != "" {
		envCfg.Retention.DryRun = parseBool(v)
	}

	return envCfg, envUsed, errors.Join(errs...)
}

// LoadEffectiveConfig decides which single source to use and returns the
// effective config plus resolved addr and data path. If --config is set, only
// the config file is used; otherwise flags if set (over file or env); else the
// config file if present; else env.
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	if flags.Set["config"] {
		if !fileExists {
			return res, fmt.Errorf("config file %s not found", flags.Config)
		}
		res.Config = fileCfg
		res.Source = "config"
	} else if flags.Set["addr"] || flags.Set["data"] {
		base := envCfg
		if fileExists {
			base = fileCfg
		}
		out := *base
		if flags.Set["addr"] {
			host, port := splitAddr(flags.Addr)
			out.Server.Address = host
			out.Server.Port = port
		}
		if flags.Set["data"] {
			out.Server.DataPath = flags.Data
		}
		res.Config = &out
		res.Source = "flags"
	} else if fileExists {
		res.Config = fileCfg
		res.Source = "config"
	} else {
		res.Config = envCfg
		res.Source = "env"
	}

	res.Config.ApplyDefaults()
	res.Addr = res.Config.Addr()
	res.DataPath = res.Config.Server.DataPath
	return res, nil
}

// splits host:port, tolerating a missing host (":8080")
func splitAddr(a string) (string, int) {
	h, p, err := net.SplitHostPort(a)
	if err != nil {
		return a, 0
	}
	pi, err := strconv.Atoi(p)
	if err != nil {
		return h, 0
	}
	return h, pi
}
