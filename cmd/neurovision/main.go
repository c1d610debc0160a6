package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"neurovision/internal/app"
	"neurovision/pkg/config"
	"neurovision/pkg/logger"
	"neurovision/pkg/state"
	"neurovision/pkg/state/shutdown"
)

// set build metadata
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// load .env file if present
	_ = godotenv.Load(".env")

	flags, err := config.ParseConfigFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid flags: %v\n", err)
		os.Exit(2)
	}
	if !flags.Set["data"] {
		if root := state.ArtifactRoot(); root != "" {
			// packaged installs keep data beside the artifact
			flags.Data = filepath.Join(root, "data")
			flags.Set["data"] = true
		}
	}

	fileCfg, fileExists, err := config.ParseConfigFile(flags)
	if err != nil {
		shutdown.Abort("failed to load config file", err, flags.Data)
	}

	envCfg, _, err := config.ParseConfigEnvs()
	if err != nil {
		shutdown.Abort("failed to parse environment", err, flags.Data)
	}

	eff, err := config.LoadEffectiveConfig(flags, fileCfg, fileExists, envCfg)
	if err != nil {
		shutdown.Abort("failed to build effective config", err, flags.Data)
	}

	if err := config.ValidateConfig(eff); err != nil {
		shutdown.Abort("invalid configuration", err, eff.DataPath)
	}

	// initialize logger after config is fully loaded
	logger.Init(eff.Config.Logging.Level)
	defer logger.Sync()

	logger.Info("effective_config_loaded", "source", eff.Source, "addr", eff.Addr, "data_path", eff.DataPath)
	logger.Info("config_validation_passed")
	logger.Info("system_logical_cores", "logical_cores", runtime.NumCPU())

	if err := state.Init(eff.DataPath); err != nil {
		logger.Error("state_dirs_setup_failed", "error", err)
		shutdown.Abort(fmt.Sprintf("failed to ensure state directories under %s", eff.DataPath), err, eff.DataPath)
	}

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("failed to initialize app", err, eff.DataPath)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("app run failed", err, eff.DataPath)
	}

	// bounded so teardown cannot hang forever
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()
	_ = a.Shutdown(shutdownCtx)
}
