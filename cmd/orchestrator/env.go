package main

import (
	"os"
	"strconv"

	"github.com/jaakkos/orchestrator/internal/appwire"
	"github.com/jaakkos/orchestrator/internal/config"
)

// cliEnv defers flag lookups until Execute time, so every subcommand shares
// the same persistent-flag values regardless of registration order.
type cliEnv struct {
	configPathFn func() string
	dataRootFn   func() string
	modeFn       func() string
	workersFn    func() int
}

// loadConfig merges, in increasing precedence: defaults, the YAML file (if
// any), the environment variables of record, then CLI flags (spec §6:
// "Environment variables of record: a data root path, the selected mode,
// the worker count").
func (e *cliEnv) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(e.configPathFn())
	if err != nil {
		return nil, err
	}
	if v := os.Getenv("ORCHESTRATOR_DATA_ROOT"); v != "" {
		cfg.DataRoot = v
	}
	if v := os.Getenv("ORCHESTRATOR_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("ORCHESTRATOR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dispatcher.Workers = n
		}
	}
	if dr := e.dataRootFn(); dr != "" {
		cfg.DataRoot = dr
	}
	if m := e.modeFn(); m != "" {
		cfg.Mode = m
	}
	if w := e.workersFn(); w != 0 {
		cfg.Dispatcher.Workers = w
	}
	if err := os.MkdirAll(cfg.DataRoot, 0o755); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (e *cliEnv) build() (*appwire.App, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, configFailure(err)
	}
	app, err := appwire.Build(cfg)
	if err != nil {
		return nil, configFailure(err)
	}
	return app, nil
}
