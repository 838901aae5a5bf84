// Package config implements the YAML-backed configuration for the orchestrator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// GlobalStateDir returns the default data root (~/.config/orchestrator).
func GlobalStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "orchestrator")
}

// DispatcherConfig controls the Message Dispatcher (component D).
type DispatcherConfig struct {
	Workers          int     `yaml:"workers"`            // worker pool size, default 4
	MaxAttempts      int     `yaml:"max_attempts"`       // default 3
	BaseBackoffMs    int     `yaml:"base_backoff_ms"`    // default 200
	MaxBackoffMs     int     `yaml:"max_backoff_ms"`     // default 5000
	CallTimeoutMs    int     `yaml:"call_timeout_ms"`    // per adapter call / fsync, default 2000
	ShutdownGraceSec int     `yaml:"shutdown_grace_sec"` // default 5
}

// BridgeConfig controls the FSM<->Messaging Bridge (component G).
type BridgeConfig struct {
	StaleCommunicationIntervalSec int `yaml:"stale_communication_interval_seconds"` // default 3600
}

// WorkflowConfig controls the Workflow Orchestrator (component L).
type WorkflowConfig struct {
	CycleIntervalSec  int `yaml:"cycle_interval_seconds"`  // default 3600 (one cycle per hour)
	ProgressIncrement int `yaml:"progress_increment"`      // default 20 (percent per in-progress tick)
}

// VibeCheckConfig controls the Vibe Check static analyzer (component J) thresholds.
type VibeCheckConfig struct {
	MaxFunctionLines  int  `yaml:"max_function_lines"`  // default 30
	MaxComplexity     int  `yaml:"max_complexity"`      // default 8
	MaxNestingDepth   int  `yaml:"max_nesting_depth"`   // default 3
	MaxParameters     int  `yaml:"max_parameters"`      // default 5
	MaxFileLines      int  `yaml:"max_file_lines"`      // default 300
	DuplicateMinLen   int  `yaml:"duplicate_min_len"`   // default 20
	DuplicateMaxCount int  `yaml:"duplicate_max_count"` // default 3
	StrictMode        bool `yaml:"strict_mode"`
}

// DesignAuthorityConfig controls component I's code-complexity thresholds.
type DesignAuthorityConfig struct {
	MaxFunctionLines int `yaml:"max_function_lines"` // default 30
	MaxNestingDepth  int `yaml:"max_nesting_depth"`   // default 3
	MaxParameters    int `yaml:"max_parameters"`      // default 5
}

// PRReviewConfig controls reviewer-fairness window sizing (component K).
type PRReviewConfig struct {
	ReviewHistoryWindow int `yaml:"review_history_window"` // default 20
}

// Config holds the complete orchestrator configuration.
type Config struct {
	DataRoot      string                 `yaml:"data_root"`
	Mode          string                 `yaml:"mode"`
	Agents        []string               `yaml:"agents"`
	Dispatcher    DispatcherConfig       `yaml:"dispatcher"`
	Bridge        BridgeConfig           `yaml:"bridge"`
	Workflow      WorkflowConfig         `yaml:"workflow"`
	VibeCheck     VibeCheckConfig        `yaml:"vibe_check"`
	DesignAuthority DesignAuthorityConfig `yaml:"design_authority"`
	PRReview      PRReviewConfig         `yaml:"pr_review"`

	mu sync.RWMutex
}

// DefaultConfig returns the documented defaults (spec §9 "soft thresholds").
func DefaultConfig() *Config {
	return &Config{
		DataRoot: GlobalStateDir(),
		Mode:     "2-agent",
		Agents:   []string{"Agent-1", "Agent-2"},
		Dispatcher: DispatcherConfig{
			Workers:          4,
			MaxAttempts:      3,
			BaseBackoffMs:    200,
			MaxBackoffMs:     5000,
			CallTimeoutMs:    2000,
			ShutdownGraceSec: 5,
		},
		Bridge: BridgeConfig{
			StaleCommunicationIntervalSec: 3600,
		},
		Workflow: WorkflowConfig{
			CycleIntervalSec:  3600,
			ProgressIncrement: 20,
		},
		VibeCheck: VibeCheckConfig{
			MaxFunctionLines:  30,
			MaxComplexity:     8,
			MaxNestingDepth:   3,
			MaxParameters:     5,
			MaxFileLines:      300,
			DuplicateMinLen:   20,
			DuplicateMaxCount: 3,
		},
		DesignAuthority: DesignAuthorityConfig{
			MaxFunctionLines: 30,
			MaxNestingDepth:  3,
			MaxParameters:    5,
		},
		PRReview: PRReviewConfig{
			ReviewHistoryWindow: 20,
		},
	}
}

// LoadConfig reads and merges a YAML config file over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SetMode changes the active mode at runtime (guarded; e.g. admin CLI command).
func (c *Config) SetMode(mode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Mode = mode
}

// GetMode returns the active mode.
func (c *Config) GetMode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Mode
}
