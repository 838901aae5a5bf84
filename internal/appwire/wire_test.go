package appwire

import (
	"testing"

	"github.com/jaakkos/orchestrator/internal/config"
)

func TestBuildWiresEveryComponent(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataRoot = t.TempDir()
	cfg.Mode = "test"

	app, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.Registry == nil || app.Adapter == nil || app.Inbox == nil || app.Engine == nil ||
		app.Tracker == nil || app.Dispatch == nil || app.Bridge == nil || app.Project == nil ||
		app.Authority == nil || app.Vibe == nil || app.PR == nil || app.Workflow == nil {
		t.Fatalf("Build left a component nil: %+v", app)
	}

	for _, agent := range cfg.Agents {
		if _, ok := app.Registry.Get(agent); !ok {
			t.Fatalf("Registry missing configured agent %q", agent)
		}
	}
}

func TestBuildRegistersFSMBridgeObserver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataRoot = t.TempDir()
	cfg.Mode = "test"

	app, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	task, err := app.Engine.CreateTask("t", "d", "normal", nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := app.Engine.Claim(task.ID, cfg.Agents[0]); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !contains(app.Bridge.CoordinatedAgents(), cfg.Agents[0]) {
		t.Fatalf("CoordinatedAgents = %v, want %q (Bridge subscribed to Engine events)", app.Bridge.CoordinatedAgents(), cfg.Agents[0])
	}
}

func TestCloseIsSafeToCallOnce(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataRoot = t.TempDir()
	app, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
