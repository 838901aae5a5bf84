// Package appwire constructs a fully wired orchestrator instance from
// configuration, the construction graph shared by every entrypoint
// (cmd/orchestrator, cmd/mcp-server).
package appwire

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jaakkos/orchestrator/internal/bridge"
	"github.com/jaakkos/orchestrator/internal/config"
	"github.com/jaakkos/orchestrator/internal/delivery"
	"github.com/jaakkos/orchestrator/internal/designauthority"
	"github.com/jaakkos/orchestrator/internal/dispatch"
	"github.com/jaakkos/orchestrator/internal/domain"
	"github.com/jaakkos/orchestrator/internal/fsm"
	"github.com/jaakkos/orchestrator/internal/inbox"
	"github.com/jaakkos/orchestrator/internal/logging"
	"github.com/jaakkos/orchestrator/internal/prreview"
	"github.com/jaakkos/orchestrator/internal/projectregistry"
	"github.com/jaakkos/orchestrator/internal/registry"
	"github.com/jaakkos/orchestrator/internal/vibecheck"
	"github.com/jaakkos/orchestrator/internal/workflow"
)

// App holds every wired component. Fields are exported so CLI commands can
// reach into them directly.
type App struct {
	Config    *config.Config
	Logger    *zap.SugaredLogger
	Registry  *registry.Registry
	Adapter   delivery.Adapter
	Inbox     *inbox.Store
	FSMStore  *fsm.Store
	Engine    *fsm.Engine
	Tracker   *dispatch.StatusTracker
	receipts  *dispatch.SQLiteReceiptStore
	Dispatch  *dispatch.Dispatcher
	Bridge    *bridge.Bridge
	Project   *projectregistry.Registry
	Authority *designauthority.Authority
	Vibe      *vibecheck.Checker
	PR        *prreview.Protocol
	Workflow  *workflow.Orchestrator
}

// Build constructs every component and wires the FSM observer chain. cfg
// must already be loaded (config.LoadConfig / config.DefaultConfig).
func Build(cfg *config.Config) (*App, error) {
	logger, err := logging.New()
	if err != nil {
		return nil, fmt.Errorf("appwire: logger: %w", err)
	}

	reg := registry.New()
	reg.SetMode(cfg.Mode)
	for i, name := range cfg.Agents {
		reg.Register(domain.Agent{ID: name, Name: name, Status: domain.StatusIdle}, map[string]domain.AgentAddress{
			cfg.Mode: {Input: domain.Target{X: i, Y: 0}, Starter: domain.Target{X: i, Y: 1}},
		})
	}

	adapter := delivery.NewNoopAdapter()
	inboxStore := inbox.New(cfg.DataRoot)
	fsmStore := fsm.NewStore(cfg.DataRoot)
	engine := fsm.NewEngine(fsmStore)

	receiptsPath := filepath.Join(cfg.DataRoot, "receipts.db")
	receipts, err := dispatch.NewSQLiteReceiptStore(receiptsPath)
	if err != nil {
		return nil, fmt.Errorf("appwire: receipts store: %w", err)
	}
	tracker, err := dispatch.NewStatusTracker(receipts)
	if err != nil {
		return nil, fmt.Errorf("appwire: status tracker: %w", err)
	}

	dispatcher := dispatch.New(cfg.Dispatcher, reg, adapter, inboxStore, tracker, logger)

	br := bridge.New(engine, dispatcher, cfg.Bridge, logger)
	engine.Subscribe(br)

	project, err := projectregistry.New(cfg.DataRoot, "orchestrator")
	if err != nil {
		return nil, fmt.Errorf("appwire: project registry: %w", err)
	}
	authority := designauthority.New(project, cfg.DesignAuthority)
	vibe := vibecheck.New(cfg.VibeCheck)

	prProtocol, err := prreview.New(cfg.DataRoot, cfg.Agents, project, authority, vibe, cfg.PRReview)
	if err != nil {
		return nil, fmt.Errorf("appwire: pr review: %w", err)
	}

	wf := workflow.New(engine, dispatcher, reg, cfg.Workflow, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Registry:  reg,
		Adapter:   adapter,
		Inbox:     inboxStore,
		FSMStore:  fsmStore,
		Engine:    engine,
		Tracker:   tracker,
		receipts:  receipts,
		Dispatch:  dispatcher,
		Bridge:    br,
		Project:   project,
		Authority: authority,
		Vibe:      vibe,
		PR:        prProtocol,
		Workflow:  wf,
	}, nil
}

// Close releases resources held outside process memory (the receipts db).
func (a *App) Close() error {
	if a.receipts != nil {
		return a.receipts.Close()
	}
	return nil
}
