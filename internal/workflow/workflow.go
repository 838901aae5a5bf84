// Package workflow implements the Workflow Orchestrator (spec component L):
// a cyclic four-phase loop (review & claim, work, report, summary) driven by
// the FSM Engine and broadcast through the Bridge/Dispatcher.
package workflow

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jaakkos/orchestrator/internal/config"
	"github.com/jaakkos/orchestrator/internal/domain"
	"github.com/jaakkos/orchestrator/internal/fsm"
)

// Enqueuer is the subset of the Dispatcher the Workflow loop depends on.
type Enqueuer interface {
	Enqueue(domain.Message) (domain.Message, error)
}

// AgentSource is the subset of the Agent Registry needed for capability
// matching during the review & claim phase.
type AgentSource interface {
	ActiveAgents() []string
	Get(agentID string) (domain.Agent, bool)
}

// Orchestrator drives the fixed-cadence cycle loop.
type Orchestrator struct {
	engine   *fsm.Engine
	dispatch Enqueuer
	agents   AgentSource
	cfg      config.WorkflowConfig
	logger   *zap.SugaredLogger

	stopCh chan struct{}
	doneCh chan struct{}
}

// New wires an Orchestrator.
func New(engine *fsm.Engine, dispatch Enqueuer, agents AgentSource, cfg config.WorkflowConfig, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		dispatch: dispatch,
		agents:   agents,
		cfg:      cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run loops until ctx is cancelled, running one cycle per CycleIntervalSec.
// A fatal error in any phase aborts that cycle but not the loop (spec §4.12).
func (o *Orchestrator) Run(ctx context.Context) {
	defer close(o.doneCh)

	interval := time.Duration(o.cfg.CycleIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.RunCycle(ctx)
		}
	}
}

// Stop signals the loop to exit; call after cancelling the Run context.
func (o *Orchestrator) Stop() {
	close(o.stopCh)
	<-o.doneCh
}

// RunCycle executes the four phases once. A phase-level error is logged (not
// propagated) and ends the cycle, skipping the remaining phases, so the
// caller's loop continues with the next cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	if err := o.reviewAndClaim(ctx); err != nil {
		o.logger.Warnw("workflow: review & claim phase failed", "error", err)
		return
	}
	if err := o.work(ctx); err != nil {
		o.logger.Warnw("workflow: work phase failed", "error", err)
		return
	}
	if err := o.report(ctx); err != nil {
		o.logger.Warnw("workflow: report phase failed", "error", err)
		return
	}
	if err := o.summary(ctx); err != nil {
		o.logger.Warnw("workflow: summary phase failed", "error", err)
	}
}

// reviewAndClaim broadcasts available Contracts and assigns each one, in
// task-id order, to its best candidate (see bestCandidate). Task priority and
// the number of required capabilities play no part in the choice, and one
// agent may be assigned several Contracts in the same cycle.
func (o *Orchestrator) reviewAndClaim(ctx context.Context) error {
	tasks, errs := o.engine.List()
	for _, e := range errs {
		o.logger.Warnw("workflow: task list error", "error", e)
	}

	var contracts []*domain.Task
	for _, t := range tasks {
		if t.State == domain.TaskNew && t.IsContract() {
			contracts = append(contracts, t)
		}
	}
	if len(contracts) == 0 {
		return nil
	}

	if err := o.broadcastContracts(contracts); err != nil {
		return err
	}

	agentIDs := o.agents.ActiveAgents()
	for _, t := range contracts {
		best := o.bestCandidate(t, agentIDs)
		if best == "" {
			continue
		}
		if _, err := o.engine.Claim(t.ID, best); err != nil {
			o.logger.Warnw("workflow: auto-claim failed", "task", t.ID, "agent", best, "error", err)
		}
	}
	return nil
}

func (o *Orchestrator) broadcastContracts(contracts []*domain.Task) error {
	ids := make([]string, len(contracts))
	for i, t := range contracts {
		ids[i] = t.ID
	}
	msg := domain.Message{
		Sender:     domain.SenderSystem,
		Recipients: []string{"all"},
		Priority:   domain.PriorityNormal,
		Kind:       domain.KindSystemBroadcast,
		Body:       map[string]any{"contracts": ids, "phase": "review_and_claim"},
	}
	_, err := o.dispatch.Enqueue(msg)
	return err
}

// bestCandidate scores every eligible agent by the fraction of required
// capabilities it satisfies; equal scores go to the lowest agent id.
func (o *Orchestrator) bestCandidate(t *domain.Task, agentIDs []string) string {
	type scored struct {
		id    string
		score float64
	}
	var candidates []scored
	for _, id := range agentIDs {
		if !claimableByAgent(t.ClaimableBy, id) {
			continue
		}
		agent, ok := o.agents.Get(id)
		if !ok {
			continue
		}
		candidates = append(candidates, scored{id: id, score: skillMatchScore(t.RequiredCapabilities, agent.Capabilities)})
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})
	return candidates[0].id
}

func claimableByAgent(claimableBy []string, agentID string) bool {
	if len(claimableBy) == 0 {
		return true
	}
	for _, c := range claimableBy {
		if c == "*" || c == agentID {
			return true
		}
	}
	return false
}

func skillMatchScore(required, have []string) float64 {
	if len(required) == 0 {
		return 1.0
	}
	haveSet := make(map[string]bool, len(have))
	for _, c := range have {
		haveSet[c] = true
	}
	matched := 0
	for _, r := range required {
		if haveSet[r] {
			matched++
		}
	}
	return float64(matched) / float64(len(required))
}

// work transitions claimed tasks to in_progress and advances in_progress
// tasks by the configured increment, submitting tasks that reach 100% for
// review (spec §4.12 step 2). Blocker synthesis past the halfway mark is left to
// the owning agent raising Block explicitly; this loop only drives the
// deterministic progress increment.
func (o *Orchestrator) work(ctx context.Context) error {
	tasks, errs := o.engine.List()
	for _, e := range errs {
		o.logger.Warnw("workflow: task list error", "error", e)
	}

	increment := o.cfg.ProgressIncrement
	if increment <= 0 {
		increment = 20
	}

	for _, t := range tasks {
		switch t.State {
		case domain.TaskClaimed:
			if _, err := o.engine.Start(t.ID, t.Owner, func(id string) (*domain.Task, bool) {
				dep, err := o.engine.Get(id)
				if err != nil {
					return nil, false
				}
				return dep, true
			}); err != nil {
				o.logger.Warnw("workflow: auto-start failed", "task", t.ID, "error", err)
			}
		case domain.TaskInProgress:
			next := t.ProgressPercent + increment
			if next >= 100 {
				if err := o.engine.SetProgress(t.ID, 100); err != nil {
					o.logger.Warnw("workflow: progress update failed", "task", t.ID, "error", err)
					continue
				}
				if _, err := o.engine.SubmitForReview(t.ID, t.Owner); err != nil {
					o.logger.Warnw("workflow: auto-submit failed", "task", t.ID, "error", err)
				}
				continue
			}
			if err := o.engine.SetProgress(t.ID, next); err != nil {
				o.logger.Warnw("workflow: progress update failed", "task", t.ID, "error", err)
			}
		}
	}
	return nil
}

// report broadcasts an aggregated progress summary: counts by state and
// per-agent workload (spec §4.12 step 3).
func (o *Orchestrator) report(ctx context.Context) error {
	tasks, errs := o.engine.List()
	for _, e := range errs {
		o.logger.Warnw("workflow: task list error", "error", e)
	}

	byState := make(map[domain.TaskState]int)
	byAgent := make(map[string]int)
	for _, t := range tasks {
		byState[t.State]++
		if t.Owner != "" && !t.State.Terminal() {
			byAgent[t.Owner]++
		}
	}

	msg := domain.Message{
		Sender:     domain.SenderSystem,
		Recipients: []string{"all"},
		Priority:   domain.PriorityLow,
		Kind:       domain.KindSystemBroadcast,
		Body:       map[string]any{"by_state": byState, "by_agent": byAgent, "phase": "report"},
	}
	_, err := o.dispatch.Enqueue(msg)
	return err
}

// summary broadcasts a closing message for the cycle (spec §4.12 step 4).
func (o *Orchestrator) summary(ctx context.Context) error {
	msg := domain.Message{
		Sender:     domain.SenderSystem,
		Recipients: []string{"all"},
		Priority:   domain.PriorityLow,
		Kind:       domain.KindSystemBroadcast,
		Body:       map[string]any{"phase": "summary", "completed_at": time.Now().Format(time.RFC3339)},
	}
	_, err := o.dispatch.Enqueue(msg)
	return err
}
