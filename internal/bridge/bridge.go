// Package bridge implements the FSM<->Messaging Bridge (spec component G):
// it translates FSM events into addressed messages and maintains the
// coordinated-agent set and task-channel map. It holds no authoritative
// state of its own; everything it caches can be rebuilt from the FSM at any
// time (spec §3 "Lifecycle and ownership").
package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jaakkos/orchestrator/internal/config"
	"github.com/jaakkos/orchestrator/internal/domain"
	"github.com/jaakkos/orchestrator/internal/fsm"
)

// Enqueuer is the subset of the Dispatcher the Bridge depends on.
type Enqueuer interface {
	Enqueue(domain.Message) (domain.Message, error)
}

// Bridge subscribes to fsm.Engine events and enqueues messages via Enqueuer.
type Bridge struct {
	engine    *fsm.Engine
	dispatch  Enqueuer
	cfg       config.BridgeConfig
	logger    *zap.SugaredLogger

	mu          sync.RWMutex
	coordinated map[string]bool
	channels    map[string]string
	errorCount  int
}

// New wires a Bridge to engine and dispatch. Call engine.Subscribe(bridge)
// separately once construction is complete.
func New(engine *fsm.Engine, dispatch Enqueuer, cfg config.BridgeConfig, logger *zap.SugaredLogger) *Bridge {
	return &Bridge{
		engine:      engine,
		dispatch:    dispatch,
		cfg:         cfg,
		logger:      logger,
		coordinated: make(map[string]bool),
		channels:    make(map[string]string),
	}
}

// CoordinatedAgents returns the set of agents currently owning a non-terminal task.
func (b *Bridge) CoordinatedAgents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.coordinated))
	for a := range b.coordinated {
		out = append(out, a)
	}
	return out
}

// TaskChannel returns (creating if needed) the logical channel name for taskID.
func (b *Bridge) TaskChannel(taskID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.channels[taskID]; ok {
		return ch
	}
	ch := "task/" + taskID
	b.channels[taskID] = ch
	return ch
}

// ErrorCount returns the number of Bridge-internal errors observed so far
// (counted and logged, never propagated back into the FSM; spec §4.6/§7).
func (b *Bridge) ErrorCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.errorCount
}

func (b *Bridge) noteError(context string, err error) {
	b.mu.Lock()
	b.errorCount++
	b.mu.Unlock()
	if b.logger != nil {
		b.logger.Warnw("bridge: internal error", "context", context, "error", err)
	}
}

// OnTaskEvent implements fsm.Observer.
func (b *Bridge) OnTaskEvent(event string, task domain.Task, prevState domain.TaskState) {
	b.TaskChannel(task.ID)
	b.updateCoordination(task)

	switch event {
	case "task_created":
		b.emitTaskCreated(task)
	case "claimed", "start":
		b.emitStatusUpdate(task, "owner notified")
	case "blocked":
		b.emitBlocked(task)
	case "review":
		b.emitReview(task)
	case "completed":
		b.emitCompleted(task)
	}
}

func (b *Bridge) updateCoordination(task domain.Task) {
	if task.State.Terminal() {
		// The owner may still hold other non-terminal tasks.
		b.RebuildCoordination()
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if task.Owner != "" {
		b.coordinated[task.Owner] = true
	}
}

// RebuildCoordination recomputes the coordinated-agent set from the FSM's
// current tasks, proving testable property 10 ("after the Bridge queue
// drains, coordinated_agents equals the set of owners of non-terminal
// tasks") without relying solely on incrementally-tracked state.
func (b *Bridge) RebuildCoordination() {
	tasks, _ := b.engine.List()
	set := make(map[string]bool)
	for _, t := range tasks {
		if !t.State.Terminal() && t.Owner != "" {
			set[t.Owner] = true
		}
	}
	b.mu.Lock()
	b.coordinated = set
	b.mu.Unlock()
}

func (b *Bridge) emitTaskCreated(task domain.Task) {
	if task.Owner != "" {
		b.send(task, domain.KindTaskNotification, []string{task.Owner}, progressBody(task))
	}
	if task.IsContract() {
		b.broadcast(task, domain.KindSystemBroadcast, fmt.Sprintf("contract available: %s", task.Title))
	}
}

func (b *Bridge) emitStatusUpdate(task domain.Task, note string) {
	if task.Owner == "" {
		return
	}
	b.send(task, domain.KindStatusUpdate, []string{task.Owner}, progressBody(task))
}

func (b *Bridge) emitBlocked(task domain.Task) {
	agents := b.CoordinatedAgents()
	var targets []string
	for _, a := range agents {
		if strings.Contains(strings.ToLower(a), "coordinator") || strings.Contains(strings.ToLower(a), "manager") {
			targets = append(targets, a)
		}
	}
	if len(targets) == 0 {
		targets = agents
	}
	if len(targets) == 0 {
		return
	}
	b.send(task, domain.KindCoordinationRequest, targets, progressBody(task))
}

func (b *Bridge) emitReview(task domain.Task) {
	// A PR-linked review emits pr_event; without a linked PR, a status_update.
	// The Bridge has no authoritative PR link of its own (spec §3), so callers
	// that know a PR id should use EmitPREvent directly; this path covers the
	// plain review transition.
	if task.Owner != "" {
		b.send(task, domain.KindStatusUpdate, []string{task.Owner}, progressBody(task))
	}
}

// EmitPREvent is called by the PR Review Protocol when a review-state task is
// linked to a PR, satisfying the "review -> pr_event... depending on whether
// a PR is linked" branch of spec §4.6.
func (b *Bridge) EmitPREvent(task domain.Task, prID string) {
	body := progressBody(task)
	body["pr_id"] = prID
	if task.Owner != "" {
		b.send(task, domain.KindPREvent, []string{task.Owner}, body)
	}
}

func (b *Bridge) emitCompleted(task domain.Task) {
	if task.Owner != "" {
		b.send(task, domain.KindStatusUpdate, []string{task.Owner}, progressBody(task))
	}
	b.notifyDependents(task)
}

// notifyDependents scans for tasks whose dependencies include the completed
// task and, for each one now eligible (all dependencies satisfied), emits a
// task_notification to the dependent's owner.
func (b *Bridge) notifyDependents(completed domain.Task) {
	tasks, errs := b.engine.List()
	for _, err := range errs {
		b.noteError("list for dependents", err)
	}
	lookup := func(id string) (*domain.Task, bool) {
		t, err := b.engine.Get(id)
		if err != nil {
			return nil, false
		}
		return t, true
	}
	for _, t := range tasks {
		if t.Owner == "" {
			continue
		}
		dependsOnCompleted := false
		for _, d := range t.Dependencies {
			if d == completed.ID {
				dependsOnCompleted = true
				break
			}
		}
		if !dependsOnCompleted {
			continue
		}
		if domain.DependenciesSatisfied(t.Dependencies, lookup) {
			b.send(*t, domain.KindTaskNotification, []string{t.Owner}, progressBody(*t))
		}
	}
}

func (b *Bridge) send(task domain.Task, kind domain.MessageKind, recipients []string, body map[string]any) {
	msg := domain.Message{
		Sender:     domain.SenderSystem,
		Recipients: recipients,
		Priority:   domain.PriorityNormal,
		Kind:       kind,
		Body:       body,
	}
	if _, err := b.dispatch.Enqueue(msg); err != nil {
		b.noteError("enqueue", err)
		return
	}
	if err := b.engine.TouchCommunication(task.ID); err != nil {
		b.noteError("touch communication", err)
	}
}

func (b *Bridge) broadcast(task domain.Task, kind domain.MessageKind, text string) {
	msg := domain.Message{
		Sender:     domain.SenderSystem,
		Recipients: []string{"all"},
		Priority:   domain.PriorityNormal,
		Kind:       kind,
		Body:       map[string]any{"text": text, "task_id": task.ID},
	}
	if _, err := b.dispatch.Enqueue(msg); err != nil {
		b.noteError("broadcast", err)
		return
	}
	if err := b.engine.TouchCommunication(task.ID); err != nil {
		b.noteError("touch communication", err)
	}
}

// progressBody builds the shared progress-indicator payload (spec §4.10).
func progressBody(task domain.Task) map[string]any {
	return map[string]any{
		"task_id":         task.ID,
		"state_progress":  stateProgress(task.State),
		"time_elapsed_ms": time.Since(task.CreatedAt).Milliseconds(),
		"evidence_count":  len(task.Evidence),
	}
}

func stateProgress(s domain.TaskState) int {
	switch s {
	case domain.TaskNew:
		return 0
	case domain.TaskBlocked:
		return 25
	case domain.TaskInProgress:
		return 50
	case domain.TaskReview:
		return 75
	case domain.TaskCompleted:
		return 100
	default:
		return 0
	}
}

// RunPeriodicHeartbeat scans non-terminal tasks on an interval and emits a
// periodic status_update for any task whose last_communication_at is older
// than the configured stale interval (spec §4.6).
func (b *Bridge) RunPeriodicHeartbeat(ctx context.Context) {
	interval := time.Duration(b.cfg.StaleCommunicationIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.checkStale(interval)
		}
	}
}

func (b *Bridge) checkStale(interval time.Duration) {
	tasks, errs := b.engine.List()
	for _, err := range errs {
		b.noteError("list for heartbeat", err)
	}
	now := time.Now()
	for _, t := range tasks {
		if t.State.Terminal() || t.Owner == "" {
			continue
		}
		ref := t.LastCommAt
		if ref.IsZero() {
			ref = t.CreatedAt
		}
		if now.Sub(ref) >= interval {
			b.send(*t, domain.KindStatusUpdate, []string{t.Owner}, progressBody(*t))
		}
	}
}
