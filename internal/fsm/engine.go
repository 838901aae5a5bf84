package fsm

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaakkos/orchestrator/internal/domain"
)

// transitions is the legal-successor graph for Task.State (spec §4.5).
var transitions = map[domain.TaskState][]domain.TaskState{
	domain.TaskNew:        {domain.TaskClaimed, domain.TaskCancelled},
	domain.TaskClaimed:    {domain.TaskInProgress, domain.TaskCancelled},
	domain.TaskInProgress: {domain.TaskBlocked, domain.TaskReview, domain.TaskCancelled, domain.TaskFailed},
	domain.TaskBlocked:    {domain.TaskInProgress, domain.TaskCancelled, domain.TaskFailed},
	domain.TaskReview:     {domain.TaskCompleted, domain.TaskInProgress, domain.TaskCancelled, domain.TaskFailed},
	domain.TaskCompleted:  {},
	domain.TaskCancelled:  {},
	domain.TaskFailed:     {},
}

func legal(from, to domain.TaskState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Observer is notified after every successful mutation; the Bridge (component
// G) implements this to translate FSM events into messages. The Engine never
// blocks on, or propagates errors from, an Observer (spec §4.6).
type Observer interface {
	OnTaskEvent(event string, task domain.Task, prevState domain.TaskState)
}

// Engine implements the legal-transition rules, assignment/claim/complete
// protocol, and dependency resolution described in spec §4.5.
//
// Per-task mutations are serialized; cross-task reads (List) observe each
// task independently and are not required to form a single consistent
// snapshot across tasks (spec §4.5 concurrency notes).
type Engine struct {
	store     *Store
	observers []Observer

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewEngine wraps a Store with transition/validation logic.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store, locks: make(map[string]*sync.Mutex)}
}

// Subscribe registers an Observer for task events. Not safe for concurrent
// use with task mutations; call during startup wiring only.
func (e *Engine) Subscribe(o Observer) {
	e.observers = append(e.observers, o)
}

func (e *Engine) lockFor(id string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	m, ok := e.locks[id]
	if !ok {
		m = &sync.Mutex{}
		e.locks[id] = m
	}
	return m
}

func (e *Engine) emit(event string, task domain.Task, prev domain.TaskState) {
	for _, o := range e.observers {
		o.OnTaskEvent(event, task, prev)
	}
}

// CreateTask creates a new Task in state "new" and persists it.
func (e *Engine) CreateTask(title, description string, priority domain.TaskPriority, dependencies []string) (*domain.Task, error) {
	now := time.Now()
	t := &domain.Task{
		ID:           uuid.NewString(),
		Title:        title,
		Description:  description,
		Priority:     priority,
		State:        domain.TaskNew,
		Dependencies: dependencies,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	lock := e.lockFor(t.ID)
	lock.Lock()
	err := e.store.Save(t)
	lock.Unlock()
	if err != nil {
		return nil, err
	}
	e.emit("task_created", *t, "")
	return t, nil
}

// NewContract creates a Task published for claiming. The contract fields are
// set before the first save, so the "task_created" event already carries them.
func (e *Engine) NewContract(title, description string, priority domain.TaskPriority, dependencies, claimableBy, requiredCapabilities []string, deadline time.Time) (*domain.Task, error) {
	now := time.Now()
	t := &domain.Task{ID: uuid.NewString(), Title: title, Description: description, Priority: priority,
		State: domain.TaskNew, Dependencies: dependencies, CreatedAt: now, UpdatedAt: now}
	t.ClaimableBy = claimableBy
	t.RequiredCapabilities = requiredCapabilities
	if !deadline.IsZero() {
		d := deadline
		t.ClaimDeadline = &d
	}
	lock := e.lockFor(t.ID)
	lock.Lock()
	err := e.store.Save(t)
	lock.Unlock()
	if err != nil {
		return nil, err
	}
	e.emit("task_created", *t, "")
	return t, nil
}

// Get loads a single task.
func (e *Engine) Get(id string) (*domain.Task, error) {
	return e.store.Load(id)
}

// List returns every task, with any per-file persistence errors (logged by
// the caller, never fatal to the process).
func (e *Engine) List() ([]*domain.Task, []error) {
	return e.store.List()
}

func (e *Engine) mutate(id string, op func(t *domain.Task) (event string, err error)) (*domain.Task, error) {
	// Observers run after the task lock is released (deferred calls run in
	// reverse order), so they may call back into the Engine for this task.
	var notify func()
	defer func() {
		if notify != nil {
			notify()
		}
	}()
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	t, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}
	prev := t.State
	event, err := op(t)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt = time.Now()
	if err := e.store.Save(t); err != nil {
		return nil, err
	}
	if event != "" {
		snapshot := *t
		notify = func() { e.emit(event, snapshot, prev) }
	}
	return t, nil
}

func appendEvidence(t *domain.Task, actor, note string) {
	t.Evidence = append(t.Evidence, domain.EvidenceEntry{Actor: actor, Timestamp: time.Now(), Note: note})
}

func transitionErr(from, to domain.TaskState) error {
	return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, from, to)
}

// Claim transitions new->claimed. For Contracts, the claimer must be in
// ClaimableBy (or ClaimableBy contains "*") and the deadline must not have
// passed.
func (e *Engine) Claim(id, actor string) (*domain.Task, error) {
	return e.mutate(id, func(t *domain.Task) (string, error) {
		if !legal(t.State, domain.TaskClaimed) {
			return "", transitionErr(t.State, domain.TaskClaimed)
		}
		if t.IsContract() {
			if t.ClaimDeadline != nil && time.Now().After(*t.ClaimDeadline) {
				return "", domain.ErrClaimDeadlinePassed
			}
			if !claimableByAgent(t.ClaimableBy, actor) {
				return "", domain.ErrNotClaimable
			}
		}
		t.State = domain.TaskClaimed
		t.Owner = actor
		appendEvidence(t, actor, "claimed")
		return "claimed", nil
	})
}

func claimableByAgent(claimableBy []string, actor string) bool {
	for _, c := range claimableBy {
		if c == "*" || c == actor {
			return true
		}
	}
	return false
}

// Start transitions claimed->in_progress. Rejected if any dependency is not
// completed (spec invariant 3). depLookup resolves dependency ids; pass the
// Engine's own Get as the lookup in production code.
func (e *Engine) Start(id, actor string, depLookup func(id string) (*domain.Task, bool)) (*domain.Task, error) {
	return e.mutate(id, func(t *domain.Task) (string, error) {
		if !legal(t.State, domain.TaskInProgress) {
			return "", transitionErr(t.State, domain.TaskInProgress)
		}
		if !domain.DependenciesSatisfied(t.Dependencies, depLookup) {
			return "", domain.ErrDependencyNotMet
		}
		t.State = domain.TaskInProgress
		appendEvidence(t, actor, "started")
		return "start", nil
	})
}

// Block transitions in_progress->blocked.
func (e *Engine) Block(id, actor, reason string) (*domain.Task, error) {
	return e.mutate(id, func(t *domain.Task) (string, error) {
		if !legal(t.State, domain.TaskBlocked) {
			return "", transitionErr(t.State, domain.TaskBlocked)
		}
		t.State = domain.TaskBlocked
		appendEvidence(t, actor, "blocked: "+reason)
		return "blocked", nil
	})
}

// Unblock transitions blocked->in_progress.
func (e *Engine) Unblock(id, actor string) (*domain.Task, error) {
	return e.mutate(id, func(t *domain.Task) (string, error) {
		if !legal(t.State, domain.TaskInProgress) {
			return "", transitionErr(t.State, domain.TaskInProgress)
		}
		t.State = domain.TaskInProgress
		appendEvidence(t, actor, "unblocked")
		return "start", nil
	})
}

// SubmitForReview transitions in_progress->review.
func (e *Engine) SubmitForReview(id, actor string) (*domain.Task, error) {
	return e.mutate(id, func(t *domain.Task) (string, error) {
		if !legal(t.State, domain.TaskReview) {
			return "", transitionErr(t.State, domain.TaskReview)
		}
		t.State = domain.TaskReview
		appendEvidence(t, actor, "submitted for review")
		return "review", nil
	})
}

// Approve transitions review->completed.
func (e *Engine) Approve(id, actor string) (*domain.Task, error) {
	return e.mutate(id, func(t *domain.Task) (string, error) {
		if !legal(t.State, domain.TaskCompleted) {
			return "", transitionErr(t.State, domain.TaskCompleted)
		}
		t.State = domain.TaskCompleted
		now := time.Now()
		t.CompletedAt = &now
		appendEvidence(t, actor, "approved")
		return "completed", nil
	})
}

// RequestChanges transitions review->in_progress.
func (e *Engine) RequestChanges(id, actor, note string) (*domain.Task, error) {
	return e.mutate(id, func(t *domain.Task) (string, error) {
		if !legal(t.State, domain.TaskInProgress) {
			return "", transitionErr(t.State, domain.TaskInProgress)
		}
		t.State = domain.TaskInProgress
		appendEvidence(t, actor, "changes requested: "+note)
		return "start", nil
	})
}

// Cancel transitions any non-terminal state to cancelled.
func (e *Engine) Cancel(id, actor, reason string) (*domain.Task, error) {
	return e.mutate(id, func(t *domain.Task) (string, error) {
		if t.State.Terminal() {
			return "", transitionErr(t.State, domain.TaskCancelled)
		}
		t.State = domain.TaskCancelled
		appendEvidence(t, actor, "cancelled: "+reason)
		return "cancelled", nil
	})
}

// TouchCommunication refreshes LastCommAt without recording evidence or
// emitting an event; the Bridge calls this after every message it emits for
// a task (spec §4.6). It is not itself a state transition.
func (e *Engine) TouchCommunication(id string) error {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	t, err := e.store.Load(id)
	if err != nil {
		return err
	}
	t.LastCommAt = time.Now()
	return e.store.Save(t)
}

// SetProgress records a deterministic progress increment on an in_progress
// task without itself being a state transition (spec §4.10/§4.12 step 2).
func (e *Engine) SetProgress(id string, percent int) error {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	t, err := e.store.Load(id)
	if err != nil {
		return err
	}
	t.ProgressPercent = percent
	t.UpdatedAt = time.Now()
	return e.store.Save(t)
}

// Fail transitions in_progress|review|blocked to failed.
func (e *Engine) Fail(id, actor, reason string) (*domain.Task, error) {
	return e.mutate(id, func(t *domain.Task) (string, error) {
		if !legal(t.State, domain.TaskFailed) {
			return "", transitionErr(t.State, domain.TaskFailed)
		}
		t.State = domain.TaskFailed
		appendEvidence(t, actor, "failed: "+reason)
		return "failed", nil
	})
}
