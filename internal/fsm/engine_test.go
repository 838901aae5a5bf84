package fsm

import (
	"errors"
	"testing"
	"time"

	"github.com/jaakkos/orchestrator/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(NewStore(t.TempDir()))
}

func TestClaimPlainTaskIgnoresClaimableBy(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.CreateTask("t", "d", domain.TaskPriorityNormal, nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := e.Claim(task.ID, "anyone"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
}

func TestClaimContractRejectsUnlistedAgent(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.NewContract("t", "d", domain.TaskPriorityNormal, nil, []string{"agent-a"}, nil, time.Time{})
	if err != nil {
		t.Fatalf("NewContract: %v", err)
	}
	if _, err := e.Claim(task.ID, "agent-b"); !errors.Is(err, domain.ErrNotClaimable) {
		t.Fatalf("Claim by non-listed agent: got %v, want ErrNotClaimable", err)
	}
	if _, err := e.Claim(task.ID, "agent-a"); err != nil {
		t.Fatalf("Claim by listed agent: %v", err)
	}
}

func TestClaimContractRejectsPastDeadline(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.NewContract("t", "d", domain.TaskPriorityNormal, nil, []string{"*"}, nil, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("NewContract: %v", err)
	}
	if _, err := e.Claim(task.ID, "agent-a"); !errors.Is(err, domain.ErrClaimDeadlinePassed) {
		t.Fatalf("Claim past deadline: got %v, want ErrClaimDeadlinePassed", err)
	}
}

func TestStartRejectsUnmetDependency(t *testing.T) {
	e := newTestEngine(t)
	dep, err := e.CreateTask("dep", "d", domain.TaskPriorityNormal, nil)
	if err != nil {
		t.Fatalf("CreateTask(dep): %v", err)
	}
	task, err := e.CreateTask("t", "d", domain.TaskPriorityNormal, []string{dep.ID})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := e.Claim(task.ID, "agent-a"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	lookup := func(id string) (*domain.Task, bool) {
		tk, err := e.Get(id)
		if err != nil {
			return nil, false
		}
		return tk, true
	}
	if _, err := e.Start(task.ID, "agent-a", lookup); !errors.Is(err, domain.ErrDependencyNotMet) {
		t.Fatalf("Start with unmet dependency: got %v, want ErrDependencyNotMet", err)
	}

	if _, err := e.Claim(dep.ID, "agent-a"); err != nil {
		t.Fatalf("Claim(dep): %v", err)
	}
	if _, err := e.Start(dep.ID, "agent-a", lookup); err != nil {
		t.Fatalf("Start(dep): %v", err)
	}
	if _, err := e.SubmitForReview(dep.ID, "agent-a"); err != nil {
		t.Fatalf("SubmitForReview(dep): %v", err)
	}
	if _, err := e.Approve(dep.ID, "reviewer"); err != nil {
		t.Fatalf("Approve(dep): %v", err)
	}
	if _, err := e.Start(task.ID, "agent-a", lookup); err != nil {
		t.Fatalf("Start after dependency completed: %v", err)
	}
}

func TestIllegalTransitionRejected(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.CreateTask("t", "d", domain.TaskPriorityNormal, nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := e.Approve(task.ID, "reviewer"); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("Approve from new: got %v, want ErrIllegalTransition", err)
	}
}

func TestCancelRejectsTerminalState(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.CreateTask("t", "d", domain.TaskPriorityNormal, nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := e.Cancel(task.ID, "agent-a", "no longer needed"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := e.Cancel(task.ID, "agent-a", "again"); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("second Cancel: got %v, want ErrIllegalTransition", err)
	}
}

func TestSetProgressIsNotATransition(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.CreateTask("t", "d", domain.TaskPriorityNormal, nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := e.SetProgress(task.ID, 40); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	got, err := e.Get(task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ProgressPercent != 40 {
		t.Errorf("ProgressPercent = %d, want 40", got.ProgressPercent)
	}
	if got.State != domain.TaskNew {
		t.Errorf("State = %v, want unchanged TaskNew", got.State)
	}
}

type recordingObserver struct {
	events []string
}

func (o *recordingObserver) OnTaskEvent(event string, task domain.Task, prev domain.TaskState) {
	o.events = append(o.events, event)
}

func TestObserverNotifiedOnTransitions(t *testing.T) {
	e := newTestEngine(t)
	obs := &recordingObserver{}
	e.Subscribe(obs)

	task, err := e.CreateTask("t", "d", domain.TaskPriorityNormal, nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := e.Claim(task.ID, "agent-a"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	want := []string{"task_created", "claimed"}
	if len(obs.events) != len(want) {
		t.Fatalf("events = %v, want %v", obs.events, want)
	}
	for i, e := range want {
		if obs.events[i] != e {
			t.Errorf("event[%d] = %q, want %q", i, obs.events[i], e)
		}
	}
}
