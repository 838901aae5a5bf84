package domain

import "time"

// TaskState is the FSM state of a Task. See the transition graph in package fsm.
type TaskState string

const (
	TaskNew        TaskState = "new"
	TaskClaimed    TaskState = "claimed"
	TaskInProgress TaskState = "in_progress"
	TaskBlocked    TaskState = "blocked"
	TaskReview     TaskState = "review"
	TaskCompleted  TaskState = "completed"
	TaskCancelled  TaskState = "cancelled"
	TaskFailed     TaskState = "failed"
)

// Terminal reports whether a state accepts no further transitions.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskCancelled || s == TaskFailed
}

// TaskPriority is the business priority of a Task (distinct from Message Priority).
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityNormal   TaskPriority = "normal"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

// EvidenceEntry is one append-only record in a Task's audit log.
type EvidenceEntry struct {
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// Task is a unit of work tracked by the FSM.
type Task struct {
	ID            string        `json:"task_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Priority      TaskPriority  `json:"priority"`
	State         TaskState     `json:"status"`
	Owner         string        `json:"assigned_agent,omitempty"`
	Dependencies  []string      `json:"dependencies,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	Evidence      []EvidenceEntry `json:"evidence,omitempty"`
	LastCommAt    time.Time     `json:"last_communication_at,omitempty"`

	// Contract fields. Zero values mean "not a contract".
	ClaimableBy  []string   `json:"claimable_by,omitempty"` // "*" means anyone
	ClaimDeadline *time.Time `json:"claim_deadline,omitempty"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
	ProgressPercent int `json:"progress_percent,omitempty"`

	// Extra forward-compatible fields preserved verbatim across load/save (spec §6).
	Unknown map[string]any `json:"-"`
}

// IsContract reports whether the task was published for claiming.
func (t *Task) IsContract() bool {
	return len(t.ClaimableBy) > 0 || t.ClaimDeadline != nil
}

// DependenciesSatisfied reports whether every dependency id in deps is completed
// per the supplied lookup. Unknown dependency ids count as unsatisfied.
func DependenciesSatisfied(deps []string, lookup func(id string) (*Task, bool)) bool {
	for _, id := range deps {
		dep, ok := lookup(id)
		if !ok || dep.State != TaskCompleted {
			return false
		}
	}
	return true
}
