package domain

import "time"

// PRStatus is the lifecycle status of a PullRequest.
type PRStatus string

const (
	PRPending      PRStatus = "pending"
	PRInReview     PRStatus = "in_review"
	PRApproved     PRStatus = "approved"
	PRNeedsChanges PRStatus = "needs_changes"
	PRRejected     PRStatus = "rejected"
)

// ChangeType classifies a CodeChange.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// CodeChange is one file-level change proposed by a PullRequest.
type CodeChange struct {
	FilePath   string     `json:"file_path"`
	ChangeType ChangeType `json:"change_type"`
	OldContent string     `json:"old_content,omitempty"`
	NewContent string     `json:"new_content,omitempty"`
	LineStart  int        `json:"line_start,omitempty"`
	LineEnd    int        `json:"line_end,omitempty"`
}

// PullRequest is an agent-to-agent code review request.
type PullRequest struct {
	ID              string       `json:"id"`
	Author          string       `json:"author"`
	Reviewer        string       `json:"reviewer"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Status          PRStatus     `json:"status"`
	Priority        TaskPriority `json:"priority"`
	Changes         []CodeChange `json:"changes"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	ApprovalCriteria []string    `json:"approval_criteria,omitempty"`
	ReviewComments  []string     `json:"review_comments,omitempty"`
}

// ViolationSeverity is the severity class of a review or vibe-check violation.
type ViolationSeverity string

const (
	SeverityInfo    ViolationSeverity = "info"
	SeverityWarning ViolationSeverity = "warning"
	SeverityError   ViolationSeverity = "error"
)

// Violation is one structured finding from a review pass (vibe-check, design, error handling, docs, duplication).
type Violation struct {
	Category    string            `json:"category"` // duplication, vibe, design, error_handling, documentation
	File        string            `json:"file,omitempty"`
	Line        int               `json:"line,omitempty"`
	Type        string            `json:"type"`
	Severity    ViolationSeverity `json:"severity"`
	Description string            `json:"description"`
	Suggestion  string            `json:"suggestion,omitempty"`
}

// ReviewResult is the outcome of one review(pr_id, reviewer) call.
type ReviewResult struct {
	PRID           string      `json:"pr_id"`
	Reviewer       string      `json:"reviewer"`
	Status         PRStatus    `json:"status"`
	Violations     []Violation `json:"violations_found"`
	Suggestions    []string    `json:"suggestions,omitempty"`
	Approved       bool        `json:"approved"`
	VibeSummary    string      `json:"vibe_summary,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// PRStoreSnapshot is the single-file, on-disk form of the PR Review Protocol (spec §6).
type PRStoreSnapshot struct {
	PullRequests  []PullRequest  `json:"pull_requests"`
	ReviewHistory []ReviewResult `json:"review_history"`
}
