package prreview

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jaakkos/orchestrator/internal/config"
	"github.com/jaakkos/orchestrator/internal/domain"
	"github.com/jaakkos/orchestrator/internal/vibecheck"
)

// DuplicationChecker is the subset of the Project Registry used by the
// duplication check (spec §4.11 step 1).
type DuplicationChecker interface {
	FindByBasenameSubstring(needle string) []domain.Component
}

// PlanReviewer is the subset of the Design Authority used by the design
// compliance check (spec §4.11 step 3).
type PlanReviewer interface {
	ReviewComponentPlan(name, description string) domain.DesignReview
}

// PREventEmitter lets the Protocol notify a review-state task's Bridge
// channel when a PR is linked to it (spec §4.6's pr_event branch).
type PREventEmitter interface {
	EmitPREvent(task domain.Task, prID string)
}

// Protocol implements the full PR lifecycle over a single-file JSON store.
type Protocol struct {
	store     *store
	roster    []string
	registry  DuplicationChecker
	authority PlanReviewer
	vibe      *vibecheck.Checker
	cfg       config.PRReviewConfig
}

// New wires a Protocol to its dependencies. roster is the fixed agent list
// eligible for reviewer assignment (spec §4.11).
func New(dataRoot string, roster []string, registry DuplicationChecker, authority PlanReviewer, vibe *vibecheck.Checker, cfg config.PRReviewConfig) (*Protocol, error) {
	s, err := newStore(dataRoot)
	if err != nil {
		return nil, err
	}
	return &Protocol{store: s, roster: roster, registry: registry, authority: authority, vibe: vibe, cfg: cfg}, nil
}

// Create opens a new PullRequest. If reviewer is empty, one is assigned
// deterministically: exclude author, pick the roster member with fewest
// reviews in the last ReviewHistoryWindow ReviewResults, tie -> lowest id.
func (p *Protocol) Create(author, title, description string, changes []domain.CodeChange, priority domain.TaskPriority, reviewer string) (domain.PullRequest, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	if reviewer == "" {
		reviewer = p.assignReviewerLocked(author)
	}
	if reviewer == author {
		return domain.PullRequest{}, domain.ErrSameAuthorReviewer
	}

	now := time.Now()
	pr := domain.PullRequest{
		ID:          newPRID(),
		Author:      author,
		Reviewer:    reviewer,
		Title:       title,
		Description: description,
		Status:      domain.PRPending,
		Priority:    priority,
		Changes:     changes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.store.data.PullRequests = append(p.store.data.PullRequests, pr)
	if err := p.store.saveLocked(); err != nil {
		return domain.PullRequest{}, err
	}
	return pr, nil
}

// ReviewerLoad reports how many reviews each roster member has performed
// within the last ReviewHistoryWindow ReviewResults, exposed for audit
// trails over the reviewer-fairness property.
func (p *Protocol) ReviewerLoad() map[string]int {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	return p.reviewerLoadLocked()
}

func (p *Protocol) reviewerLoadLocked() map[string]int {
	window := p.cfg.ReviewHistoryWindow
	if window <= 0 {
		window = 20
	}
	history := sortedHistory(p.store.data.ReviewHistory)
	if len(history) > window {
		history = history[len(history)-window:]
	}
	load := make(map[string]int, len(p.roster))
	for _, a := range p.roster {
		load[a] = 0
	}
	for _, r := range history {
		load[r.Reviewer]++
	}
	return load
}

func (p *Protocol) assignReviewerLocked(author string) string {
	load := p.reviewerLoadLocked()
	var eligible []string
	for _, a := range p.roster {
		if a != author {
			eligible = append(eligible, a)
		}
	}
	sort.Strings(eligible)
	best := ""
	bestCount := -1
	for _, a := range eligible {
		c := load[a]
		if bestCount == -1 || c < bestCount {
			best = a
			bestCount = c
		}
	}
	return best
}

// StartReview marks a PR in_review, rejecting if reviewer is not the one
// assigned (spec §4.11).
func (p *Protocol) StartReview(prID, reviewer string) (bool, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	idx, ok := p.store.findPR(prID)
	if !ok {
		return false, fmt.Errorf("pr not found: %s", prID)
	}
	pr := p.store.data.PullRequests[idx]
	if pr.Reviewer != reviewer {
		return false, domain.ErrWrongReviewer
	}
	pr.Status = domain.PRInReview
	pr.UpdatedAt = time.Now()
	p.store.data.PullRequests[idx] = pr
	return true, p.store.saveLocked()
}

var docCommentPattern = regexp.MustCompile(`(?m)^\s*//|/\*`)
var catchAllPattern = regexp.MustCompile(`(?i)\brecover\(\)|catch\s*\(\s*\)|except\s*:`)

// Review performs the five-step review pass (spec §4.11) and records a
// ReviewResult, updating the PR's status.
func (p *Protocol) Review(prID, reviewer string) (domain.ReviewResult, error) {
	p.store.mu.Lock()
	idx, ok := p.store.findPR(prID)
	if !ok {
		p.store.mu.Unlock()
		return domain.ReviewResult{}, fmt.Errorf("pr not found: %s", prID)
	}
	pr := p.store.data.PullRequests[idx]
	if pr.Reviewer != reviewer {
		p.store.mu.Unlock()
		return domain.ReviewResult{}, domain.ErrWrongReviewer
	}
	changes := append([]domain.CodeChange(nil), pr.Changes...)
	p.store.mu.Unlock()

	var violations []domain.Violation
	violations = append(violations, p.duplicationCheck(changes)...)
	violations = append(violations, p.vibeCheck(changes)...)
	violations = append(violations, p.designComplianceCheck(changes)...)
	violations = append(violations, errorHandlingCheck(changes)...)
	violations = append(violations, documentationCheck(changes)...)

	approved := !hasErrorClass(violations)
	status := domain.PRNeedsChanges
	if approved {
		status = domain.PRApproved
	}

	result := domain.ReviewResult{
		PRID:        prID,
		Reviewer:    reviewer,
		Status:      status,
		Violations:  violations,
		Suggestions: synthesizeSuggestions(violations),
		Approved:    approved,
		VibeSummary: summarize(violations),
		CreatedAt:   time.Now(),
	}

	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	idx, ok = p.store.findPR(prID)
	if !ok {
		return domain.ReviewResult{}, fmt.Errorf("pr not found: %s", prID)
	}
	pr = p.store.data.PullRequests[idx]
	pr.Status = status
	pr.UpdatedAt = time.Now()
	for _, v := range violations {
		pr.ReviewComments = append(pr.ReviewComments, v.Description)
	}
	p.store.data.PullRequests[idx] = pr
	p.store.data.ReviewHistory = append(p.store.data.ReviewHistory, result)
	if err := p.store.saveLocked(); err != nil {
		return domain.ReviewResult{}, err
	}
	return result, nil
}

func (p *Protocol) duplicationCheck(changes []domain.CodeChange) []domain.Violation {
	var violations []domain.Violation
	for _, ch := range changes {
		if ch.ChangeType != domain.ChangeAdded {
			continue
		}
		matches := p.registry.FindByBasenameSubstring(ch.FilePath)
		for _, m := range matches {
			violations = append(violations, domain.Violation{
				Category:    "duplication",
				File:        ch.FilePath,
				Type:        "possible_duplicate",
				Severity:    domain.SeverityError,
				Description: fmt.Sprintf("%s overlaps existing component %s (%s)", ch.FilePath, m.Name, m.Path),
				Suggestion:  "check whether this duplicates an existing component before adding",
			})
		}
	}
	return violations
}

func (p *Protocol) vibeCheck(changes []domain.CodeChange) []domain.Violation {
	var violations []domain.Violation
	for _, ch := range changes {
		if ch.ChangeType == domain.ChangeDeleted {
			continue
		}
		report := p.vibe.CheckSourceStrict(ch.FilePath, ch.NewContent, "")
		violations = append(violations, report.Violations...)
		if report.Result == vibecheck.ResultFail {
			violations = append(violations, domain.Violation{
				Category:    "vibe",
				File:        ch.FilePath,
				Type:        "vibe_check_failed",
				Severity:    domain.SeverityError,
				Description: fmt.Sprintf("vibe check failed for %s", ch.FilePath),
				Suggestion:  "resolve the vibe check findings before requesting review",
			})
		}
	}
	return violations
}

func (p *Protocol) designComplianceCheck(changes []domain.CodeChange) []domain.Violation {
	var violations []domain.Violation
	for _, ch := range changes {
		if ch.ChangeType == domain.ChangeDeleted {
			continue
		}
		plan := ch.NewContent
		if len(plan) > 200 {
			plan = plan[:200]
		}
		review := p.authority.ReviewComponentPlan(ch.FilePath, plan)
		for _, f := range review.Findings {
			sev := domain.SeverityWarning
			if review.Severity == domain.DecisionError {
				sev = domain.SeverityError
			}
			violations = append(violations, domain.Violation{
				Category:    "design",
				File:        ch.FilePath,
				Type:        "design_compliance",
				Severity:    sev,
				Description: f,
			})
		}
	}
	return violations
}

func errorHandlingCheck(changes []domain.CodeChange) []domain.Violation {
	var violations []domain.Violation
	for _, ch := range changes {
		if ch.ChangeType == domain.ChangeDeleted {
			continue
		}
		if catchAllPattern.MatchString(ch.NewContent) {
			violations = append(violations, domain.Violation{
				Category: "error_handling", File: ch.FilePath, Type: "catch_all",
				Severity:    domain.SeverityWarning,
				Description: "broad error recovery without a specific error check",
				Suggestion:  "match on the specific error/exception type instead",
			})
		}
		if strings.Contains(ch.NewContent, "func ") && !strings.Contains(ch.NewContent, "err") {
			violations = append(violations, domain.Violation{
				Category: "error_handling", File: ch.FilePath, Type: "no_error_region",
				Severity:    domain.SeverityInfo,
				Description: "new function has no visible error handling",
				Suggestion:  "confirm errors from this function are surfaced to the caller",
			})
		}
	}
	return violations
}

func documentationCheck(changes []domain.CodeChange) []domain.Violation {
	var violations []domain.Violation
	for _, ch := range changes {
		if ch.ChangeType == domain.ChangeDeleted {
			continue
		}
		if strings.Contains(ch.NewContent, "func ") && !docCommentPattern.MatchString(ch.NewContent) {
			violations = append(violations, domain.Violation{
				Category: "documentation", File: ch.FilePath, Type: "missing_doc",
				Severity:    domain.SeverityInfo,
				Description: "new function has no doc comment",
				Suggestion:  "add a short comment describing the function's purpose",
			})
		}
	}
	return violations
}

func hasErrorClass(violations []domain.Violation) bool {
	for _, v := range violations {
		if v.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}

func synthesizeSuggestions(violations []domain.Violation) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range violations {
		if v.Suggestion == "" || seen[v.Suggestion] {
			continue
		}
		seen[v.Suggestion] = true
		out = append(out, v.Suggestion)
	}
	return out
}

func summarize(violations []domain.Violation) string {
	if len(violations) == 0 {
		return "no violations found"
	}
	byCategory := make(map[string]int)
	for _, v := range violations {
		byCategory[v.Category]++
	}
	var parts []string
	for cat, n := range byCategory {
		parts = append(parts, fmt.Sprintf("%s=%d", cat, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// Get returns a PR by id.
func (p *Protocol) Get(id string) (domain.PullRequest, bool) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	idx, ok := p.store.findPR(id)
	if !ok {
		return domain.PullRequest{}, false
	}
	return p.store.data.PullRequests[idx], true
}

// List returns all PRs, optionally filtered by status (empty = all).
func (p *Protocol) List(status domain.PRStatus) []domain.PullRequest {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	var out []domain.PullRequest
	for _, pr := range p.store.data.PullRequests {
		if status != "" && pr.Status != status {
			continue
		}
		out = append(out, pr)
	}
	return out
}
