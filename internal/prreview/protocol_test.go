package prreview

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaakkos/orchestrator/internal/config"
	"github.com/jaakkos/orchestrator/internal/domain"
	"github.com/jaakkos/orchestrator/internal/vibecheck"
)

type fakeRegistry struct {
	matches []domain.Component
}

func (f *fakeRegistry) FindByBasenameSubstring(needle string) []domain.Component {
	return f.matches
}

type fakeAuthority struct {
	review domain.DesignReview
}

func (f *fakeAuthority) ReviewComponentPlan(name, description string) domain.DesignReview {
	return f.review
}

func newTestProtocol(t *testing.T, registry DuplicationChecker, authority PlanReviewer, roster []string) *Protocol {
	t.Helper()
	vibe := vibecheck.New(config.VibeCheckConfig{
		MaxFunctionLines: 30, MaxComplexity: 8, MaxNestingDepth: 3, MaxParameters: 5,
		MaxFileLines: 300, DuplicateMinLen: 20, DuplicateMaxCount: 3,
	})
	p, err := New(t.TempDir(), roster, registry, authority, vibe, config.PRReviewConfig{ReviewHistoryWindow: 20})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// cleanChange builds a CodeChange for a file that is not written to disk,
// proving the review path analyzes the proposed content rather than
// whatever (if anything) already exists at FilePath.
func cleanChange(t *testing.T, filePath string) domain.CodeChange {
	t.Helper()
	content := "package sample\n\n// Add returns the sum of a and b.\nfunc Add(a, b int) int {\n\treturn a + b\n}\n"
	return domain.CodeChange{FilePath: filePath, ChangeType: domain.ChangeAdded, NewContent: content}
}

func TestCreateRejectsSameAuthorReviewer(t *testing.T) {
	p := newTestProtocol(t, &fakeRegistry{}, &fakeAuthority{}, []string{"a1", "a2"})
	_, err := p.Create("a1", "t", "d", nil, domain.TaskPriorityNormal, "a1")
	if err != domain.ErrSameAuthorReviewer {
		t.Fatalf("Create with same author/reviewer: got %v, want ErrSameAuthorReviewer", err)
	}
}

func TestCreateAssignsLeastLoadedReviewer(t *testing.T) {
	p := newTestProtocol(t, &fakeRegistry{}, &fakeAuthority{}, []string{"a1", "a2", "a3"})

	dir := t.TempDir()
	// a2 reviews once, a3 never reviews; author a1 excluded. Expect a3 assigned.
	pr1, err := p.Create("a1", "t1", "d", []domain.CodeChange{cleanChange(t, filepath.Join(dir, "f1.go"))}, domain.TaskPriorityNormal, "a2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := p.Review(pr1.ID, "a2"); err != nil {
		t.Fatalf("Review: %v", err)
	}

	pr2, err := p.Create("a1", "t2", "d", nil, domain.TaskPriorityNormal, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if pr2.Reviewer != "a3" {
		t.Fatalf("assigned reviewer = %q, want a3 (least-loaded)", pr2.Reviewer)
	}
}

func TestStartReviewRejectsWrongReviewer(t *testing.T) {
	p := newTestProtocol(t, &fakeRegistry{}, &fakeAuthority{}, []string{"a1", "a2"})
	pr, err := p.Create("a1", "t", "d", nil, domain.TaskPriorityNormal, "a2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := p.StartReview(pr.ID, "a1"); err != domain.ErrWrongReviewer {
		t.Fatalf("StartReview by non-assigned reviewer: got %v, want ErrWrongReviewer", err)
	}
	if ok, err := p.StartReview(pr.ID, "a2"); err != nil || !ok {
		t.Fatalf("StartReview by assigned reviewer: ok=%v err=%v", ok, err)
	}
}

func TestReviewCleanChangeApproves(t *testing.T) {
	p := newTestProtocol(t, &fakeRegistry{}, &fakeAuthority{}, []string{"a1", "a2"})
	dir := t.TempDir()
	change := cleanChange(t, filepath.Join(dir, "clean.go"))
	pr, err := p.Create("a1", "t", "d", []domain.CodeChange{change}, domain.TaskPriorityNormal, "a2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	result, err := p.Review(pr.ID, "a2")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if !result.Approved || result.Status != domain.PRApproved {
		t.Fatalf("Review() = %+v, want approved", result)
	}
	got, ok := p.Get(pr.ID)
	if !ok || got.Status != domain.PRApproved {
		t.Fatalf("Get() after review = %+v", got)
	}
}

func TestReviewDuplicationFindingBlocksApproval(t *testing.T) {
	registry := &fakeRegistry{matches: []domain.Component{{Name: "existing", Path: "internal/existing/existing.go"}}}
	p := newTestProtocol(t, registry, &fakeAuthority{}, []string{"a1", "a2"})
	dir := t.TempDir()
	change := cleanChange(t, filepath.Join(dir, "clean.go"))
	pr, err := p.Create("a1", "t", "d", []domain.CodeChange{change}, domain.TaskPriorityNormal, "a2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	result, err := p.Review(pr.ID, "a2")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	// a duplication with an existing component must never be approved.
	if result.Approved || result.Status != domain.PRNeedsChanges {
		t.Fatalf("Review() with duplication = %+v, want needs_changes", result)
	}
	found := false
	for _, v := range result.Violations {
		if v.Type == "possible_duplicate" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected possible_duplicate violation, got %v", result.Violations)
	}
}

func TestReviewLongFunctionFailsStrictVibeCheck(t *testing.T) {
	p := newTestProtocol(t, &fakeRegistry{}, &fakeAuthority{}, []string{"a1", "a2"})
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("package sample\n\nfunc Long() int {\n\tn := 0\n")
	for i := 0; i < 35; i++ {
		b.WriteString("\tn++\n")
	}
	b.WriteString("\treturn n\n}\n")
	// not written to disk: proves the review analyzes the proposed content.
	change := domain.CodeChange{FilePath: filepath.Join(dir, "long.go"), ChangeType: domain.ChangeAdded, NewContent: b.String()}

	pr, err := p.Create("a1", "t", "d", []domain.CodeChange{change}, domain.TaskPriorityNormal, "a2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	result, err := p.Review(pr.ID, "a2")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if result.Approved || result.Status != domain.PRNeedsChanges {
		t.Fatalf("Review() of 39-line function = %+v, want needs_changes", result)
	}
	found := false
	for _, v := range result.Violations {
		if v.Type == "vibe_check_failed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected vibe_check_failed violation, got %v", result.Violations)
	}
}

func TestReviewDesignErrorBlocksApproval(t *testing.T) {
	authority := &fakeAuthority{review: domain.DesignReview{Severity: domain.DecisionError, Findings: []string{"introduces a premature abstraction"}}}
	p := newTestProtocol(t, &fakeRegistry{}, authority, []string{"a1", "a2"})
	dir := t.TempDir()
	change := cleanChange(t, filepath.Join(dir, "clean.go"))
	pr, err := p.Create("a1", "t", "d", []domain.CodeChange{change}, domain.TaskPriorityNormal, "a2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	result, err := p.Review(pr.ID, "a2")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if result.Approved || result.Status != domain.PRNeedsChanges {
		t.Fatalf("Review() with design error = %+v, want needs_changes", result)
	}
}

func TestReviewRejectsWrongReviewer(t *testing.T) {
	p := newTestProtocol(t, &fakeRegistry{}, &fakeAuthority{}, []string{"a1", "a2"})
	pr, err := p.Create("a1", "t", "d", nil, domain.TaskPriorityNormal, "a2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := p.Review(pr.ID, "a1"); err != domain.ErrWrongReviewer {
		t.Fatalf("Review by non-assigned reviewer: got %v, want ErrWrongReviewer", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	p := newTestProtocol(t, &fakeRegistry{}, &fakeAuthority{}, []string{"a1", "a2"})
	if _, err := p.Create("a1", "t1", "d", nil, domain.TaskPriorityNormal, "a2"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := p.Create("a2", "t2", "d", nil, domain.TaskPriorityNormal, "a1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	pending := p.List(domain.PRPending)
	if len(pending) != 2 {
		t.Fatalf("List(pending) = %d, want 2", len(pending))
	}
	approved := p.List(domain.PRApproved)
	if len(approved) != 0 {
		t.Fatalf("List(approved) = %d, want 0", len(approved))
	}
	all := p.List("")
	if len(all) != 2 {
		t.Fatalf("List(\"\") = %d, want 2", len(all))
	}
}
