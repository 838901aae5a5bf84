package projectregistry

import (
	"errors"
	"testing"

	"github.com/jaakkos/orchestrator/internal/domain"
)

func TestRegisterComponentRejectsDuplicateName(t *testing.T) {
	r, err := New(t.TempDir(), "proj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.RegisterComponent(domain.Component{Name: "c1", Path: "internal/c1/c1.go"}); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	if err := r.RegisterComponent(domain.Component{Name: "c1", Path: "internal/c1/other.go"}); !errors.Is(err, domain.ErrDuplicateComponent) {
		t.Fatalf("RegisterComponent duplicate: got %v, want ErrDuplicateComponent", err)
	}
}

func TestRegisterComponentDefaultsStatusActive(t *testing.T) {
	r, err := New(t.TempDir(), "proj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.RegisterComponent(domain.Component{Name: "c1", Path: "p"}); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	got, err := r.GetComponent("c1")
	if err != nil {
		t.Fatalf("GetComponent: %v", err)
	}
	if got.Status != domain.ComponentActive {
		t.Fatalf("Status = %v, want active", got.Status)
	}
}

func TestGetComponentNotFound(t *testing.T) {
	r, err := New(t.TempDir(), "proj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.GetComponent("ghost"); !errors.Is(err, domain.ErrComponentNotFound) {
		t.Fatalf("GetComponent(ghost): got %v, want ErrComponentNotFound", err)
	}
}

func TestTransferOwnership(t *testing.T) {
	r, err := New(t.TempDir(), "proj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.RegisterComponent(domain.Component{Name: "c1", Path: "p", Owner: "a1"}); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	if err := r.TransferOwnership("c1", "a2"); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	got, err := r.GetComponent("c1")
	if err != nil {
		t.Fatalf("GetComponent: %v", err)
	}
	if got.Owner != "a2" {
		t.Fatalf("Owner = %q, want a2", got.Owner)
	}
}

func TestListFiltersByOwnerAndSortsByName(t *testing.T) {
	r, err := New(t.TempDir(), "proj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, c := range []domain.Component{
		{Name: "zeta", Path: "p1", Owner: "a1"},
		{Name: "alpha", Path: "p2", Owner: "a1"},
		{Name: "beta", Path: "p3", Owner: "a2"},
	} {
		if err := r.RegisterComponent(c); err != nil {
			t.Fatalf("RegisterComponent(%s): %v", c.Name, err)
		}
	}
	byA1 := r.List("a1")
	if len(byA1) != 2 || byA1[0].Name != "alpha" || byA1[1].Name != "zeta" {
		t.Fatalf("List(a1) = %v, want [alpha, zeta]", byA1)
	}
	all := r.List("")
	if len(all) != 3 {
		t.Fatalf("List(\"\") = %d, want 3", len(all))
	}
}

func TestFindByBasenameSubstring(t *testing.T) {
	r, err := New(t.TempDir(), "proj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.RegisterComponent(domain.Component{Name: "dispatcher", Path: "internal/dispatch/dispatcher.go"}); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	matches := r.FindByBasenameSubstring("dispatcher.go")
	if len(matches) != 1 || matches[0].Name != "dispatcher" {
		t.Fatalf("FindByBasenameSubstring = %v, want dispatcher match", matches)
	}
	if got := r.FindByBasenameSubstring("totally_unrelated.go"); len(got) != 0 {
		t.Fatalf("FindByBasenameSubstring(unrelated) = %v, want none", got)
	}
}

func TestValidateDesignDecisionFlagsRedFlagsAndAntiPatterns(t *testing.T) {
	r, err := New(t.TempDir(), "proj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result := r.ValidateDesignDecision("we should build a generic, extensible framework for future-proofing", "")
	if result.Valid {
		t.Fatalf("ValidateDesignDecision = %+v, want invalid (YAGNI red flags present)", result)
	}
	if len(result.Violations) == 0 {
		t.Fatal("expected violations for red-flag keywords")
	}
}

func TestValidateDesignDecisionPlainTextIsValid(t *testing.T) {
	r, err := New(t.TempDir(), "proj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result := r.ValidateDesignDecision("add a function that sums two integers", "")
	if !result.Valid {
		t.Fatalf("ValidateDesignDecision = %+v, want valid", result)
	}
}

func TestSummaryReflectsComponentCount(t *testing.T) {
	r, err := New(t.TempDir(), "proj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.RegisterComponent(domain.Component{Name: "c1", Path: "p"}); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	s := r.Summary()
	if s.ComponentCount != 1 || s.ProjectName != "proj" {
		t.Fatalf("Summary = %+v, want ComponentCount=1 ProjectName=proj", s)
	}
}

func TestNewLoadsExistingSnapshot(t *testing.T) {
	dir := t.TempDir()
	r1, err := New(dir, "proj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r1.RegisterComponent(domain.Component{Name: "c1", Path: "p"}); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	r2, err := New(dir, "proj")
	if err != nil {
		t.Fatalf("New (reload): %v", err)
	}
	if !r2.CheckExists("c1") {
		t.Fatal("reloaded registry lost previously registered component")
	}
}

// ValidateDesignDecision's taskContext parameter is currently unused by the
// implementation; verify the call is still well-formed with it populated.
func TestValidateDesignDecisionAcceptsTaskContext(t *testing.T) {
	r, err := New(t.TempDir(), "proj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = r.ValidateDesignDecision("simple helper", "task-123")
}
