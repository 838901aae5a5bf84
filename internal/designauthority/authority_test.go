package designauthority

import (
	"testing"

	"github.com/jaakkos/orchestrator/internal/config"
	"github.com/jaakkos/orchestrator/internal/domain"
)

type fakeRegistry struct {
	existing map[string]bool
}

func (f *fakeRegistry) CheckExists(name string) bool { return f.existing[name] }

func newTestAuthority(existing ...string) *Authority {
	set := make(map[string]bool, len(existing))
	for _, n := range existing {
		set[n] = true
	}
	cfg := config.DesignAuthorityConfig{MaxFunctionLines: 30, MaxNestingDepth: 3, MaxParameters: 5}
	return New(&fakeRegistry{existing: set}, cfg)
}

func TestReviewComponentPlanRejectsExistingName(t *testing.T) {
	a := newTestAuthority("dispatcher")
	review := a.ReviewComponentPlan("dispatcher", "a simple helper")
	if review.Severity != domain.DecisionError {
		t.Fatalf("Severity = %v, want error for already-existing component", review.Severity)
	}
}

func TestReviewComponentPlanCleanDescriptionHasNoConcerns(t *testing.T) {
	a := newTestAuthority()
	review := a.ReviewComponentPlan("newthing", "adds two integers and returns the sum")
	if review.Severity != domain.DecisionInfo {
		t.Fatalf("Severity = %v, want info", review.Severity)
	}
	if len(review.Findings) != 0 {
		t.Fatalf("Findings = %v, want none", review.Findings)
	}
}

func TestReviewComponentPlanFlagsRequiredPrincipleAsWarning(t *testing.T) {
	a := newTestAuthority()
	review := a.ReviewComponentPlan("newthing", "a generic handler for all requests")
	if review.Severity != domain.DecisionWarning {
		t.Fatalf("Severity = %v, want warning (SingleResponsibility red flag)", review.Severity)
	}
}

func TestReviewComponentPlanFlagsCriticalAntiPatternAsError(t *testing.T) {
	a := newTestAuthority()
	review := a.ReviewComponentPlan("newthing", "classes with too many responsibilities")
	if review.Severity != domain.DecisionError {
		t.Fatalf("Severity = %v, want error (critical anti-pattern)", review.Severity)
	}
}

func TestReviewComponentPlanRecommendsAlternatives(t *testing.T) {
	a := newTestAuthority()
	review := a.ReviewComponentPlan("newthing", "use a factory to build instances")
	if len(review.Alternatives) == 0 {
		t.Fatalf("Alternatives = %v, want a suggestion for factory", review.Alternatives)
	}
}

func TestReviewCodeComplexityWithinThresholdsPasses(t *testing.T) {
	a := newTestAuthority()
	review := a.ReviewCodeComplexity("fn", ComplexityMetrics{FunctionLines: 10, NestingDepth: 1, Parameters: 2})
	if review.Severity != domain.DecisionInfo || len(review.Findings) != 0 {
		t.Fatalf("ReviewCodeComplexity within thresholds = %+v, want clean info", review)
	}
}

func TestReviewCodeComplexityFlagsEachExceededDimension(t *testing.T) {
	a := newTestAuthority()
	review := a.ReviewCodeComplexity("fn", ComplexityMetrics{FunctionLines: 100, NestingDepth: 10, Parameters: 20})
	if review.Severity != domain.DecisionWarning {
		t.Fatalf("Severity = %v, want warning", review.Severity)
	}
	if len(review.Findings) != 3 {
		t.Fatalf("Findings = %v, want 3 (one per exceeded dimension)", review.Findings)
	}
}
