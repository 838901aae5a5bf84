// Package designauthority implements the Design Authority (spec component
// I): pre-implementation plan review and code-complexity review against the
// same principle/anti-pattern knowledge base as the Project Registry.
package designauthority

import (
	"fmt"
	"strings"

	"github.com/jaakkos/orchestrator/internal/config"
	"github.com/jaakkos/orchestrator/internal/domain"
	"github.com/jaakkos/orchestrator/internal/rules"
)

// ComponentChecker is the subset of the Project Registry the Authority needs
// to reject plans for components that already exist (spec §4.8 step 1).
type ComponentChecker interface {
	CheckExists(name string) bool
}

// Authority reviews component plans and code complexity before they are
// allowed into the codebase.
type Authority struct {
	registry     ComponentChecker
	cfg          config.DesignAuthorityConfig
	principles   []domain.DesignPrinciple
	antiPatterns []domain.AntiPattern
}

// New wires an Authority to a Project Registry and its configured thresholds.
func New(registry ComponentChecker, cfg config.DesignAuthorityConfig) *Authority {
	return &Authority{
		registry:     registry,
		cfg:          cfg,
		principles:   rules.DefaultPrinciples(),
		antiPatterns: rules.DefaultAntiPatterns(),
	}
}

// ReviewComponentPlan checks a proposed component name/description against
// the registry and the design-principle knowledge base (spec §4.8).
func (a *Authority) ReviewComponentPlan(name, description string) domain.DesignReview {
	if a.registry.CheckExists(name) {
		return domain.DesignReview{
			Severity: domain.DecisionError,
			Summary:  fmt.Sprintf("component %q already exists", name),
			Alternatives: append([]string{fmt.Sprintf("reuse existing component %q", name)},
				a.recommendAlternatives(description)...),
		}
	}
	review := a.analyzePlan(description)
	review.Alternatives = a.recommendAlternatives(description)
	return review
}

func (a *Authority) analyzePlan(description string) domain.DesignReview {
	lower := strings.ToLower(description)
	review := domain.DesignReview{Severity: domain.DecisionInfo}

	for _, p := range a.principles {
		for _, flag := range p.RedFlags {
			if strings.Contains(lower, flag) {
				review.Findings = append(review.Findings, fmt.Sprintf("%s: red flag %q", p.Name, flag))
				if p.Severity == domain.SeverityRequired && review.Severity != domain.DecisionError {
					review.Severity = domain.DecisionWarning
				}
			}
		}
	}
	for _, ap := range a.antiPatterns {
		for _, m := range ap.Manifestations {
			if strings.Contains(lower, m) {
				review.Findings = append(review.Findings, fmt.Sprintf("anti-pattern %s: %s", ap.Name, m))
				if ap.Severity == domain.AntiPatternCritical {
					review.Severity = domain.DecisionError
				} else if ap.Severity == domain.AntiPatternMajor && review.Severity != domain.DecisionError {
					review.Severity = domain.DecisionWarning
				}
			}
		}
	}
	if review.Summary == "" {
		if len(review.Findings) == 0 {
			review.Summary = "no concerns"
		} else {
			review.Summary = fmt.Sprintf("%d finding(s)", len(review.Findings))
		}
	}
	return review
}

func (a *Authority) recommendAlternatives(description string) []string {
	lower := strings.ToLower(description)
	var out []string
	for pattern, alt := range rules.PreferredAlternatives() {
		if strings.Contains(lower, pattern) {
			out = append(out, fmt.Sprintf("%s -> %s", pattern, alt))
		}
	}
	return out
}

// ComplexityMetrics is the structural measurement passed to
// ReviewCodeComplexity. The caller (Vibe Check, or a CLI front end) is
// responsible for deriving these from source; both share the same counting
// rules.
type ComplexityMetrics struct {
	FunctionLines int
	NestingDepth  int
	Parameters    int
}

// ReviewCodeComplexity flags a function whose measured shape exceeds the
// configured thresholds (spec §4.8).
func (a *Authority) ReviewCodeComplexity(name string, m ComplexityMetrics) domain.DesignReview {
	review := domain.DesignReview{Severity: domain.DecisionInfo, Summary: "within thresholds"}

	maxLines := a.cfg.MaxFunctionLines
	if maxLines == 0 {
		maxLines = 30
	}
	maxNesting := a.cfg.MaxNestingDepth
	if maxNesting == 0 {
		maxNesting = 3
	}
	maxParams := a.cfg.MaxParameters
	if maxParams == 0 {
		maxParams = 5
	}

	if m.FunctionLines > maxLines {
		review.Findings = append(review.Findings, fmt.Sprintf("%s: %d lines exceeds limit %d", name, m.FunctionLines, maxLines))
		review.Severity = domain.DecisionWarning
	}
	if m.NestingDepth > maxNesting {
		review.Findings = append(review.Findings, fmt.Sprintf("%s: nesting depth %d exceeds limit %d", name, m.NestingDepth, maxNesting))
		review.Severity = domain.DecisionWarning
	}
	if m.Parameters > maxParams {
		review.Findings = append(review.Findings, fmt.Sprintf("%s: %d parameters exceeds limit %d", name, m.Parameters, maxParams))
		review.Severity = domain.DecisionWarning
	}
	if len(review.Findings) > 0 {
		review.Summary = fmt.Sprintf("%d finding(s)", len(review.Findings))
	}
	return review
}
