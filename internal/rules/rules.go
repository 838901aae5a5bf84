// Package rules holds the static design-principle and anti-pattern knowledge
// base shared by the Project Registry (component H) and Design Authority
// (component I).
package rules

import "github.com/jaakkos/orchestrator/internal/domain"

// DefaultPrinciples returns the built-in KISS/YAGNI/single-responsibility
// rule set with red-flag keyword lists.
func DefaultPrinciples() []domain.DesignPrinciple {
	return []domain.DesignPrinciple{
		{
			Name:        "KISS",
			Severity:    domain.SeverityRecommended,
			Description: "Keep It Simple, Stupid",
			RedFlags:    []string{"complex", "advanced", "sophisticated", "enterprise", "framework", "architecture", "pattern", "design"},
		},
		{
			Name:        "YAGNI",
			Severity:    domain.SeverityRecommended,
			Description: "You Aren't Gonna Need It",
			RedFlags:    []string{"future-proof", "extensible", "scalable", "generic", "reusable", "flexible", "configurable"},
		},
		{
			Name:        "SingleResponsibility",
			Severity:    domain.SeverityRequired,
			Description: "One component, one purpose",
			RedFlags:    []string{"manager", "handler", "controller", "processor", "service", "facade", "adapter"},
		},
	}
}

// DefaultAntiPatterns returns the built-in anti-pattern manifestation list.
func DefaultAntiPatterns() []domain.AntiPattern {
	return []domain.AntiPattern{
		{Name: "premature_interface", Severity: domain.AntiPatternCritical, Manifestations: []string{"creating interfaces before understanding requirements"}},
		{Name: "premature_generic", Severity: domain.AntiPatternCritical, Manifestations: []string{"building generic solutions for specific problems"}},
		{Name: "overengineering", Severity: domain.AntiPatternMajor, Manifestations: []string{"over-engineering simple data structures"}},
		{Name: "premature_optimization", Severity: domain.AntiPatternMajor, Manifestations: []string{"premature optimization"}},
		{Name: "complex_inheritance", Severity: domain.AntiPatternCritical, Manifestations: []string{"complex inheritance hierarchies"}},
		{Name: "deep_nesting", Severity: domain.AntiPatternMajor, Manifestations: []string{"deeply nested conditional logic"}},
		{Name: "too_many_parameters", Severity: domain.AntiPatternMinor, Manifestations: []string{"functions with too many parameters"}},
		{Name: "god_class", Severity: domain.AntiPatternCritical, Manifestations: []string{"classes with too many responsibilities"}},
	}
}

// PreferredAlternatives maps a complex-pattern keyword to a simpler one,
// used to synthesize recommendations.
func PreferredAlternatives() map[string]string {
	return map[string]string{
		"complex_class": "simple_function",
		"inheritance":   "composition",
		"interface":     "concrete_type",
		"factory":       "direct_instantiation",
		"builder":       "constructor",
		"strategy":      "if_statement",
		"observer":      "callback_function",
	}
}
