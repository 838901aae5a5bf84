package domain

import "time"

// ComponentStatus is the lifecycle status of a registered Component.
type ComponentStatus string

const (
	ComponentActive      ComponentStatus = "active"
	ComponentDeprecated  ComponentStatus = "deprecated"
	ComponentRefactoring ComponentStatus = "refactoring"
)

// Component is a Project Registry entry describing a named piece of the system.
type Component struct {
	Name         string          `json:"name"`
	Path         string          `json:"path"`
	Purpose      string          `json:"purpose"`
	Owner        string          `json:"owner"`
	Dependencies []string        `json:"dependencies,omitempty"`
	Status       ComponentStatus `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	ModifiedAt   time.Time       `json:"modified_at"`
}

// PrincipleSeverity is how strongly a DesignPrinciple is enforced.
type PrincipleSeverity string

const (
	SeverityRequired    PrincipleSeverity = "required"
	SeverityRecommended PrincipleSeverity = "recommended"
	SeverityOptional    PrincipleSeverity = "optional"
)

// DesignPrinciple is a rule with red-flag keywords used for plan validation.
type DesignPrinciple struct {
	Name      string            `json:"name"`
	Severity  PrincipleSeverity `json:"severity"`
	RedFlags  []string          `json:"red_flags"`
	Description string          `json:"description,omitempty"`
}

// AntiPatternSeverity is how serious an AntiPattern violation is.
type AntiPatternSeverity string

const (
	AntiPatternCritical AntiPatternSeverity = "critical"
	AntiPatternMajor    AntiPatternSeverity = "major"
	AntiPatternMinor    AntiPatternSeverity = "minor"
)

// AntiPattern is a rule matched by manifestation substrings.
type AntiPattern struct {
	Name           string              `json:"name"`
	Severity       AntiPatternSeverity `json:"severity"`
	Manifestations []string            `json:"manifestations"`
	Description    string              `json:"description,omitempty"`
}

// CodePattern is a recommended pattern with detection hints, informational only.
type CodePattern struct {
	Name  string   `json:"name"`
	Hints []string `json:"hints"`
}

// RegistrySnapshot is the single-file, on-disk form of the Project Registry (spec §6).
type RegistrySnapshot struct {
	ProjectName  string               `json:"project_name"`
	Version      string               `json:"version"`
	Components   map[string]Component `json:"components"`
	Patterns     []CodePattern        `json:"patterns"`
	LastUpdated  time.Time            `json:"last_updated"`
	ActiveAgents []string             `json:"active_agents"`
}
