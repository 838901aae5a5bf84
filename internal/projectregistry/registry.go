// Package projectregistry implements the Project Registry (spec component
// H): the single source of truth for named components, ownership, and
// design patterns. Persistence is one file, as spec §6 requires.
package projectregistry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jaakkos/orchestrator/internal/domain"
	"github.com/jaakkos/orchestrator/internal/rules"
)

// ValidationResult is the return value of ValidateDesignDecision.
type ValidationResult struct {
	Valid           bool     `json:"valid"`
	Violations      []string `json:"violations"`
	Recommendations []string `json:"recommendations"`
}

// Registry is the Project Registry. A single RWMutex guards the in-memory
// snapshot; every mutating call persists the whole file (spec §6: "a single
// file with {project_name, version, components, patterns, last_updated,
// active_agents}").
type Registry struct {
	path string

	mu           sync.RWMutex
	snapshot     domain.RegistrySnapshot
	principles   []domain.DesignPrinciple
	antiPatterns []domain.AntiPattern
}

// New creates a Registry backed by dataRoot/registry.json, loading any
// existing snapshot. A missing file starts from an empty registry.
func New(dataRoot, projectName string) (*Registry, error) {
	r := &Registry{
		path:         filepath.Join(dataRoot, "registry.json"),
		principles:   rules.DefaultPrinciples(),
		antiPatterns: rules.DefaultAntiPatterns(),
	}
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		r.snapshot = domain.RegistrySnapshot{
			ProjectName: projectName,
			Version:     "1.0.0",
			Components:  make(map[string]domain.Component),
			LastUpdated: time.Now(),
		}
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("projectregistry: read: %w", err)
	}
	if err := json.Unmarshal(data, &r.snapshot); err != nil {
		return nil, fmt.Errorf("projectregistry: decode: %w", err)
	}
	if r.snapshot.Components == nil {
		r.snapshot.Components = make(map[string]domain.Component)
	}
	return r, nil
}

func (r *Registry) saveLocked() error {
	r.snapshot.LastUpdated = time.Now()
	data, err := json.MarshalIndent(r.snapshot, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

// RegisterComponent adds a new Component. Fails if the name is already taken
// (spec invariant 6: component names are globally unique).
func (r *Registry) RegisterComponent(c domain.Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.snapshot.Components[c.Name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateComponent, c.Name)
	}
	now := time.Now()
	c.CreatedAt = now
	c.ModifiedAt = now
	if c.Status == "" {
		c.Status = domain.ComponentActive
	}
	r.snapshot.Components[c.Name] = c
	return r.saveLocked()
}

// GetComponent returns a component by name.
func (r *Registry) GetComponent(name string) (domain.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.snapshot.Components[name]
	if !ok {
		return domain.Component{}, domain.ErrComponentNotFound
	}
	return c, nil
}

// CheckExists reports whether name is already registered.
func (r *Registry) CheckExists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.snapshot.Components[name]
	return ok
}

// Update merges fields into an existing component.
func (r *Registry) Update(name string, mutate func(*domain.Component)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.snapshot.Components[name]
	if !ok {
		return domain.ErrComponentNotFound
	}
	mutate(&c)
	c.ModifiedAt = time.Now()
	r.snapshot.Components[name] = c
	return r.saveLocked()
}

// TransferOwnership reassigns a component's owner.
func (r *Registry) TransferOwnership(name, newOwner string) error {
	return r.Update(name, func(c *domain.Component) { c.Owner = newOwner })
}

// List returns components, optionally filtered by owner (empty string = all),
// sorted by name for deterministic output.
func (r *Registry) List(byOwner string) []domain.Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Component, 0, len(r.snapshot.Components))
	for _, c := range r.snapshot.Components {
		if byOwner != "" && c.Owner != byOwner {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Summary returns project name, version, component count, and active agents.
type Summary struct {
	ProjectName    string   `json:"project_name"`
	Version        string   `json:"version"`
	ComponentCount int      `json:"component_count"`
	ActiveAgents   []string `json:"active_agents"`
}

// Summary returns a snapshot summary.
func (r *Registry) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Summary{
		ProjectName:    r.snapshot.ProjectName,
		Version:        r.snapshot.Version,
		ComponentCount: len(r.snapshot.Components),
		ActiveAgents:   append([]string{}, r.snapshot.ActiveAgents...),
	}
}

// FindByBasenameSubstring returns components whose path basename has a
// case-insensitive substring overlap with needle. Used by the PR Review
// Protocol's duplication check.
func (r *Registry) FindByBasenameSubstring(needle string) []domain.Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle = strings.ToLower(needle)
	var out []domain.Component
	for _, c := range r.snapshot.Components {
		base := strings.ToLower(filepath.Base(c.Path))
		if strings.Contains(base, needle) || strings.Contains(needle, base) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ValidateDesignDecision scans text against every principle's red-flag
// keyword list and every anti-pattern's manifestations (spec §4.7).
func (r *Registry) ValidateDesignDecision(text, taskContext string) ValidationResult {
	_ = taskContext
	lower := strings.ToLower(text)
	res := ValidationResult{Valid: true}

	for _, p := range r.principles {
		for _, flag := range p.RedFlags {
			if strings.Contains(lower, flag) {
				res.Violations = append(res.Violations, fmt.Sprintf("%s: contains complexity indicator %q", p.Name, flag))
				res.Valid = false
			}
		}
	}
	for _, ap := range r.antiPatterns {
		for _, m := range ap.Manifestations {
			if strings.Contains(lower, m) {
				res.Violations = append(res.Violations, fmt.Sprintf("anti-pattern %s: %s", ap.Name, m))
				if ap.Severity == domain.AntiPatternCritical || ap.Severity == domain.AntiPatternMajor {
					res.Valid = false
				}
			}
		}
	}
	for pattern, alt := range rules.PreferredAlternatives() {
		if strings.Contains(lower, pattern) {
			res.Recommendations = append(res.Recommendations, fmt.Sprintf("consider %s instead of %s", alt, pattern))
		}
	}
	return res
}
