// Package registry implements the Agent Registry & Coordinate Map (spec component A):
// a catalog of known agents and their addressing metadata per operating mode.
package registry

import (
	"sync"
	"time"

	"github.com/jaakkos/orchestrator/internal/domain"
)

// Registry is read by many and written rarely (startup + status changes);
// a single RWMutex with small critical sections is sufficient.
type Registry struct {
	mu   sync.RWMutex
	mode string
	// addresses[agentID][mode] -> AgentAddress
	addresses map[string]map[string]domain.AgentAddress
	agents    map[string]*domain.Agent
	active    map[string][]string // mode -> active agent ids, in registration order
}

// New creates an empty registry with no active mode set.
func New() *Registry {
	return &Registry{
		addresses: make(map[string]map[string]domain.AgentAddress),
		agents:    make(map[string]*domain.Agent),
		active:    make(map[string][]string),
	}
}

// Register adds or updates an agent and its per-mode addressing.
// addressByMode maps mode name to the AgentAddress for that mode; an agent is
// considered active in a mode iff it has an entry for that mode.
func (r *Registry) Register(agent domain.Agent, addressByMode map[string]domain.AgentAddress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if agent.Status == "" {
		agent.Status = domain.StatusOffline
	}
	if agent.RegisteredAt.IsZero() {
		agent.RegisteredAt = time.Now()
	}
	a := agent
	r.agents[agent.ID] = &a

	if r.addresses[agent.ID] == nil {
		r.addresses[agent.ID] = make(map[string]domain.AgentAddress)
	}
	for mode, addr := range addressByMode {
		r.addresses[agent.ID][mode] = addr
		if !containsStr(r.active[mode], agent.ID) {
			r.active[mode] = append(r.active[mode], agent.ID)
		}
	}
}

// SetMode sets the current operating mode. Immutable for the life of a run
// in spec terms; callers are expected to call this once at startup.
func (r *Registry) SetMode(mode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
}

// Mode returns the current operating mode.
func (r *Registry) Mode() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

// ActiveAgents returns the agent ids active in the current mode, materialized
// as a fresh slice (copy-on-read) so callers can retain it safely. This is
// what the Dispatcher uses to eagerly materialize broadcast recipients.
func (r *Registry) ActiveAgents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.active[r.mode]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Address returns the AgentAddress for agentID in the current mode.
// Fails with domain.ErrUnknownAddress if the agent has no address configured
// for the current mode.
func (r *Registry) Address(agentID string) (domain.AgentAddress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byMode, ok := r.addresses[agentID]
	if !ok {
		return domain.AgentAddress{}, domain.ErrUnknownAddress
	}
	addr, ok := byMode[r.mode]
	if !ok {
		return domain.AgentAddress{}, domain.ErrUnknownAddress
	}
	return addr, nil
}

// SetStatus sets an agent's status. Status transitions are unrestricted
// (informational only, per spec §4.1).
func (r *Registry) SetStatus(agentID string, status domain.AgentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return domain.ErrUnknownAgent
	}
	a.Status = status
	return nil
}

// Get returns a copy of the agent record, or false if unknown.
func (r *Registry) Get(agentID string) (domain.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[agentID]
	if !ok {
		return domain.Agent{}, false
	}
	return *a, true
}

// KnownInMode reports whether agentID is active in the current mode, i.e.
// a valid message recipient.
func (r *Registry) KnownInMode(agentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return containsStr(r.active[r.mode], agentID)
}

func containsStr(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
