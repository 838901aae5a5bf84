// Package dashboard exposes a read-only JSON introspection API over the
// orchestrator's state: tasks, PRs, inbox entries, and delivery receipts.
// It sits alongside the CLI and MCP surfaces, not in place of them.
package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jaakkos/orchestrator/internal/appwire"
	"github.com/jaakkos/orchestrator/internal/inbox"
)

// NewRouter builds the dashboard's chi router against a wired App.
func NewRouter(app *appwire.App) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/state", stateHandler(app))
	r.Get("/api/fsm/{id}", fsmShowHandler(app))
	r.Get("/api/inbox/{agent}", inboxHandler(app))
	r.Get("/api/pr/{id}", prShowHandler(app))
	return r
}

// StateSnapshot is the /api/state response: a cheap aggregate of the
// orchestrator's current state, mirroring what cmd/orchestrator's individual
// subcommands report piecemeal.
type StateSnapshot struct {
	Mode      string            `json:"mode"`
	Agents    []string          `json:"agents"`
	TaskCount int               `json:"task_count"`
	ByState   map[string]int    `json:"by_state"`
	PRCount   int               `json:"pr_count"`
	Summary   projectSummaryDTO `json:"project"`
}

type projectSummaryDTO struct {
	ProjectName    string `json:"project_name"`
	ComponentCount int    `json:"component_count"`
	ActiveAgents   int    `json:"active_agents"`
}

func stateHandler(app *appwire.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, _ := app.Engine.List()
		byState := make(map[string]int)
		for _, t := range tasks {
			byState[string(t.State)]++
		}
		summary := app.Project.Summary()
		snap := StateSnapshot{
			Mode:      app.Config.Mode,
			Agents:    app.Registry.ActiveAgents(),
			TaskCount: len(tasks),
			ByState:   byState,
			PRCount:   len(app.PR.List("")),
			Summary: projectSummaryDTO{
				ProjectName:    summary.ProjectName,
				ComponentCount: summary.ComponentCount,
				ActiveAgents:   len(summary.ActiveAgents),
			},
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func fsmShowHandler(app *appwire.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		t, err := app.Engine.Get(id)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func inboxHandler(app *appwire.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent := chi.URLParam(r, "agent")
		entries, err := app.Inbox.List(agent, inbox.Filter{})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func prShowHandler(app *appwire.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		pr, ok := app.PR.Get(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "pr not found"})
			return
		}
		writeJSON(w, http.StatusOK, pr)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
