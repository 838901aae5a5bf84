// Package prreview implements the PR Review Protocol (spec component K):
// agent-to-agent pull-request lifecycle, deterministic reviewer assignment,
// and decision aggregation over the Project Registry, Design Authority, and
// Vibe Check.
package prreview

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jaakkos/orchestrator/internal/domain"
)

// store is the single-file JSON persistence layer (spec §6: "a single file
// with pull_requests and review_history").
type store struct {
	path string
	mu   sync.Mutex
	data domain.PRStoreSnapshot
}

func newStore(dataRoot string) (*store, error) {
	s := &store{path: filepath.Join(dataRoot, "pr_store.json")}
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *store) saveLocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *store) findPR(id string) (int, bool) {
	for i, pr := range s.data.PullRequests {
		if pr.ID == id {
			return i, true
		}
	}
	return -1, false
}

func newPRID() string { return uuid.NewString() }

// sortedHistory returns a copy of history sorted oldest-first, a stable basis for "last N".
func sortedHistory(history []domain.ReviewResult) []domain.ReviewResult {
	out := append([]domain.ReviewResult(nil), history...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
