// Package inbox implements the Inbox Store (spec component C): a per-agent,
// append-only, durable mailbox. Persistence follows spec §6 literally: a
// directory per agent holding one JSON file per entry, plus a small metadata
// file tracking the monotonic sequence counter.
package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jaakkos/orchestrator/internal/domain"
)

// EntryID identifies one InboxEntry for mark_read/acknowledge.
type EntryID struct {
	Agent string
	Seq   int64
}

// String renders the id the way CLI/MCP surfaces reference it.
func (id EntryID) String() string { return fmt.Sprintf("%s#%d", id.Agent, id.Seq) }

// ParseEntryID parses the String() form back into an EntryID.
func ParseEntryID(s string) (EntryID, error) {
	i := strings.LastIndex(s, "#")
	if i < 0 {
		return EntryID{}, fmt.Errorf("inbox: malformed entry id %q", s)
	}
	seq, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return EntryID{}, fmt.Errorf("inbox: malformed entry id %q: %w", s, err)
	}
	return EntryID{Agent: s[:i], Seq: seq}, nil
}

// Filter narrows Store.List results.
type Filter struct {
	Direction  *domain.InboxDirection
	UnreadOnly bool
	Limit      int // 0 means no limit
}

type meta struct {
	NextSeq int64 `json:"next_seq"`
}

// Store is the durable per-agent inbox.
type Store struct {
	root string
	mu   sync.Mutex // serializes all writes; reads take a per-call lock too for simplicity
}

// New creates a Store rooted at dataRoot/inboxes.
func New(dataRoot string) *Store {
	return &Store{root: filepath.Join(dataRoot, "inboxes")}
}

func (s *Store) agentDir(agent string) string {
	return filepath.Join(s.root, sanitize(agent))
}

func sanitize(agent string) string {
	return strings.ReplaceAll(agent, string(filepath.Separator), "_")
}

func (s *Store) metaPath(agent string) string {
	return filepath.Join(s.agentDir(agent), "_meta.json")
}

func (s *Store) entryPath(agent string, seq int64) string {
	return filepath.Join(s.agentDir(agent), fmt.Sprintf("%020d.json", seq))
}

func (s *Store) loadMeta(agent string) (meta, error) {
	data, err := os.ReadFile(s.metaPath(agent))
	if os.IsNotExist(err) {
		return meta{NextSeq: 1}, nil
	}
	if err != nil {
		return meta{}, err
	}
	var m meta
	if err := json.Unmarshal(data, &m); err != nil {
		return meta{}, err
	}
	if m.NextSeq == 0 {
		m.NextSeq = 1
	}
	return m, nil
}

func (s *Store) saveMeta(agent string, m meta) error {
	return atomicWriteJSON(s.metaPath(agent), m)
}

// Append adds a new entry for entry.Agent, assigning the next monotonic
// sequence number, and persists it durably before returning.
func (s *Store) Append(entry domain.InboxEntry) (domain.InboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.agentDir(entry.Agent), 0o755); err != nil {
		return domain.InboxEntry{}, fmt.Errorf("inbox: mkdir: %w", err)
	}
	m, err := s.loadMeta(entry.Agent)
	if err != nil {
		return domain.InboxEntry{}, fmt.Errorf("inbox: load meta: %w", err)
	}
	entry.Seq = m.NextSeq
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}
	if err := atomicWriteJSON(s.entryPath(entry.Agent, entry.Seq), entry); err != nil {
		return domain.InboxEntry{}, fmt.Errorf("inbox: write entry: %w", err)
	}
	m.NextSeq++
	if err := s.saveMeta(entry.Agent, m); err != nil {
		return domain.InboxEntry{}, fmt.Errorf("inbox: save meta: %w", err)
	}
	return entry, nil
}

// List returns entries for agent matching filter, oldest first. An entry
// file that cannot be read or decoded is skipped without an error, so the
// rest of the inbox remains usable (spec §7).
func (s *Store) List(agent string, filter Filter) ([]domain.InboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(agent, filter)
}

func (s *Store) listLocked(agent string, filter Filter) ([]domain.InboxEntry, error) {
	dir := s.agentDir(agent)
	names, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inbox: read dir: %w", err)
	}
	var entries []domain.InboxEntry
	for _, n := range names {
		if n.IsDir() || n.Name() == "_meta.json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, n.Name()))
		if err != nil {
			continue // persistence corruption: skip, never auto-repair silently
		}
		var e domain.InboxEntry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		if filter.Direction != nil && e.Direction != *filter.Direction {
			continue
		}
		if filter.UnreadOnly && e.Read {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[len(entries)-filter.Limit:]
	}
	return entries, nil
}

// MarkRead sets the read flag on one entry. Idempotent.
func (s *Store) MarkRead(id EntryID) error {
	return s.updateEntry(id, func(e *domain.InboxEntry) { e.Read = true })
}

// Acknowledge sets the acknowledged flag on one entry. Idempotent.
func (s *Store) Acknowledge(id EntryID) error {
	return s.updateEntry(id, func(e *domain.InboxEntry) { e.Acknowledged = true })
}

func (s *Store) updateEntry(id EntryID, mutate func(*domain.InboxEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.entryPath(id.Agent, id.Seq)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("inbox: entry not found: %w", err)
	}
	var e domain.InboxEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("inbox: corrupt entry: %w", err)
	}
	mutate(&e)
	return atomicWriteJSON(path, e)
}

// Counts returns the unread and total entry counts for agent.
func (s *Store) Counts(agent string) (unread, total int, err error) {
	entries, err := s.List(agent, Filter{})
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		if !e.Read {
			unread++
		}
	}
	return unread, len(entries), nil
}

// PurgeBefore deletes entries with StoredAt before ts (retention).
func (s *Store) PurgeBefore(agent string, ts time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.listLocked(agent, Filter{})
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.StoredAt.Before(ts) {
			if err := os.Remove(s.entryPath(agent, e.Seq)); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
