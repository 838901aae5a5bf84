package dispatch

import (
	"sync"
	"time"

	"github.com/jaakkos/orchestrator/internal/domain"
)

// ReceiptPersister durably records receipts as they change. The production
// wiring is a SQLite-backed store (see sqlite_receipts.go); tests can pass
// nil to keep everything in memory.
type ReceiptPersister interface {
	Persist(domain.Receipt) error
	LoadAll() ([]domain.Receipt, error)
}

// RecipientCounters are the aggregated success/failure counts for one agent.
type RecipientCounters struct {
	Success  int
	Failure  int
	LastSeen time.Time
}

// StatusTracker is the Dispatcher's DeliveryStatusTracker (spec §4.4): it
// owns per-message receipts and per-recipient aggregated counters, and is
// the only writer of message/receipt status (spec §5).
type StatusTracker struct {
	mu        sync.RWMutex
	receipts  map[string]map[string]domain.Receipt // messageID -> recipient -> Receipt
	counters  map[string]*RecipientCounters
	persister ReceiptPersister
}

// NewStatusTracker creates a tracker, optionally backed by a persister whose
// prior receipts are reloaded immediately.
func NewStatusTracker(persister ReceiptPersister) (*StatusTracker, error) {
	t := &StatusTracker{
		receipts:  make(map[string]map[string]domain.Receipt),
		counters:  make(map[string]*RecipientCounters),
		persister: persister,
	}
	if persister != nil {
		prior, err := persister.LoadAll()
		if err != nil {
			return nil, err
		}
		for _, r := range prior {
			t.recordLocked(r)
		}
	}
	return t, nil
}

// Record stores a receipt, updates aggregated counters, and persists it.
func (t *StatusTracker) Record(r domain.Receipt) error {
	t.mu.Lock()
	t.recordLocked(r)
	t.mu.Unlock()
	if t.persister != nil {
		return t.persister.Persist(r)
	}
	return nil
}

func (t *StatusTracker) recordLocked(r domain.Receipt) {
	byRecipient, ok := t.receipts[r.MessageID]
	if !ok {
		byRecipient = make(map[string]domain.Receipt)
		t.receipts[r.MessageID] = byRecipient
	}
	byRecipient[r.Recipient] = r

	c, ok := t.counters[r.Recipient]
	if !ok {
		c = &RecipientCounters{}
		t.counters[r.Recipient] = c
	}
	switch r.Status {
	case domain.ReceiptDelivered:
		c.Success++
	case domain.ReceiptFailed:
		c.Failure++
	}
	c.LastSeen = r.UpdatedAt
}

// Receipts returns every receipt recorded for a message, unordered.
func (t *StatusTracker) Receipts(messageID string) []domain.Receipt {
	t.mu.RLock()
	defer t.mu.RUnlock()
	byRecipient := t.receipts[messageID]
	out := make([]domain.Receipt, 0, len(byRecipient))
	for _, r := range byRecipient {
		out = append(out, r)
	}
	return out
}

// MessageStatus derives the aggregate message status from its receipts: a
// message is delivered iff every recipient has a delivered receipt; failed
// if any receipt is failed; otherwise still in flight (spec §3).
func (t *StatusTracker) MessageStatus(messageID string, totalRecipients int) domain.MessageStatus {
	receipts := t.Receipts(messageID)
	if len(receipts) < totalRecipients {
		return domain.MessageSending
	}
	delivered := 0
	for _, r := range receipts {
		if r.Status == domain.ReceiptFailed {
			return domain.MessageFailed
		}
		if r.Status == domain.ReceiptDelivered {
			delivered++
		}
	}
	if delivered == totalRecipients {
		return domain.MessageDelivered
	}
	return domain.MessageSending
}

// Counters returns the aggregated counters for one recipient.
func (t *StatusTracker) Counters(recipient string) RecipientCounters {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.counters[recipient]
	if !ok {
		return RecipientCounters{}
	}
	return *c
}
