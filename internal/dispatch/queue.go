// Package dispatch implements the Message Dispatcher (spec component D): a
// priority queue, worker pool, retry/backoff, and delivery-status tracker
// driving the Agent Registry (A), Delivery Adapter (B), and Inbox Store (C).
package dispatch

import (
	"container/heap"

	"github.com/jaakkos/orchestrator/internal/domain"
)

// item is one entry in the priority heap: a message plus the monotonic
// insertion sequence used as the final ordering tiebreaker so two messages
// enqueued in the same nanosecond still have a deterministic, stable order.
type item struct {
	msg       *domain.Message
	insertSeq int64
	index     int
}

// priorityHeap is a min-heap ordered so Pop yields the message that should
// be processed first: highest priority, then earliest created_at, then
// earliest insertion.
type priorityHeap []*item

func (h priorityHeap) Len() int { return len(h) }

func (h priorityHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.msg.Priority != b.msg.Priority {
		return a.msg.Priority > b.msg.Priority // higher priority first
	}
	if !a.msg.CreatedAt.Equal(b.msg.CreatedAt) {
		return a.msg.CreatedAt.Before(b.msg.CreatedAt)
	}
	return a.insertSeq < b.insertSeq
}

func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *priorityHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

var _ = heap.Interface(&priorityHeap{})
