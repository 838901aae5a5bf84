package dispatch

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jaakkos/orchestrator/internal/config"
	"github.com/jaakkos/orchestrator/internal/delivery"
	"github.com/jaakkos/orchestrator/internal/domain"
	"github.com/jaakkos/orchestrator/internal/inbox"
	"github.com/jaakkos/orchestrator/internal/registry"
)

// AllAgentsSentinel is the recipient value meaning "every agent active in
// the current mode at enqueue time" (spec invariant: broadcast recipients
// are materialized eagerly).
const AllAgentsSentinel = "all"

// Dispatcher is the Message Dispatcher (spec component D): a priority heap,
// an N-worker pool, retry/backoff, cancellation, and the DeliveryStatusTracker.
type Dispatcher struct {
	cfg      config.DispatcherConfig
	registry *registry.Registry
	adapter  delivery.Adapter
	inbox    *inbox.Store
	tracker  *StatusTracker
	logger   *zap.SugaredLogger

	mu        sync.Mutex
	cond      *sync.Cond
	heap      priorityHeap
	gates     *gateRegistry
	insertSeq int64
	stopped   bool
	cancelled map[string]bool

	group *errgroup.Group
}

// New constructs a Dispatcher. tracker may be shared across restarts (it owns
// the persisted receipts); adapter is the Delivery Adapter (component B).
func New(cfg config.DispatcherConfig, reg *registry.Registry, adapter delivery.Adapter, ibx *inbox.Store, tracker *StatusTracker, logger *zap.SugaredLogger) *Dispatcher {
	d := &Dispatcher{
		cfg:       cfg,
		registry:  reg,
		adapter:   adapter,
		inbox:     ibx,
		tracker:   tracker,
		logger:    logger,
		gates:     newGateRegistry(),
		cancelled: make(map[string]bool),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Enqueue validates and admits a message. Broadcast/system_broadcast
// messages addressed to AllAgentsSentinel are materialized against the
// registry's current active set immediately (spec invariant 7).
func (d *Dispatcher) Enqueue(msg domain.Message) (domain.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.Status = domain.MessageQueued

	if len(msg.Recipients) == 1 && msg.Recipients[0] == AllAgentsSentinel {
		msg.Recipients = d.registry.ActiveAgents()
	}
	if len(msg.Recipients) == 0 {
		return domain.Message{}, domain.ErrEmptyRecipients
	}
	for _, r := range msg.Recipients {
		if !d.registry.KnownInMode(r) {
			return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, r)
		}
	}

	m := msg
	d.mu.Lock()
	d.insertSeq++
	it := &item{msg: &m, insertSeq: d.insertSeq}
	heap.Push(&d.heap, it)
	d.cond.Signal()
	d.mu.Unlock()

	if d.inbox != nil && m.Sender != "" && m.Sender != domain.SenderSystem {
		_, _ = d.inbox.Append(domain.InboxEntry{
			Agent:     m.Sender,
			MessageID: m.ID,
			Direction: domain.DirectionOutbound,
			Message:   m,
		})
	}
	return m, nil
}

// Cancel marks a message cancelled; non-terminal receipts become
// failed(cancelled) and no further attempts are made. In-flight adapter
// calls are allowed to finish (spec §4.4).
func (d *Dispatcher) Cancel(messageID string) {
	d.mu.Lock()
	d.cancelled[messageID] = true
	d.mu.Unlock()
}

func (d *Dispatcher) isCancelled(messageID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled[messageID]
}

// Tracker exposes the DeliveryStatusTracker for read-only queries.
func (d *Dispatcher) Tracker() *StatusTracker { return d.tracker }

// popLocked blocks until a message is available or the dispatcher stops; it
// assigns each recipient's ticket at the moment of pop, so ticket order
// always matches heap-pop order (spec's per-recipient FIFO guarantee).
func (d *Dispatcher) popLocked() (*item, map[string]int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.heap.Len() == 0 && !d.stopped {
		d.cond.Wait()
	}
	if d.heap.Len() == 0 {
		return nil, nil, false
	}
	it := heap.Pop(&d.heap).(*item)
	tickets := make(map[string]int64, len(it.msg.Recipients))
	for _, r := range it.msg.Recipients {
		tickets[r] = d.gates.nextTicket(r)
	}
	return it, tickets, true
}

// Run starts the N-worker pool; it returns when ctx is cancelled and every
// worker has exited. Shutdown cancels ctx and waits for that for at most the
// configured grace period.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	d.group = g
	n := d.cfg.Workers
	if n <= 0 {
		n = 4
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			d.workerLoop(gctx)
			return nil
		})
	}
	go func() {
		<-ctx.Done()
		d.mu.Lock()
		d.stopped = true
		d.cond.Broadcast()
		d.mu.Unlock()
	}()
	return g.Wait()
}

// Shutdown stops accepting new pops and gives in-flight work up to the
// configured grace period (default 5s) to finish. If every worker exits in
// time it returns the pool's result; otherwise it returns nil when the grace
// period ends, while workers may still be running. Attempts still in flight
// at that point are not marked failed(cancelled).
func (d *Dispatcher) Shutdown(cancel context.CancelFunc) error {
	grace := d.cfg.ShutdownGraceSec
	if grace <= 0 {
		grace = 5
	}
	cancel()
	done := make(chan error, 1)
	go func() { done <- d.group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(time.Duration(grace) * time.Second):
		return nil
	}
}

func (d *Dispatcher) workerLoop(ctx context.Context) {
	for {
		it, tickets, ok := d.popLocked()
		if !ok {
			return
		}
		d.processItem(ctx, it, tickets)
	}
}

func (d *Dispatcher) processItem(ctx context.Context, it *item, tickets map[string]int64) {
	msg := it.msg
	for _, recipient := range msg.Recipients {
		gate := d.lockedGateFor(recipient)
		gate.waitTurn(tickets[recipient])
		d.deliverToRecipient(ctx, msg, recipient)
		gate.done(tickets[recipient])
	}
}

func (d *Dispatcher) lockedGateFor(recipient string) *recipientGate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gates.gateFor(recipient)
}

func (d *Dispatcher) deliverToRecipient(ctx context.Context, msg *domain.Message, recipient string) {
	if d.isCancelled(msg.ID) {
		d.record(msg.ID, recipient, domain.ReceiptFailed, "cancelled")
		return
	}
	addr, err := d.registry.Address(recipient)
	if err != nil {
		d.record(msg.ID, recipient, domain.ReceiptFailed, err.Error())
		return
	}
	rendered := renderPayload(*msg, d.adapter.SupportsHighPriorityMarker())

	maxAttempts := d.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if d.isCancelled(msg.ID) {
			d.record(msg.ID, recipient, domain.ReceiptFailed, "cancelled")
			return
		}
		callCtx := ctx
		var cancel context.CancelFunc
		if d.cfg.CallTimeoutMs > 0 {
			callCtx, cancel = context.WithTimeout(ctx, time.Duration(d.cfg.CallTimeoutMs)*time.Millisecond)
		}
		outcome := d.adapter.Deliver(callCtx, addr, rendered)
		if cancel != nil {
			cancel()
		}
		msg.Attempts++

		switch outcome.Kind {
		case delivery.OutcomeOK:
			d.record(msg.ID, recipient, domain.ReceiptDelivered, "")
			if d.inbox != nil {
				_, _ = d.inbox.Append(domain.InboxEntry{
					Agent:     recipient,
					MessageID: msg.ID,
					Direction: domain.DirectionInbound,
					Message:   *msg,
				})
			}
			return
		case delivery.OutcomePermanentFailure:
			msg.LastError = outcome.Reason
			d.record(msg.ID, recipient, domain.ReceiptFailed, outcome.Reason)
			return
		case delivery.OutcomeTransientFailure:
			msg.LastError = outcome.Reason
			if attempt == maxAttempts {
				d.record(msg.ID, recipient, domain.ReceiptFailed, outcome.Reason)
				return
			}
			d.sleepBackoff(ctx, attempt)
		default:
			d.record(msg.ID, recipient, domain.ReceiptFailed, "unknown delivery outcome")
			return
		}
	}
}

func (d *Dispatcher) sleepBackoff(ctx context.Context, attempt int) {
	base := d.cfg.BaseBackoffMs
	if base <= 0 {
		base = 200
	}
	max := d.cfg.MaxBackoffMs
	if max <= 0 {
		max = 5000
	}
	backoff := base << uint(attempt-1)
	if backoff > max {
		backoff = max
	}
	jitter := rand.Intn(backoff/2 + 1)
	wait := time.Duration(backoff+jitter) * time.Millisecond
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

func (d *Dispatcher) record(messageID, recipient string, status domain.ReceiptStatus, errText string) {
	r := domain.Receipt{MessageID: messageID, Recipient: recipient, Status: status, UpdatedAt: time.Now(), Error: errText}
	if err := d.tracker.Record(r); err != nil && d.logger != nil {
		d.logger.Warnw("dispatch: failed to persist receipt", "error", err)
	}
}

// renderPayload prepends a priority marker for high/urgent/critical messages
// when the adapter advertises support for it (spec §4.4).
func renderPayload(msg domain.Message, supportsMarker bool) string {
	body := fmt.Sprintf("%v", msg.Body)
	if !supportsMarker {
		return body
	}
	switch msg.Priority {
	case domain.PriorityHigh, domain.PriorityUrgent, domain.PriorityCritical:
		return fmt.Sprintf("[%s] %s", msg.Priority, body)
	default:
		return body
	}
}

// ErrShuttingDown is returned by Enqueue callers that choose to reject new
// work once Shutdown has been requested (the Dispatcher itself still admits
// messages during shutdown; this is exposed for callers that want to).
var ErrShuttingDown = errors.New("dispatch: shutting down")
