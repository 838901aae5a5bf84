package dispatch

import "sync"

// recipientGate enforces strict FIFO delivery order to one recipient address
// across concurrent workers (spec §4.4, §5: "per-recipient serialization...
// mandatory because adapters may drive foreign UI and cannot tolerate
// interleaving"). Tickets are handed out in heap-pop order; a worker must
// wait its turn before calling the adapter for that recipient.
type recipientGate struct {
	mu   sync.Mutex
	cond *sync.Cond
	next int64
}

func newRecipientGate() *recipientGate {
	g := &recipientGate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *recipientGate) waitTurn(ticket int64) {
	g.mu.Lock()
	for g.next != ticket {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

func (g *recipientGate) done(ticket int64) {
	g.mu.Lock()
	g.next = ticket + 1
	g.cond.Broadcast()
	g.mu.Unlock()
}

// gateRegistry owns one recipientGate per recipient address and the next
// ticket number to assign, both mutated only while the dispatcher's heap
// mutex is held (see Dispatcher.popLocked) so ticket assignment order always
// matches heap-pop order.
type gateRegistry struct {
	gates   map[string]*recipientGate
	tickets map[string]int64
}

func newGateRegistry() *gateRegistry {
	return &gateRegistry{gates: make(map[string]*recipientGate), tickets: make(map[string]int64)}
}

func (r *gateRegistry) nextTicket(recipient string) int64 {
	t := r.tickets[recipient]
	r.tickets[recipient] = t + 1
	return t
}

func (r *gateRegistry) gateFor(recipient string) *recipientGate {
	g, ok := r.gates[recipient]
	if !ok {
		g = newRecipientGate()
		r.gates[recipient] = g
	}
	return g
}
