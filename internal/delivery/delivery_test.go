package delivery

import (
	"context"
	"testing"

	"github.com/jaakkos/orchestrator/internal/domain"
)

func TestNoopAdapterRecordsCallsAndAlwaysSucceeds(t *testing.T) {
	a := NewNoopAdapter()
	addr := domain.AgentAddress{Input: domain.Target{X: 1, Y: 2}}

	out := a.Deliver(context.Background(), addr, "hello")
	if out.Kind != OutcomeOK {
		t.Fatalf("Deliver() = %+v, want OutcomeOK", out)
	}
	if !a.SupportsHighPriorityMarker() {
		t.Fatal("SupportsHighPriorityMarker() = false, want true")
	}

	calls := a.Calls()
	if len(calls) != 1 || calls[0].Rendered != "hello" || calls[0].Address != addr {
		t.Fatalf("Calls() = %+v, want one matching call", calls)
	}
}

func TestNoopAdapterCallsIsACopy(t *testing.T) {
	a := NewNoopAdapter()
	a.Deliver(context.Background(), domain.AgentAddress{}, "first")
	calls := a.Calls()
	calls[0].Rendered = "mutated"
	fresh := a.Calls()
	if fresh[0].Rendered != "first" {
		t.Fatalf("internal state mutated through returned slice: got %q", fresh[0].Rendered)
	}
}
