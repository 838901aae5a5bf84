package domain

import "testing"

func TestParsePriority(t *testing.T) {
	cases := []struct {
		in   string
		want Priority
	}{
		{"low", PriorityLow},
		{"high", PriorityHigh},
		{"urgent", PriorityUrgent},
		{"critical", PriorityCritical},
		{"", PriorityNormal},
		{"nonsense", PriorityNormal},
	}
	for _, c := range cases {
		if got := ParsePriority(c.in); got != c.want {
			t.Errorf("ParsePriority(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestPriorityString(t *testing.T) {
	cases := []struct {
		in   Priority
		want string
	}{
		{PriorityLow, "low"},
		{PriorityNormal, "normal"},
		{PriorityHigh, "high"},
		{PriorityUrgent, "urgent"},
		{PriorityCritical, "critical"},
		{Priority(99), "normal"},
	}
	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Errorf("Priority(%d).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReceiptTerminal(t *testing.T) {
	cases := []struct {
		status ReceiptStatus
		want   bool
	}{
		{ReceiptPending, false},
		{ReceiptDelivered, true},
		{ReceiptFailed, true},
	}
	for _, c := range cases {
		r := Receipt{Status: c.status}
		if got := r.Terminal(); got != c.want {
			t.Errorf("Receipt{Status: %v}.Terminal() = %v, want %v", c.status, got, c.want)
		}
	}
}
