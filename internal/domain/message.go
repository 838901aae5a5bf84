package domain

import "time"

// Priority is a message priority level with a total order (Low < ... < Critical).
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
	PriorityCritical
)

// String renders the priority as its spec name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	case PriorityCritical:
		return "critical"
	default:
		return "normal"
	}
}

// ParsePriority maps a spec priority name to a Priority; unknown names are PriorityNormal.
func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "urgent":
		return PriorityUrgent
	case "critical":
		return PriorityCritical
	default:
		return PriorityNormal
	}
}

// MessageKind classifies a message's origin and intent.
type MessageKind string

const (
	KindDirect              MessageKind = "direct"
	KindBroadcast           MessageKind = "broadcast"
	KindTaskNotification    MessageKind = "task_notification"
	KindStatusUpdate        MessageKind = "status_update"
	KindCoordinationRequest MessageKind = "coordination_request"
	KindSystemBroadcast     MessageKind = "system_broadcast"
	KindPREvent             MessageKind = "pr_event"
)

// MessageStatus is the terminal/non-terminal lifecycle of a Message.
type MessageStatus string

const (
	MessageQueued    MessageStatus = "queued"
	MessageSending   MessageStatus = "sending"
	MessageDelivered MessageStatus = "delivered"
	MessageFailed    MessageStatus = "failed"
	MessageExpired   MessageStatus = "expired"
)

// SenderSystem is the sentinel sender id used for system-originated messages.
const SenderSystem = "system"

// Message is the unit the Dispatcher schedules and delivers.
type Message struct {
	ID         string        `json:"id"`
	Sender     string        `json:"sender"`
	Recipients []string      `json:"recipients"`
	Priority   Priority      `json:"priority"`
	Kind       MessageKind   `json:"kind"`
	Body       any           `json:"body"`
	CreatedAt  time.Time     `json:"created_at"`
	Attempts   int           `json:"attempts"`
	LastError  string        `json:"last_error,omitempty"`
	Status     MessageStatus `json:"status"`
}

// ReceiptStatus is the per-recipient delivery status for a Message.
type ReceiptStatus string

const (
	ReceiptPending   ReceiptStatus = "pending"
	ReceiptDelivered ReceiptStatus = "delivered"
	ReceiptFailed    ReceiptStatus = "failed"
)

// Receipt is the per-(message,recipient) delivery record.
type Receipt struct {
	MessageID string        `json:"message_id"`
	Recipient string        `json:"recipient"`
	Status    ReceiptStatus `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
	Error     string        `json:"error,omitempty"`
}

// Terminal reports whether a receipt has reached a final status.
func (r Receipt) Terminal() bool {
	return r.Status == ReceiptDelivered || r.Status == ReceiptFailed
}

// InboxDirection is the provenance of an InboxEntry relative to its owning agent.
type InboxDirection string

const (
	DirectionInbound  InboxDirection = "inbound"
	DirectionOutbound InboxDirection = "outbound"
)

// InboxEntry is a durable, per-agent record of one message.
type InboxEntry struct {
	Seq         int64          `json:"seq"` // monotonic per-agent ordering key
	Agent       string         `json:"agent"`
	MessageID   string         `json:"message_id"`
	Direction   InboxDirection `json:"direction"`
	Message     Message        `json:"message"`
	Read        bool           `json:"read"`
	Acknowledged bool          `json:"acknowledged"`
	StoredAt    time.Time      `json:"stored_at"`
}
