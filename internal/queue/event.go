// Package queue defines message payloads exchanged over the message broker
// and the background consumers that drain them.
package queue

// Queue names.  Both queues are declared durable.
const (
	SlotEventsQueue    = "parking.slot.events"
	NotificationsQueue = "parking.notifications"
)

// Slot event actions.
const (
	ActionBooked         = "BOOKED"
	ActionPriorityBooked = "PRIORITY_BOOKED"
	ActionReleased       = "RELEASED"
	ActionReset          = "RESET"
)

// SlotEvent is published after every committed slot transition and every
// administrative reset.  It carries enough to audit occupancy downstream
// without querying the engine.
type SlotEvent struct {
	Action     string `json:"action"`
	Block      string `json:"block"`
	Slot       string `json:"slot,omitempty"`
	Occupant   string `json:"occupant,omitempty"`
	StaffID    string `json:"staff_id,omitempty"`
	ReleaseURL string `json:"release_url,omitempty"`
	Enhanced   bool   `json:"enhanced,omitempty"`
	RiskLevel  string `json:"risk_level,omitempty"`
	Freed      int    `json:"freed,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// Notification is one outbound SMS handed to the delivery worker.
type Notification struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	QueuedAt string `json:"queued_at"`
}
