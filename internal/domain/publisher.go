package domain

import (
	"context"
	"time"
)

// TicketEventType names a ticket lifecycle transition.
type TicketEventType string

const (
	TicketEventBooked    TicketEventType = "ticket.booked"
	TicketEventCancelled TicketEventType = "ticket.cancelled"
	TicketEventCheckedIn TicketEventType = "ticket.checked_in"
)

// TicketEvent is published after a ticket transition has been committed.
type TicketEvent struct {
	Type       TicketEventType `json:"type"`
	TicketID   string          `json:"ticket_id"`
	TicketCode string          `json:"ticket_code"`
	EventID    string          `json:"event_id"`
	UserID     string          `json:"user_id"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// TicketEventPublisher delivers ticket events to downstream consumers.
// Failures never undo the committed transition.
type TicketEventPublisher interface {
	Publish(ctx context.Context, event TicketEvent) error
}
