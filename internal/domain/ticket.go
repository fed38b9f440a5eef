package domain

import (
	"context"
	"time"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketBooked    TicketStatus = "BOOKED"
	TicketCheckedIn TicketStatus = "CHECKED_IN"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Ticket is one reserved seat. Tickets are never deleted.
// swagger:model Ticket
type Ticket struct {
	ID         string       `json:"id"`
	TicketCode string       `json:"ticket_code"`
	UserID     string       `json:"user_id"`
	EventID    string       `json:"event_id"`
	Status     TicketStatus `json:"status"`
	BookedAt   time.Time    `json:"booked_at"`
}

// NewTicket returns a BOOKED ticket.
func NewTicket(id, code, userID, eventID string, bookedAt time.Time) *Ticket {
	return &Ticket{
		ID:         id,
		TicketCode: code,
		UserID:     userID,
		EventID:    eventID,
		Status:     TicketBooked,
		BookedAt:   bookedAt,
	}
}

// HoldsSeat reports whether the ticket counts against its event's inventory.
func (t *Ticket) HoldsSeat() bool {
	return t.Status == TicketBooked || t.Status == TicketCheckedIn
}

// TicketRepository defines the interface for ticket storage.
// GetByIDForUpdate must be called inside TxManager.WithTx.
type TicketRepository interface {
	CreateBatch(ctx context.Context, tickets []*Ticket) error
	GetByID(ctx context.Context, id string) (*Ticket, error)
	GetByIDForUpdate(ctx context.Context, id string) (*Ticket, error)
	UpdateStatus(ctx context.Context, id string, status TicketStatus) error
	ListByEventID(ctx context.Context, eventID string) ([]*Ticket, error)
}

// BookTicketsInput is a request to book SeatCount seats for UserID.
type BookTicketsInput struct {
	UserID    string
	EventID   string
	SeatCount int
}

// IssuedTicket is a ticket together with its presentation data.
// swagger:model IssuedTicket
type IssuedTicket struct {
	*Ticket
	UserName         string `json:"user_name,omitempty"`
	EventTitle       string `json:"event_title,omitempty"`
	VerificationCode string `json:"verification_code"`
	QRCode           string `json:"qr_code,omitempty"`
}

// QRCodeGenerator renders a verification code as a base64-encoded PNG.
type QRCodeGenerator interface {
	Generate(content string) (string, error)
}

// BookingService books and cancels tickets.
type BookingService interface {
	BookTickets(ctx context.Context, in BookTicketsInput) ([]*IssuedTicket, error)
	CancelTicket(ctx context.Context, ticketID string) (*Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (*IssuedTicket, error)
	ListEventTickets(ctx context.Context, eventID string) ([]*Ticket, error)
}
