package domain

import (
	"context"
	"time"
)

// CheckIn records a ticket's admission. At most one exists per ticket.
// swagger:model CheckIn
type CheckIn struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	CheckInTime time.Time `json:"check_in_time"`
}

// CheckInRepository defines the interface for check-in storage.
// Create returns ErrAlreadyCheckedIn when a check-in already exists for the ticket.
type CheckInRepository interface {
	Create(ctx context.Context, c *CheckIn) error
	GetByTicketID(ctx context.Context, ticketID string) (*CheckIn, error)
}

// CheckInResult is returned on a successful check-in.
// swagger:model CheckInResult
type CheckInResult struct {
	Message     string    `json:"message"`
	TicketID    string    `json:"ticket_id"`
	TicketCode  string    `json:"ticket_code"`
	CheckInTime time.Time `json:"check_in_time"`
}

// CheckInService admits ticket holders at the venue.
type CheckInService interface {
	CheckIn(ctx context.Context, ticketID string) (*CheckInResult, error)
	CheckInByCode(ctx context.Context, payload string) (*CheckInResult, error)
}
