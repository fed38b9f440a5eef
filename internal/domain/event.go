package domain

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Event is a ticketed event with a fixed seat count.
// swagger:model Event
type Event struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	EventDate      time.Time `json:"event_date"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	TicketPrice    float64   `json:"ticket_price"`
	OrganizerID    string    `json:"organizer_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewEvent returns an Event with every seat available. ID is set by the repository on create.
func NewEvent(title, description, location string, eventDate time.Time, totalSeats int, price float64, organizerID string, now time.Time) *Event {
	return &Event{
		Title:          title,
		Description:    description,
		Location:       location,
		EventDate:      eventDate,
		TotalSeats:     totalSeats,
		AvailableSeats: totalSeats,
		TicketPrice:    price,
		OrganizerID:    organizerID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Reserve takes count seats out of inventory. On failure the event is left unchanged.
func (e *Event) Reserve(count int) error {
	if count <= 0 {
		return ValidationError("Seat count must be greater than zero", "Seat Count : "+strconv.Itoa(count))
	}
	if e.AvailableSeats < count {
		return BusinessError(ErrInsufficientInventory, "Not enough seats available",
			"Available Seats : "+strconv.Itoa(e.AvailableSeats))
	}
	e.AvailableSeats -= count
	return nil
}

// Release returns count seats to inventory. AvailableSeats never exceeds TotalSeats:
// a release that would push it past is clamped and reported as ErrLedgerOverflow.
func (e *Event) Release(count int) error {
	if count <= 0 {
		return ValidationError("Seat count must be greater than zero", "Seat Count : "+strconv.Itoa(count))
	}
	next := e.AvailableSeats + count
	if next > e.TotalSeats {
		e.AvailableSeats = e.TotalSeats
		return &Error{
			Kind:     KindSystem,
			Severity: SeverityCritical,
			Message:  "Seat ledger overflow",
			Detail:   fmt.Sprintf("Event ID : %s, available %d + %d exceeds total %d", e.ID, next-count, count, e.TotalSeats),
			Err:      ErrLedgerOverflow,
		}
	}
	e.AvailableSeats = next
	return nil
}

// CheckInWindow returns the instants between which tickets for this event may be checked in.
func (e *Event) CheckInWindow(early, late time.Duration) (opens, closes time.Time) {
	return e.EventDate.Add(-early), e.EventDate.Add(late)
}

// EventRepository defines the interface for event storage.
// GetByIDForUpdate must be called inside TxManager.WithTx; it holds an exclusive
// lock on the event row until the transaction ends.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetByIDForUpdate(ctx context.Context, id string) (*Event, error)
	UpdateAvailableSeats(ctx context.Context, id string, availableSeats int) error
}

// SeatLedger is the only writer of Event.AvailableSeats. Every method must run inside
// a transaction; the per-event lock it takes is held until that transaction ends.
type SeatLedger interface {
	// Lock acquires the event's exclusive lock and returns its current counters.
	Lock(ctx context.Context, eventID string) (*Event, error)
	Reserve(ctx context.Context, eventID string, count int) (*Event, error)
	Release(ctx context.Context, eventID string, count int) (*Event, error)
}

// CreateEventInput is the organizer-supplied data for a new event.
type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	EventDate   time.Time
	TotalSeats  int
	TicketPrice float64
	OrganizerID string
}

// EventService defines organizer-facing event operations.
type EventService interface {
	CreateEvent(ctx context.Context, in CreateEventInput) (*Event, error)
	GetEvent(ctx context.Context, eventID string) (*Event, error)
}
