package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"eventticketing/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, title, description, location, event_date, total_seats, available_seats, ticket_price, organizer_id, created_at, updated_at`

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, location, event_date, total_seats, available_seats, ticket_price, organizer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	return conn(ctx, r.DB).QueryRowContext(ctx, query,
		e.Title, e.Description, e.Location, e.EventDate, e.TotalSeats, e.AvailableSeats,
		e.TicketPrice, e.OrganizerID, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.get(ctx, query, id)
}

// GetByIDForUpdate locks the event row until the surrounding transaction ends.
func (r *eventRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	if txFromContext(ctx) == nil {
		return nil, fmt.Errorf("lock event %s: no transaction in context", id)
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return r.get(ctx, query, id)
}

func (r *eventRepository) get(ctx context.Context, query, id string) (*domain.Event, error) {
	e := &domain.Event{}
	var desc, loc sql.NullString
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Title, &desc, &loc, &e.EventDate, &e.TotalSeats, &e.AvailableSeats,
		&e.TicketPrice, &e.OrganizerID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err)
	}
	e.Description = desc.String
	e.Location = loc.String
	return e, nil
}

func (r *eventRepository) UpdateAvailableSeats(ctx context.Context, id string, availableSeats int) error {
	query := `UPDATE events SET available_seats = $2, updated_at = now() WHERE id = $1`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, id, availableSeats)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("update available seats for %s: %w", id, domain.ErrLedgerOverflow)
		}
		return notFoundOr(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
