package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"eventticketing/internal/domain"
)

type ticketRepository struct {
	DB *sql.DB
}

func NewTicketRepository(db *sql.DB) domain.TicketRepository {
	return &ticketRepository{DB: db}
}

const ticketColumns = `id, ticket_code, user_id, event_id, status, booked_at`

// maxTicketsPerInsert keeps one INSERT under the 65535 bind-parameter limit of the
// Postgres wire protocol.
const maxTicketsPerInsert = 65535 / ticketInsertParams

const ticketInsertParams = 6

// CreateBatch inserts the tickets in multi-row statements of at most maxTicketsPerInsert
// rows. Callers run it inside a transaction so the batch lands or fails as a whole.
func (r *ticketRepository) CreateBatch(ctx context.Context, tickets []*domain.Ticket) error {
	for start := 0; start < len(tickets); start += maxTicketsPerInsert {
		end := min(start+maxTicketsPerInsert, len(tickets))
		if err := r.insert(ctx, tickets[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) insert(ctx context.Context, tickets []*domain.Ticket) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO tickets (` + ticketColumns + `) VALUES `)
	args := make([]any, 0, len(tickets)*ticketInsertParams)
	for i, t := range tickets {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * ticketInsertParams
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args, t.ID, t.TicketCode, t.UserID, t.EventID, string(t.Status), t.BookedAt)
	}
	if _, err := conn(ctx, r.DB).ExecContext(ctx, sb.String(), args...); err != nil {
		if isUniqueViolation(err, "tickets_ticket_code_key") {
			return fmt.Errorf("insert tickets: duplicate ticket code: %w", err)
		}
		return fmt.Errorf("insert tickets: %w", err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return r.get(ctx, query, id)
}

// GetByIDForUpdate locks the ticket row until the surrounding transaction ends.
func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	if txFromContext(ctx) == nil {
		return nil, fmt.Errorf("lock ticket %s: no transaction in context", id)
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1 FOR UPDATE`
	return r.get(ctx, query, id)
}

func (r *ticketRepository) get(ctx context.Context, query, id string) (*domain.Ticket, error) {
	t := &domain.Ticket{}
	var status string
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.TicketCode, &t.UserID, &t.EventID, &status, &t.BookedAt,
	)
	if err != nil {
		return nil, notFoundOr(err)
	}
	t.Status = domain.TicketStatus(status)
	return t, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	query := `UPDATE tickets SET status = $2 WHERE id = $1`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, id, string(status))
	if err != nil {
		return notFoundOr(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE event_id = $1 ORDER BY booked_at, id`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, eventID)
	if err != nil {
		if isInvalidID(err) {
			return []*domain.Ticket{}, nil
		}
		return nil, err
	}
	defer rows.Close()
	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		t := &domain.Ticket{}
		var status string
		if err := rows.Scan(&t.ID, &t.TicketCode, &t.UserID, &t.EventID, &status, &t.BookedAt); err != nil {
			return nil, err
		}
		t.Status = domain.TicketStatus(status)
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
