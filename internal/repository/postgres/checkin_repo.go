package postgres

import (
	"context"
	"database/sql"

	"eventticketing/internal/domain"
)

type checkInRepository struct {
	DB *sql.DB
}

func NewCheckInRepository(db *sql.DB) domain.CheckInRepository {
	return &checkInRepository{DB: db}
}

// Create inserts the check-in. The unique constraint on ticket_id turns a racing
// second insert into domain.ErrAlreadyCheckedIn.
func (r *checkInRepository) Create(ctx context.Context, c *domain.CheckIn) error {
	query := `
		INSERT INTO check_ins (ticket_id, check_in_time)
		VALUES ($1, $2)
		RETURNING id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, c.TicketID, c.CheckInTime).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err, "check_ins_ticket_id_key") {
			return domain.ErrAlreadyCheckedIn
		}
		return err
	}
	return nil
}

func (r *checkInRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.CheckIn, error) {
	query := `
		SELECT id, ticket_id, check_in_time
		FROM check_ins
		WHERE ticket_id = $1
	`
	c := &domain.CheckIn{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, ticketID).Scan(&c.ID, &c.TicketID, &c.CheckInTime)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return c, nil
}
