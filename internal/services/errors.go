package services

import (
	"fmt"

	"eventticketing/internal/domain"
)

// wrapErr passes typed errors through and turns anything else into a SYSTEM error
// tagged with the operation name.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsError(err); ok {
		return err
	}
	return domain.SystemError(op+" failed", fmt.Errorf("%s: %w", op, err))
}

func ticketDetail(id string) string { return "Ticket ID : " + id }

func eventDetail(id string) string { return "Event ID : " + id }
