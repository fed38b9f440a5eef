package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventticketing/internal/domain"
)

type seatLedger struct {
	eventRepo domain.EventRepository
	logger    *slog.Logger
}

// NewSeatLedger returns the SeatLedger backed by eventRepo's row locks.
func NewSeatLedger(eventRepo domain.EventRepository, logger *slog.Logger) domain.SeatLedger {
	return &seatLedger{eventRepo: eventRepo, logger: logger}
}

func (l *seatLedger) Lock(ctx context.Context, eventID string) (*domain.Event, error) {
	e, err := l.eventRepo.GetByIDForUpdate(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError("Event", eventID)
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}
	return e, nil
}

func (l *seatLedger) Reserve(ctx context.Context, eventID string, count int) (*domain.Event, error) {
	e, err := l.Lock(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := e.Reserve(count); err != nil {
		return nil, err
	}
	if err := l.eventRepo.UpdateAvailableSeats(ctx, eventID, e.AvailableSeats); err != nil {
		return nil, fmt.Errorf("reserve seats: %w", err)
	}
	return e, nil
}

func (l *seatLedger) Release(ctx context.Context, eventID string, count int) (*domain.Event, error) {
	e, err := l.Lock(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := e.Release(count); err != nil {
		if errors.Is(err, domain.ErrLedgerOverflow) {
			l.logger.ErrorContext(ctx, "seat ledger overflow",
				"event_id", eventID,
				"total_seats", e.TotalSeats,
				"released", count,
			)
		}
		return nil, err
	}
	if err := l.eventRepo.UpdateAvailableSeats(ctx, eventID, e.AvailableSeats); err != nil {
		return nil, fmt.Errorf("release seats: %w", err)
	}
	return e, nil
}
