package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"eventticketing/internal/clock"
	"eventticketing/internal/domain"
)

// maxTicketPrice is the largest value the ticket_price column (NUMERIC(10,2)) holds.
const maxTicketPrice = 99_999_999.99

type eventService struct {
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	clock          clock.Clock
	contextTimeout time.Duration
}

func NewEventService(eventRepo domain.EventRepository, userRepo domain.UserRepository, clk clock.Clock, timeout time.Duration) domain.EventService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &eventService{
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		clock:          clk,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, in domain.CreateEventInput) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.ValidationError("Event title is required", "")
	}
	if in.TotalSeats <= 0 {
		return nil, domain.ValidationError("Total seats must be greater than zero", "Total Seats : "+strconv.Itoa(in.TotalSeats))
	}
	if in.TotalSeats > math.MaxInt32 {
		return nil, domain.ValidationError("Total seats exceeds the supported maximum", "Total Seats : "+strconv.Itoa(in.TotalSeats))
	}
	if in.EventDate.IsZero() {
		return nil, domain.ValidationError("Event date is required", "")
	}
	if in.TicketPrice < 0 {
		return nil, domain.ValidationError("Ticket price cannot be negative", "")
	}
	if in.TicketPrice > maxTicketPrice {
		return nil, domain.ValidationError("Ticket price exceeds the supported maximum", "")
	}

	if _, err := s.userRepo.GetByID(ctx, in.OrganizerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError("User", in.OrganizerID)
		}
		return nil, wrapErr("create event", fmt.Errorf("get organizer: %w", err))
	}

	event := domain.NewEvent(title, in.Description, in.Location, in.EventDate.UTC(), in.TotalSeats, in.TicketPrice, in.OrganizerID, s.clock.Now())
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, wrapErr("create event", err)
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError("Event", eventID)
		}
		return nil, wrapErr("get event", err)
	}
	return event, nil
}
