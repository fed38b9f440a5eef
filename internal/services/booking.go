package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"eventticketing/internal/clock"
	"eventticketing/internal/domain"
)

type bookingService struct {
	tx         domain.TxManager
	ledger     domain.SeatLedger
	eventRepo  domain.EventRepository
	ticketRepo domain.TicketRepository
	userRepo   domain.UserRepository

	qr             domain.QRCodeGenerator
	emailService   domain.EmailService
	publisher      domain.TicketEventPublisher
	notifications  *Notifications
	clock          clock.Clock
	logger         *slog.Logger
	contextTimeout time.Duration
}

// Option configures the optional collaborators of the booking and check-in services.
type Option func(*serviceOptions)

type serviceOptions struct {
	qr           domain.QRCodeGenerator
	emailService domain.EmailService
	publisher     domain.TicketEventPublisher
	notifications *Notifications
	clock         clock.Clock
	logger       *slog.Logger
}

// WithQRCodeGenerator attaches a QR renderer for issued tickets.
func WithQRCodeGenerator(qr domain.QRCodeGenerator) Option {
	return func(o *serviceOptions) { o.qr = qr }
}

// WithEmailService sends a confirmation email after each booking.
func WithEmailService(es domain.EmailService) Option {
	return func(o *serviceOptions) { o.emailService = es }
}

// WithPublisher publishes ticket lifecycle events after commit.
func WithPublisher(p domain.TicketEventPublisher) Option {
	return func(o *serviceOptions) { o.publisher = p }
}

// WithNotifications tracks post-commit notifications in n so callers can wait for them.
func WithNotifications(n *Notifications) Option {
	return func(o *serviceOptions) { o.notifications = n }
}

// WithClock overrides the system clock.
func WithClock(c clock.Clock) Option {
	return func(o *serviceOptions) { o.clock = c }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) { o.logger = l }
}

func applyOptions(opts []Option) serviceOptions {
	o := serviceOptions{
		notifications: &Notifications{},
		clock:         clock.NewSystem(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewBookingService returns the BookingService. Every seat mutation goes through ledger
// inside a transaction started by tx.
func NewBookingService(
	tx domain.TxManager,
	ledger domain.SeatLedger,
	eventRepo domain.EventRepository,
	ticketRepo domain.TicketRepository,
	userRepo domain.UserRepository,
	timeout time.Duration,
	opts ...Option,
) domain.BookingService {
	o := applyOptions(opts)
	return &bookingService{
		tx:             tx,
		ledger:         ledger,
		eventRepo:      eventRepo,
		ticketRepo:     ticketRepo,
		userRepo:       userRepo,
		qr:             o.qr,
		emailService:   o.emailService,
		publisher:      o.publisher,
		notifications:  o.notifications,
		clock:          o.clock,
		logger:         o.logger,
		contextTimeout: timeout,
	}
}

func (s *bookingService) BookTickets(ctx context.Context, in domain.BookTicketsInput) ([]*domain.IssuedTicket, error) {
	if in.SeatCount <= 0 {
		return nil, domain.ValidationError("Seat count must be greater than zero", "Seat Count : "+strconv.Itoa(in.SeatCount))
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		event   *domain.Event
		user    *domain.User
		tickets []*domain.Ticket
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.ledger.Lock(ctx, in.EventID); err != nil {
			return err
		}
		u, err := s.userRepo.GetByID(ctx, in.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NotFoundError("User", in.UserID)
			}
			return fmt.Errorf("get user: %w", err)
		}
		e, err := s.ledger.Reserve(ctx, in.EventID, in.SeatCount)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		batch := make([]*domain.Ticket, 0, in.SeatCount)
		for range in.SeatCount {
			batch = append(batch, domain.NewTicket(uuid.NewString(), uuid.NewString(), u.ID, e.ID, now))
		}
		if err := s.ticketRepo.CreateBatch(ctx, batch); err != nil {
			return fmt.Errorf("create tickets: %w", err)
		}
		event, user, tickets = e, u, batch
		return nil
	})
	if err != nil {
		s.logger.InfoContext(ctx, "booking rejected",
			"event_id", in.EventID, "user_id", in.UserID, "seat_count", in.SeatCount, "err", err)
		return nil, wrapErr("book tickets", err)
	}

	s.logger.InfoContext(ctx, "tickets booked",
		"event_id", event.ID, "user_id", user.ID, "seat_count", len(tickets), "available_seats", event.AvailableSeats)

	notifyCtx := context.WithoutCancel(ctx)
	s.notifications.Go(func() { s.notifyBooked(notifyCtx, user, event, tickets) })

	issued := make([]*domain.IssuedTicket, 0, len(tickets))
	for _, t := range tickets {
		issued = append(issued, s.issue(ctx, t, user, event))
	}
	return issued, nil
}

func (s *bookingService) CancelTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	existing, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError("Ticket", ticketID)
		}
		return nil, wrapErr("cancel ticket", fmt.Errorf("get ticket: %w", err))
	}

	var cancelled *domain.Ticket
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		// Event lock first, then ticket: the same order booking uses for the event row.
		if _, err := s.ledger.Lock(ctx, existing.EventID); err != nil {
			return err
		}
		t, err := s.ticketRepo.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NotFoundError("Ticket", ticketID)
			}
			return fmt.Errorf("lock ticket: %w", err)
		}
		switch t.Status {
		case domain.TicketCancelled:
			return domain.BusinessError(domain.ErrAlreadyCancelled, "Ticket already cancelled", ticketDetail(ticketID))
		case domain.TicketCheckedIn:
			return domain.BusinessError(domain.ErrInvalidState, "Checked-in ticket cannot be cancelled", ticketDetail(ticketID))
		}
		if err := s.ticketRepo.UpdateStatus(ctx, ticketID, domain.TicketCancelled); err != nil {
			return fmt.Errorf("update ticket status: %w", err)
		}
		if _, err := s.ledger.Release(ctx, t.EventID, 1); err != nil {
			return err
		}
		t.Status = domain.TicketCancelled
		cancelled = t
		return nil
	})
	if err != nil {
		return nil, wrapErr("cancel ticket", err)
	}

	s.logger.InfoContext(ctx, "ticket cancelled", "ticket_id", cancelled.ID, "event_id", cancelled.EventID)
	notifyCtx := context.WithoutCancel(ctx)
	s.notifications.Go(func() { s.publish(notifyCtx, domain.TicketEventCancelled, cancelled) })
	return cancelled, nil
}

func (s *bookingService) GetTicket(ctx context.Context, ticketID string) (*domain.IssuedTicket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	t, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError("Ticket", ticketID)
		}
		return nil, wrapErr("get ticket", err)
	}
	event, err := s.eventRepo.GetByID(ctx, t.EventID)
	if err != nil {
		return nil, wrapErr("get ticket", fmt.Errorf("get event: %w", err))
	}
	user, err := s.userRepo.GetByID(ctx, t.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, wrapErr("get ticket", fmt.Errorf("get user: %w", err))
	}
	return s.issue(ctx, t, user, event), nil
}

func (s *bookingService) ListEventTickets(ctx context.Context, eventID string) ([]*domain.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError("Event", eventID)
		}
		return nil, wrapErr("list event tickets", err)
	}
	tickets, err := s.ticketRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, wrapErr("list event tickets", err)
	}
	return tickets, nil
}

// issue attaches the verification payload and, when a generator is configured, its QR image.
// A QR failure is logged and leaves QRCode empty; the booking itself has already committed.
func (s *bookingService) issue(ctx context.Context, t *domain.Ticket, user *domain.User, event *domain.Event) *domain.IssuedTicket {
	it := &domain.IssuedTicket{
		Ticket:           t,
		VerificationCode: domain.EncodeVerificationCode(t.ID, t.TicketCode, t.UserID, t.EventID),
	}
	if user != nil {
		it.UserName = user.Name
	}
	if event != nil {
		it.EventTitle = event.Title
	}
	if s.qr != nil {
		png, err := s.qr.Generate(it.VerificationCode)
		if err != nil {
			s.logger.WarnContext(ctx, "qr code generation failed", "ticket_id", t.ID, "err", err)
		} else {
			it.QRCode = png
		}
	}
	return it
}

func (s *bookingService) notifyBooked(ctx context.Context, user *domain.User, event *domain.Event, tickets []*domain.Ticket) {
	for _, t := range tickets {
		s.publish(ctx, domain.TicketEventBooked, t)
	}
	if s.emailService == nil || user.Email == "" {
		return
	}
	lines := make([]domain.BookedTicketLine, 0, len(tickets))
	for _, t := range tickets {
		lines = append(lines, domain.BookedTicketLine{TicketID: t.ID, TicketCode: t.TicketCode})
	}
	data := &domain.BookingConfirmationEmailData{
		Email:      user.Email,
		Name:       user.Name,
		EventTitle: event.Title,
		EventDate:  event.EventDate,
		Location:   event.Location,
		Tickets:    lines,
	}
	if err := s.emailService.SendBookingConfirmation(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "booking confirmation email failed", "user_id", user.ID, "event_id", event.ID, "err", err)
	}
}

func (s *bookingService) publish(ctx context.Context, typ domain.TicketEventType, t *domain.Ticket) {
	publishTicketEvent(ctx, s.publisher, s.logger, s.clock, typ, t)
}

func publishTicketEvent(ctx context.Context, p domain.TicketEventPublisher, logger *slog.Logger, clk clock.Clock, typ domain.TicketEventType, t *domain.Ticket) {
	if p == nil {
		return
	}
	ev := domain.TicketEvent{
		Type:       typ,
		TicketID:   t.ID,
		TicketCode: t.TicketCode,
		EventID:    t.EventID,
		UserID:     t.UserID,
		OccurredAt: clk.Now(),
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.WarnContext(ctx, "publish ticket event failed", "type", typ, "ticket_id", t.ID, "err", err)
	}
}
