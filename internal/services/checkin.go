package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventticketing/internal/clock"
	"eventticketing/internal/domain"
)

// Default check-in window around the event start.
const (
	DefaultEarlyCheckIn = time.Minute
	DefaultLateCheckIn  = 2 * time.Hour
)

// CheckInWindow bounds check-in relative to the event start.
type CheckInWindow struct {
	Early time.Duration
	Late  time.Duration
}

type checkInService struct {
	tx          domain.TxManager
	ticketRepo  domain.TicketRepository
	eventRepo   domain.EventRepository
	checkInRepo domain.CheckInRepository

	window         CheckInWindow
	publisher      domain.TicketEventPublisher
	notifications  *Notifications
	clock          clock.Clock
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewCheckInService returns the CheckInService. A zero window uses the defaults.
func NewCheckInService(
	tx domain.TxManager,
	ticketRepo domain.TicketRepository,
	eventRepo domain.EventRepository,
	checkInRepo domain.CheckInRepository,
	window CheckInWindow,
	timeout time.Duration,
	opts ...Option,
) domain.CheckInService {
	if window == (CheckInWindow{}) {
		window = CheckInWindow{Early: DefaultEarlyCheckIn, Late: DefaultLateCheckIn}
	}
	o := applyOptions(opts)
	return &checkInService{
		tx:             tx,
		ticketRepo:     ticketRepo,
		eventRepo:      eventRepo,
		checkInRepo:    checkInRepo,
		window:         window,
		publisher:      o.publisher,
		notifications:  o.notifications,
		clock:          o.clock,
		logger:         o.logger,
		contextTimeout: timeout,
	}
}

func (s *checkInService) CheckIn(ctx context.Context, ticketID string) (*domain.CheckInResult, error) {
	return s.checkIn(ctx, ticketID, nil)
}

// CheckInByCode admits the holder of a scanned verification payload. The code in the
// payload must match the stored ticket code.
func (s *checkInService) CheckInByCode(ctx context.Context, payload string) (*domain.CheckInResult, error) {
	p, err := domain.DecodeVerificationCode(payload)
	if err != nil {
		s.logger.WarnContext(ctx, "invalid qr payload", "err", err)
		return nil, err
	}
	return s.checkIn(ctx, p.TicketID, &p.TicketCode)
}

func (s *checkInService) checkIn(ctx context.Context, ticketID string, code *string) (*domain.CheckInResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		result  *domain.CheckInResult
		checked *domain.Ticket
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.ticketRepo.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NotFoundError("Ticket", ticketID)
			}
			return fmt.Errorf("lock ticket: %w", err)
		}
		if code != nil && *code != t.TicketCode {
			return domain.CredentialError("Invalid ticket QR code", ticketDetail(ticketID))
		}
		switch t.Status {
		case domain.TicketCancelled:
			return domain.BusinessError(domain.ErrInvalidState, "Cancelled ticket cannot be checked in", ticketDetail(ticketID))
		case domain.TicketCheckedIn:
			return domain.BusinessError(domain.ErrAlreadyCheckedIn, "Ticket already checked in", ticketDetail(ticketID))
		}

		event, err := s.eventRepo.GetByID(ctx, t.EventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NotFoundError("Event", t.EventID)
			}
			return fmt.Errorf("get event: %w", err)
		}
		now := s.clock.Now()
		if err := s.checkWindow(event, now); err != nil {
			return err
		}

		if err := s.ticketRepo.UpdateStatus(ctx, ticketID, domain.TicketCheckedIn); err != nil {
			return fmt.Errorf("update ticket status: %w", err)
		}
		ci := &domain.CheckIn{TicketID: ticketID, CheckInTime: now}
		if err := s.checkInRepo.Create(ctx, ci); err != nil {
			if errors.Is(err, domain.ErrAlreadyCheckedIn) {
				return domain.BusinessError(domain.ErrAlreadyCheckedIn, "Ticket already checked in", ticketDetail(ticketID))
			}
			return fmt.Errorf("create check-in: %w", err)
		}

		t.Status = domain.TicketCheckedIn
		checked = t
		result = &domain.CheckInResult{
			Message:     "Check-in successful",
			TicketID:    t.ID,
			TicketCode:  t.TicketCode,
			CheckInTime: ci.CheckInTime,
		}
		return nil
	})
	if err != nil {
		s.logger.InfoContext(ctx, "check-in rejected", "ticket_id", ticketID, "err", err)
		if _, typed := domain.AsError(err); !typed && errors.Is(err, domain.ErrAlreadyCheckedIn) {
			return nil, domain.BusinessError(domain.ErrAlreadyCheckedIn, "Ticket already checked in", ticketDetail(ticketID))
		}
		return nil, wrapErr("check in", err)
	}

	s.logger.InfoContext(ctx, "ticket checked in", "ticket_id", checked.ID, "event_id", checked.EventID)
	notifyCtx := context.WithoutCancel(ctx)
	s.notifications.Go(func() {
		publishTicketEvent(notifyCtx, s.publisher, s.logger, s.clock, domain.TicketEventCheckedIn, checked)
	})
	return result, nil
}

func (s *checkInService) checkWindow(event *domain.Event, now time.Time) error {
	opens, closes := event.CheckInWindow(s.window.Early, s.window.Late)
	if now.Before(opens) {
		return &domain.Error{
			Kind:     domain.KindBusiness,
			Severity: domain.SeverityInfo,
			Message:  fmt.Sprintf(`Event "%s" has not started yet. You can check in from %s`, event.Title, opens.Format(time.RFC3339)),
			Detail:   eventDetail(event.ID),
			OpensAt:  &opens,
			Err:      domain.ErrTooEarly,
		}
	}
	if now.After(closes) {
		return &domain.Error{
			Kind:     domain.KindBusiness,
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf(`Event "%s" check-in period has ended.`, event.Title),
			Detail:   eventDetail(event.ID),
			Err:      domain.ErrTooLate,
		}
	}
	return nil
}
