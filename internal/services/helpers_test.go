package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"eventticketing/internal/clock"
	"eventticketing/internal/domain"
	"eventticketing/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var eventStart = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

// fixture wires the services over a shared in-memory store.
type fixture struct {
	store    *memory.Store
	events   domain.EventRepository
	tickets  domain.TicketRepository
	checkIns domain.CheckInRepository
	users    domain.UserRepository
	ledger   domain.SeatLedger
	event    *domain.Event
	user     *domain.User
}

func newFixture(t *testing.T, totalSeats int) *fixture {
	t.Helper()
	s := memory.NewStore()
	events, tickets, checkIns, users := s.Repositories()
	user := &domain.User{ID: "u-1", Email: "ana@example.com", Name: "Ana", Role: domain.RoleAttendee}
	s.AddUser(user)
	event := domain.NewEvent("Gala", "", "Hall A", eventStart, totalSeats, 10, "org-1", eventStart.Add(-48*time.Hour))
	require.NoError(t, events.Create(context.Background(), event))
	return &fixture{
		store:    s,
		events:   events,
		tickets:  tickets,
		checkIns: checkIns,
		users:    users,
		ledger:   NewSeatLedger(events, testLogger),
		event:    event,
		user:     user,
	}
}

func (f *fixture) booking(opts ...Option) domain.BookingService {
	opts = append([]Option{WithLogger(testLogger), WithClock(clock.NewFixed(eventStart.Add(-24 * time.Hour)))}, opts...)
	return NewBookingService(f.store, f.ledger, f.events, f.tickets, f.users, 5*time.Second, opts...)
}

func (f *fixture) checkIn(now time.Time, opts ...Option) domain.CheckInService {
	opts = append([]Option{WithLogger(testLogger), WithClock(clock.NewFixed(now))}, opts...)
	return NewCheckInService(f.store, f.tickets, f.events, f.checkIns, CheckInWindow{}, 5*time.Second, opts...)
}

func (f *fixture) available(t *testing.T) int {
	t.Helper()
	e, err := f.events.GetByID(context.Background(), f.event.ID)
	require.NoError(t, err)
	return e.AvailableSeats
}

// requireLedgerBalanced checks available + seats held by live tickets == total.
func (f *fixture) requireLedgerBalanced(t *testing.T) {
	t.Helper()
	e, err := f.events.GetByID(context.Background(), f.event.ID)
	require.NoError(t, err)
	ts, err := f.tickets.ListByEventID(context.Background(), f.event.ID)
	require.NoError(t, err)
	held := 0
	for _, tk := range ts {
		if tk.HoldsSeat() {
			held++
		}
	}
	require.GreaterOrEqual(t, e.AvailableSeats, 0)
	require.LessOrEqual(t, e.AvailableSeats, e.TotalSeats)
	require.Equal(t, e.TotalSeats, e.AvailableSeats+held, "available + held must equal total")
}

func requireKind(t *testing.T, err error, sentinel error, kind domain.ErrorKind) *domain.Error {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, sentinel), "want %v, got %v", sentinel, err)
	appErr, ok := domain.AsError(err)
	require.True(t, ok, "want *domain.Error, got %T", err)
	require.Equal(t, kind, appErr.Kind)
	return appErr
}

// recordingPublisher collects published ticket events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.TicketEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.TicketEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) count(typ domain.TicketEventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// recordingEmailService captures booking confirmations.
type recordingEmailService struct {
	mu   sync.Mutex
	sent []*domain.BookingConfirmationEmailData
	err  error
}

func (e *recordingEmailService) SendBookingConfirmation(_ context.Context, data *domain.BookingConfirmationEmailData) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, data)
	return e.err
}

func (e *recordingEmailService) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sent)
}

type fakeQR struct{ err error }

func (q fakeQR) Generate(content string) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	return "png:" + content, nil
}
