package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventticketing/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestBookingService_BookCancelScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	svc := f.booking()

	// Book 3 of 10.
	issued, err := svc.BookTickets(ctx, domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 3})
	require.NoError(t, err)
	require.Len(t, issued, 3)
	codes := map[string]bool{}
	for _, it := range issued {
		assert.Equal(t, domain.TicketBooked, it.Status)
		assert.Equal(t, f.user.ID, it.UserID)
		assert.Equal(t, f.event.ID, it.EventID)
		assert.NotEmpty(t, it.TicketCode)
		codes[it.TicketCode] = true
	}
	assert.Len(t, codes, 3, "ticket codes must be unique")
	assert.Equal(t, 7, f.available(t))
	f.requireLedgerBalanced(t)

	// 8 more do not fit.
	_, err = svc.BookTickets(ctx, domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 8})
	appErr := requireKind(t, err, domain.ErrInsufficientInventory, domain.KindBusiness)
	assert.Equal(t, "Available Seats : 7", appErr.Detail)
	assert.Equal(t, 7, f.available(t))
	ts, err := f.tickets.ListByEventID(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Len(t, ts, 3, "a failed booking must not create tickets")

	// Cancel one, then cancel it again.
	cancelled, err := svc.CancelTicket(ctx, issued[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCancelled, cancelled.Status)
	assert.Equal(t, 8, f.available(t))
	f.requireLedgerBalanced(t)

	_, err = svc.CancelTicket(ctx, issued[0].ID)
	requireKind(t, err, domain.ErrAlreadyCancelled, domain.KindBusiness)
	assert.Equal(t, 8, f.available(t))
	f.requireLedgerBalanced(t)
}

func TestBookingService_BookTickets_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		in       func(f *fixture) domain.BookTicketsInput
		sentinel error
		kind     domain.ErrorKind
		detail   string
	}{
		{
			name:     "zero seats",
			in:       func(f *fixture) domain.BookTicketsInput { return domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID} },
			sentinel: domain.ErrInvalidRequest,
			kind:     domain.KindValidation,
			detail:   "Seat Count : 0",
		},
		{
			name: "negative seats",
			in: func(f *fixture) domain.BookTicketsInput {
				return domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: -2}
			},
			sentinel: domain.ErrInvalidRequest,
			kind:     domain.KindValidation,
			detail:   "Seat Count : -2",
		},
		{
			name: "unknown event",
			in: func(f *fixture) domain.BookTicketsInput {
				return domain.BookTicketsInput{UserID: f.user.ID, EventID: "ev-missing", SeatCount: 1}
			},
			sentinel: domain.ErrNotFound,
			kind:     domain.KindNotFound,
			detail:   "Event ID : ev-missing",
		},
		{
			name: "unknown user",
			in: func(f *fixture) domain.BookTicketsInput {
				return domain.BookTicketsInput{UserID: "u-missing", EventID: f.event.ID, SeatCount: 1}
			},
			sentinel: domain.ErrNotFound,
			kind:     domain.KindNotFound,
			detail:   "User ID : u-missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 5)
			_, err := f.booking().BookTickets(ctx, tt.in(f))
			appErr := requireKind(t, err, tt.sentinel, tt.kind)
			assert.Equal(t, tt.detail, appErr.Detail)
			assert.Equal(t, 5, f.available(t))
		})
	}
}

func TestBookingService_BookExactRemainder(t *testing.T) {
	f := newFixture(t, 4)
	issued, err := f.booking().BookTickets(context.Background(), domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 4})
	require.NoError(t, err)
	assert.Len(t, issued, 4)
	assert.Equal(t, 0, f.available(t))
}

// failingTickets wraps a repository and fails CreateBatch.
type failingTickets struct {
	domain.TicketRepository
	err error
}

func (f failingTickets) CreateBatch(context.Context, []*domain.Ticket) error { return f.err }

func TestBookingService_TicketInsertFailureRollsBackSeats(t *testing.T) {
	f := newFixture(t, 10)
	svc := NewBookingService(f.store, f.ledger, f.events, failingTickets{f.tickets, errors.New("disk full")}, f.users, time.Second, WithLogger(testLogger))

	_, err := svc.BookTickets(context.Background(), domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 2})
	appErr, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindSystem, appErr.Kind)
	assert.Equal(t, 10, f.available(t), "seat decrement must roll back with the failed insert")
}

func TestBookingService_ConcurrentBookingsNeverOversell(t *testing.T) {
	f := newFixture(t, 30)
	svc := f.booking()

	const requests = 50
	results := make(chan error, requests)
	var g errgroup.Group
	for range requests {
		g.Go(func() error {
			_, err := svc.BookTickets(context.Background(), domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 1})
			results <- err
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientInventory):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 30, succeeded)
	assert.Equal(t, 20, rejected)
	assert.Equal(t, 0, f.available(t))
	f.requireLedgerBalanced(t)
}

func TestBookingService_ConcurrentBookAndCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20)
	svc := f.booking()

	issued, err := svc.BookTickets(ctx, domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 10})
	require.NoError(t, err)

	var g errgroup.Group
	for _, it := range issued {
		g.Go(func() error {
			_, err := svc.CancelTicket(ctx, it.ID)
			return err
		})
		g.Go(func() error {
			_, err := svc.BookTickets(ctx, domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 1})
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 10, f.available(t))
	f.requireLedgerBalanced(t)
}

func TestBookingService_ConcurrentDoubleCancelReturnsOneSeat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	svc := f.booking()

	issued, err := svc.BookTickets(ctx, domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 1})
	require.NoError(t, err)

	const attempts = 8
	errs := make(chan error, attempts)
	var g errgroup.Group
	for range attempts {
		g.Go(func() error {
			_, err := svc.CancelTicket(ctx, issued[0].ID)
			errs <- err
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 5, f.available(t))
}

func TestBookingService_CancelTicket_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown ticket", func(t *testing.T) {
		f := newFixture(t, 5)
		_, err := f.booking().CancelTicket(ctx, "t-missing")
		appErr := requireKind(t, err, domain.ErrNotFound, domain.KindNotFound)
		assert.Equal(t, "Ticket ID : t-missing", appErr.Detail)
	})

	t.Run("checked-in ticket cannot be cancelled", func(t *testing.T) {
		f := newFixture(t, 5)
		svc := f.booking()
		issued, err := svc.BookTickets(ctx, domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 1})
		require.NoError(t, err)
		_, err = f.checkIn(eventStart).CheckIn(ctx, issued[0].ID)
		require.NoError(t, err)

		_, err = svc.CancelTicket(ctx, issued[0].ID)
		requireKind(t, err, domain.ErrInvalidState, domain.KindBusiness)
		assert.Equal(t, 4, f.available(t))
		f.requireLedgerBalanced(t)
	})
}

func TestBookingService_PresentationAndNotifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	pub := &recordingPublisher{}
	mail := &recordingEmailService{}
	svc := f.booking(WithQRCodeGenerator(fakeQR{}), WithPublisher(pub), WithEmailService(mail))

	issued, err := svc.BookTickets(ctx, domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 2})
	require.NoError(t, err)
	for _, it := range issued {
		want := domain.EncodeVerificationCode(it.ID, it.TicketCode, it.UserID, it.EventID)
		assert.Equal(t, want, it.VerificationCode)
		assert.Equal(t, "png:"+want, it.QRCode)
		assert.Equal(t, "Ana", it.UserName)
		assert.Equal(t, "Gala", it.EventTitle)
	}

	assert.Eventually(t, func() bool { return pub.count(domain.TicketEventBooked) == 2 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return mail.count() == 1 }, time.Second, 10*time.Millisecond)

	_, err = svc.CancelTicket(ctx, issued[0].ID)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return pub.count(domain.TicketEventCancelled) == 1 }, time.Second, 10*time.Millisecond)
}

func TestBookingService_NotificationFailuresDoNotFailBooking(t *testing.T) {
	f := newFixture(t, 5)
	pub := &recordingPublisher{err: errors.New("broker down")}
	mail := &recordingEmailService{err: errors.New("ses throttled")}
	svc := f.booking(WithQRCodeGenerator(fakeQR{err: errors.New("encode")}), WithPublisher(pub), WithEmailService(mail))

	issued, err := svc.BookTickets(context.Background(), domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 1})
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Empty(t, issued[0].QRCode)
	assert.NotEmpty(t, issued[0].VerificationCode)
	assert.Eventually(t, func() bool { return mail.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 4, f.available(t))
}

func TestBookingService_GetTicketAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	svc := f.booking()

	issued, err := svc.BookTickets(ctx, domain.BookTicketsInput{UserID: f.user.ID, EventID: f.event.ID, SeatCount: 2})
	require.NoError(t, err)

	got, err := svc.GetTicket(ctx, issued[1].ID)
	require.NoError(t, err)
	assert.Equal(t, issued[1].TicketCode, got.TicketCode)
	assert.Equal(t, issued[1].VerificationCode, got.VerificationCode)

	_, err = svc.GetTicket(ctx, "t-missing")
	requireKind(t, err, domain.ErrNotFound, domain.KindNotFound)

	list, err := svc.ListEventTickets(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.ListEventTickets(ctx, "ev-missing")
	requireKind(t, err, domain.ErrNotFound, domain.KindNotFound)
}
