package controllers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"eventticketing/internal/delivery/http/middleware"
	"eventticketing/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeBookingService implements domain.BookingService for handler tests.
type fakeBookingService struct {
	bookResult   []*domain.IssuedTicket
	bookErr      error
	lastBook     domain.BookTicketsInput
	cancelResult *domain.Ticket
	cancelErr    error
	lastCancelID string
	tickets      map[string]*domain.IssuedTicket
	listResult   []*domain.Ticket
	listErr      error
}

func (f *fakeBookingService) BookTickets(_ context.Context, in domain.BookTicketsInput) ([]*domain.IssuedTicket, error) {
	f.lastBook = in
	return f.bookResult, f.bookErr
}

func (f *fakeBookingService) CancelTicket(_ context.Context, id string) (*domain.Ticket, error) {
	f.lastCancelID = id
	return f.cancelResult, f.cancelErr
}

func (f *fakeBookingService) GetTicket(_ context.Context, id string) (*domain.IssuedTicket, error) {
	if t, ok := f.tickets[id]; ok {
		return t, nil
	}
	return nil, domain.NotFoundError("Ticket", id)
}

func (f *fakeBookingService) ListEventTickets(_ context.Context, _ string) ([]*domain.Ticket, error) {
	return f.listResult, f.listErr
}

// fakeCheckInService implements domain.CheckInService.
type fakeCheckInService struct {
	result      *domain.CheckInResult
	err         error
	lastID      string
	lastPayload string
}

func (f *fakeCheckInService) CheckIn(_ context.Context, id string) (*domain.CheckInResult, error) {
	f.lastID = id
	return f.result, f.err
}

func (f *fakeCheckInService) CheckInByCode(_ context.Context, payload string) (*domain.CheckInResult, error) {
	f.lastPayload = payload
	return f.result, f.err
}

// fakeEventService implements domain.EventService.
type fakeEventService struct {
	created    *domain.Event
	createErr  error
	lastCreate domain.CreateEventInput
	events     map[string]*domain.Event
}

func (f *fakeEventService) CreateEvent(_ context.Context, in domain.CreateEventInput) (*domain.Event, error) {
	f.lastCreate = in
	return f.created, f.createErr
}

func (f *fakeEventService) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	if e, ok := f.events[id]; ok {
		return e, nil
	}
	return nil, domain.NotFoundError("Event", id)
}

// newRequest builds a request with path values and, when p is non-nil, an authenticated principal.
func newRequest(method, target, body string, p *domain.Principal, pathValues map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	if p != nil {
		req = req.WithContext(middleware.SetPrincipal(req.Context(), *p))
	}
	return req
}
