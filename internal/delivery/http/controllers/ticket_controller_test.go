package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	attendee = &domain.Principal{UserID: "u-1", Roles: []string{domain.RoleAttendee}}
	stranger = &domain.Principal{UserID: "u-2", Roles: []string{domain.RoleAttendee}}
	staff    = &domain.Principal{UserID: "s-1", Roles: []string{domain.RoleStaff}}
)

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) *helpers.APIError {
	t.Helper()
	env := struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	if data != nil && env.Error == nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env.Error
}

func TestTicketController_BookTickets(t *testing.T) {
	issued := []*domain.IssuedTicket{{
		Ticket:           &domain.Ticket{ID: "t-1", TicketCode: "c-1", UserID: "u-1", EventID: "e-1", Status: domain.TicketBooked},
		VerificationCode: `{"ticketId":"t-1"}`,
	}}

	tests := []struct {
		name       string
		principal  *domain.Principal
		body       string
		svc        *fakeBookingService
		wantStatus int
		wantCode   string
		wantKind   string
	}{
		{"created", attendee, `{"event_id":"e-1","seat_count":1}`, &fakeBookingService{bookResult: issued}, http.StatusCreated, "", ""},
		{"unauthenticated", nil, `{"event_id":"e-1","seat_count":1}`, &fakeBookingService{}, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, ""},
		{"missing event id", attendee, `{"seat_count":1}`, &fakeBookingService{}, http.StatusBadRequest, helpers.ErrCodeBadRequest, ""},
		{"unknown field", attendee, `{"event_id":"e-1","seat_count":1,"price":0}`, &fakeBookingService{}, http.StatusBadRequest, helpers.ErrCodeBadRequest, ""},
		{
			"sold out", attendee, `{"event_id":"e-1","seat_count":8}`,
			&fakeBookingService{bookErr: domain.BusinessError(domain.ErrInsufficientInventory, "Not enough seats available", "Available Seats : 7")},
			http.StatusBadRequest, helpers.ErrCodeBadRequest, "BUSINESS",
		},
		{
			"event not found", attendee, `{"event_id":"e-9","seat_count":1}`,
			&fakeBookingService{bookErr: domain.NotFoundError("Event", "e-9")},
			http.StatusNotFound, helpers.ErrCodeNotFound, "RESOURCE_NOT_FOUND",
		},
		{
			"storage failure", attendee, `{"event_id":"e-1","seat_count":1}`,
			&fakeBookingService{bookErr: domain.SystemError("book tickets failed", errors.New("pq: deadlock detected"))},
			http.StatusInternalServerError, helpers.ErrCodeInternalError, "SYSTEM",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewTicketController(testLogger, tt.svc)
			rr := httptest.NewRecorder()
			c.BookTickets(rr, newRequest(http.MethodPost, "/tickets", tt.body, tt.principal, nil))

			require.Equal(t, tt.wantStatus, rr.Code)
			var got []*domain.IssuedTicket
			apiErr := decodeEnvelope(t, rr, &got)
			if tt.wantStatus == http.StatusCreated {
				require.Nil(t, apiErr)
				require.Len(t, got, 1)
				assert.Equal(t, "t-1", got[0].ID)
				assert.Equal(t, `{"ticketId":"t-1"}`, got[0].VerificationCode)
				assert.Equal(t, domain.BookTicketsInput{UserID: "u-1", EventID: "e-1", SeatCount: 1}, tt.svc.lastBook)
				return
			}
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, apiErr.Kind)
			}
			assert.NotContains(t, apiErr.Message, "deadlock")
		})
	}
}

func TestTicketController_CancelTicket(t *testing.T) {
	owned := map[string]*domain.IssuedTicket{
		"t-1": {Ticket: &domain.Ticket{ID: "t-1", UserID: "u-1", Status: domain.TicketBooked}},
	}
	cancelled := &domain.Ticket{ID: "t-1", UserID: "u-1", Status: domain.TicketCancelled}

	tests := []struct {
		name       string
		principal  *domain.Principal
		svc        *fakeBookingService
		wantStatus int
		wantCalled bool
	}{
		{"owner cancels", attendee, &fakeBookingService{tickets: owned, cancelResult: cancelled}, http.StatusOK, true},
		{"staff cancels any ticket", staff, &fakeBookingService{cancelResult: cancelled}, http.StatusOK, true},
		{"other attendee forbidden", stranger, &fakeBookingService{tickets: owned}, http.StatusForbidden, false},
		{"unknown ticket", attendee, &fakeBookingService{}, http.StatusNotFound, false},
		{
			"already cancelled", attendee,
			&fakeBookingService{tickets: owned, cancelErr: domain.BusinessError(domain.ErrAlreadyCancelled, "Ticket already cancelled", "")},
			http.StatusBadRequest, true,
		},
		{"unauthenticated", nil, &fakeBookingService{}, http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewTicketController(testLogger, tt.svc)
			rr := httptest.NewRecorder()
			req := newRequest(http.MethodPut, "/tickets/t-1/cancel", "", tt.principal, map[string]string{"ticketID": "t-1"})
			c.CancelTicket(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, tt.svc.lastCancelID == "t-1")
			if tt.wantStatus == http.StatusOK {
				var got domain.Ticket
				require.Nil(t, decodeEnvelope(t, rr, &got))
				assert.Equal(t, domain.TicketCancelled, got.Status)
			}
		})
	}
}

func TestTicketController_GetTicket(t *testing.T) {
	svc := &fakeBookingService{tickets: map[string]*domain.IssuedTicket{
		"t-1": {Ticket: &domain.Ticket{ID: "t-1", UserID: "u-1"}, VerificationCode: "payload", QRCode: "cG5n"},
	}}
	c := NewTicketController(testLogger, svc)

	rr := httptest.NewRecorder()
	c.GetTicket(rr, newRequest(http.MethodGet, "/tickets/t-1", "", attendee, map[string]string{"ticketID": "t-1"}))
	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.IssuedTicket
	require.Nil(t, decodeEnvelope(t, rr, &got))
	assert.Equal(t, "payload", got.VerificationCode)
	assert.Equal(t, "cG5n", got.QRCode)

	rr = httptest.NewRecorder()
	c.GetTicket(rr, newRequest(http.MethodGet, "/tickets/t-1", "", stranger, map[string]string{"ticketID": "t-1"}))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	c.GetTicket(rr, newRequest(http.MethodGet, "/tickets/t-2", "", staff, map[string]string{"ticketID": "t-2"}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
