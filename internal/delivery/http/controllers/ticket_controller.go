package controllers

import (
	"log/slog"
	"net/http"

	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/delivery/http/middleware"
	"eventticketing/internal/domain"
)

// BookTicketsRequest is the request body for POST /tickets.
type BookTicketsRequest struct {
	EventID   string `json:"event_id"`
	SeatCount int    `json:"seat_count"`
}

// Validate implements Validator. Seat count rules are enforced by the booking service.
func (b BookTicketsRequest) Validate() []string {
	var errs []string
	if b.EventID == "" {
		errs = append(errs, "event_id is required")
	}
	return errs
}

// BookTicketsSuccessResponse is the success response envelope for POST /tickets (201).
type BookTicketsSuccessResponse struct {
	Data  []*domain.IssuedTicket `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// TicketSuccessResponse wraps a single ticket.
type TicketSuccessResponse struct {
	Data  *domain.Ticket    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// IssuedTicketSuccessResponse wraps a ticket with its verification code.
type IssuedTicketSuccessResponse struct {
	Data  *domain.IssuedTicket `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type TicketController struct {
	Logger  *slog.Logger
	Service domain.BookingService
}

func NewTicketController(logger *slog.Logger, svc domain.BookingService) *TicketController {
	return &TicketController{Logger: logger, Service: svc}
}

// BookTickets godoc
// @Summary Book tickets
// @Description Reserves seat_count seats for the authenticated user. All tickets are issued or none are.
// @Tags tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param booking body BookTicketsRequest true "Event and seat count"
// @Success 201 {object} controllers.BookTicketsSuccessResponse "data contains the issued tickets"
// @Failure 400 {object} helpers.APIResponse "invalid seat count or not enough seats"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "event or user not found"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /tickets [post]
func (c *TicketController) BookTickets(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req BookTicketsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	tickets, err := c.Service.BookTickets(r.Context(), domain.BookTicketsInput{
		UserID:    userID,
		EventID:   req.EventID,
		SeatCount: req.SeatCount,
	})
	if err != nil {
		helpers.WriteAppError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, tickets)
}

// CancelTicket godoc
// @Summary Cancel a ticket
// @Description Cancels a BOOKED ticket and returns its seat to the event. Allowed for the ticket holder, staff and organizers.
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param ticketID path string true "Ticket ID"
// @Success 200 {object} controllers.TicketSuccessResponse "data contains the cancelled ticket"
// @Failure 400 {object} helpers.APIResponse "ticket already cancelled or checked in"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /tickets/{ticketID}/cancel [put]
func (c *TicketController) CancelTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := r.PathValue("ticketID")
	if ticketID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing ticketID")
		return
	}
	if !c.authorizeTicket(w, r, ticketID) {
		return
	}
	ticket, err := c.Service.CancelTicket(r.Context(), ticketID)
	if err != nil {
		helpers.WriteAppError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ticket)
}

// GetTicket godoc
// @Summary Get a ticket
// @Description Returns the ticket with its verification code and QR image. Allowed for the ticket holder, staff and organizers.
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param ticketID path string true "Ticket ID"
// @Success 200 {object} controllers.IssuedTicketSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /tickets/{ticketID} [get]
func (c *TicketController) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := r.PathValue("ticketID")
	if ticketID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing ticketID")
		return
	}
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	ticket, err := c.Service.GetTicket(r.Context(), ticketID)
	if err != nil {
		helpers.WriteAppError(w, r, c.Logger, err)
		return
	}
	if !canManage(p, ticket.Ticket) {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "ticket belongs to another user")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ticket)
}

// authorizeTicket writes an error and returns false unless the caller may act on ticketID.
func (c *TicketController) authorizeTicket(w http.ResponseWriter, r *http.Request, ticketID string) bool {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return false
	}
	if p.HasRole(domain.RoleStaff, domain.RoleOrganizer) {
		return true
	}
	ticket, err := c.Service.GetTicket(r.Context(), ticketID)
	if err != nil {
		helpers.WriteAppError(w, r, c.Logger, err)
		return false
	}
	if !canManage(p, ticket.Ticket) {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "ticket belongs to another user")
		return false
	}
	return true
}

func canManage(p domain.Principal, t *domain.Ticket) bool {
	return t.UserID == p.UserID || p.HasRole(domain.RoleStaff, domain.RoleOrganizer)
}
