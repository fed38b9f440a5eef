package controllers

import (
	"io"
	"log/slog"
	"net/http"

	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/domain"
)

// maxQRPayload bounds the scanned payload body.
const maxQRPayload = 4 << 10

// CheckInSuccessResponse is the success response envelope for check-in (201).
type CheckInSuccessResponse struct {
	Data  *domain.CheckInResult `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

type CheckInController struct {
	Logger  *slog.Logger
	Service domain.CheckInService
}

func NewCheckInController(logger *slog.Logger, svc domain.CheckInService) *CheckInController {
	return &CheckInController{Logger: logger, Service: svc}
}

// CheckIn godoc
// @Summary Check in a ticket by ID
// @Description Admits a BOOKED ticket inside the event's check-in window. Staff and organizers only.
// @Tags checkin
// @Produce json
// @Security BearerAuth
// @Param ticketID path string true "Ticket ID"
// @Success 201 {object} controllers.CheckInSuccessResponse
// @Failure 400 {object} helpers.APIResponse "cancelled, already checked in, too early or too late"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /checkin/{ticketID} [post]
func (c *CheckInController) CheckIn(w http.ResponseWriter, r *http.Request) {
	ticketID := r.PathValue("ticketID")
	if ticketID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing ticketID")
		return
	}
	res, err := c.Service.CheckIn(r.Context(), ticketID)
	if err != nil {
		helpers.WriteAppError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, res)
}

// CheckInByCode godoc
// @Summary Check in a scanned QR payload
// @Description The request body is the raw verification payload read from the ticket QR code. Staff and organizers only.
// @Tags checkin
// @Accept plain
// @Produce json
// @Security BearerAuth
// @Param payload body string true "Verification payload"
// @Success 201 {object} controllers.CheckInSuccessResponse
// @Failure 400 {object} helpers.APIResponse "invalid QR code or ticket not admissible"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /checkin/qr [post]
func (c *CheckInController) CheckInByCode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQRPayload+1))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "could not read payload")
		return
	}
	if len(body) > maxQRPayload {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "payload too large")
		return
	}
	res, err := c.Service.CheckInByCode(r.Context(), string(body))
	if err != nil {
		helpers.WriteAppError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, res)
}
