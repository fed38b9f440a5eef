package helpers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"eventticketing/internal/domain"
)

// Error codes for API error responses. Use these with WriteJSONError.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeForbidden       = "forbidden"
	ErrCodeNotFound        = "not_found"
	ErrCodeTooManyRequests = "too_many_requests"
	ErrCodeInternalError   = "internal_error"
)

// GenericErrorMessage is shown to clients in place of any SYSTEM error.
const GenericErrorMessage = "Something went wrong"

var now = time.Now

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code      string     `json:"code"`
	Message   string     `json:"message"`
	Kind      string     `json:"kind,omitempty"`
	Severity  string     `json:"severity,omitempty"`
	Status    int        `json:"status"`
	Detail    string     `json:"detail,omitempty"`
	OpensAt   *time.Time `json:"opens_at,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// APIResponse is the standardized envelope for all API responses.
// On success: Data is set, Error is nil. On error: Data is nil, Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with the given data and error set to nil.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, APIResponse{Data: data})
}

// WriteJSONError writes an error envelope that does not originate from a domain error.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, APIResponse{
		Error: &APIError{Code: code, Message: message, Status: statusCode, Timestamp: now().UTC()},
	})
}

// WriteAppError renders err using its domain kind. Anything that is not a typed client
// error is logged and rendered as a generic 500.
func WriteAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr, ok := domain.AsError(err)
	if !ok || appErr.Kind == domain.KindSystem {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		apiErr := &APIError{
			Code:      ErrCodeInternalError,
			Message:   GenericErrorMessage,
			Kind:      string(domain.KindSystem),
			Severity:  string(domain.SeverityCritical),
			Status:    http.StatusInternalServerError,
			Timestamp: now().UTC(),
		}
		writeJSON(w, http.StatusInternalServerError, APIResponse{Error: apiErr})
		return
	}

	status, code := StatusFor(appErr.Kind)
	writeJSON(w, status, APIResponse{Error: &APIError{
		Code:      code,
		Message:   appErr.Message,
		Kind:      string(appErr.Kind),
		Severity:  string(appErr.Severity),
		Status:    status,
		Detail:    appErr.Detail,
		OpensAt:   appErr.OpensAt,
		Timestamp: now().UTC(),
	}})
}

// StatusFor maps an error kind to its HTTP status and envelope code.
func StatusFor(kind domain.ErrorKind) (int, string) {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case domain.KindValidation, domain.KindBusiness:
		return http.StatusBadRequest, ErrCodeBadRequest
	case domain.KindAuthorization:
		return http.StatusForbidden, ErrCodeForbidden
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
