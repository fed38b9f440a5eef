package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	h "eventticketing/internal/delivery/http/helpers"
)

// Recovery turns a panic in next into a logged 500 response.
func Recovery(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic recovered",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, h.GenericErrorMessage)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
