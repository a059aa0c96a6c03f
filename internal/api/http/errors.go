package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/logger"
)

type errorResponse struct {
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	ConflictingDates *conflictingDates `json:"conflicting_dates,omitempty"`
}

type conflictingDates struct {
	RentalID  int64  `json:"rental_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// writeError maps a service error onto an HTTP status and a JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *domain.ConflictError
	switch {
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:   "conflict",
			Message: err.Error(),
			ConflictingDates: &conflictingDates{
				RentalID:  ce.RentalID,
				StartDate: ce.Start.Format(domain.DateLayout),
				EndDate:   ce.End.Format(domain.DateLayout),
			},
		})
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeMessage(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeMessage(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrVehicleInUse):
		writeMessage(w, http.StatusConflict, "vehicle_in_use", err.Error())
	case errors.Is(err, domain.ErrReferentialConflict):
		writeMessage(w, http.StatusConflict, "referential_conflict", err.Error())
	case errors.Is(err, domain.ErrConcurrentUpdate):
		writeMessage(w, http.StatusConflict, "concurrent_update", err.Error())
	case errors.Is(err, domain.ErrVehicleBusy):
		w.Header().Set("Retry-After", "1")
		writeMessage(w, http.StatusServiceUnavailable, "vehicle_busy", err.Error())
	default:
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeMessage(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}
