package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

const serviceName = "channel_subs"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError — доменные ошибки в HTTP-коды; неожиданные логируются
func writeError(w http.ResponseWriter, log *logger.ZapLogger, msg string, err error) {
	switch {
	case errors.Is(err, ports.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ports.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ports.ErrNotActionable), errors.Is(err, ports.ErrNotEligible):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Log(logger.LogEntry{Level: "error", Message: msg, Service: serviceName, Error: err})
		http.Error(w, msg+": "+err.Error(), http.StatusInternalServerError)
	}
}

func userIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
