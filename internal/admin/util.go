package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/notify"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/scheduler"
)

type response map[string]any

func writeJSON(w http.ResponseWriter, status int, v response) {
	if _, ok := v["ok"]; !ok {
		v["ok"] = status < 400
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{"ok": false, "error": msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		ve *domain.ValidationError
		de *domain.DeliveryError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, notify.ErrUnknownReport), errors.Is(err, scheduler.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, notify.ErrReportRunning):
		return http.StatusConflict
	case errors.As(err, &de), errors.Is(err, domain.ErrCollaboratorUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
