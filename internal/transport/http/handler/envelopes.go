package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-trade-client/internal/domain"
	"github.com/go-trade-client/internal/transport/http/middleware"
)

// MessageEnvelope is the generic response wrapper. Error is the text the page toasts.
type MessageEnvelope struct {
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// capabilityMessages are shown in place of a fallback for errors that describe the
// browser or deployment rather than a failed request.
var capabilityMessages = map[error]string{
	domain.ErrPushUnsupported:    "Push not supported",
	domain.ErrPermissionDenied:   "Permission denied",
	domain.ErrServerKeyMissing:   "VAPID key missing",
	domain.ErrNoSubscription:     "No push subscription available",
	domain.ErrCaptureUnavailable: "Please allow camera access or upload a selfie.",
	domain.ErrInFlight:           "Please wait for the current request to finish",
	domain.ErrStepMismatch:       "This step is no longer displayed, please reload",
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps err to a status and writes it with the toast text. fallback is used
// when neither the server nor a validation rule supplied a message.
func httpError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, status, MessageEnvelope{Error: ve.Message, Fields: ve.Fields})
		return
	}
	msg := domain.UserMessage(err, fallback)
	for sentinel, text := range capabilityMessages {
		if errors.Is(err, sentinel) {
			msg = text
			break
		}
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, domain.ErrInFlight), errors.Is(err, domain.ErrStepMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPushUnsupported), errors.Is(err, domain.ErrPermissionDenied),
		errors.Is(err, domain.ErrCaptureUnavailable), errors.Is(err, domain.ErrNoSubscription):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrServerKeyMissing):
		return http.StatusServiceUnavailable
	}

	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		if ue.Status >= 400 && ue.Status < 500 {
			return ue.Status
		}
		return http.StatusBadGateway
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// identity returns the caller's user id, writing 401 when the request carries none.
func identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.Identity() == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return claims.Identity(), true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
