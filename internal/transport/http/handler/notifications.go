package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-trade-client/internal/application/notification"
)

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List opens the list, which marks everything read.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Open(r.Context())
	if err != nil {
		httpError(w, err, "Failed to mark as read")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadCount(r.Context())
	if err != nil {
		httpError(w, err, "Failed to load notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err, "Delete failed")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
