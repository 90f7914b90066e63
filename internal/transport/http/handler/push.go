package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-trade-client/internal/application/push"
	"github.com/go-trade-client/internal/domain"
)

// PushHandler lets the page enable, disable and test web push.
type PushHandler struct {
	mgr    *push.Manager
	origin string
}

// NewPushHandler builds the handler; origin is the site the delivery worker serves.
func NewPushHandler(mgr *push.Manager, origin string) *PushHandler {
	return &PushHandler{mgr: mgr, origin: origin}
}

// Config returns the application server key the page subscribes with.
func (h *PushHandler) Config(w http.ResponseWriter, _ *http.Request) {
	key, err := h.mgr.PublicKey()
	if err != nil {
		httpError(w, err, "Failed to enable push")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"public_key":    key,
		"worker_script": push.WorkerScript,
		"worker_scope":  push.WorkerScope,
	})
}

// Subscribe takes the page's report of what the browser did and registers the
// resulting subscription upstream.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var report push.Report
	if !decodeJSON(w, r, &report) {
		return
	}
	sub, err := h.mgr.Enable(r.Context(), push.ReportedPlatform{Report: report})
	if err != nil {
		httpError(w, err, "Failed to enable push")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Subscription *domain.PushSubscription `json:"subscription"`
		Message      string                   `json:"message"`
	}{sub, "Push enabled!"})
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Endpoint string `json:"endpoint"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.mgr.Disable(r.Context(), body.Endpoint); err != nil {
		httpError(w, err, "Failed to disable push")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Push disabled"})
}

func (h *PushHandler) Test(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Test(r.Context()); err != nil {
		httpError(w, err, "Failed to send test push")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Test notification sent"})
}

// maxPayloadBytes bounds a delivered push payload.
const maxPayloadBytes = 4 << 10

// Payload normalises a delivered push payload for the background worker.
func (h *PushHandler) Payload(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, domain.ParsePushPayload(data, h.origin, time.Now()))
}

// Click tells the worker what a notification click should do.
func (h *PushHandler) Click(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action   string   `json:"action"`
		URL      string   `json:"url"`
		OpenTabs []string `json:"open_tabs"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.URL == "" {
		body.URL = h.origin
	}
	outcome, idx := domain.ClickTarget(body.Action, body.URL, body.OpenTabs)
	writeJSON(w, http.StatusOK, struct {
		Outcome string `json:"outcome"`
		Tab     int    `json:"tab"`
		URL     string `json:"url"`
	}{outcome.String(), idx, body.URL})
}
