package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-trade-client/internal/application/capture"
	"github.com/go-trade-client/internal/application/kyc"
	"github.com/go-trade-client/internal/domain"
	"github.com/go-trade-client/internal/pkg/validate"
)

// maxUploadBytes bounds a single document or selfie upload.
const maxUploadBytes = 10 << 20

// ViewEnvelope wraps wizard responses with the success toast, if any.
type ViewEnvelope struct {
	View    *kyc.View `json:"view"`
	Message string    `json:"message,omitempty"`
}

// KYCHandler serves the verification wizard.
type KYCHandler struct {
	svc     kyc.Service
	capture capture.Strategy
}

func NewKYCHandler(svc kyc.Service, strategy capture.Strategy) *KYCHandler {
	return &KYCHandler{svc: svc, capture: strategy}
}

type visitAction func(ctx context.Context, userID, visitID string) (*kyc.View, error)

// run is the common shape of the visit endpoints: identify, act, answer with the view.
func (h *KYCHandler) run(w http.ResponseWriter, r *http.Request, okMsg, fallback string, fn visitAction) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}
	view, err := fn(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, ViewEnvelope{View: view, Message: okMsg})
}

func (h *KYCHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Start(r.Context(), userID)
	if err != nil {
		httpError(w, err, "Failed to load KYC session")
		return
	}
	writeJSON(w, http.StatusCreated, ViewEnvelope{View: view})
}

func (h *KYCHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "", "Failed to load KYC session", h.svc.View)
}

func (h *KYCHandler) Intro(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "", "Could not save progress", h.svc.AcknowledgeIntro)
}

func (h *KYCHandler) Profile(w http.ResponseWriter, r *http.Request) {
	var in domain.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}
	h.run(w, r, "Personal details saved", "Could not save personal details",
		func(ctx context.Context, userID, visitID string) (*kyc.View, error) {
			return h.svc.SaveProfile(ctx, userID, visitID, in)
		})
}

func (h *KYCHandler) Continue(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "Progress saved", "Could not save progress", h.svc.Continue)
}

func (h *KYCHandler) SelectDocType(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type domain.DocType `json:"type"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	h.run(w, r, "", "Could not save document type",
		func(ctx context.Context, userID, visitID string) (*kyc.View, error) {
			return h.svc.SelectDocType(ctx, userID, visitID, body.Type)
		})
}

func (h *KYCHandler) SubmitDocType(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "Document type saved", "Could not save document type", h.svc.SubmitDocType)
}

func (h *KYCHandler) Upload(w http.ResponseWriter, r *http.Request) {
	kind, ok := domain.ParseUploadKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown upload kind")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer f.Close()

	file := kyc.File{Name: header.Filename, MediaType: header.Header.Get("Content-Type"), Body: f}
	h.run(w, r, "Uploaded", "Upload failed",
		func(ctx context.Context, userID, visitID string) (*kyc.View, error) {
			return h.svc.Upload(ctx, userID, visitID, kind, file)
		})
}

func (h *KYCHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "", "Could not save progress", h.svc.Back)
}

func (h *KYCHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirmed bool `json:"confirmed"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	h.run(w, r, "Submitted for review", "Submit failed",
		func(ctx context.Context, userID, visitID string) (*kyc.View, error) {
			return h.svc.Submit(ctx, userID, visitID, body.Confirmed)
		})
}

func (h *KYCHandler) Status(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Status(r.Context())
	if err != nil {
		httpError(w, err, "Failed to fetch status")
		return
	}
	writeJSON(w, http.StatusOK, domain.SessionEnvelope{Session: sess})
}

// CaptureEvaluate scores a batch of face-detection frames for the selfie ring.
func (h *KYCHandler) CaptureEvaluate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Frames []capture.Frame `json:"frames" validate:"required,dive"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if fields := validate.Fields(body); fields != nil {
		writeJSON(w, http.StatusUnprocessableEntity, MessageEnvelope{Error: "Invalid frames", Fields: fields})
		return
	}
	res, err := h.capture.Evaluate(body.Frames)
	if err != nil {
		httpError(w, err, "Failed to capture selfie")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
