package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/go-trade-client/internal/domain"
)

// GetSession fetches (and lazily creates, server side) the caller's KYC session.
func (c *Client) GetSession(ctx context.Context) (*domain.KYCSession, error) {
	return c.session(ctx, request{op: "kyc.get_session", method: http.MethodGet, path: c.kycPath + "/session"})
}

// SaveSession records wizard progress.
func (c *Client) SaveSession(ctx context.Context, body domain.SaveSessionRequest) (*domain.KYCSession, error) {
	req, err := jsonRequest("kyc.save_session", http.MethodPost, c.kycPath+"/session", body)
	if err != nil {
		return nil, err
	}
	return c.session(ctx, req)
}

// SaveProfile stores the personal-details form.
func (c *Client) SaveProfile(ctx context.Context, body domain.ProfileInput) (*domain.KYCSession, error) {
	req, err := jsonRequest("kyc.save_profile", http.MethodPost, c.kycPath+"/profile", body)
	if err != nil {
		return nil, err
	}
	return c.session(ctx, req)
}

// SaveDocType stores the chosen document type and country.
func (c *Client) SaveDocType(ctx context.Context, body domain.DocTypeRequest) (*domain.KYCSession, error) {
	req, err := jsonRequest("kyc.save_doctype", http.MethodPost, c.kycPath+"/doctype", body)
	if err != nil {
		return nil, err
	}
	return c.session(ctx, req)
}

// Upload sends one image as multipart field "file".
func (c *Client) Upload(ctx context.Context, kind domain.UploadKind, filename, mediaType string, r io.Reader) (*domain.KYCSession, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("kyc.upload: create part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("kyc.upload: copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("kyc.upload: close form: %w", err)
	}
	return c.session(ctx, request{
		op:          "kyc.upload",
		method:      http.MethodPost,
		path:        c.kycPath + "/upload/" + string(kind),
		body:        &buf,
		contentType: mw.FormDataContentType(),
	})
}

// Submit hands the session over for review.
func (c *Client) Submit(ctx context.Context) (*domain.KYCSession, error) {
	return c.session(ctx, request{op: "kyc.submit", method: http.MethodPost, path: c.kycPath + "/submit"})
}

// Status reads the review status.
func (c *Client) Status(ctx context.Context) (*domain.KYCSession, error) {
	return c.session(ctx, request{op: "kyc.status", method: http.MethodGet, path: c.kycPath + "/status"})
}

func (c *Client) session(ctx context.Context, req request) (*domain.KYCSession, error) {
	var env domain.SessionEnvelope
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	if env.Session == nil {
		return &domain.KYCSession{Step: domain.StepIntro}, nil
	}
	return env.Session, nil
}
