// Package api is the HTTP client for the external trading API. Every call forwards the
// caller's bearer token and returns *domain.UpstreamError on any non-success outcome.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-trade-client/internal/config"
	"github.com/go-trade-client/internal/domain"
	"github.com/go-trade-client/internal/pkg/metrics"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of an error response is read looking for a message.
const maxErrorBody = 64 << 10

type bearerKey struct{}

// WithBearer returns a context whose upstream calls authenticate with token.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerFrom returns the token attached by WithBearer.
func BearerFrom(ctx context.Context) string {
	t, _ := ctx.Value(bearerKey{}).(string)
	return t
}

// Client talks to the trading API.
type Client struct {
	baseURL    string
	kycPath    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient builds a client from configuration. A nil httpClient gets a default with
// the configured timeout.
func NewClient(cfg *config.Config, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.UpstreamTimeout}
	}
	kycPath := "/" + strings.Trim(cfg.KYCAPIPath, "/")
	if kycPath == "/" {
		kycPath = ""
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.APIBaseURL, "/"),
		kycPath:    kycPath,
		httpClient: httpClient,
		log:        log,
	}
}

// request describes one upstream call.
type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
}

func jsonRequest(op, method, path string, payload interface{}) (request, error) {
	req := request{op: op, method: method, path: path}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return req, fmt.Errorf("%s: marshal body: %w", op, err)
		}
		req.body = bytes.NewReader(b)
		req.contentType = "application/json"
	}
	return req, nil
}

// do performs req and decodes a successful JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out interface{}) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream(req.op, err, time.Since(start)) }()

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, req.body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token := BearerFrom(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn("upstream call failed", zap.String("op", req.op), zap.Error(err))
		return &domain.UpstreamError{Op: req.op, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		upErr := &domain.UpstreamError{Op: req.op, Status: resp.StatusCode, Message: errorMessage(resp.Body)}
		c.log.Info("upstream rejected call",
			zap.String("op", req.op),
			zap.Int("status", resp.StatusCode),
			zap.String("message", upErr.Message))
		return upErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.UpstreamError{Op: req.op, Status: resp.StatusCode, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage extracts {"message": "..."} (or {"error": "..."}) from an error body.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &env) != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	return env.Error
}
