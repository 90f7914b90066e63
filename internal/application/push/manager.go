// Package push registers the browser's push subscription with the trading platform.
package push

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-trade-client/internal/domain"
	"github.com/go-trade-client/internal/pkg/validate"
	"go.uber.org/zap"
)

const (
	WorkerScript = "/sw.js"
	WorkerScope  = "/"
)

// Capabilities are the two browser features push depends on.
type Capabilities struct {
	ServiceWorker bool `json:"service_worker"`
	PushManager   bool `json:"push_manager"`
}

func (c Capabilities) Supported() bool { return c.ServiceWorker && c.PushManager }

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// Registration is a registered background delivery worker.
type Registration interface {
	// Subscription returns the existing subscription, or nil.
	Subscription(ctx context.Context) (*domain.PushSubscription, error)
	Subscribe(ctx context.Context, applicationServerKey []byte) (*domain.PushSubscription, error)
}

// Platform is the browser side of push.
type Platform interface {
	Capabilities() Capabilities
	RegisterWorker(ctx context.Context, script, scope string) (Registration, error)
	RequestPermission(ctx context.Context) (Permission, error)
}

type Upstream interface {
	SubscribePush(ctx context.Context, sub domain.PushSubscription) error
	UnsubscribePush(ctx context.Context, endpoint string) error
	TestPush(ctx context.Context) error
}

type Manager struct {
	api       Upstream
	serverKey string
	log       *zap.Logger
}

func NewManager(api Upstream, serverKey string, log *zap.Logger) *Manager {
	return &Manager{api: api, serverKey: strings.TrimSpace(serverKey), log: log}
}

// PublicKey returns the configured server key for the page.
func (m *Manager) PublicKey() (string, error) {
	if m.serverKey == "" {
		return "", domain.ErrServerKeyMissing
	}
	return m.serverKey, nil
}

// Enable subscribes the browser and reports the subscription once. Capability and key
// checks happen before any worker, permission or network call.
func (m *Manager) Enable(ctx context.Context, p Platform) (*domain.PushSubscription, error) {
	if !p.Capabilities().Supported() {
		return nil, domain.ErrPushUnsupported
	}
	if m.serverKey == "" {
		return nil, domain.ErrServerKeyMissing
	}
	key, err := DecodeServerKey(m.serverKey)
	if err != nil {
		return nil, err
	}

	reg, err := p.RegisterWorker(ctx, WorkerScript, WorkerScope)
	if err != nil {
		return nil, fmt.Errorf("register worker: %w", err)
	}
	perm, err := p.RequestPermission(ctx)
	if err != nil {
		return nil, fmt.Errorf("request permission: %w", err)
	}
	if perm != PermissionGranted {
		return nil, domain.ErrPermissionDenied
	}

	sub, err := reg.Subscription(ctx)
	if err != nil {
		return nil, fmt.Errorf("existing subscription: %w", err)
	}
	if sub == nil {
		if sub, err = reg.Subscribe(ctx, key); err != nil {
			return nil, fmt.Errorf("subscribe: %w", err)
		}
	}
	if err := validate.Struct(sub); err != nil {
		return nil, domain.Invalid("Invalid push subscription: %v", err)
	}

	if err := m.api.SubscribePush(ctx, *sub); err != nil {
		return nil, err
	}
	m.log.Info("push subscription registered", zap.String("endpoint_host", endpointHost(sub.Endpoint)))
	return sub, nil
}

func (m *Manager) Disable(ctx context.Context, endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return domain.Invalid("Missing subscription endpoint")
	}
	return m.api.UnsubscribePush(ctx, endpoint)
}

func (m *Manager) Test(ctx context.Context) error {
	return m.api.TestPush(ctx)
}

// DecodeServerKey decodes a URL-safe base64 key (padding optional) and checks it is an
// uncompressed P-256 point.
func DecodeServerKey(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if s == "" {
		return nil, domain.ErrServerKeyMissing
	}
	key, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode push server key: %w", err)
	}
	if len(key) != 65 || key[0] != 0x04 {
		return nil, errors.New("push server key is not an uncompressed P-256 public key")
	}
	return key, nil
}

func endpointHost(endpoint string) string {
	rest := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}
