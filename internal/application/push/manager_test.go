package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/go-trade-client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) SubscribePush(ctx context.Context, sub domain.PushSubscription) error {
	return m.Called(ctx, sub).Error(0)
}
func (m *mockAPI) UnsubscribePush(ctx context.Context, endpoint string) error {
	return m.Called(ctx, endpoint).Error(0)
}
func (m *mockAPI) TestPush(ctx context.Context) error { return m.Called(ctx).Error(0) }

// fakePlatform records what the manager asked of the browser.
type fakePlatform struct {
	caps       Capabilities
	perm       Permission
	existing   *domain.PushSubscription
	created    *domain.PushSubscription
	registered int
	asked      int
	subscribed [][]byte
}

func (f *fakePlatform) Capabilities() Capabilities { return f.caps }
func (f *fakePlatform) RegisterWorker(_ context.Context, script, scope string) (Registration, error) {
	f.registered++
	return f, nil
}
func (f *fakePlatform) RequestPermission(context.Context) (Permission, error) {
	f.asked++
	return f.perm, nil
}
func (f *fakePlatform) Subscription(context.Context) (*domain.PushSubscription, error) {
	return f.existing, nil
}
func (f *fakePlatform) Subscribe(_ context.Context, key []byte) (*domain.PushSubscription, error) {
	f.subscribed = append(f.subscribed, key)
	return f.created, nil
}

func vapidKey(t *testing.T) string {
	t.Helper()
	k, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(k.PublicKey().Bytes())
}

var sub = &domain.PushSubscription{
	Endpoint: "https://fcm.googleapis.com/fcm/send/abc",
	Keys:     map[string]string{"p256dh": "k", "auth": "a"},
}

func supported() Capabilities { return Capabilities{ServiceWorker: true, PushManager: true} }

func TestEnable_UnsupportedMakesNoCalls(t *testing.T) {
	for _, caps := range []Capabilities{{}, {ServiceWorker: true}, {PushManager: true}} {
		api := &mockAPI{}
		p := &fakePlatform{caps: caps, perm: PermissionGranted, created: sub}
		_, err := NewManager(api, vapidKey(t), zap.NewNop()).Enable(context.Background(), p)
		assert.ErrorIs(t, err, domain.ErrPushUnsupported)
		assert.Zero(t, p.registered)
		assert.Empty(t, api.Calls)
	}
}

func TestEnable_MissingKey(t *testing.T) {
	api := &mockAPI{}
	p := &fakePlatform{caps: supported(), perm: PermissionGranted, created: sub}
	_, err := NewManager(api, "  ", zap.NewNop()).Enable(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrServerKeyMissing)
	assert.Zero(t, p.registered)
	assert.Empty(t, api.Calls)
}

func TestEnable_PermissionDenied(t *testing.T) {
	for _, perm := range []Permission{PermissionDenied, PermissionDefault} {
		api := &mockAPI{}
		p := &fakePlatform{caps: supported(), perm: perm, created: sub}
		_, err := NewManager(api, vapidKey(t), zap.NewNop()).Enable(context.Background(), p)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		assert.Empty(t, p.subscribed)
		assert.Empty(t, api.Calls)
	}
}

func TestEnable_ReusesExistingSubscription(t *testing.T) {
	api := &mockAPI{}
	api.On("SubscribePush", mock.Anything, *sub).Return(nil).Once()
	p := &fakePlatform{caps: supported(), perm: PermissionGranted, existing: sub}

	got, err := NewManager(api, vapidKey(t), zap.NewNop()).Enable(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, sub, got)
	assert.Empty(t, p.subscribed)
	assert.Equal(t, 1, p.registered)
	api.AssertExpectations(t)
}

func TestEnable_SubscribesWithDecodedKey(t *testing.T) {
	key := vapidKey(t)
	api := &mockAPI{}
	api.On("SubscribePush", mock.Anything, *sub).Return(nil).Once()
	p := &fakePlatform{caps: supported(), perm: PermissionGranted, created: sub}

	_, err := NewManager(api, key, zap.NewNop()).Enable(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, p.subscribed, 1)
	assert.Len(t, p.subscribed[0], 65)
	assert.Equal(t, byte(0x04), p.subscribed[0][0])
	api.AssertExpectations(t)
}

func TestEnable_ReportFailureIsNotRetried(t *testing.T) {
	api := &mockAPI{}
	api.On("SubscribePush", mock.Anything, *sub).Return(&domain.UpstreamError{Status: 500, Message: "boom"}).Once()
	p := &fakePlatform{caps: supported(), perm: PermissionGranted, created: sub}

	_, err := NewManager(api, vapidKey(t), zap.NewNop()).Enable(context.Background(), p)
	var ue *domain.UpstreamError
	assert.True(t, errors.As(err, &ue))
	api.AssertNumberOfCalls(t, "SubscribePush", 1)
}

func TestEnable_RejectsMalformedSubscription(t *testing.T) {
	api := &mockAPI{}
	p := &fakePlatform{caps: supported(), perm: PermissionGranted, created: &domain.PushSubscription{Endpoint: "not a url"}}
	_, err := NewManager(api, vapidKey(t), zap.NewNop()).Enable(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Empty(t, api.Calls)
}

func TestDecodeServerKey(t *testing.T) {
	key := vapidKey(t)

	b, err := DecodeServerKey(key)
	require.NoError(t, err)
	assert.Len(t, b, 65)

	padded := key + "="
	b2, err := DecodeServerKey(padded)
	require.NoError(t, err)
	assert.Equal(t, b, b2)

	_, err = DecodeServerKey("")
	assert.ErrorIs(t, err, domain.ErrServerKeyMissing)

	_, err = DecodeServerKey("a+b/")
	assert.Error(t, err)

	_, err = DecodeServerKey(base64.RawURLEncoding.EncodeToString(make([]byte, 65)))
	assert.ErrorContains(t, err, "P-256")
}

func TestDisableAndTest(t *testing.T) {
	api := &mockAPI{}
	api.On("UnsubscribePush", mock.Anything, sub.Endpoint).Return(nil).Once()
	api.On("TestPush", mock.Anything).Return(nil).Once()
	m := NewManager(api, "", zap.NewNop())

	require.NoError(t, m.Disable(context.Background(), sub.Endpoint))
	require.NoError(t, m.Test(context.Background()))
	assert.ErrorIs(t, m.Disable(context.Background(), ""), domain.ErrBadRequest)
	api.AssertExpectations(t)

	_, err := m.PublicKey()
	assert.ErrorIs(t, err, domain.ErrServerKeyMissing)
}

func TestReportedPlatform(t *testing.T) {
	key := vapidKey(t)

	api := &mockAPI{}
	api.On("SubscribePush", mock.Anything, *sub).Return(nil).Twice()
	m := NewManager(api, key, zap.NewNop())

	_, err := m.Enable(context.Background(), ReportedPlatform{Report: Report{
		Capabilities: supported(), Permission: PermissionGranted, Existing: true, Subscription: sub,
	}})
	require.NoError(t, err)

	_, err = m.Enable(context.Background(), ReportedPlatform{Report: Report{
		Capabilities: supported(), Permission: PermissionGranted, Subscription: sub,
	}})
	require.NoError(t, err)

	_, err = m.Enable(context.Background(), ReportedPlatform{Report: Report{
		Capabilities: supported(), Permission: PermissionGranted,
	}})
	assert.ErrorIs(t, err, domain.ErrNoSubscription)

	_, err = m.Enable(context.Background(), ReportedPlatform{Report: Report{Capabilities: supported()}})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	api.AssertExpectations(t)
}
