package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-trade-client/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "kyc:visit:01HX", key("01HX"))
}

func TestTTLFor(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.Equal(t, 15*time.Minute, ttlFor(&domain.Visit{ExpiresAt: now.Add(15 * time.Minute).Unix()}, now))
	assert.Equal(t, time.Duration(0), ttlFor(&domain.Visit{}, now))
	assert.Negative(t, int64(ttlFor(&domain.Visit{ExpiresAt: now.Add(-time.Second).Unix()}, now)))
}

func newStore(t *testing.T) (*VisitStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVisitStore(client), mr
}

func visit(id string, ttl time.Duration) *domain.Visit {
	return &domain.Visit{
		VisitID:         id,
		UserID:          "u1",
		SelectedDocType: domain.DocTypeIDCard,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
		ExpiresAt:       time.Now().Add(ttl).Unix(),
	}
}

func TestVisitStore_PutGetWithTTL(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	v := visit("v1", 30*time.Minute)

	require.NoError(t, s.Put(ctx, v))
	ttl := mr.TTL(key("v1"))
	assert.Greater(t, ttl, 29*time.Minute)
	assert.LessOrEqual(t, ttl, 30*time.Minute)

	got, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, domain.DocTypeIDCard, got.SelectedDocType)
	assert.True(t, v.CreatedAt.Equal(got.CreatedAt))
}

func TestVisitStore_PutAlreadyExpired(t *testing.T) {
	s, mr := newStore(t)

	err := s.Put(context.Background(), visit("v1", -time.Minute))
	assert.ErrorContains(t, err, "already expired")
	assert.False(t, mr.Exists(key("v1")))
}

func TestVisitStore_GetMissingIsNotFound(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVisitStore_ExpiresWithKey(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, visit("v1", time.Minute)))

	mr.FastForward(2 * time.Minute)
	_, err := s.Get(ctx, "v1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVisitStore_UpdateKeepsTTL(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, visit("v1", 30*time.Minute)))
	mr.FastForward(10 * time.Minute)
	before := mr.TTL(key("v1"))

	ack := true
	passport := domain.DocTypePassport
	require.NoError(t, s.Update(ctx, "v1", domain.VisitUpdate{IntroAcknowledged: &ack, SelectedDocType: &passport}))

	got, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, got.IntroAcknowledged)
	assert.Equal(t, domain.DocTypePassport, got.SelectedDocType)
	assert.Equal(t, before, mr.TTL(key("v1")))
}

func TestVisitStore_UpdateMissingIsNotFound(t *testing.T) {
	s, mr := newStore(t)

	ack := true
	err := s.Update(context.Background(), "nope", domain.VisitUpdate{IntroAcknowledged: &ack})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, mr.Exists(key("nope")))
}

func TestVisitStore_DeleteAndPing(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, visit("v1", time.Minute)))

	require.NoError(t, s.Delete(ctx, "v1"))
	assert.False(t, mr.Exists(key("v1")))
	require.NoError(t, s.Ping(ctx))
}
