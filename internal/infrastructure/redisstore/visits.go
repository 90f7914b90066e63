// Package redisstore keeps wizard visits in Redis so several gateway replicas can
// serve the same visit.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-trade-client/internal/config"
	"github.com/go-trade-client/internal/domain"
	"github.com/redis/go-redis/v9"
)

const namespace = "kyc:visit"

// NewClient builds a single-node client from configuration.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// VisitStore stores each visit as a JSON value whose key expires with the visit.
type VisitStore struct {
	client redis.UniversalClient
}

func NewVisitStore(client redis.UniversalClient) *VisitStore {
	return &VisitStore{client: client}
}

func key(visitID string) string { return namespace + ":" + visitID }

// ttlFor returns how long a visit has left at now. Visits without an expiry are kept
// until deleted.
func ttlFor(v *domain.Visit, now time.Time) time.Duration {
	if v.ExpiresAt == 0 {
		return 0
	}
	return time.Unix(v.ExpiresAt, 0).Sub(now)
}

func (s *VisitStore) Put(ctx context.Context, v *domain.Visit) error {
	ttl := ttlFor(v, time.Now())
	if v.ExpiresAt != 0 && ttl <= 0 {
		return fmt.Errorf("put visit %s: already expired", v.VisitID)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal visit: %w", err)
	}
	return s.client.Set(ctx, key(v.VisitID), b, ttl).Err()
}

func (s *VisitStore) Get(ctx context.Context, visitID string) (*domain.Visit, error) {
	return get(ctx, s.client, visitID)
}

// Update applies u under WATCH so concurrent writers from other replicas cannot
// interleave. The key keeps its remaining TTL.
func (s *VisitStore) Update(ctx context.Context, visitID string, u domain.VisitUpdate) error {
	k := key(visitID)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		v, err := get(ctx, tx, visitID)
		if err != nil {
			return err
		}
		u.Apply(v)
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal visit: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, b, redis.KeepTTL)
			return nil
		})
		return err
	}, k)
}

func (s *VisitStore) Delete(ctx context.Context, visitID string) error {
	return s.client.Del(ctx, key(visitID)).Err()
}

// getter is the read side shared by the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func get(ctx context.Context, c getter, visitID string) (*domain.Visit, error) {
	raw, err := c.Get(ctx, key(visitID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("visit not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var v domain.Visit
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unmarshal visit: %w", err)
	}
	return &v, nil
}

// Ping checks that Redis answers.
func (s *VisitStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
