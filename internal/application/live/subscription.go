package live

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-trade-client/internal/domain"
	"github.com/go-trade-client/internal/pkg/metrics"
)

// Subscription is one consumer's bounded queue of events. When the queue is full the
// oldest event is dropped.
type Subscription struct {
	hub    *Hub
	userID string

	mu      sync.Mutex
	queue   []domain.RealtimeEvent
	max     int
	dropped int
	closed  bool
	once    sync.Once
	notify  chan struct{}
}

func (s *Subscription) push(ev domain.RealtimeEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= s.max {
		s.queue = s.queue[1:]
		s.dropped++
		metrics.RealtimeDropped()
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until an event is queued, ctx ends or the subscription closes.
func (s *Subscription) Next(ctx context.Context) (domain.RealtimeEvent, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return ev, nil
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return domain.RealtimeEvent{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return domain.RealtimeEvent{}, ctx.Err()
		case <-s.notify:
		}
	}
}

// Dropped returns how many events were evicted from a full queue.
func (s *Subscription) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close detaches the subscriber; the last one to leave closes the user's channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.markClosed()
		s.hub.unsubscribe(s)
	})
}

func (s *Subscription) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
}

func decodeUsers(data json.RawMessage) []domain.OnlineUser {
	var users []domain.OnlineUser
	if len(data) == 0 || json.Unmarshal(data, &users) != nil {
		return nil
	}
	return users
}
