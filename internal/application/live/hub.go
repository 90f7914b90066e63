// Package live fans realtime events out to the page connections of a user. Each user
// has at most one upstream channel, shared by all of that user's subscribers and
// closed when the last one leaves.
package live

import (
	"context"
	"errors"
	"sync"

	"github.com/go-trade-client/internal/domain"
	"github.com/go-trade-client/internal/pkg/metrics"
	"go.uber.org/zap"
)

// ErrClosed is returned by Next once the subscription is closed.
var ErrClosed = errors.New("subscription closed")

// Runner is a realtime channel: it delivers events to sink until ctx ends.
type Runner interface {
	Run(ctx context.Context, sink func(domain.RealtimeEvent))
}

// Dial builds the channel for a user. token is the first subscriber's credential.
type Dial func(userID, token string) (Runner, error)

type Hub struct {
	mu        sync.Mutex
	channels  map[string]*userChannel
	dial      Dial
	queueSize int
	log       *zap.Logger
}

type userChannel struct {
	cancel  context.CancelFunc
	done    chan struct{}
	subs    map[*Subscription]struct{}
	users   []domain.OnlineUser
	closing bool // last subscriber left; entry stays until done closes
}

func NewHub(dial Dial, queueSize int, log *zap.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &Hub{channels: make(map[string]*userChannel), dial: dial, queueSize: queueSize, log: log}
}

// Subscribe attaches a new subscriber to userID's channel, opening the channel when it
// is the first. A channel still shutting down is waited out first so a user never has
// two upstream connections at once.
func (h *Hub) Subscribe(userID, token string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[userID]
	for ok && ch.closing {
		old := ch
		h.mu.Unlock()
		<-old.done
		h.mu.Lock()
		if h.channels[userID] == old {
			delete(h.channels, userID)
			metrics.RealtimeChannels(-1)
		}
		ch, ok = h.channels[userID]
	}
	if !ok {
		runner, err := h.dial(userID, token)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithCancel(context.Background())
		ch = &userChannel{cancel: cancel, done: make(chan struct{}), subs: make(map[*Subscription]struct{})}
		h.channels[userID] = ch
		metrics.RealtimeChannels(1)
		h.log.Info("realtime channel opened", zap.String("user_id", userID))
		go func() {
			defer close(ch.done)
			runner.Run(ctx, func(ev domain.RealtimeEvent) { h.deliver(ch, ev) })
		}()
	}

	s := &Subscription{hub: h, userID: userID, notify: make(chan struct{}, 1), max: h.queueSize}
	ch.subs[s] = struct{}{}
	return s, nil
}

// Channels returns the number of open upstream channels.
func (h *Hub) Channels() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels)
}

// OnlineUsers returns the last getUsers list seen on userID's channel.
func (h *Hub) OnlineUsers(userID string) []domain.OnlineUser {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.channels[userID]; ok {
		return append([]domain.OnlineUser(nil), ch.users...)
	}
	return nil
}

// Close tears down every channel and closes all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	chans := make([]*userChannel, 0, len(h.channels))
	for userID, ch := range h.channels {
		for s := range ch.subs {
			s.markClosed()
		}
		ch.cancel()
		chans = append(chans, ch)
		delete(h.channels, userID)
		metrics.RealtimeChannels(-1)
	}
	h.mu.Unlock()
	for _, ch := range chans {
		<-ch.done
	}
}

func (h *Hub) deliver(ch *userChannel, ev domain.RealtimeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ev.Name == domain.EventGetUsers {
		ch.users = decodeUsers(ev.Data)
	}
	for s := range ch.subs {
		s.push(ev)
	}
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	ch, ok := h.channels[s.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := ch.subs[s]; !member {
		h.mu.Unlock()
		return
	}
	delete(ch.subs, s)
	last := len(ch.subs) == 0
	if last {
		ch.closing = true
		ch.cancel()
	}
	h.mu.Unlock()

	if !last {
		return
	}
	<-ch.done
	h.mu.Lock()
	if h.channels[s.userID] == ch {
		delete(h.channels, s.userID)
		metrics.RealtimeChannels(-1)
	}
	h.mu.Unlock()
	h.log.Info("realtime channel closed", zap.String("user_id", s.userID))
}
