// Package realtime is the client side of the trading platform's socket.io channel.
// A Channel holds one websocket per user, joins the user's room on every connect and
// reconnects until its context ends.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-trade-client/internal/domain"
	"github.com/go-trade-client/internal/pkg/metrics"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
)

// Options configures a Channel.
type Options struct {
	BaseURL    string
	UserID     string
	Token      string // forwarded as bearer and socket.io auth; optional
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Dialer     *websocket.Dialer
}

type Channel struct {
	url     string
	opts    Options
	dialer  *websocket.Dialer
	backoff *reconnectDelay
	log     *zap.Logger
}

func NewChannel(opts Options, log *zap.Logger) (*Channel, error) {
	u, err := socketURL(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("socket url: %w", err)
	}
	if opts.UserID == "" {
		return nil, errors.New("realtime channel needs a user id")
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment}
	}
	return &Channel{
		url:     u,
		opts:    opts,
		dialer:  dialer,
		backoff: newReconnectDelay(opts.MinBackoff, opts.MaxBackoff, 0.5),
		log:     log.With(zap.String("user_id", opts.UserID)),
	}, nil
}

// Run keeps the channel connected until ctx is done, handing every event to sink.
// Connect and disconnect are reported as synthetic events. sink runs on the channel's
// goroutine and must not block for long.
func (c *Channel) Run(ctx context.Context, sink func(domain.RealtimeEvent)) {
	for {
		connected, err := c.session(ctx, sink)
		if ctx.Err() != nil {
			return
		}
		if connected {
			c.backoff.reset()
		}
		delay := c.backoff.next()
		c.log.Info("realtime disconnected, retrying", zap.Duration("delay", delay), zap.Error(err))
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// session runs one connection to completion. connected reports whether the
// namespace handshake succeeded.
func (c *Channel) session(ctx context.Context, sink func(domain.RealtimeEvent)) (connected bool, err error) {
	header := http.Header{}
	if c.opts.Token != "" {
		header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		metrics.RealtimeConnect(false)
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	defer func() {
		if connected {
			sink(domain.RealtimeEvent{Name: domain.EventDisconnect, At: time.Now()})
		} else {
			metrics.RealtimeConnect(false)
		}
	}()

	var window time.Duration
	for {
		if window > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(window))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return connected, err
		}
		f, err := decodeFrame(msg)
		if err != nil {
			c.log.Debug("skipping undecodable frame", zap.ByteString("frame", msg), zap.Error(err))
			continue
		}

		switch f.kind {
		case frameOpen:
			window = f.handshake.readWindow()
			var auth map[string]string
			if c.opts.Token != "" {
				auth = map[string]string{"token": c.opts.Token}
			}
			pkt, err := encodeConnect(auth)
			if err != nil {
				return connected, err
			}
			if err := c.write(conn, pkt); err != nil {
				return connected, err
			}
		case frameConnect:
			join, err := encodeEvent(domain.EventJoinRoom, c.opts.UserID)
			if err != nil {
				return connected, err
			}
			if err := c.write(conn, join); err != nil {
				return connected, err
			}
			connected = true
			metrics.RealtimeConnect(true)
			c.log.Info("realtime connected")
			sink(domain.RealtimeEvent{Name: domain.EventConnect, At: time.Now()})
		case framePing:
			if err := c.write(conn, []byte{eioPong}); err != nil {
				return connected, err
			}
		case frameEvent:
			sink(domain.RealtimeEvent{Name: f.event, Data: f.data, At: time.Now()})
		case frameConnectError:
			return connected, fmt.Errorf("connect rejected: %s", f.message)
		case frameDisconnect, frameClose:
			return connected, errors.New("closed by server")
		}
	}
}

func (c *Channel) write(conn *websocket.Conn, pkt []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, pkt)
}
