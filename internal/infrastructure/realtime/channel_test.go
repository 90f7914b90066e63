package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-trade-client/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeServer speaks just enough Engine.IO to drive a Channel. The first connection is
// dropped by the server after one notification; later ones stay open.
func fakeServer(t *testing.T, joins chan<- string, pongs chan<- struct{}) *httptest.Server {
	t.Helper()
	var conns int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/socket.io/", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("EIO"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		n := atomic.AddInt32(&conns, 1)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		send := func(s string) bool { return conn.WriteMessage(websocket.TextMessage, []byte(s)) == nil }
		read := func() (string, bool) {
			_, msg, err := conn.ReadMessage()
			return string(msg), err == nil
		}

		if !send(`0{"sid":"s","pingInterval":25000,"pingTimeout":20000}`) {
			return
		}
		if msg, ok := read(); !ok || msg != `40{"token":"tok"}` {
			t.Errorf("unexpected connect packet %q", msg)
			return
		}
		send(`40{"sid":"n"}`)
		join, ok := read()
		if !ok {
			return
		}
		joins <- join

		send("2")
		if msg, ok := read(); ok && msg == "3" {
			pongs <- struct{}{}
		}
		send(`42["user-notification",{"title":"Hi"}]`)
		if n == 1 {
			return
		}
		for {
			if _, ok := read(); !ok {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChannel_ReconnectsAndRejoins(t *testing.T) {
	joins := make(chan string, 4)
	pongs := make(chan struct{}, 4)
	srv := fakeServer(t, joins, pongs)

	ch, err := NewChannel(Options{
		BaseURL:    srv.URL,
		UserID:     "u1",
		Token:      "tok",
		MinBackoff: 10 * time.Millisecond,
		MaxBackoff: 20 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	events := make(chan domain.RealtimeEvent, 32)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ch.Run(ctx, func(ev domain.RealtimeEvent) { events <- ev })
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case j := <-joins:
			assert.Equal(t, `42["join-room","u1"]`, j)
		case <-time.After(5 * time.Second):
			t.Fatalf("join %d not received", i+1)
		}
		select {
		case <-pongs:
		case <-time.After(5 * time.Second):
			t.Fatalf("pong %d not received", i+1)
		}
	}

	var names []string
	timeout := time.After(5 * time.Second)
	for len(names) < 5 {
		select {
		case ev := <-events:
			names = append(names, ev.Name)
		case <-timeout:
			t.Fatalf("events so far: %v", names)
		}
	}
	assert.Equal(t, []string{
		domain.EventConnect,
		domain.EventUserNotification,
		domain.EventDisconnect,
		domain.EventConnect,
		domain.EventUserNotification,
	}, names)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestChannel_StopsWhileBackingOff(t *testing.T) {
	ch, err := NewChannel(Options{
		BaseURL:    "http://127.0.0.1:1",
		UserID:     "u1",
		MinBackoff: time.Hour,
		MaxBackoff: time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ch.Run(ctx, func(domain.RealtimeEvent) {})
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewChannel_Validation(t *testing.T) {
	_, err := NewChannel(Options{BaseURL: "http://x"}, zap.NewNop())
	assert.Error(t, err)
	_, err = NewChannel(Options{BaseURL: "ftp://x", UserID: "u"}, zap.NewNop())
	assert.Error(t, err)
}
