package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-trade-client/internal/application/live"
	"github.com/go-trade-client/internal/application/notification"
	"github.com/go-trade-client/internal/domain"
	"github.com/go-trade-client/internal/infrastructure/api"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 25 * time.Second
	wsWriteWait  = 10 * time.Second
)

// EventNotifications carries the refreshed list after a user-notification arrives.
const EventNotifications = "notifications"

// Subscriber opens a live subscription for a user.
type Subscriber interface {
	Subscribe(userID, token string) (*live.Subscription, error)
}

// Outbound is one frame written to the page.
type Outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	At    time.Time   `json:"at"`
}

// RealtimeHandler relays the user's realtime channel to a page websocket.
type RealtimeHandler struct {
	hub      Subscriber
	notif    notification.Service
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewRealtimeHandler(hub Subscriber, notif notification.Service, allowedOrigins []string, log *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:   hub,
		notif: notif,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

func (h *RealtimeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}
	sub, err := h.hub.Subscribe(userID, api.BearerFrom(r.Context()))
	if err != nil {
		h.log.Error("realtime subscribe", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Realtime unavailable")
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readPump(conn, cancel)
	go h.pingPump(ctx, conn)

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, live.ErrClosed) {
				h.log.Warn("realtime relay", zap.String("user_id", userID), zap.Error(err))
			}
			return
		}
		if err := h.write(conn, Outbound{Event: ev.Name, Data: rawOrNil(ev.Data), At: ev.At}); err != nil {
			return
		}
		if ev.Name != domain.EventUserNotification || h.notif == nil {
			continue
		}
		page, err := h.notif.Reconcile(ctx, ev)
		if err != nil {
			h.log.Warn("notification reconcile", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if err := h.write(conn, Outbound{Event: EventNotifications, Data: page, At: time.Now()}); err != nil {
			return
		}
	}
}

// readPump discards client frames and keeps the read deadline alive on pongs. Any read
// error ends the relay.
func (h *RealtimeHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *RealtimeHandler) pingPump(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(wsPingPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *RealtimeHandler) write(conn *websocket.Conn, out Outbound) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(out)
}

func rawOrNil(data json.RawMessage) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}
