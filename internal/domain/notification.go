package domain

import (
	"encoding/json"
	"time"
)

type Notification struct {
	NotificationID string    `json:"id"`
	Title          string    `json:"title"`
	Message        string    `json:"message,omitempty"`
	Category       string    `json:"category,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// UnreadCountEnvelope is the upstream response of the unread-count query.
type UnreadCountEnvelope struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// OnlineUser is one entry of the realtime getUsers broadcast.
type OnlineUser struct {
	UserID   string `json:"userId"`
	SocketID string `json:"socketId,omitempty"`
}

// Realtime event names.
const (
	EventConnect          = "connect"
	EventDisconnect       = "disconnect"
	EventJoinRoom         = "join-room"
	EventGetUsers         = "getUsers"
	EventUserNotification = "user-notification"
)

// RealtimeEvent is one delivery from the realtime channel. Connect and disconnect are
// synthesised locally; other names come from the server.
type RealtimeEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
	At   time.Time       `json:"at"`
}

// NotificationPayload is the part of a user-notification event the gateway reads.
type NotificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
