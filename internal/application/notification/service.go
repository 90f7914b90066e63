package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-trade-client/internal/domain"
	"go.uber.org/zap"
)

// Upstream is the notification half of the trading API client.
type Upstream interface {
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
	MarkAllRead(ctx context.Context) error
	UnreadCount(ctx context.Context) (int, error)
	DeleteNotification(ctx context.Context, id string) error
}

// Page is the list as rendered, with the badge count.
type Page struct {
	Notifications []domain.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
	Toast         string                `json:"toast,omitempty"`
}

type Service interface {
	Open(ctx context.Context) (*Page, error)
	UnreadCount(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) (*Page, error)
	Reconcile(ctx context.Context, ev domain.RealtimeEvent) (*Page, error)
}

type service struct {
	api Upstream
	log *zap.Logger
}

func NewService(api Upstream, log *zap.Logger) Service {
	return &service{api: api, log: log}
}

// Open marks everything read, then loads the list. Opening the list therefore always
// clears the unread state; use UnreadCount to read the badge without clearing it.
func (s *service) Open(ctx context.Context) (*Page, error) {
	if err := s.api.MarkAllRead(ctx); err != nil {
		return nil, err
	}
	return s.load(ctx)
}

func (s *service) UnreadCount(ctx context.Context) (int, error) {
	return s.api.UnreadCount(ctx)
}

// Delete waits for the server to confirm before refetching. On error the list is
// left untouched.
func (s *service) Delete(ctx context.Context, id string) (*Page, error) {
	if id == "" {
		return nil, domain.Invalid("Missing notification id")
	}
	if err := s.api.DeleteNotification(ctx, id); err != nil {
		return nil, err
	}
	return s.load(ctx)
}

// Reconcile refreshes the list after a realtime user-notification and attaches a toast
// built from the event payload. Other events are ignored (nil page).
func (s *service) Reconcile(ctx context.Context, ev domain.RealtimeEvent) (*Page, error) {
	if ev.Name != domain.EventUserNotification {
		return nil, nil
	}
	page, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	page.Toast = toastText(ev.Data)
	return page, nil
}

func (s *service) load(ctx context.Context) (*Page, error) {
	list, err := s.api.ListNotifications(ctx)
	if err != nil {
		return nil, err
	}
	unread, err := s.api.UnreadCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("unread count: %w", err)
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return &Page{Notifications: list, Unread: unread}, nil
}

func toastText(data json.RawMessage) string {
	const fallback = "New notification"
	var p domain.NotificationPayload
	if len(data) == 0 || json.Unmarshal(data, &p) != nil {
		return fallback
	}
	if p.Title != "" {
		return p.Title
	}
	if p.Message != "" {
		return p.Message
	}
	return fallback
}
