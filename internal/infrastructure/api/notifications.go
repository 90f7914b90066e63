package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-trade-client/internal/domain"
)

// ListNotifications returns the caller's notifications. The upstream answers either a
// bare array or an object with a data/notifications array.
func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{op: "notifications.list", method: http.MethodGet, path: "/my-notifications"}, &raw); err != nil {
		return nil, err
	}
	return decodeNotifications(raw)
}

// MarkAllRead marks every notification of the caller as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, request{op: "notifications.mark_all_read", method: http.MethodPut, path: "/update-all-notifications"}, nil)
}

// UnreadCount returns the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var env domain.UnreadCountEnvelope
	if err := c.do(ctx, request{op: "notifications.unread_count", method: http.MethodGet, path: "/notifications/unread-count"}, &env); err != nil {
		return 0, err
	}
	return env.Count, nil
}

// DeleteNotification removes one notification by id.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "notifications.delete", method: http.MethodDelete, path: "/notification/" + url.PathEscape(id)}, nil)
}

func decodeNotifications(raw json.RawMessage) ([]domain.Notification, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []domain.Notification{}, nil
	}
	if raw[0] == '[' {
		var list []domain.Notification
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("notifications.list: decode: %w", err)
		}
		return list, nil
	}
	var env struct {
		Data          []domain.Notification `json:"data"`
		Notifications []domain.Notification `json:"notifications"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("notifications.list: decode: %w", err)
	}
	if env.Data != nil {
		return env.Data, nil
	}
	if env.Notifications != nil {
		return env.Notifications, nil
	}
	return []domain.Notification{}, nil
}
