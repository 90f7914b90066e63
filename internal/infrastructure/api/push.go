package api

import (
	"context"
	"net/http"

	"github.com/go-trade-client/internal/domain"
)

// SubscribePush registers a browser push subscription for the caller.
func (c *Client) SubscribePush(ctx context.Context, sub domain.PushSubscription) error {
	req, err := jsonRequest("push.subscribe", http.MethodPost, "/push/subscribe", map[string]interface{}{"subscription": sub})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// UnsubscribePush removes the subscription with the given endpoint.
func (c *Client) UnsubscribePush(ctx context.Context, endpoint string) error {
	req, err := jsonRequest("push.unsubscribe", http.MethodPost, "/push/unsubscribe", map[string]string{"endpoint": endpoint})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// TestPush asks the server to send a test notification to the caller.
func (c *Client) TestPush(ctx context.Context) error {
	return c.do(ctx, request{op: "push.test", method: http.MethodPost, path: "/push/test"}, nil)
}
