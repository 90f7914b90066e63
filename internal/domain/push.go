package domain

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// PushSubscription is the browser-issued subscription descriptor (PushSubscriptionJSON).
// The gateway treats it as opaque apart from the endpoint.
type PushSubscription struct {
	Endpoint       string            `json:"endpoint" validate:"required,url"`
	ExpirationTime *int64            `json:"expirationTime"`
	Keys           map[string]string `json:"keys,omitempty"`
}

// PushAction is a button on a shown notification.
type PushAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

const (
	PushActionOpen    = "open"
	PushActionDismiss = "dismiss"
)

// PushPayload is what the background delivery worker receives.
type PushPayload struct {
	Title              string       `json:"title"`
	Body               string       `json:"body"`
	Icon               string       `json:"icon"`
	Badge              string       `json:"badge"`
	Image              string       `json:"image,omitempty"`
	URL                string       `json:"url"`
	Tag                string       `json:"tag"`
	RequireInteraction bool         `json:"requireInteraction"`
	Actions            []PushAction `json:"actions"`
	Timestamp          int64        `json:"timestamp"`
	Vibrate            []int        `json:"vibrate"`
	Renotify           *bool        `json:"renotify"`
}

// WithDefaults fills every unset field with the worker's defaults. now supplies the
// timestamp when none was sent.
func (p PushPayload) WithDefaults(origin string, now time.Time) PushPayload {
	origin = strings.TrimSuffix(origin, "/")
	if p.Title == "" {
		p.Title = "Orex Trade"
	}
	if p.Body == "" {
		p.Body = "You have a new update."
	}
	if p.Icon == "" {
		p.Icon = "/icons/icon-192.png"
	}
	if p.Badge == "" {
		p.Badge = "/icons/badge-72.png"
	}
	if p.URL == "" {
		p.URL = origin + "/notifications"
	}
	if p.Tag == "" {
		p.Tag = "orex-trade"
	}
	if p.Actions == nil {
		p.Actions = []PushAction{
			{Action: PushActionOpen, Title: "Open", Icon: "/icons/action-open.png"},
			{Action: PushActionDismiss, Title: "Dismiss", Icon: "/icons/action-close.png"},
		}
	}
	if p.Timestamp == 0 {
		p.Timestamp = now.UnixMilli()
	}
	if p.Vibrate == nil {
		p.Vibrate = []int{80, 40, 80}
	}
	if p.Renotify == nil {
		renotify := true
		p.Renotify = &renotify
	}
	return p
}

// ParsePushPayload decodes a delivered payload and applies the defaults. An empty body
// yields the defaults; an undecodable one yields the generic fallback notification.
func ParsePushPayload(data []byte, origin string, now time.Time) PushPayload {
	var p PushPayload
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			return PushPayload{Body: "You have a new notification."}.WithDefaults(origin, now)
		}
	}
	return p.WithDefaults(origin, now)
}

// ClickOutcome is what the worker does when a notification is clicked.
type ClickOutcome int

const (
	ClickClose ClickOutcome = iota
	ClickFocusExisting
	ClickOpenNew
)

func (o ClickOutcome) String() string {
	switch o {
	case ClickClose:
		return "close"
	case ClickFocusExisting:
		return "focus"
	default:
		return "open"
	}
}

// ClickTarget decides how a click on a notification is handled: "dismiss" only closes;
// otherwise an open tab on the payload URL's origin is focused (and navigated), and
// failing that a new tab is opened. It returns the index of the tab to focus, or -1.
func ClickTarget(action, payloadURL string, openTabs []string) (ClickOutcome, int) {
	if action == PushActionDismiss {
		return ClickClose, -1
	}
	u, err := url.Parse(payloadURL)
	if err != nil || u.Host == "" {
		return ClickOpenNew, -1
	}
	origin := u.Scheme + "://" + u.Host
	for i, tab := range openTabs {
		if strings.Contains(tab, origin) {
			return ClickFocusExisting, i
		}
	}
	return ClickOpenNew, -1
}
