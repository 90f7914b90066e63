package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-trade-client/internal/application/notification"
	"github.com/go-trade-client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNotificationList(t *testing.T) {
	svc := &mockNotifSvc{}
	svc.On("Open", mock.Anything).Return(&notification.Page{
		Notifications: []domain.Notification{{NotificationID: "n1", Title: "Hi", IsRead: true}},
	}, nil)
	h := NewNotificationHandler(svc)

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/v1/notifications", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	var page notification.Page
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, 0, page.Unread)
}

func TestNotificationUnreadCount(t *testing.T) {
	svc := &mockNotifSvc{}
	svc.On("UnreadCount", mock.Anything).Return(4, nil)
	h := NewNotificationHandler(svc)

	rr := httptest.NewRecorder()
	h.UnreadCount(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"count":4}`, rr.Body.String())
}

func TestNotificationDelete_Fallback(t *testing.T) {
	svc := &mockNotifSvc{}
	svc.On("Delete", mock.Anything, "n1").Return(nil, &domain.UpstreamError{Op: "delete notification", Status: 500})
	h := NewNotificationHandler(svc)

	rr := httptest.NewRecorder()
	h.Delete(rr, withParams(httptest.NewRequest(http.MethodDelete, "/", nil), "id", "n1"))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "Delete failed", decodeEnvelope(t, rr).Error)
}
