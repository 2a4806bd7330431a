package handlers

import (
	"net/http"
	"time"

	"github.com/buckles/server/internal/apiresponse"
	"github.com/buckles/server/internal/middleware"
	"github.com/buckles/server/internal/model"
	"github.com/buckles/server/internal/social"
	"github.com/buckles/server/internal/trace"
	"github.com/buckles/server/internal/ws"
)

// NotificationsHandler exposes notification listing, acknowledgement and
// the websocket push channel.
type NotificationsHandler struct {
	notifications *social.Notifications
	hub           *ws.Hub
	reporter      *Reporter
}

// NewNotificationsHandler creates a new notifications handler
func NewNotificationsHandler(notifications *social.Notifications, hub *ws.Hub, reporter *Reporter) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications, hub: hub, reporter: reporter}
}

// notificationResponse is a notification in API responses
type notificationResponse struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

func toNotificationResponse(n model.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Kind:      n.Kind,
		Text:      n.Text,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

// HandleListUnread handles GET /notifications
func (h *NotificationsHandler) HandleListUnread(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	unread, err := h.notifications.Unread(r.Context(), me)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	out := make([]notificationResponse, 0, len(unread))
	for _, n := range unread {
		out = append(out, toNotificationResponse(n))
	}
	apiresponse.WriteData(w, txID, out)
}

// HandleMarkRead handles POST /notifications/read
func (h *NotificationsHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	marked, err := h.notifications.MarkAllRead(r.Context(), me)
	if err != nil {
		h.reporter.ServerError(w, txID, err)
		return
	}
	apiresponse.WriteData(w, txID, marked)
}

// HandleSubscribe handles GET /notifications/ws: upgrades to a websocket
// that receives pushed notification events.
func (h *NotificationsHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	txID := trace.FromRequest(r)
	me, ok := middleware.GetUsername(r.Context())
	if !ok {
		apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "not authenticated")
		return
	}

	// the upgrader writes its own error response on failure
	_ = h.hub.Subscribe(w, r, me)
}
