package social

import (
	"context"

	"github.com/buckles/server/internal/logger"
	"github.com/buckles/server/internal/model"
	"github.com/buckles/server/internal/repo"
	"github.com/buckles/server/internal/ws"
)

// Pusher delivers an event to a live connection. Satisfied by *ws.Hub.
type Pusher interface {
	Push(username string, event ws.Event)
}

// Notifications persists notification rows and pushes them over the
// websocket channel. It implements friends.Notifier.
type Notifications struct {
	repo   repo.NotificationRepo
	pusher Pusher
	logger *logger.Logger
}

// NewNotifications creates a notification service. pusher may be nil.
func NewNotifications(r repo.NotificationRepo, pusher Pusher, log *logger.Logger) *Notifications {
	return &Notifications{repo: r, pusher: pusher, logger: log}
}

// Notify stores a notification and pushes it best effort. A storage failure
// is logged against the transaction id, never propagated: notifications
// must not fail the operation that triggered them.
func (n *Notifications) Notify(ctx context.Context, txID, username, kind, text string) {
	if _, err := n.repo.Create(ctx, username, kind, text); err != nil {
		n.logger.Error("failed to store notification",
			"transaction_id", txID, "username", username, "error", err.Error())
		return
	}
	if n.pusher != nil {
		n.pusher.Push(username, ws.Event{ID: txID, Kind: kind, Text: text})
	}
}

// Unread returns the user's unread notifications.
func (n *Notifications) Unread(ctx context.Context, username string) ([]model.Notification, error) {
	return n.repo.ListUnread(ctx, username)
}

// MarkAllRead stamps every unread notification and returns how many.
func (n *Notifications) MarkAllRead(ctx context.Context, username string) (int64, error) {
	return n.repo.MarkAllRead(ctx, username)
}
