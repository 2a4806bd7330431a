package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/buckles/server/internal/model"
)

// NotificationRepo defines the interface for notification rows.
type NotificationRepo interface {
	Create(ctx context.Context, username, kind, text string) (model.Notification, error)
	ListUnread(ctx context.Context, username string) ([]model.Notification, error)
	MarkAllRead(ctx context.Context, username string) (int64, error)
}

type notificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo creates a new NotificationRepo instance
func NewNotificationRepo(db *sql.DB) NotificationRepo {
	return &notificationRepo{db: db}
}

// Create inserts a notification for username.
func (r *notificationRepo) Create(ctx context.Context, username, kind, text string) (model.Notification, error) {
	var n model.Notification
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (username, kind, text)
		VALUES ($1, $2, $3)
		RETURNING id, username, kind, text, created_at, read_at
	`, username, kind, text).Scan(&n.ID, &n.Username, &n.Kind, &n.Text, &n.CreatedAt, &n.ReadAt)
	if err != nil {
		return model.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// ListUnread returns unread notifications for username, oldest first.
func (r *notificationRepo) ListUnread(ctx context.Context, username string) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, kind, text, created_at, read_at
		FROM notifications
		WHERE username = $1 AND read_at IS NULL
		ORDER BY created_at
	`, username)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Username, &n.Kind, &n.Text, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkAllRead stamps read_at on every unread notification for username.
func (r *notificationRepo) MarkAllRead(ctx context.Context, username string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = now()
		WHERE username = $1 AND read_at IS NULL
	`, username)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read rows affected: %w", err)
	}
	return n, nil
}
