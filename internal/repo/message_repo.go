package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/buckles/server/internal/model"
	"github.com/google/uuid"
)

// MessageRepo defines the interface for thread messages.
type MessageRepo interface {
	Create(ctx context.Context, threadID uuid.UUID, sender, body string) (model.Message, error)
	ListByThread(ctx context.Context, threadID uuid.UUID) ([]model.Message, error)
	MarkRead(ctx context.Context, threadID uuid.UUID, reader string) (int64, error)
}

type messageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo instance
func NewMessageRepo(db *sql.DB) MessageRepo {
	return &messageRepo{db: db}
}

// Create inserts a message into a thread.
func (r *messageRepo) Create(ctx context.Context, threadID uuid.UUID, sender, body string) (model.Message, error) {
	query := `
		INSERT INTO messages (thread_id, sender, body)
		VALUES ($1, $2, $3)
		RETURNING id, thread_id, sender, body, sent_at, read_at
	`
	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, threadID.String(), sender, body))
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListByThread returns the thread's messages in send order.
func (r *messageRepo) ListByThread(ctx context.Context, threadID uuid.UUID) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, thread_id, sender, body, sent_at, read_at
		FROM messages
		WHERE thread_id = $1
		ORDER BY sent_at
	`, threadID.String())
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// MarkRead stamps read_at on every unread message in the thread that was
// not sent by reader. Returns rows updated.
func (r *messageRepo) MarkRead(ctx context.Context, threadID uuid.UUID, reader string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE messages SET read_at = now()
		WHERE thread_id = $1 AND sender <> $2 AND read_at IS NULL
	`, threadID.String(), reader)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark messages read rows affected: %w", err)
	}
	return n, nil
}

func scanMessage(row rowScanner) (model.Message, error) {
	var msg model.Message
	var threadIDStr string
	err := row.Scan(&msg.ID, &threadIDStr, &msg.Sender, &msg.Body, &msg.SentAt, &msg.ReadAt)
	if err != nil {
		return model.Message{}, err
	}
	msg.ThreadID, err = uuid.Parse(threadIDStr)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to parse thread ID: %w", err)
	}
	return msg, nil
}
