package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/buckles/server/internal/model"
	"github.com/google/uuid"
)

// ThreadRepo defines the interface for direct-message threads.
type ThreadRepo interface {
	Create(ctx context.Context, starter, recipient string) (model.Thread, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Thread, error)
	ListForUser(ctx context.Context, username string) ([]model.Thread, error)
}

type threadRepo struct {
	db *sql.DB
}

// NewThreadRepo creates a new ThreadRepo instance
func NewThreadRepo(db *sql.DB) ThreadRepo {
	return &threadRepo{db: db}
}

// Create inserts a new thread between starter and recipient.
func (r *threadRepo) Create(ctx context.Context, starter, recipient string) (model.Thread, error) {
	query := `
		INSERT INTO threads (starter, recipient)
		VALUES ($1, $2)
		RETURNING id, starter, recipient, created_at
	`
	thread, err := scanThread(r.db.QueryRowContext(ctx, query, starter, recipient))
	if err != nil {
		return model.Thread{}, fmt.Errorf("insert thread: %w", err)
	}
	return thread, nil
}

// GetByID retrieves a thread by ID.
func (r *threadRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Thread, error) {
	query := `
		SELECT id, starter, recipient, created_at
		FROM threads
		WHERE id = $1
	`
	thread, err := scanThread(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Thread{}, ErrNotFound
		}
		return model.Thread{}, fmt.Errorf("query thread: %w", err)
	}
	return thread, nil
}

// ListForUser returns every thread the user participates in.
func (r *threadRepo) ListForUser(ctx context.Context, username string) ([]model.Thread, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, starter, recipient, created_at
		FROM threads
		WHERE starter = $1 OR recipient = $1
		ORDER BY created_at DESC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	var threads []model.Thread
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, thread)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return threads, nil
}

func scanThread(row rowScanner) (model.Thread, error) {
	var thread model.Thread
	var idStr string
	err := row.Scan(&idStr, &thread.Starter, &thread.Recipient, &thread.CreatedAt)
	if err != nil {
		return model.Thread{}, err
	}
	thread.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.Thread{}, fmt.Errorf("failed to parse thread ID: %w", err)
	}
	return thread, nil
}
