package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/buckles/server/internal/model"
)

// BlockRepo defines the interface for block rows. A block is directed:
// sender blocked username.
type BlockRepo interface {
	Create(ctx context.Context, username, sender string, reason *string) error
	Exists(ctx context.Context, username, sender string) (bool, error)
	CountBetween(ctx context.Context, a, b string) (int, error)
	ListBySender(ctx context.Context, sender string) ([]model.Block, error)
	Delete(ctx context.Context, username, sender string) (int64, error)
}

type blockRepo struct {
	db *sql.DB
}

// NewBlockRepo creates a new BlockRepo instance
func NewBlockRepo(db *sql.DB) BlockRepo {
	return &blockRepo{db: db}
}

// Create inserts a block edge.
func (r *blockRepo) Create(ctx context.Context, username, sender string, reason *string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blocks (username, sender, reason) VALUES ($1, $2, $3)
	`, username, sender, reason)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

// Exists checks the directed (sender blocked username) edge.
func (r *blockRepo) Exists(ctx context.Context, username, sender string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM blocks WHERE username = $1 AND sender = $2
	`, username, sender).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count blocks: %w", err)
	}
	return count > 0, nil
}

// CountBetween counts block edges in either direction between a and b.
func (r *blockRepo) CountBetween(ctx context.Context, a, b string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM blocks
		WHERE (username = $1 AND sender = $2) OR (username = $2 AND sender = $1)
	`, a, b).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count blocks between: %w", err)
	}
	return count, nil
}

// ListBySender returns all blocks issued by sender.
func (r *blockRepo) ListBySender(ctx context.Context, sender string) ([]model.Block, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, sender, reason, blocked
		FROM blocks
		WHERE sender = $1
		ORDER BY blocked
	`, sender)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []model.Block
	for rows.Next() {
		var b model.Block
		if err := rows.Scan(&b.ID, &b.Username, &b.Sender, &b.Reason, &b.Blocked); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

// Delete removes the directed block edge and returns rows removed.
func (r *blockRepo) Delete(ctx context.Context, username, sender string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM blocks WHERE username = $1 AND sender = $2
	`, username, sender)
	if err != nil {
		return 0, fmt.Errorf("delete block: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete block rows affected: %w", err)
	}
	return n, nil
}
