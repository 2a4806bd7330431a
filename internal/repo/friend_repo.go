package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/buckles/server/internal/model"
)

// FriendRepo defines the interface for friend-request and friendship rows.
// A friendship is an undirected edge: callers must treat (recipient, sender)
// and (sender, recipient) as the same relation, which is why every lookup
// here matches both orderings.
type FriendRepo interface {
	RequestExists(ctx context.Context, to, from string) (bool, error)
	CreateRequest(ctx context.Context, to, from string, message *string) error
	DeleteRequest(ctx context.Context, to, from string) (int64, error)
	RequestsFor(ctx context.Context, username string) ([]model.FriendRequest, error)
	CountRequestsBetween(ctx context.Context, a, b string) (int, error)

	FriendshipExists(ctx context.Context, a, b string) (bool, error)
	CreateFriend(ctx context.Context, recipient, sender string) error
	DeleteFriendship(ctx context.Context, a, b string) (int64, error)
	ListFriends(ctx context.Context, username string) ([]string, error)
	CountFriendsBetween(ctx context.Context, a, b string) (int, error)
}

type friendRepo struct {
	db *sql.DB
}

// NewFriendRepo creates a new FriendRepo instance
func NewFriendRepo(db *sql.DB) FriendRepo {
	return &friendRepo{db: db}
}

// RequestExists checks the unique (sender, username) key.
func (r *friendRepo) RequestExists(ctx context.Context, to, from string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM friend_requests WHERE username = $1 AND sender = $2
	`, to, from).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count friend requests: %w", err)
	}
	return count > 0, nil
}

// CreateRequest inserts a pending request. A concurrent duplicate insert is
// caught by the uniqueness constraint and surfaced as ErrDuplicate.
func (r *friendRepo) CreateRequest(ctx context.Context, to, from string, message *string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO friend_requests (username, sender, custom_message)
		VALUES ($1, $2, $3)
	`, to, from, message)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert friend request: %w", err)
	}
	return nil
}

// DeleteRequest removes the request for the exact (sender, username) pair
// and returns how many rows were removed.
func (r *friendRepo) DeleteRequest(ctx context.Context, to, from string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM friend_requests WHERE username = $1 AND sender = $2
	`, to, from)
	if err != nil {
		return 0, fmt.Errorf("delete friend request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete friend request rows affected: %w", err)
	}
	return n, nil
}

// RequestsFor returns all pending requests targeting username.
func (r *friendRepo) RequestsFor(ctx context.Context, username string) ([]model.FriendRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, sender, custom_message, sent
		FROM friend_requests
		WHERE username = $1
		ORDER BY sent
	`, username)
	if err != nil {
		return nil, fmt.Errorf("query friend requests: %w", err)
	}
	defer rows.Close()

	var requests []model.FriendRequest
	for rows.Next() {
		var req model.FriendRequest
		if err := rows.Scan(&req.ID, &req.Username, &req.Sender, &req.CustomMessage, &req.Sent); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}
	return requests, nil
}

// CountRequestsBetween counts pending requests in either direction.
func (r *friendRepo) CountRequestsBetween(ctx context.Context, a, b string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM friend_requests
		WHERE (username = $1 AND sender = $2) OR (username = $2 AND sender = $1)
	`, a, b).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count requests between: %w", err)
	}
	return count, nil
}

// FriendshipExists checks both orderings of the undirected edge.
func (r *friendRepo) FriendshipExists(ctx context.Context, a, b string) (bool, error) {
	count, err := r.CountFriendsBetween(ctx, a, b)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateFriend inserts a friendship edge with accepted = now().
func (r *friendRepo) CreateFriend(ctx context.Context, recipient, sender string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO friends (recipient, sender) VALUES ($1, $2)
	`, recipient, sender)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert friend: %w", err)
	}
	return nil
}

// DeleteFriendship removes edge rows matching either ordering and returns
// how many were removed.
func (r *friendRepo) DeleteFriendship(ctx context.Context, a, b string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM friends
		WHERE (recipient = $1 AND sender = $2) OR (recipient = $2 AND sender = $1)
	`, a, b)
	if err != nil {
		return 0, fmt.Errorf("delete friendship: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete friendship rows affected: %w", err)
	}
	return n, nil
}

// ListFriends returns the usernames on the other side of every edge
// touching username.
func (r *friendRepo) ListFriends(ctx context.Context, username string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT CASE WHEN recipient = $1 THEN sender ELSE recipient END
		FROM friends
		WHERE recipient = $1 OR sender = $1
		ORDER BY 1
	`, username)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var friends []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}
	return friends, nil
}

// CountFriendsBetween counts edge rows in either ordering.
func (r *friendRepo) CountFriendsBetween(ctx context.Context, a, b string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM friends
		WHERE (recipient = $1 AND sender = $2) OR (recipient = $2 AND sender = $1)
	`, a, b).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count friends between: %w", err)
	}
	return count, nil
}
