package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/buckles/server/internal/model"
	"github.com/google/uuid"
)

// ChatRoomRepo defines the interface for chat rooms and their membership.
type ChatRoomRepo interface {
	Create(ctx context.Context, name, owner string) (model.ChatRoom, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.ChatRoom, error)
	List(ctx context.Context) ([]model.ChatRoom, error)
	AddMember(ctx context.Context, roomID uuid.UUID, username string) error
	RemoveMember(ctx context.Context, roomID uuid.UUID, username string) (int64, error)
	ListMembers(ctx context.Context, roomID uuid.UUID) ([]string, error)
}

type chatRoomRepo struct {
	db *sql.DB
}

// NewChatRoomRepo creates a new ChatRoomRepo instance
func NewChatRoomRepo(db *sql.DB) ChatRoomRepo {
	return &chatRoomRepo{db: db}
}

// Create inserts a room and enrolls the owner as its first member.
func (r *chatRoomRepo) Create(ctx context.Context, name, owner string) (model.ChatRoom, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ChatRoom{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	room, err := scanChatRoom(tx.QueryRowContext(ctx, `
		INSERT INTO chat_rooms (name, owner)
		VALUES ($1, $2)
		RETURNING id, name, owner, created_at
	`, name, owner))
	if err != nil {
		if isUniqueViolation(err) {
			return model.ChatRoom{}, fmt.Errorf("room %q: %w", name, ErrDuplicate)
		}
		return model.ChatRoom{}, fmt.Errorf("insert chat room: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_room_members (room_id, username) VALUES ($1, $2)
	`, room.ID.String(), owner)
	if err != nil {
		return model.ChatRoom{}, fmt.Errorf("enroll owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.ChatRoom{}, fmt.Errorf("commit: %w", err)
	}
	return room, nil
}

// GetByID retrieves a room by ID.
func (r *chatRoomRepo) GetByID(ctx context.Context, id uuid.UUID) (model.ChatRoom, error) {
	room, err := scanChatRoom(r.db.QueryRowContext(ctx, `
		SELECT id, name, owner, created_at FROM chat_rooms WHERE id = $1
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ChatRoom{}, ErrNotFound
		}
		return model.ChatRoom{}, fmt.Errorf("query chat room: %w", err)
	}
	return room, nil
}

// List returns all rooms, newest first.
func (r *chatRoomRepo) List(ctx context.Context) ([]model.ChatRoom, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, owner, created_at FROM chat_rooms ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query chat rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.ChatRoom
	for rows.Next() {
		room, err := scanChatRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat rooms: %w", err)
	}
	return rooms, nil
}

// AddMember enrolls username in the room; re-joining is a no-op.
func (r *chatRoomRepo) AddMember(ctx context.Context, roomID uuid.UUID, username string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_room_members (room_id, username)
		VALUES ($1, $2)
		ON CONFLICT (room_id, username) DO NOTHING
	`, roomID.String(), username)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// RemoveMember removes username from the room and returns rows removed.
func (r *chatRoomRepo) RemoveMember(ctx context.Context, roomID uuid.UUID, username string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM chat_room_members WHERE room_id = $1 AND username = $2
	`, roomID.String(), username)
	if err != nil {
		return 0, fmt.Errorf("remove member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove member rows affected: %w", err)
	}
	return n, nil
}

// ListMembers returns the room's member usernames.
func (r *chatRoomRepo) ListMembers(ctx context.Context, roomID uuid.UUID) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT username FROM chat_room_members WHERE room_id = $1 ORDER BY joined_at
	`, roomID.String())
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

func scanChatRoom(row rowScanner) (model.ChatRoom, error) {
	var room model.ChatRoom
	var idStr string
	err := row.Scan(&idStr, &room.Name, &room.Owner, &room.CreatedAt)
	if err != nil {
		return model.ChatRoom{}, err
	}
	room.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.ChatRoom{}, fmt.Errorf("failed to parse room ID: %w", err)
	}
	return room, nil
}
