package social

import (
	"context"
	"errors"

	"github.com/buckles/server/internal/logger"
	"github.com/buckles/server/internal/model"
	"github.com/buckles/server/internal/repo"
	"github.com/google/uuid"
)

// ErrNotMember is returned when leaving a room the user never joined.
var ErrNotMember = errors.New("not a member of this room")

// Rooms handles chat rooms and membership.
type Rooms struct {
	rooms  repo.ChatRoomRepo
	logger *logger.Logger
}

// NewRooms creates a chat room service.
func NewRooms(rooms repo.ChatRoomRepo, log *logger.Logger) *Rooms {
	return &Rooms{rooms: rooms, logger: log}
}

// CreateRoom creates a room owned (and joined) by owner. A duplicate name
// returns false without error.
func (r *Rooms) CreateRoom(ctx context.Context, txID, name, owner string) (model.ChatRoom, bool, error) {
	room, err := r.rooms.Create(ctx, name, owner)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return model.ChatRoom{}, false, nil
		}
		return model.ChatRoom{}, false, err
	}
	r.logger.Info("chat room created", "transaction_id", txID, "room_id", room.ID.String())
	return room, true, nil
}

// ListRooms returns all rooms.
func (r *Rooms) ListRooms(ctx context.Context) ([]model.ChatRoom, error) {
	return r.rooms.List(ctx)
}

// Join enrolls username in the room.
func (r *Rooms) Join(ctx context.Context, roomID uuid.UUID, username string) error {
	if _, err := r.rooms.GetByID(ctx, roomID); err != nil {
		return err
	}
	return r.rooms.AddMember(ctx, roomID, username)
}

// Leave removes username from the room.
func (r *Rooms) Leave(ctx context.Context, roomID uuid.UUID, username string) error {
	removed, err := r.rooms.RemoveMember(ctx, roomID, username)
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotMember
	}
	return nil
}

// Members returns the room's member usernames.
func (r *Rooms) Members(ctx context.Context, roomID uuid.UUID) ([]string, error) {
	if _, err := r.rooms.GetByID(ctx, roomID); err != nil {
		return nil, err
	}
	return r.rooms.ListMembers(ctx, roomID)
}
