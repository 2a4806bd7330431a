package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. Hash and Salt together form the
// stored credential pair; the plaintext password is never persisted.
type User struct {
	ID              uuid.UUID
	Username        string
	Hash            string
	Salt            string
	ProfileImageURL *string
	CreatedAt       time.Time
}

// FriendRequest is a pending request from Sender to Username. At most one
// row exists per ordered (Sender, Username) pair; the row is deleted when
// the request is accepted or rejected, it never transitions in place.
type FriendRequest struct {
	ID            int64
	Username      string
	Sender        string
	CustomMessage *string
	Sent          time.Time
}

// Friend is an undirected edge: a row with (Recipient=A, Sender=B) means
// the same thing as (Recipient=B, Sender=A).
type Friend struct {
	ID        int64
	Recipient string
	Sender    string
	Accepted  time.Time
}

// Block is a directed edge: Sender has blocked Username.
type Block struct {
	ID       int64
	Username string
	Sender   string
	Reason   *string
	Blocked  time.Time
}

// Thread is a direct conversation between two users.
type Thread struct {
	ID        uuid.UUID
	Starter   string
	Recipient string
	CreatedAt time.Time
}

// Message is one entry in a thread.
type Message struct {
	ID       int64
	ThreadID uuid.UUID
	Sender   string
	Body     string
	SentAt   time.Time
	ReadAt   *time.Time
}

// ChatRoom is a named multi-user room.
type ChatRoom struct {
	ID        uuid.UUID
	Name      string
	Owner     string
	CreatedAt time.Time
}

// ChatRoomMember records room membership.
type ChatRoomMember struct {
	RoomID   uuid.UUID
	Username string
	JoinedAt time.Time
}

// Notification is an asynchronous event for a user. Pushed best effort over
// the websocket channel and always readable via the list endpoint.
type Notification struct {
	ID        int64
	Username  string
	Kind      string
	Text      string
	CreatedAt time.Time
	ReadAt    *time.Time
}

// Notification kinds.
const (
	NotificationFriendRequest   = "friend_request"
	NotificationRequestAccepted = "request_accepted"
	NotificationMessage         = "message"
)

// ExceptionLog is an append-only exception record, keyed by the transaction
// id of the request that failed.
type ExceptionLog struct {
	ID         string    `bson:"id"`
	Message    string    `bson:"message,omitempty"`
	StackTrace string    `bson:"stack_trace,omitempty"`
	Timestamp  time.Time `bson:"timestamp"`
}

// ThrottleStatus is the per-key failed-login state. LockedUntil is nil when
// the key carries no active lockout.
type ThrottleStatus struct {
	FailedAttempts int64
	LockedUntil    *time.Time
}
