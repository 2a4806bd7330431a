package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/buckles/server/internal/logger"
	"github.com/buckles/server/internal/model"
	"github.com/buckles/server/internal/repo"
	"github.com/google/uuid"
)

// ErrNotParticipant is returned when a user touches a thread they are not
// part of.
var ErrNotParticipant = errors.New("not a participant of this thread")

// ErrUnknownRecipient is returned when a thread is started with a
// nonexistent user.
var ErrUnknownRecipient = errors.New("recipient does not exist")

// Messaging handles direct threads and their messages.
type Messaging struct {
	users         repo.UserRepo
	threads       repo.ThreadRepo
	messages      repo.MessageRepo
	notifications *Notifications
	logger        *logger.Logger
}

// NewMessaging creates a messaging service. notifications may be nil.
func NewMessaging(users repo.UserRepo, threads repo.ThreadRepo, messages repo.MessageRepo, notifications *Notifications, log *logger.Logger) *Messaging {
	return &Messaging{users: users, threads: threads, messages: messages, notifications: notifications, logger: log}
}

// StartThread creates a thread from starter to recipient.
func (m *Messaging) StartThread(ctx context.Context, txID, starter, recipient string) (model.Thread, error) {
	if _, err := m.users.GetByUsername(ctx, recipient); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Thread{}, ErrUnknownRecipient
		}
		return model.Thread{}, fmt.Errorf("look up recipient: %w", err)
	}
	thread, err := m.threads.Create(ctx, starter, recipient)
	if err != nil {
		return model.Thread{}, err
	}
	m.logger.Info("thread started", "transaction_id", txID, "thread_id", thread.ID.String())
	return thread, nil
}

// SendMessage appends a message to the thread and notifies the other
// participant.
func (m *Messaging) SendMessage(ctx context.Context, txID string, threadID uuid.UUID, sender, body string) (model.Message, error) {
	thread, err := m.threads.GetByID(ctx, threadID)
	if err != nil {
		return model.Message{}, err
	}

	var recipient string
	switch sender {
	case thread.Starter:
		recipient = thread.Recipient
	case thread.Recipient:
		recipient = thread.Starter
	default:
		return model.Message{}, ErrNotParticipant
	}

	msg, err := m.messages.Create(ctx, threadID, sender, body)
	if err != nil {
		return model.Message{}, err
	}

	if m.notifications != nil {
		m.notifications.Notify(ctx, txID, recipient, model.NotificationMessage,
			fmt.Sprintf("new message from %s", sender))
	}
	return msg, nil
}

// ThreadMessages returns the thread's messages for a participant and marks
// the other side's messages read.
func (m *Messaging) ThreadMessages(ctx context.Context, threadID uuid.UUID, reader string) ([]model.Message, error) {
	thread, err := m.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if reader != thread.Starter && reader != thread.Recipient {
		return nil, ErrNotParticipant
	}

	messages, err := m.messages.ListByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if _, err := m.messages.MarkRead(ctx, threadID, reader); err != nil {
		return nil, err
	}
	return messages, nil
}

// UserThreads returns every thread the user participates in.
func (m *Messaging) UserThreads(ctx context.Context, username string) ([]model.Thread, error) {
	return m.threads.ListForUser(ctx, username)
}
