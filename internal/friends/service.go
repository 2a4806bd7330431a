package friends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/buckles/server/internal/logger"
	"github.com/buckles/server/internal/model"
	"github.com/buckles/server/internal/repo"
	"golang.org/x/sync/errgroup"
)

// ErrFriendshipNotFound is the domain error for removing a friendship that
// does not exist. Request-level conflicts are reported as boolean false
// instead; this asymmetry matches the established API contract.
var ErrFriendshipNotFound = errors.New("friendship does not exist")

// Notifier receives relationship events for asynchronous delivery. Delivery
// is best effort; a failed notification never fails the operation.
type Notifier interface {
	Notify(ctx context.Context, txID, username, kind, text string)
}

// RequestDTO is a pending friend request enriched with the sender's profile
// image. The image is absent when the sender has none or the profile lookup
// finds no record.
type RequestDTO struct {
	Username              string    `json:"username"`
	Sender                string    `json:"sender"`
	CustomMessage         *string   `json:"customMessage,omitempty"`
	Sent                  time.Time `json:"sent"`
	SenderProfileImageURL *string   `json:"senderProfileImageUrl,omitempty"`
}

// Service implements the friend relationship state machine over the
// relational store: Strangers -> RequestPending(sender) -> Friends, with
// blocks overlaying any state for availability.
type Service struct {
	users    repo.UserRepo
	friends  repo.FriendRepo
	blocks   repo.BlockRepo
	notifier Notifier
	logger   *logger.Logger
}

// NewService creates a friend relationship service. notifier may be nil.
func NewService(users repo.UserRepo, friends repo.FriendRepo, blocks repo.BlockRepo, notifier Notifier, log *logger.Logger) *Service {
	return &Service{users: users, friends: friends, blocks: blocks, notifier: notifier, logger: log}
}

// DoesFriendRequestExist checks the unique (sender=from, username=to) key.
func (s *Service) DoesFriendRequestExist(ctx context.Context, to, from string) (bool, error) {
	return s.friends.RequestExists(ctx, to, from)
}

// DoesFriendshipExist checks both orderings of the undirected edge.
func (s *Service) DoesFriendshipExist(ctx context.Context, a, b string) (bool, error) {
	return s.friends.FriendshipExists(ctx, a, b)
}

// SendRequest creates a pending request from from to to. Returns false
// without error when either identity is absent or a request already exists
// for that ordered pair; reissuing an identical request is a no-op.
func (s *Service) SendRequest(ctx context.Context, txID, to, from string, message *string) (bool, error) {
	for _, username := range []string{to, from} {
		if _, err := s.users.GetByUsername(ctx, username); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				s.logger.Info("friend request to unknown identity",
					"transaction_id", txID, "username", username)
				return false, nil
			}
			return false, fmt.Errorf("look up %s: %w", username, err)
		}
	}

	exists, err := s.friends.RequestExists(ctx, to, from)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	// Existence check above is best effort; the uniqueness constraint on
	// (sender, username) backstops concurrent duplicates.
	if err := s.friends.CreateRequest(ctx, to, from, message); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, txID, to, model.NotificationFriendRequest,
			fmt.Sprintf("%s sent you a friend request", from))
	}
	return true, nil
}

// AcceptRequest deletes the pending request and creates the friendship
// edge. The delete is issued first; if it removes zero rows the edge is
// never created and the call returns false.
func (s *Service) AcceptRequest(ctx context.Context, txID, to, from string) (bool, error) {
	removed, err := s.friends.DeleteRequest(ctx, to, from)
	if err != nil {
		return false, err
	}
	if removed == 0 {
		return false, nil
	}

	if err := s.friends.CreateFriend(ctx, to, from); err != nil {
		return false, fmt.Errorf("create friendship after accept: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, txID, from, model.NotificationRequestAccepted,
			fmt.Sprintf("%s accepted your friend request", to))
	}
	return true, nil
}

// RejectRequest deletes the pending request without creating an edge.
// Returns whether a row was removed.
func (s *Service) RejectRequest(ctx context.Context, to, from string) (bool, error) {
	removed, err := s.friends.DeleteRequest(ctx, to, from)
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// RemoveFriend deletes the undirected edge between a and b. Removing a
// friendship that does not exist is ErrFriendshipNotFound.
func (s *Service) RemoveFriend(ctx context.Context, a, b string) error {
	exists, err := s.friends.FriendshipExists(ctx, a, b)
	if err != nil {
		return err
	}
	if !exists {
		return ErrFriendshipNotFound
	}
	if _, err := s.friends.DeleteFriendship(ctx, a, b); err != nil {
		return err
	}
	return nil
}

// ListFriends returns the usernames connected to username by an edge in
// either ordering.
func (s *Service) ListFriends(ctx context.Context, username string) ([]string, error) {
	return s.friends.ListFriends(ctx, username)
}

// AvailableFriends returns every user with no relation at all to
// excludeUsername: no pending request, no block, no friendship, in either
// direction. Candidates are walked sequentially to bound concurrency; the
// three counts for one candidate are gathered in parallel.
func (s *Service) AvailableFriends(ctx context.Context, excludeUsername string) ([]string, error) {
	candidates, err := s.users.ListUsernamesExcept(ctx, excludeUsername)
	if err != nil {
		return nil, err
	}

	available := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		candidate := candidate
		var requests, blocks, edges int

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			requests, err = s.friends.CountRequestsBetween(gctx, candidate, excludeUsername)
			return err
		})
		g.Go(func() error {
			var err error
			blocks, err = s.blocks.CountBetween(gctx, candidate, excludeUsername)
			return err
		})
		g.Go(func() error {
			var err error
			edges, err = s.friends.CountFriendsBetween(gctx, candidate, excludeUsername)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("count relations for %s: %w", candidate, err)
		}

		if requests+blocks+edges == 0 {
			available = append(available, candidate)
		}
	}
	return available, nil
}

// PendingRequests returns all requests targeting forUsername, each enriched
// with the sender's profile image URL where one exists.
func (s *Service) PendingRequests(ctx context.Context, forUsername string) ([]RequestDTO, error) {
	requests, err := s.friends.RequestsFor(ctx, forUsername)
	if err != nil {
		return nil, err
	}

	dtos := make([]RequestDTO, 0, len(requests))
	for _, req := range requests {
		dto := RequestDTO{
			Username:      req.Username,
			Sender:        req.Sender,
			CustomMessage: req.CustomMessage,
			Sent:          req.Sent,
		}
		sender, err := s.users.GetByUsername(ctx, req.Sender)
		switch {
		case err == nil:
			dto.SenderProfileImageURL = sender.ProfileImageURL
		case errors.Is(err, repo.ErrNotFound):
			// missing profile leaves the field absent, never an error
		default:
			return nil, fmt.Errorf("look up sender %s: %w", req.Sender, err)
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// BlockUser records a directed block from sender against username.
// Blocking twice is a no-op returning false.
func (s *Service) BlockUser(ctx context.Context, username, sender string, reason *string) (bool, error) {
	blocked, err := s.blocks.Exists(ctx, username, sender)
	if err != nil {
		return false, err
	}
	if blocked {
		return false, nil
	}
	if err := s.blocks.Create(ctx, username, sender, reason); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UnblockUser removes sender's block against username. Returns false when
// no such block exists.
func (s *Service) UnblockUser(ctx context.Context, username, sender string) (bool, error) {
	removed, err := s.blocks.Delete(ctx, username, sender)
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// Blocks returns every block issued by sender, oldest first.
func (s *Service) Blocks(ctx context.Context, sender string) ([]model.Block, error) {
	return s.blocks.ListBySender(ctx, sender)
}
