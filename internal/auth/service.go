package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/buckles/server/internal/credential"
	"github.com/buckles/server/internal/logger"
	"github.com/buckles/server/internal/model"
	"github.com/buckles/server/internal/repo"
	"github.com/buckles/server/internal/throttle"
)

// ErrInvalidCredentials covers both an unknown username and a wrong
// password, so a caller cannot distinguish the two.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrLoginLocked is returned when the attempt is rejected by the throttle
// engine before any credential work runs.
var ErrLoginLocked = throttle.ErrLocked

// ErrUsernameTaken is returned when registration hits an existing username.
var ErrUsernameTaken = errors.New("username already taken")

// Service orchestrates registration and throttled login.
type Service struct {
	users       repo.UserRepo
	credentials *credential.Engine
	throttle    *throttle.Engine
	jwtService  *JWTService
	logger      *logger.Logger
}

// NewService creates a new auth service
func NewService(
	users repo.UserRepo,
	credentials *credential.Engine,
	throttleEngine *throttle.Engine,
	jwtService *JWTService,
	log *logger.Logger,
) *Service {
	return &Service{
		users:       users,
		credentials: credentials,
		throttle:    throttleEngine,
		jwtService:  jwtService,
		logger:      log,
	}
}

// Register hashes the password with a fresh salt and creates the user.
func (s *Service) Register(ctx context.Context, txID, username, password string) (model.User, error) {
	username = strings.TrimSpace(username)

	pair, err := s.credentials.HashCredential(password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash credential: %w", err)
	}

	user, err := s.users.Create(ctx, username, pair.Hash, pair.Salt)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return model.User{}, ErrUsernameTaken
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "transaction_id", txID, "username", username)
	return user, nil
}

// Login verifies a throttled login attempt and issues an access token.
// The throttle check runs first: a locked attempt is rejected before any
// credential verification so it leaks no timing signal. Every failure
// increments both throttle keys; success resets them.
func (s *Service) Login(ctx context.Context, txID, username, password, ip string) (model.User, string, error) {
	if err := s.throttle.Check(ctx, ip, username); err != nil {
		if errors.Is(err, throttle.ErrLocked) {
			s.logger.Info("login rejected by throttle", "transaction_id", txID, "ip", ip)
			return model.User{}, "", ErrLoginLocked
		}
		return model.User{}, "", fmt.Errorf("throttle check: %w", err)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, "", s.fail(ctx, txID, ip, username)
		}
		return model.User{}, "", fmt.Errorf("look up user: %w", err)
	}

	if !s.credentials.Matches(credential.Pair{Hash: user.Hash, Salt: user.Salt}, password) {
		return model.User{}, "", s.fail(ctx, txID, ip, username)
	}

	if err := s.throttle.Reset(ctx, ip, username); err != nil {
		return model.User{}, "", fmt.Errorf("reset throttle: %w", err)
	}

	token, err := s.jwtService.SignAccessToken(user.ID, user.Username)
	if err != nil {
		return model.User{}, "", fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info("login succeeded", "transaction_id", txID, "username", username)
	return user, token, nil
}

// UpdateProfileImage sets the user's profile image URL.
func (s *Service) UpdateProfileImage(ctx context.Context, txID, username, imageURL string) error {
	if err := s.users.UpdateProfileImage(ctx, username, imageURL); err != nil {
		return fmt.Errorf("update profile image: %w", err)
	}
	s.logger.Info("profile image updated", "transaction_id", txID, "username", username)
	return nil
}

// fail records the failed attempt against both throttle keys and returns
// the generic credential error.
func (s *Service) fail(ctx context.Context, txID, ip, username string) error {
	lockedUntil, err := s.throttle.RecordFailure(ctx, ip, username)
	if err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}
	if !lockedUntil.IsZero() {
		s.logger.Info("login lockout engaged",
			"transaction_id", txID, "ip", ip, "locked_until", lockedUntil)
	}
	return ErrInvalidCredentials
}
