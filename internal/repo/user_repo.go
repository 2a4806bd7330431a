package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/buckles/server/internal/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("record already exists")

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	Create(ctx context.Context, username, hash, salt string) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	UpdateProfileImage(ctx context.Context, username, imageURL string) error
	ListUsernamesExcept(ctx context.Context, exclude string) ([]string, error)
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Create inserts a new user with its credential pair.
func (r *userRepo) Create(ctx context.Context, username, hash, salt string) (model.User, error) {
	query := `
		INSERT INTO users (username, credential_hash, credential_salt)
		VALUES ($1, $2, $3)
		RETURNING id, username, credential_hash, credential_salt, profile_image_url, created_at
	`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username, hash, salt))
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("username %q: %w", username, ErrDuplicate)
		}
		return model.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `
		SELECT id, username, credential_hash, credential_salt, profile_image_url, created_at
		FROM users
		WHERE id = $1
	`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username
func (r *userRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	query := `
		SELECT id, username, credential_hash, credential_salt, profile_image_url, created_at
		FROM users
		WHERE username = $1
	`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// UpdateProfileImage sets the user's profile image URL.
func (r *userRepo) UpdateProfileImage(ctx context.Context, username, imageURL string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET profile_image_url = $2 WHERE username = $1
	`, username, imageURL)
	if err != nil {
		return fmt.Errorf("update profile image: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsernamesExcept returns every username other than exclude.
func (r *userRepo) ListUsernamesExcept(ctx context.Context, exclude string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT username FROM users WHERE username <> $1 ORDER BY username
	`, exclude)
	if err != nil {
		return nil, fmt.Errorf("list usernames: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		usernames = append(usernames, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usernames: %w", err)
	}
	return usernames, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var user model.User
	var idStr string
	err := row.Scan(
		&idStr,
		&user.Username,
		&user.Hash,
		&user.Salt,
		&user.ProfileImageURL,
		&user.CreatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to parse user ID: %w", err)
	}
	return user, nil
}
