package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userColumnsPattern = `SELECT id, username, credential_hash, credential_salt, profile_image_url, created_at`

func userRow(id uuid.UUID, username string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "credential_hash", "credential_salt", "profile_image_url", "created_at"}).
		AddRow(id.String(), username, "hash", "salt", nil, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestUserRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)
	id := uuid.New()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "hash", "salt").
		WillReturnRows(userRow(id, "alice"))

	user, err := repo.Create(context.Background(), "alice", "hash", "salt")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Nil(t, user.ProfileImageURL)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_DuplicateUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "hash", "salt").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err = repo.Create(context.Background(), "alice", "hash", "salt")
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByUsername_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)

	mock.ExpectQuery(userColumnsPattern).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "credential_hash", "credential_salt", "profile_image_url", "created_at"}))

	_, err = repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)
	id := uuid.New()

	mock.ExpectQuery(userColumnsPattern).
		WithArgs(id.String()).
		WillReturnRows(userRow(id, "alice"))

	user, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdateProfileImage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET profile_image_url = \$2 WHERE username = \$1`).
		WithArgs("alice", "https://img.example/alice.png").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateProfileImage(context.Background(), "alice", "https://img.example/alice.png")
	assert.NoError(t, err)

	mock.ExpectExec(`UPDATE users SET profile_image_url = \$2 WHERE username = \$1`).
		WithArgs("ghost", "x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateProfileImage(context.Background(), "ghost", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ListUsernamesExcept(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)

	rows := sqlmock.NewRows([]string{"username"}).AddRow("bob").AddRow("carol")
	mock.ExpectQuery(`SELECT username FROM users WHERE username <> \$1`).
		WithArgs("alice").
		WillReturnRows(rows)

	usernames, err := repo.ListUsernamesExcept(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, usernames)
	assert.NoError(t, mock.ExpectationsWereMet())
}
