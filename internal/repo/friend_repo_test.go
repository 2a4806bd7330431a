package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendRepo_RequestExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewFriendRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM friend_requests WHERE username = \$1 AND sender = \$2`).
		WithArgs("bob", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.RequestExists(context.Background(), "bob", "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM friend_requests WHERE username = \$1 AND sender = \$2`).
		WithArgs("bob", "mallory").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err = repo.RequestExists(context.Background(), "bob", "mallory")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFriendRepo_CreateRequest_UniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewFriendRepo(db)

	mock.ExpectExec(`INSERT INTO friend_requests`).
		WithArgs("bob", "alice", nil).
		WillReturnError(&pq.Error{Code: "23505"})

	err = repo.CreateRequest(context.Background(), "bob", "alice", nil)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFriendRepo_DeleteRequest_ReportsRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewFriendRepo(db)

	mock.ExpectExec(`DELETE FROM friend_requests WHERE username = \$1 AND sender = \$2`).
		WithArgs("bob", "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.DeleteRequest(context.Background(), "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectExec(`DELETE FROM friend_requests WHERE username = \$1 AND sender = \$2`).
		WithArgs("bob", "nobody").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err = repo.DeleteRequest(context.Background(), "bob", "nobody")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFriendRepo_RequestsFor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewFriendRepo(db)

	msg := "hi there"
	sent := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "username", "sender", "custom_message", "sent"}).
		AddRow(int64(1), "bob", "alice", &msg, sent).
		AddRow(int64(2), "bob", "carol", nil, sent.Add(time.Minute))

	mock.ExpectQuery(`SELECT id, username, sender, custom_message, sent`).
		WithArgs("bob").
		WillReturnRows(rows)

	requests, err := repo.RequestsFor(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "alice", requests[0].Sender)
	require.NotNil(t, requests[0].CustomMessage)
	assert.Equal(t, msg, *requests[0].CustomMessage)
	assert.Equal(t, "carol", requests[1].Sender)
	assert.Nil(t, requests[1].CustomMessage)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFriendRepo_DeleteFriendship_MatchesBothOrderings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewFriendRepo(db)

	mock.ExpectExec(`DELETE FROM friends\s+WHERE \(recipient = \$1 AND sender = \$2\) OR \(recipient = \$2 AND sender = \$1\)`).
		WithArgs("alice", "bob").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.DeleteFriendship(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFriendRepo_ListFriends_PivotsEdge(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewFriendRepo(db)

	rows := sqlmock.NewRows([]string{"username"}).
		AddRow("bob").
		AddRow("carol")

	mock.ExpectQuery(`SELECT CASE WHEN recipient = \$1 THEN sender ELSE recipient END`).
		WithArgs("alice").
		WillReturnRows(rows)

	friends, err := repo.ListFriends(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, friends)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFriendRepo_CountFriendsBetween(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewFriendRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM friends`).
		WithArgs("alice", "bob").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountFriendsBetween(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
