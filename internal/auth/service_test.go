package auth

import (
	"context"
	"testing"
	"time"

	"github.com/buckles/server/internal/credential"
	"github.com/buckles/server/internal/kv"
	"github.com/buckles/server/internal/logger"
	"github.com/buckles/server/internal/model"
	"github.com/buckles/server/internal/repo"
	"github.com/buckles/server/internal/throttle"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	users map[string]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, username, hash, salt string) (model.User, error) {
	if _, ok := r.users[username]; ok {
		return model.User{}, repo.ErrDuplicate
	}
	u := model.User{ID: uuid.New(), Username: username, Hash: hash, Salt: salt, CreatedAt: time.Now()}
	r.users[username] = u
	return u, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repo.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	u, ok := r.users[username]
	if !ok {
		return model.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) UpdateProfileImage(ctx context.Context, username, imageURL string) error {
	return nil
}

func (r *fakeUserRepo) ListUsernamesExcept(ctx context.Context, exclude string) ([]string, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *fakeUserRepo, *throttle.Engine, func(time.Time)) {
	t.Helper()
	users := newFakeUserRepo()
	store := kv.NewMemoryStore()
	throttleEngine := throttle.NewEngine(store, nil, time.Hour)

	current := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	setNow := func(now time.Time) {
		current = now
		throttleEngine.SetClock(func() time.Time { return current })
		store.SetClock(func() time.Time { return current })
	}
	setNow(current)

	svc := NewService(users, credential.NewEngine(0), throttleEngine,
		NewJWTService("test-secret"), logger.New(8))
	return svc, users, throttleEngine, setNow
}

func TestRegisterAndLogin(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "tx-1", "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, user.Hash)
	assert.NotEmpty(t, user.Salt)
	assert.NotEqual(t, "hunter2", users.users["alice"].Hash, "plaintext must never be stored")

	loggedIn, token, err := svc.Login(ctx, "tx-2", "alice", "hunter2", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	require.NotEmpty(t, token)

	claims, err := NewJWTService("test-secret").VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegister_duplicateUsername(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tx-1", "alice", "hunter2")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "tx-2", "alice", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLogin_wrongPassword(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tx-1", "alice", "hunter2")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "tx-2", "alice", "wrong", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_unknownUserIndistinguishable(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, _, err := svc.Login(context.Background(), "tx-1", "nobody", "whatever", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials,
		"unknown username must look like a wrong password")
}

func TestLogin_lockoutAfterTenIPFailures(t *testing.T) {
	svc, _, throttleEngine, setNow := newTestService(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := svc.Register(ctx, "tx-0", "alice", "hunter2")
	require.NoError(t, err)

	// nine failures from the ip, spread over usernames so only the ip
	// counter matters
	for i := 0; i < 9; i++ {
		_, _, err := svc.Login(ctx, "tx", "alice", "wrong", "10.0.0.1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		// reset the username counter: vary the target instead
		require.NoError(t, throttleEngine.Reset(ctx, "", "alice"))
	}

	// the 10th failure engages a 2 minute ip lockout
	_, _, err = svc.Login(ctx, "tx", "alice", "wrong", "10.0.0.1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// one minute later, even the correct password is rejected as locked
	setNow(start.Add(time.Minute))
	_, _, err = svc.Login(ctx, "tx", "alice", "hunter2", "10.0.0.1")
	assert.ErrorIs(t, err, ErrLoginLocked)

	// after the lockout expires, the correct password goes through
	setNow(start.Add(3 * time.Minute))
	_, token, err := svc.Login(ctx, "tx", "alice", "hunter2", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLogin_successResetsCounters(t *testing.T) {
	svc, _, throttleEngine, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tx-0", "alice", "hunter2")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, _, err := svc.Login(ctx, "tx", "alice", "wrong", "10.0.0.1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, _, err = svc.Login(ctx, "tx", "alice", "hunter2", "10.0.0.1")
	require.NoError(t, err)

	status, err := throttleEngine.Status(ctx, throttle.ScopeUsername, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.FailedAttempts)

	status, err = throttleEngine.Status(ctx, throttle.ScopeIP, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.FailedAttempts)
}
