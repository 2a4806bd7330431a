package tests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buckles/server/internal/auth"
	"github.com/buckles/server/internal/config"
	"github.com/buckles/server/internal/credential"
	"github.com/buckles/server/internal/db"
	"github.com/buckles/server/internal/doclog"
	"github.com/buckles/server/internal/friends"
	httphandler "github.com/buckles/server/internal/http"
	"github.com/buckles/server/internal/http/handlers"
	"github.com/buckles/server/internal/kv"
	"github.com/buckles/server/internal/logger"
	"github.com/buckles/server/internal/repo"
	"github.com/buckles/server/internal/social"
	"github.com/buckles/server/internal/throttle"
	"github.com/buckles/server/internal/ws"
	_ "github.com/lib/pq"
)

func TestMain(m *testing.M) {
	// Do NOT set DATABASE_URL; integration tests skip when it is missing.
	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "test-jwt-secret-at-least-32-characters-long")
	}
	os.Exit(m.Run())
}

type testServer struct {
	Server *httptest.Server
	DB     *sql.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err, "config load must succeed for integration test")

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL)
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that test DB exists")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, RunMigrations(database), "migrations must run successfully")
	require.NoError(t, TruncateAll(ctx, database), "truncate tables")

	log := logger.New(8) // quiet

	userRepo := repo.NewUserRepo(database)
	friendRepo := repo.NewFriendRepo(database)
	blockRepo := repo.NewBlockRepo(database)
	threadRepo := repo.NewThreadRepo(database)
	messageRepo := repo.NewMessageRepo(database)
	chatRoomRepo := repo.NewChatRoomRepo(database)
	notificationRepo := repo.NewNotificationRepo(database)

	credentialEngine := credential.NewEngine(cfg.Credential.SaltLength)
	throttleEngine := throttle.NewEngine(kv.NewMemoryStore(), throttle.DefaultRules(), cfg.Throttle.CounterTTL)
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	hub := ws.NewHub(log)
	notifications := social.NewNotifications(notificationRepo, hub, log)

	authService := auth.NewService(userRepo, credentialEngine, throttleEngine, jwtService, log)
	friendService := friends.NewService(userRepo, friendRepo, blockRepo, notifications, log)
	messaging := social.NewMessaging(userRepo, threadRepo, messageRepo, notifications, log)
	rooms := social.NewRooms(chatRoomRepo, log)

	reporter := handlers.NewReporter(doclog.NewMemoryStore(), log)

	router := httphandler.NewRouter(httphandler.Handlers{
		Auth:          handlers.NewAuthHandler(authService, reporter),
		Friends:       handlers.NewFriendsHandler(friendService, reporter),
		Messages:      handlers.NewMessagesHandler(messaging, reporter),
		Rooms:         handlers.NewRoomsHandler(rooms, reporter),
		Notifications: handlers.NewNotificationsHandler(notifications, hub, reporter),
	}, jwtService, userRepo)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{Server: server, DB: database}
}

// envelope mirrors the wire format without generics so tests can decode
// any payload into json.RawMessage.
type envelope struct {
	ID       string          `json:"id"`
	Data     json.RawMessage `json:"data"`
	ApiError *struct {
		ID      string `json:"id"`
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"apiError"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.NotEmpty(t, env.ID, "%s %s: envelope must carry a transaction id", method, path)
	return resp.StatusCode, env
}

func (s *testServer) register(t *testing.T, username, password string) {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, status, "register %s: %+v", username, env.ApiError)
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, status, "login %s: %+v", username, env.ApiError)

	var data struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken
}

func TestSocialIntegration(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ts := newTestServer(t)

	ts.register(t, "alice", "s3cret-alice")
	ts.register(t, "bob", "s3cret-bob")

	alice := ts.login(t, "alice", "s3cret-alice")
	bob := ts.login(t, "bob", "s3cret-bob")

	t.Run("Me", func(t *testing.T) {
		status, env := ts.do(t, http.MethodGet, "/me", alice, nil)
		require.Equal(t, http.StatusOK, status)
		var me struct {
			Username string `json:"username"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &me))
		assert.Equal(t, "alice", me.Username)
	})

	t.Run("ProfileImage", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodPut, "/me/profile-image", alice, map[string]string{
			"profileImageUrl": "https://img.example/alice.png",
		})
		require.Equal(t, http.StatusOK, status)

		status, env := ts.do(t, http.MethodGet, "/me", alice, nil)
		require.Equal(t, http.StatusOK, status)
		var me struct {
			ProfileImageURL *string `json:"profileImageUrl"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &me))
		require.NotNil(t, me.ProfileImageURL)
		assert.Equal(t, "https://img.example/alice.png", *me.ProfileImageURL)
	})

	t.Run("DuplicateRegister", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"username": "alice", "password": "whatever",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		require.NotNil(t, env.ApiError)
		assert.Equal(t, "CONFLICT", env.ApiError.Code)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "alice", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		require.NotNil(t, env.ApiError)
		assert.Equal(t, "CREDENTIAL_ERROR", env.ApiError.Code)
	})

	t.Run("FriendLifecycle", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/friends/requests", alice, map[string]string{
			"username": "bob",
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "true", string(env.Data))

		// duplicate request reports false, no second row
		status, env = ts.do(t, http.MethodPost, "/friends/requests", alice, map[string]string{
			"username": "bob",
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "false", string(env.Data))

		status, env = ts.do(t, http.MethodGet, "/friends/requests", bob, nil)
		require.Equal(t, http.StatusOK, status)
		var pending []struct {
			Sender string `json:"sender"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &pending))
		require.Len(t, pending, 1)
		assert.Equal(t, "alice", pending[0].Sender)

		status, env = ts.do(t, http.MethodPost, "/friends/requests/accept", bob, map[string]string{
			"sender": "alice",
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "true", string(env.Data))

		for _, token := range []string{alice, bob} {
			status, env = ts.do(t, http.MethodGet, "/friends/", token, nil)
			require.Equal(t, http.StatusOK, status)
			var list []string
			require.NoError(t, json.Unmarshal(env.Data, &list))
			assert.Len(t, list, 1)
		}

		// bob got the request notification, alice the acceptance
		status, env = ts.do(t, http.MethodGet, "/notifications/", alice, nil)
		require.Equal(t, http.StatusOK, status)
		var notes []struct {
			Kind string `json:"kind"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &notes))
		require.NotEmpty(t, notes)
		assert.Equal(t, "request_accepted", notes[0].Kind)

		status, _ = ts.do(t, http.MethodDelete, "/friends/bob", alice, nil)
		require.Equal(t, http.StatusOK, status)

		status, env = ts.do(t, http.MethodDelete, "/friends/bob", alice, nil)
		assert.Equal(t, http.StatusNotFound, status)
		require.NotNil(t, env.ApiError)
		assert.Equal(t, "NOT_FOUND", env.ApiError.Code)
	})

	t.Run("BlockLifecycle", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/friends/blocks", alice, map[string]string{
			"username": "bob", "reason": "spam",
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "true", string(env.Data))

		status, env = ts.do(t, http.MethodPost, "/friends/blocks", alice, map[string]string{
			"username": "bob",
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "false", string(env.Data), "re-blocking is a no-op")

		status, env = ts.do(t, http.MethodGet, "/friends/blocks", alice, nil)
		require.Equal(t, http.StatusOK, status)
		var blocks []struct {
			Username string  `json:"username"`
			Reason   *string `json:"reason"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &blocks))
		require.Len(t, blocks, 1)
		assert.Equal(t, "bob", blocks[0].Username)
		require.NotNil(t, blocks[0].Reason)
		assert.Equal(t, "spam", *blocks[0].Reason)

		status, env = ts.do(t, http.MethodDelete, "/friends/blocks/bob", alice, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "true", string(env.Data))

		status, env = ts.do(t, http.MethodDelete, "/friends/blocks/bob", alice, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "false", string(env.Data), "unblocking twice reports false")
	})

	t.Run("Threads", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/threads/", alice, map[string]string{
			"recipient": "bob",
		})
		require.Equal(t, http.StatusOK, status)
		var thread struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &thread))
		require.NotEmpty(t, thread.ID)

		status, env = ts.do(t, http.MethodPost, fmt.Sprintf("/threads/%s/messages", thread.ID), alice, map[string]string{
			"body": "hey bob",
		})
		require.Equal(t, http.StatusOK, status)

		status, env = ts.do(t, http.MethodGet, fmt.Sprintf("/threads/%s/messages", thread.ID), bob, nil)
		require.Equal(t, http.StatusOK, status)
		var messages []struct {
			Sender string `json:"sender"`
			Body   string `json:"body"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &messages))
		require.Len(t, messages, 1)
		assert.Equal(t, "alice", messages[0].Sender)
		assert.Equal(t, "hey bob", messages[0].Body)
	})

	t.Run("Rooms", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/rooms/", alice, map[string]string{
			"name": "general",
		})
		require.Equal(t, http.StatusOK, status)
		var room struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &room))
		require.NotEmpty(t, room.ID)

		status, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/rooms/%s/join", room.ID), bob, nil)
		require.Equal(t, http.StatusOK, status)

		status, env = ts.do(t, http.MethodGet, fmt.Sprintf("/rooms/%s/members", room.ID), alice, nil)
		require.Equal(t, http.StatusOK, status)
		var members []string
		require.NoError(t, json.Unmarshal(env.Data, &members))
		assert.ElementsMatch(t, []string{"alice", "bob"}, members)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		status, env := ts.do(t, http.MethodGet, "/friends/", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		require.NotNil(t, env.ApiError)
		assert.Equal(t, "CREDENTIAL_ERROR", env.ApiError.Code)
	})
}
