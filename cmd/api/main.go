package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer database.Close()

	if err := runMigrations(database, log); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	// Throttle counters live in an embedded store so lockouts survive
	// restarts without touching Postgres on every failed login.
	throttleStore, err := kv.OpenBadger(cfg.ThrottleDir)
	if err != nil {
		log.Fatal("failed to open throttle store", "dir", cfg.ThrottleDir, "error", err)
	}
	defer throttleStore.Close()

	// Exception records go to Mongo when configured; without MONGO_URI
	// they stay in process memory and surface only through the log.
	var exceptions doclog.Store = doclog.NewMemoryStore()
	if cfg.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		mongoStore, err := doclog.ConnectMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		cancel()
		if err != nil {
			log.Fatal("failed to connect to mongo", "error", err)
		}
		defer mongoStore.Close(ctx)
		exceptions = mongoStore
	} else {
		log.Warn("MONGO_URI not set, exception records are kept in memory only")
	}

	userRepo := repo.NewUserRepo(database)
	friendRepo := repo.NewFriendRepo(database)
	blockRepo := repo.NewBlockRepo(database)
	threadRepo := repo.NewThreadRepo(database)
	messageRepo := repo.NewMessageRepo(database)
	chatRoomRepo := repo.NewChatRoomRepo(database)
	notificationRepo := repo.NewNotificationRepo(database)

	credentialEngine := credential.NewEngine(cfg.Credential.SaltLength)
	throttleEngine := throttle.NewEngine(throttleStore, throttle.DefaultRules(), cfg.Throttle.CounterTTL)
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	hub := ws.NewHub(log)
	notifications := social.NewNotifications(notificationRepo, hub, log)

	authService := auth.NewService(userRepo, credentialEngine, throttleEngine, jwtService, log)
	friendService := friends.NewService(userRepo, friendRepo, blockRepo, notifications, log)
	messaging := social.NewMessaging(userRepo, threadRepo, messageRepo, notifications, log)
	rooms := social.NewRooms(chatRoomRepo, log)

	reporter := handlers.NewReporter(exceptions, log)

	router := httphandler.NewRouter(httphandler.Handlers{
		Auth:          handlers.NewAuthHandler(authService, reporter),
		Friends:       handlers.NewFriendsHandler(friendService, reporter),
		Messages:      handlers.NewMessagesHandler(messaging, reporter),
		Rooms:         handlers.NewRoomsHandler(rooms, reporter),
		Notifications: handlers.NewNotificationsHandler(notifications, hub, reporter),
	}, jwtService, userRepo)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB, log *logger.Logger) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from the repo root)")
	}

	log.Info("running migrations", "dir", migrationDir)

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
