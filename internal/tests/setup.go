package tests

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
)

// Migration directory candidates, tried in order so tests work whether
// they run from the repo root or from this package (go test ./...).
var migrationDirs = []string{
	"internal/db/migrations",
	"../../internal/db/migrations",
}

// ResolveMigrationDir returns the first existing migration directory, or
// an empty string if none is found.
func ResolveMigrationDir() string {
	for _, dir := range migrationDirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}
	return ""
}

// RunMigrations runs goose Up using the resolved migration directory.
func RunMigrations(db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	dir := ResolveMigrationDir()
	if dir == "" {
		return fmt.Errorf("migrations directory not found (tried %q); run tests from the repo root", migrationDirs)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// TruncateAll truncates every application table for a clean test state.
func TruncateAll(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE TABLE notifications, chat_room_members, chat_rooms,
			messages, threads, blocks, friends, friend_requests, users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
