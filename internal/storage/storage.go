// Package storage keeps the optional download journal in SQLite.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DownloadRecord is one finished download batch.
type DownloadRecord struct {
	ID          string    `json:"id"`
	GuildID     string    `json:"guild_id"`
	GuildName   string    `json:"guild_name"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	RequesterID string    `json:"requester_id"`
	Option      string    `json:"option"`
	Folder      string    `json:"folder"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Bytes       int64     `json:"bytes"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// DownloadFilter narrows RecentDownloads.
type DownloadFilter struct {
	GuildID   string
	ChannelID string
	Limit     int
}

// Summary aggregates the whole journal.
type Summary struct {
	Batches   int   `json:"batches"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	Bytes     int64 `json:"bytes"`
}

type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string // path without query params, for file size checks
}

// NewSQLiteStore opens the database at path. Call Init before use.
func NewSQLiteStore(logger *slog.Logger, path string) (*SQLiteStore, error) {
	originalPath, _, _ := strings.Cut(path, "?")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc.org/sqlite serialises writers badly; one connection avoids
	// "database is locked" and is plenty for one row per batch.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// modernc.org/sqlite ignores _journal_mode in the DSN, set it by PRAGMA.
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		logger.Warn("failed to set WAL journal mode", "error", err)
	} else {
		logger.Info("SQLite journal mode set", "mode", journalMode, "path", originalPath)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		logger.Warn("failed to set busy timeout", "error", err)
	}

	return &SQLiteStore{db: db, logger: logger.With("component", "storage"), dbPath: originalPath}, nil
}

// Init applies pending schema migrations.
func (s *SQLiteStore) Init(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
