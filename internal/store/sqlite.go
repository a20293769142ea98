// Package store provides storage backends for ChaosSynth.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chaossynth/chaossynth/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists everything in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is the path to the
// database file; its directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveProfile(profile models.UserProfile) error {
	if profile.UserID == "" {
		return models.ErrEmptyUserID
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile for %s: %w", profile.UserID, err)
	}
	_, err = s.db.Exec(`INSERT INTO profiles (user_id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		profile.UserID, string(data), profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveProfile failed", "error", err, "userID", profile.UserID)
		return fmt.Errorf("failed to save profile for %s: %w", profile.UserID, err)
	}
	slog.Debug("SQLiteStore SaveProfile succeeded", "userID", profile.UserID)
	return nil
}

func (s *SQLiteStore) GetProfile(userID string) (*models.UserProfile, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM profiles WHERE user_id = ?`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfile failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", userID, err)
	}
	var profile models.UserProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile for %s: %w", userID, err)
	}
	return &profile, nil
}

func (s *SQLiteStore) AddMessage(msg models.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO messages (id, user_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.UserID, string(msg.Role), msg.Content, msg.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore AddMessage failed", "error", err, "userID", msg.UserID)
		return fmt.Errorf("failed to insert message for %s: %w", msg.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) RecentMessages(userID string, n int) ([]models.Message, error) {
	rows, err := s.db.Query(`SELECT id, user_id, role, content, timestamp FROM (
			SELECT id, user_id, role, content, timestamp FROM messages
			WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?
		) ORDER BY timestamp ASC`, userID, limitOrMax(n))
	if err != nil {
		slog.Error("SQLiteStore RecentMessages query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query messages for %s: %w", userID, err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.Role = models.MessageRole(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) AddEmotionRecord(rec models.EmotionRecord) error {
	if rec.UserID == "" {
		return models.ErrEmptyUserID
	}
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO emotion_records (user_id, timestamp, raw_text, label, severity, stability, tags, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.Timestamp, rec.RawText, rec.Label, rec.Severity, rec.Stability, string(tags), rec.Summary)
	if err != nil {
		slog.Error("SQLiteStore AddEmotionRecord failed", "error", err, "userID", rec.UserID)
		return fmt.Errorf("failed to insert emotion record for %s: %w", rec.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) RecentEmotionRecords(userID string, n int) ([]models.EmotionRecord, error) {
	rows, err := s.db.Query(`SELECT user_id, timestamp, raw_text, label, severity, stability, tags, summary FROM (
			SELECT user_id, timestamp, raw_text, label, severity, stability, tags, summary FROM emotion_records
			WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?
		) ORDER BY timestamp ASC`, userID, limitOrMax(n))
	if err != nil {
		slog.Error("SQLiteStore RecentEmotionRecords query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query emotion records for %s: %w", userID, err)
	}
	defer rows.Close()
	return scanEmotionRecords(rows)
}

func (s *SQLiteStore) AddFeedback(entry models.FeedbackEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO feedback (user_id, suggestion_id, action, rating, category, difficulty, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.SuggestionID, string(entry.Action), entry.Rating,
		string(entry.Category), string(entry.Difficulty), entry.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore AddFeedback failed", "error", err, "userID", entry.UserID)
		return fmt.Errorf("failed to insert feedback for %s: %w", entry.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) ListFeedback(userID string) ([]models.FeedbackEntry, error) {
	rows, err := s.db.Query(`SELECT user_id, suggestion_id, action, rating, category, difficulty, timestamp
		FROM feedback WHERE user_id = ? ORDER BY timestamp ASC`, userID)
	if err != nil {
		slog.Error("SQLiteStore ListFeedback query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query feedback for %s: %w", userID, err)
	}
	defer rows.Close()
	return scanFeedback(rows)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
