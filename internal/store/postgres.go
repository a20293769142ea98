// Package store provides storage backends for ChaosSynth.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/chaossynth/chaossynth/internal/models"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists everything in a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on the provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveProfile(profile models.UserProfile) error {
	if profile.UserID == "" {
		return models.ErrEmptyUserID
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile for %s: %w", profile.UserID, err)
	}
	_, err = s.db.Exec(`INSERT INTO profiles (user_id, data, created_at, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		profile.UserID, string(data), profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveProfile failed", "error", err, "userID", profile.UserID)
		return fmt.Errorf("failed to save profile for %s: %w", profile.UserID, err)
	}
	return nil
}

func (s *PostgresStore) GetProfile(userID string) (*models.UserProfile, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM profiles WHERE user_id = $1`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetProfile failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", userID, err)
	}
	var profile models.UserProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile for %s: %w", userID, err)
	}
	return &profile, nil
}

func (s *PostgresStore) AddMessage(msg models.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO messages (id, user_id, role, content, timestamp) VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.UserID, string(msg.Role), msg.Content, msg.Timestamp)
	if err != nil {
		slog.Error("PostgresStore AddMessage failed", "error", err, "userID", msg.UserID)
		return fmt.Errorf("failed to insert message for %s: %w", msg.UserID, err)
	}
	return nil
}

func (s *PostgresStore) RecentMessages(userID string, n int) ([]models.Message, error) {
	rows, err := s.db.Query(`SELECT id, user_id, role, content, timestamp FROM (
			SELECT id, user_id, role, content, timestamp FROM messages
			WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2
		) recent ORDER BY timestamp ASC`, userID, limitOrMax(n))
	if err != nil {
		slog.Error("PostgresStore RecentMessages query failed", "error", err, "userID", userID)
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

func (s *PostgresStore) AddEmotionRecord(rec models.EmotionRecord) error {
	if rec.UserID == "" {
		return models.ErrEmptyUserID
	}
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO emotion_records (user_id, timestamp, raw_text, label, severity, stability, tags, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.UserID, rec.Timestamp, rec.RawText, rec.Label, rec.Severity, rec.Stability, string(tags), rec.Summary)
	if err != nil {
		slog.Error("PostgresStore AddEmotionRecord failed", "error", err, "userID", rec.UserID)
		return fmt.Errorf("failed to insert emotion record for %s: %w", rec.UserID, err)
	}
	return nil
}

func (s *PostgresStore) RecentEmotionRecords(userID string, n int) ([]models.EmotionRecord, error) {
	rows, err := s.db.Query(`SELECT user_id, timestamp, raw_text, label, severity, stability, tags, summary FROM (
			SELECT user_id, timestamp, raw_text, label, severity, stability, tags, summary FROM emotion_records
			WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2
		) recent ORDER BY timestamp ASC`, userID, limitOrMax(n))
	if err != nil {
		slog.Error("PostgresStore RecentEmotionRecords query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query emotion records for %s: %w", userID, err)
	}
	defer rows.Close()
	return scanEmotionRecords(rows)
}

func (s *PostgresStore) AddFeedback(entry models.FeedbackEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO feedback (user_id, suggestion_id, action, rating, category, difficulty, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.UserID, entry.SuggestionID, string(entry.Action), entry.Rating,
		string(entry.Category), string(entry.Difficulty), entry.Timestamp)
	if err != nil {
		slog.Error("PostgresStore AddFeedback failed", "error", err, "userID", entry.UserID)
		return fmt.Errorf("failed to insert feedback for %s: %w", entry.UserID, err)
	}
	return nil
}

func (s *PostgresStore) ListFeedback(userID string) ([]models.FeedbackEntry, error) {
	rows, err := s.db.Query(`SELECT user_id, suggestion_id, action, rating, category, difficulty, timestamp
		FROM feedback WHERE user_id = $1 ORDER BY timestamp ASC`, userID)
	if err != nil {
		slog.Error("PostgresStore ListFeedback query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query feedback for %s: %w", userID, err)
	}
	defer rows.Close()
	return scanFeedback(rows)
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
