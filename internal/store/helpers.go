package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/chaossynth/chaossynth/internal/models"
)

// limitOrMax maps a non-positive limit onto a value large enough to mean
// "no limit" in a SQL LIMIT clause.
func limitOrMax(n int) int {
	if n <= 0 {
		return 1 << 30
	}
	return n
}

// scanEmotionRecords reads emotion rows produced by the shared column order.
func scanEmotionRecords(rows *sql.Rows) ([]models.EmotionRecord, error) {
	var records []models.EmotionRecord
	for rows.Next() {
		var rec models.EmotionRecord
		var tags, summary sql.NullString
		if err := rows.Scan(&rec.UserID, &rec.Timestamp, &rec.RawText, &rec.Label,
			&rec.Severity, &rec.Stability, &tags, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan emotion record row: %w", err)
		}
		if tags.Valid && tags.String != "" && tags.String != "null" {
			if err := json.Unmarshal([]byte(tags.String), &rec.Tags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
			}
		}
		rec.Summary = summary.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// scanFeedback reads feedback rows produced by the shared column order.
func scanFeedback(rows *sql.Rows) ([]models.FeedbackEntry, error) {
	var entries []models.FeedbackEntry
	for rows.Next() {
		var e models.FeedbackEntry
		var action, category, difficulty string
		var rating sql.NullInt64
		if err := rows.Scan(&e.UserID, &e.SuggestionID, &action, &rating,
			&category, &difficulty, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		e.Action = models.FeedbackAction(action)
		e.Category = models.SuggestionCategory(category)
		e.Difficulty = models.SuggestionDifficulty(difficulty)
		e.Rating = int(rating.Int64)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
