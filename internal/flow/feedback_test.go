package flow

import (
	"testing"
	"time"

	"github.com/chaossynth/chaossynth/internal/models"
)

func feedbackEntry(action models.FeedbackAction, cat models.SuggestionCategory, diff models.SuggestionDifficulty) models.FeedbackEntry {
	return models.FeedbackEntry{
		UserID:       "user-1",
		SuggestionID: "sugg",
		Action:       action,
		Category:     cat,
		Difficulty:   diff,
		Timestamp:    time.Now(),
	}
}

func TestPreferencesFromEmpty(t *testing.T) {
	prefs := preferencesFrom(nil)
	if prefs.PreferredCategory != "" || prefs.PreferredDifficulty != "" {
		t.Errorf("no feedback means no preferences, got %+v", prefs)
	}
}

func TestPreferencesFromCompletedOutweighsAccepted(t *testing.T) {
	entries := []models.FeedbackEntry{
		feedbackEntry(models.FeedbackCompleted, models.CategoryPhysical, models.DifficultyEasy),
		feedbackEntry(models.FeedbackAccepted, models.CategoryComfort, models.DifficultyVeryEasy),
	}

	prefs := preferencesFrom(entries)
	if prefs.PreferredCategory != models.CategoryPhysical {
		t.Errorf("completed suggestions weigh more, got %q", prefs.PreferredCategory)
	}
	if prefs.PreferredDifficulty != models.DifficultyEasy {
		t.Errorf("expected easy difficulty preference, got %q", prefs.PreferredDifficulty)
	}
}

func TestPreferencesFromRejectionsCancelOut(t *testing.T) {
	entries := []models.FeedbackEntry{
		feedbackEntry(models.FeedbackAccepted, models.CategorySocial, models.DifficultyMedium),
		feedbackEntry(models.FeedbackRejected, models.CategorySocial, models.DifficultyMedium),
	}

	prefs := preferencesFrom(entries)
	if prefs.PreferredCategory != "" {
		t.Errorf("balanced feedback yields no category preference, got %q", prefs.PreferredCategory)
	}
}

func TestPreferencesFromTieYieldsNoPreference(t *testing.T) {
	entries := []models.FeedbackEntry{
		feedbackEntry(models.FeedbackAccepted, models.CategorySocial, models.DifficultyMedium),
		feedbackEntry(models.FeedbackAccepted, models.CategoryComfort, models.DifficultyEasy),
	}

	prefs := preferencesFrom(entries)
	if prefs.PreferredCategory != "" {
		t.Errorf("a tie yields no category preference, got %q", prefs.PreferredCategory)
	}
	if prefs.PreferredDifficulty != "" {
		t.Errorf("a tie yields no difficulty preference, got %q", prefs.PreferredDifficulty)
	}
}
