package flow

import (
	"github.com/chaossynth/chaossynth/internal/models"
	"github.com/chaossynth/chaossynth/internal/scoring"
)

// preferencesFrom derives suggestion preferences from the feedback history.
// Accepted and completed suggestions count toward a preference; rejected and
// dismissed ones count against. The most favored category and difficulty win;
// ties resolve to no preference.
func preferencesFrom(entries []models.FeedbackEntry) scoring.Preferences {
	categoryVotes := make(map[models.SuggestionCategory]int)
	difficultyVotes := make(map[models.SuggestionDifficulty]int)

	for _, e := range entries {
		weight := 0
		switch e.Action {
		case models.FeedbackCompleted:
			weight = 2
		case models.FeedbackAccepted:
			weight = 1
		case models.FeedbackRejected, models.FeedbackDismissed:
			weight = -1
		}
		if weight == 0 {
			continue
		}
		if e.Category != "" {
			categoryVotes[e.Category] += weight
		}
		if e.Difficulty != "" {
			difficultyVotes[e.Difficulty] += weight
		}
	}

	return scoring.Preferences{
		PreferredCategory:   topCategory(categoryVotes),
		PreferredDifficulty: topDifficulty(difficultyVotes),
	}
}

func topCategory(votes map[models.SuggestionCategory]int) models.SuggestionCategory {
	var best models.SuggestionCategory
	bestVotes := 0
	tied := false
	for c, v := range votes {
		switch {
		case v > bestVotes:
			best, bestVotes, tied = c, v, false
		case v == bestVotes && v > 0:
			tied = true
		}
	}
	if bestVotes <= 0 || tied {
		return ""
	}
	return best
}

func topDifficulty(votes map[models.SuggestionDifficulty]int) models.SuggestionDifficulty {
	var best models.SuggestionDifficulty
	bestVotes := 0
	tied := false
	for d, v := range votes {
		switch {
		case v > bestVotes:
			best, bestVotes, tied = d, v, false
		case v == bestVotes && v > 0:
			tied = true
		}
	}
	if bestVotes <= 0 || tied {
		return ""
	}
	return best
}
