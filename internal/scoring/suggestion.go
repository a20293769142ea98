package scoring

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/chaossynth/chaossynth/internal/models"
)

// SafetyNotice is the fixed crisis-tier safety message. It is surfaced
// verbatim whenever the phase is CRISIS and must never be suppressed by
// caching or LLM fallback behavior.
const SafetyNotice = "CRITICAL: Please consider contacting a trusted person or a local crisis hotline right now. I am not a therapist, and you deserve real support."

// Preferences captures what the feedback loop has learned about a user.
// Zero values mean no preference.
type Preferences struct {
	PreferredCategory   models.SuggestionCategory
	PreferredDifficulty models.SuggestionDifficulty
}

// SuggestionInput is everything the generator needs. Identical inputs
// produce identical ranked output.
type SuggestionInput struct {
	Phase   models.Phase
	Risk    models.RiskScores
	Chaos   int
	Profile *models.UserProfile
	Prefs   Preferences
}

type catalogEntry struct {
	text       string
	reason     string
	permission string
	difficulty models.SuggestionDifficulty
	category   models.SuggestionCategory
	tiedTo     string
}

// phaseCatalog holds the per-phase suggestion pool. Order within a phase is
// the tie-break order, so it must stay stable.
var phaseCatalog = map[models.Phase][]catalogEntry{
	models.PhaseCrisis: {
		{"Contact a crisis hotline or a trusted person.", "Connecting with support is crucial right now.", "Would you be willing to make a call?", models.DifficultyHard, models.CategoryCrisis, "danger"},
		{"Practice 4-7-8 breathing.", "Helps calm the nervous system immediately.", "Can we try breathing together for a moment?", models.DifficultyVeryEasy, models.CategoryComfort, "stress"},
		{"Ground yourself: name 5 things you can see.", "Brings focus back to the present moment.", "Would you like to try a quick grounding exercise?", models.DifficultyVeryEasy, models.CategoryComfort, "stress"},
	},
	models.PhaseHurt: {
		{"Take a gentle 5-minute walk.", "Movement helps process emotions.", "Do you feel up for a short walk?", models.DifficultyEasy, models.CategoryPhysical, "burnout"},
		{"Listen to a comforting song.", "Music can soothe and shift mood.", "Would you like to put on some music?", models.DifficultyVeryEasy, models.CategoryComfort, "stress"},
		{"Write down one thing on your mind.", "Getting thoughts out can reduce mental load.", "Would journaling a few sentences help?", models.DifficultyEasy, models.CategoryReflective, "stress"},
	},
	models.PhaseAtRisk: {
		{"Take a 15-minute break from screens.", "Reduces digital fatigue and stress.", "Could you take a short break now?", models.DifficultyEasy, models.CategoryComfort, "burnout"},
		{"Drink a glass of water.", "Hydration supports physical and mental regulation.", "Would you like to grab some water?", models.DifficultyVeryEasy, models.CategoryPhysical, "burnout"},
		{"Reach out to a friend.", "Social connection buffers against stress.", "Is there someone you'd like to message?", models.DifficultyMedium, models.CategorySocial, "stress"},
	},
	models.PhaseStable: {
		{"Reflect on a recent win.", "Reinforces positive feelings and progress.", "Would you like to note a recent success?", models.DifficultyEasy, models.CategoryReflective, "profile"},
		{"Try a new creative activity.", "Stimulates growth and engagement.", "Are you interested in trying something new?", models.DifficultyMedium, models.CategoryCreative, "profile"},
		{"Plan a small treat for yourself.", "Self-care maintains stability.", "What small treat would you enjoy?", models.DifficultyEasy, models.CategoryComfort, "profile"},
	},
}

// hobbyCatalog maps hobby keywords to profile-tied suggestions that surface
// when the profile mentions them.
var hobbyCatalog = map[string]catalogEntry{
	"music":   {"Put on a song you love for a few minutes.", "Familiar music is a reliable mood anchor.", "Want to pick a song?", models.DifficultyVeryEasy, models.CategoryComfort, "profile"},
	"reading": {"Read a few pages of something light.", "A short read gives your mind a gentle reset.", "Would a few pages help right now?", models.DifficultyEasy, models.CategoryReflective, "profile"},
	"walking": {"Take a short walk on a route you like.", "A familiar walk pairs movement with comfort.", "Feel like stepping outside?", models.DifficultyEasy, models.CategoryPhysical, "profile"},
	"drawing": {"Sketch whatever is in front of you for five minutes.", "Low-stakes drawing redirects attention outward.", "Want to grab a pencil?", models.DifficultyEasy, models.CategoryCreative, "profile"},
	"coding":  {"Tinker with a tiny side project for ten minutes.", "A small, winnable task rebuilds momentum.", "Is there a small thing you'd enjoy building?", models.DifficultyMedium, models.CategoryCreative, "profile"},
	"cooking": {"Make yourself a simple favorite snack.", "Cooking something familiar is grounding and rewarding.", "What sounds good to make?", models.DifficultyEasy, models.CategoryComfort, "profile"},
	"gaming":  {"Play something relaxed and familiar for a bit.", "A familiar game offers low-pressure engagement.", "What would you enjoy playing?", models.DifficultyEasy, models.CategoryCreative, "profile"},
}

// suggestionNamespace seeds deterministic suggestion IDs.
var suggestionNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("chaossynth/suggestion"))

// GenerateSuggestions returns up to n ranked suggestions for the given
// input. It is a pure function: the same input always yields the identical
// ranked list, so the output is testable by equality.
func GenerateSuggestions(in SuggestionInput, n int) []models.Suggestion {
	if n <= 0 {
		n = 3
	}

	candidates := make([]catalogEntry, 0, 8)
	candidates = append(candidates, phaseCatalog[in.Phase]...)

	// Hobby matches join the pool outside of crisis; in crisis the fixed
	// safety pool stands alone.
	if in.Phase != models.PhaseCrisis && in.Profile != nil {
		hobbies := make([]string, 0, len(hobbyCatalog))
		for h := range hobbyCatalog {
			hobbies = append(hobbies, h)
		}
		sort.Strings(hobbies)
		for _, h := range hobbies {
			if profileMentions(in.Profile, h) {
				candidates = append(candidates, hobbyCatalog[h])
			}
		}
	}

	dominant := dominantFactor(in.Risk, in.Chaos)

	type ranked struct {
		entry catalogEntry
		score int
		index int
	}
	var pool []ranked
	for i, entry := range candidates {
		if in.Phase == models.PhaseCrisis {
			// In crisis, reject taxing or creative activities; keep the
			// crisis-category entry no matter what.
			if entry.category != models.CategoryCrisis {
				if entry.difficulty == models.DifficultyHard || entry.category == models.CategoryCreative {
					continue
				}
			}
		}
		score := 0
		if entry.category == models.CategoryCrisis {
			score += 100 // crisis resources always rank first in CRISIS
		}
		if entry.tiedTo == dominant {
			score += 3
		}
		if in.Prefs.PreferredCategory != "" && entry.category == in.Prefs.PreferredCategory {
			score += 2
		}
		if in.Prefs.PreferredDifficulty != "" && entry.difficulty == in.Prefs.PreferredDifficulty {
			score++
		}
		pool = append(pool, ranked{entry: entry, score: score, index: i})
	}

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].score != pool[j].score {
			return pool[i].score > pool[j].score
		}
		return pool[i].index < pool[j].index
	})

	if len(pool) > n {
		pool = pool[:n]
	}

	out := make([]models.Suggestion, 0, len(pool))
	for _, r := range pool {
		out = append(out, models.Suggestion{
			ID:               uuid.NewSHA1(suggestionNamespace, []byte(r.entry.text)).String(),
			Text:             r.entry.text,
			Reason:           r.entry.reason,
			PermissionPrompt: r.entry.permission,
			Difficulty:       r.entry.difficulty,
			Category:         r.entry.category,
			TiedTo:           r.entry.tiedTo,
		})
	}
	return out
}

// dominantFactor names the highest current score so suggestions tied to it
// rank higher.
func dominantFactor(risk models.RiskScores, chaos int) string {
	factor, best := "stress", risk.Stress
	if risk.Burnout > best {
		factor, best = "burnout", risk.Burnout
	}
	if risk.Danger > best {
		factor, best = "danger", risk.Danger
	}
	if chaos > best {
		factor = "chaos"
	}
	return factor
}

func profileMentions(profile *models.UserProfile, keyword string) bool {
	for _, list := range [][]string{profile.Hobbies, profile.Likes} {
		for _, item := range list {
			if strings.Contains(strings.ToLower(item), keyword) {
				return true
			}
		}
	}
	return false
}
