package scoring

import (
	"sort"
	"strings"
	"time"

	"github.com/chaossynth/chaossynth/internal/models"
)

// emotionBuckets maps an emotion label to the keywords that signal it.
var emotionBuckets = map[string][]string{
	"joy": {
		"happy", "great", "amazing", "love", "excited", "wonderful", "fantastic",
		"joy", "glad", "proud", "relieved", "grateful", "good news",
	},
	"sadness": {
		"sad", "down", "miserable", "crying", "cried", "lonely", "empty",
		"numb", "heartbroken", "grief", "lost",
	},
	"anger": {
		"angry", "furious", "hate", "rage", "annoyed", "pissed", "fed up",
		"frustrated", "irritated",
	},
	"anxiety": {
		"anxious", "worried", "panic", "scared", "afraid", "nervous",
		"overwhelmed", "stressed", "on edge", "can't sleep", "racing",
	},
	"fatigue": {
		"tired", "exhausted", "drained", "burnout", "burned out", "fatigue",
		"no energy", "worn out", "can't keep up",
	},
	"hopelessness": {
		"hopeless", "pointless", "worthless", "trapped", "no way out",
		"give up", "giving up", "what's the point", "despair", "nothing matters",
	},
	"crisis": {
		"suicide", "suicidal", "kill myself", "hurt myself", "end it all",
		"end my life", "want to die", "self-harm", "self harm", "overdose",
		"better off dead",
	},
}

// bucketSeverity is the base severity contributed by a single hit in each bucket.
var bucketSeverity = map[string]float64{
	"joy":          1.5,
	"sadness":      5.0,
	"anger":        5.5,
	"anxiety":      5.5,
	"fatigue":      4.5,
	"hopelessness": 7.5,
	"crisis":       9.5,
}

// negationMarkers flip a joy hit into sadness ("not happy", "don't love it").
var negationMarkers = []string{"not ", "don't ", "dont ", "never ", "no longer "}

// shortInputTriggers force full analysis of very short messages.
var shortInputTriggers = []string{"help", "die", "kill", "hurt", "sad", "bad", "scared", "afraid", "hopeless"}

// EmotionScorer maps message text to an emotion label, severity, and tags via
// keyword lookup. It is the heuristic-only path and never depends on the LLM.
type EmotionScorer struct{}

// NewEmotionScorer creates a new heuristic emotion scorer.
func NewEmotionScorer() *EmotionScorer {
	return &EmotionScorer{}
}

// Score analyzes text and produces an emotion record. It never fails: empty
// or unrecognized input yields a neutral record.
func (s *EmotionScorer) Score(userID, text string, now time.Time) models.EmotionRecord {
	rec := models.EmotionRecord{
		UserID:    userID,
		Timestamp: now,
		RawText:   text,
		Label:     "neutral",
		Stability: 5.0,
		Summary:   "Neutral",
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return rec
	}

	// Very short messages are treated as neutral unless they carry a trigger
	// word; greetings and commands should not move the scores.
	if len(strings.Fields(normalized)) < 4 && !containsAny(normalized, shortInputTriggers) {
		rec.Summary = "Neutral (short input)"
		return rec
	}

	negated := containsAny(normalized, negationMarkers)

	hits := make(map[string]int)
	for label, keywords := range emotionBuckets {
		for _, kw := range keywords {
			if strings.Contains(normalized, kw) {
				hits[label]++
			}
		}
	}

	// A negated joy statement reads as sadness.
	if negated && hits["joy"] > 0 {
		hits["sadness"] += hits["joy"]
		delete(hits, "joy")
	}

	if len(hits) == 0 {
		return rec
	}

	var topLabel string
	var topCount int
	var severity float64
	for label, count := range hits {
		base := bucketSeverity[label]
		score := base + float64(count-1)*0.5
		if score > severity {
			severity = score
		}
		// Tie-break on bucket severity so crisis always wins the label.
		if count > topCount || (count == topCount && base > bucketSeverity[topLabel]) {
			topLabel = label
			topCount = count
		}
		rec.Tags = append(rec.Tags, label)
	}

	// Exclamation marks add intensity.
	if n := strings.Count(text, "!"); n > 0 {
		severity += float64(min(n, 3)) * 0.3
	}

	rec.Label = topLabel
	rec.Severity = clampSeverity(severity)
	rec.Stability = clampSeverity(10.0 - rec.Severity*0.8)
	rec.Summary = summaryFor(topLabel, rec.Severity)
	// Tag order stays deterministic for equality-based tests.
	sort.Strings(rec.Tags)
	return rec
}

// summaryFor produces the one-line emotional summary for a record.
func summaryFor(label string, severity float64) string {
	switch {
	case label == "crisis":
		return "Acute distress with crisis language"
	case severity >= 7:
		return "Intense " + label
	case severity >= 4:
		return "Moderate " + label
	case label == "joy":
		return "Positive mood"
	default:
		return "Mild " + label
	}
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
