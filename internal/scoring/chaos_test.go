package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/chaossynth/chaossynth/internal/models"
)

func userMsg(content string) models.Message {
	return models.Message{Role: models.RoleUser, Content: content, Timestamp: time.Now()}
}

func assistantMsg(content string) models.Message {
	return models.Message{Role: models.RoleAssistant, Content: content, Timestamp: time.Now()}
}

func TestChaosScorerInsufficientData(t *testing.T) {
	scorer := NewChaosScorer(DefaultConfig())

	tests := []struct {
		name    string
		history []models.Message
	}{
		{"empty history", nil},
		{"one user message", []models.Message{userMsg("I am feeling really sad today")}},
		{"assistant only", []models.Message{assistantMsg("How are you?"), assistantMsg("Tell me more.")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := scorer.Score(tc.history, nil)
			if result.Score != 0 {
				t.Errorf("expected score 0, got %d", result.Score)
			}
			if !strings.Contains(result.Reason, "Not enough conversation data") {
				t.Errorf("unexpected reason %q", result.Reason)
			}
		})
	}
}

func TestChaosScorerStableConversation(t *testing.T) {
	scorer := NewChaosScorer(DefaultConfig())
	history := []models.Message{
		userMsg("work went fine this morning"),
		assistantMsg("Glad to hear it."),
		userMsg("work went fine this evening"),
		userMsg("work went fine again today"),
	}

	result := scorer.Score(history, nil)
	if result.Score > 10 {
		t.Errorf("uniform calm messages should score near zero, got %d", result.Score)
	}
	if result.Reason != "Stable, coherent conversation." {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}

func TestChaosScorerVolatileConversation(t *testing.T) {
	scorer := NewChaosScorer(DefaultConfig())
	now := time.Now()

	texts := []string{
		"I love my job so much",
		"I hate everything it is awful",
		"actually today was amazing and great",
		"no it is terrible and bad",
	}
	labels := [][]string{{"joy"}, {"anger", "sadness"}, {"joy"}, {"sadness"}}

	var history []models.Message
	var records []models.EmotionRecord
	for i, text := range texts {
		ts := now.Add(time.Duration(i) * time.Minute)
		history = append(history, models.Message{Role: models.RoleUser, Content: text, Timestamp: ts})
		records = append(records, models.EmotionRecord{
			UserID:    "user-1",
			Timestamp: ts,
			RawText:   text,
			Tags:      labels[i],
		})
	}

	result := scorer.Score(history, records)
	if result.Score <= 70 {
		t.Errorf("polarity-flipping conversation should score high, got %d", result.Score)
	}
	if !strings.Contains(result.Reason, "High conversational chaos") {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}

func TestChaosScorerWindowLimited(t *testing.T) {
	scorer := NewChaosScorer(DefaultConfig())

	// Chaotic early turns followed by a calm window: only the recent window
	// should count.
	var history []models.Message
	for i := 0; i < 5; i++ {
		if i%2 == 0 {
			history = append(history, userMsg("everything is wonderful and amazing"))
		} else {
			history = append(history, userMsg("no"))
		}
	}
	for i := 0; i < 5; i++ {
		history = append(history, userMsg("things have settled and feel steady"))
	}

	result := scorer.Score(history, nil)
	if result.Score != 0 {
		t.Errorf("calm recent window should override older chaos, got %d", result.Score)
	}
}

func TestChaosScorerScoreInRange(t *testing.T) {
	scorer := NewChaosScorer(DefaultConfig())
	now := time.Now()

	var history []models.Message
	var records []models.EmotionRecord
	for i := 0; i < 10; i++ {
		text := strings.Repeat("I love it and hate it terrible wonderful ", i+1)
		ts := now.Add(time.Duration(i) * time.Second)
		history = append(history, models.Message{Role: models.RoleUser, Content: text, Timestamp: ts})
		tags := []string{"joy"}
		if i%2 == 1 {
			tags = []string{"sadness", "anger"}
		}
		records = append(records, models.EmotionRecord{
			UserID: "user-1", Timestamp: ts, RawText: text, Tags: tags,
		})
	}

	result := scorer.Score(history, records)
	if result.Score < 0 || result.Score > models.ScoreMax {
		t.Errorf("score out of range: %d", result.Score)
	}
}

func TestChaosScorerRepeatedTextKeepsOwnRecords(t *testing.T) {
	scorer := NewChaosScorer(DefaultConfig())
	now := time.Now()

	// Four turns with identical text but alternating emotion records: each
	// message must match its own record, not whichever record shares the
	// text, so every polarity flip counts.
	labels := [][]string{{"joy"}, {"sadness"}, {"joy"}, {"sadness"}}
	var history []models.Message
	var records []models.EmotionRecord
	for i, tags := range labels {
		ts := now.Add(time.Duration(i) * time.Minute)
		history = append(history, models.Message{Role: models.RoleUser, Content: "it is what it is", Timestamp: ts})
		records = append(records, models.EmotionRecord{
			UserID: "user-1", Timestamp: ts, RawText: "it is what it is", Tags: tags,
		})
	}

	result := scorer.Score(history, records)
	if result.Score < 40 {
		t.Errorf("three polarity flips should register, got score %d", result.Score)
	}
}

func FuzzChaosScorerRange(f *testing.F) {
	f.Add("I love my job so much", "I hate everything it is awful", "fine I guess")
	f.Add("", "no", strings.Repeat("a", 500))
	f.Add("not happy at all", "so happy", "not sad")

	scorer := NewChaosScorer(DefaultConfig())
	emotions := NewEmotionScorer()
	f.Fuzz(func(t *testing.T, a, b, c string) {
		base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
		var history []models.Message
		var records []models.EmotionRecord
		for i, text := range []string{a, b, c} {
			ts := base.Add(time.Duration(i) * time.Minute)
			history = append(history, models.Message{Role: models.RoleUser, Content: text, Timestamp: ts})
			records = append(records, emotions.Score("user-1", text, ts))
		}

		result := scorer.Score(history, records)
		if result.Score < 0 || result.Score > models.ScoreMax {
			t.Errorf("score out of range for %q/%q/%q: %d", a, b, c, result.Score)
		}
		if result.Reason == "" {
			t.Error("reason must never be empty")
		}
	})
}

func TestChaosScorerDeterministic(t *testing.T) {
	scorer := NewChaosScorer(DefaultConfig())
	history := []models.Message{
		userMsg("I love my job so much"),
		userMsg("I hate everything it is awful"),
		userMsg("work was fine again today somehow"),
	}

	first := scorer.Score(history, nil)
	second := scorer.Score(history, nil)
	if first != second {
		t.Errorf("identical input must produce identical results: %+v vs %+v", first, second)
	}
}
