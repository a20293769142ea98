package flow

import (
	"reflect"
	"strings"
	"testing"

	"github.com/chaossynth/chaossynth/internal/models"
)

func TestDistinctTopics(t *testing.T) {
	got := distinctTopics([]string{"sadness", "anger", "sadness", "", "fatigue"}, 3)
	want := []string{"fatigue", "sadness", "anger"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("distinctTopics = %v, want %v", got, want)
	}

	if got := distinctTopics(nil, 3); len(got) != 0 {
		t.Errorf("expected no topics, got %v", got)
	}
}

func TestTrajectoryShift(t *testing.T) {
	if s := trajectoryShift([]models.Phase{models.PhaseStable}); s != "" {
		t.Errorf("single-entry trajectory should not describe a shift, got %q", s)
	}
	if s := trajectoryShift([]models.Phase{models.PhaseStable, models.PhaseHurt}); !strings.Contains(s, "heavier") {
		t.Errorf("escalation should read as heavier, got %q", s)
	}
	if s := trajectoryShift([]models.Phase{models.PhaseHurt, models.PhaseAtRisk}); !strings.Contains(s, "better") {
		t.Errorf("de-escalation should read as better, got %q", s)
	}
	if s := trajectoryShift([]models.Phase{models.PhaseAtRisk, models.PhaseAtRisk}); s != "" {
		t.Errorf("flat trajectory should be silent, got %q", s)
	}
}

func TestBuildPromptMessagesContext(t *testing.T) {
	profile := &models.UserProfile{
		UserID:  "user-1",
		Name:    "Sam",
		Hobbies: []string{"music"},
	}
	emotion := models.EmotionRecord{Label: "sadness", Summary: "Moderate sadness"}
	history := []models.Message{
		{Role: models.RoleUser, Content: "I've been feeling down"},
		{Role: models.RoleAssistant, Content: "I'm sorry to hear that."},
	}

	messages := buildPromptMessages(profile, models.PhaseHurt, emotion,
		[]models.Phase{models.PhaseStable, models.PhaseHurt},
		[]string{"sadness"}, history)

	if len(messages) != 3 {
		t.Fatalf("expected system prompt plus 2 history turns, got %d messages", len(messages))
	}

	system := messages[0].OfSystem.Content.OfString.Value
	for _, want := range []string{"not a therapist", "Sam", "music", "Moderate sadness", "heavier", "sadness"} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %q:\n%s", want, system)
		}
	}
}

func TestBuildPromptMessagesTruncatesHistory(t *testing.T) {
	var history []models.Message
	for i := 0; i < maxPromptHistory+5; i++ {
		history = append(history, models.Message{Role: models.RoleUser, Content: "turn"})
	}

	messages := buildPromptMessages(nil, models.PhaseStable, models.EmotionRecord{Label: "neutral"}, nil, nil, history)
	if len(messages) != 1+maxPromptHistory {
		t.Errorf("expected history capped at %d turns, got %d messages", maxPromptHistory, len(messages)-1)
	}
}

func TestFallbackReplyCoversAllPhases(t *testing.T) {
	for _, phase := range []models.Phase{models.PhaseStable, models.PhaseAtRisk, models.PhaseHurt, models.PhaseCrisis} {
		if fallbackReply(phase) == "" {
			t.Errorf("no fallback reply for phase %s", phase)
		}
	}
}
