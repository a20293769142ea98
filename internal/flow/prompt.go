package flow

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/chaossynth/chaossynth/internal/models"
)

// phaseToneGuides steer the LLM's register per support phase. The scores
// themselves never appear in the user-visible reply; they only shape tone.
var phaseToneGuides = map[models.Phase]string{
	models.PhaseStable: "The user is doing okay. Be warm and curious, match their energy, and leave room for lightness.",
	models.PhaseAtRisk: "The user is showing early signs of strain. Be gentle and attentive. Acknowledge what they share without amplifying it.",
	models.PhaseHurt:   "The user is struggling. Slow down, validate their feelings explicitly, and keep your replies short and soft. Do not problem-solve unless asked.",
	models.PhaseCrisis: "The user may be in crisis. Stay calm, caring, and direct. Encourage them to reach out to a trusted person or professional support. Never minimize what they said.",
}

// phaseFallbackReplies are the canned replies used when the LLM is
// unavailable. The crisis fallback always accompanies the safety notice.
var phaseFallbackReplies = map[models.Phase]string{
	models.PhaseStable: "Thanks for sharing that with me. I'm here whenever you want to talk more.",
	models.PhaseAtRisk: "It sounds like things have been a bit heavy lately. I'm here with you, take your time.",
	models.PhaseHurt:   "I'm sorry you're going through this. What you're feeling matters, and you don't have to carry it alone.",
	models.PhaseCrisis: "I hear you, and I'm really glad you told me. You matter. Please consider reaching out to someone you trust or a crisis line right now.",
}

const maxPromptHistory = 10

// buildPromptMessages assembles the chat completion request: a system prompt
// carrying the tone guide and profile context, followed by the recent
// conversation history.
func buildPromptMessages(profile *models.UserProfile, phase models.Phase, emotion models.EmotionRecord, trajectory []models.Phase, topics []string, history []models.Message) []openai.ChatCompletionMessageParamUnion {
	var sb strings.Builder
	sb.WriteString("You are a supportive companion in an emotional wellbeing app. ")
	sb.WriteString("You are not a therapist and must never claim to be one. ")
	sb.WriteString("Reply in at most three short sentences.\n\n")

	sb.WriteString("Tone guide: ")
	sb.WriteString(phaseToneGuides[phase])
	sb.WriteString("\n")

	if emotion.Label != "neutral" && emotion.Summary != "" {
		fmt.Fprintf(&sb, "The user's latest message reads as: %s.\n", emotion.Summary)
	}

	if shift := trajectoryShift(trajectory); shift != "" {
		sb.WriteString(shift)
		sb.WriteString("\n")
	}

	if themes := distinctTopics(topics, 3); len(themes) > 0 {
		fmt.Fprintf(&sb, "Recent emotional themes in this session: %s.\n", strings.Join(themes, ", "))
	}

	if profile != nil {
		if profile.Name != "" {
			fmt.Fprintf(&sb, "The user's name is %s.\n", profile.Name)
		}
		if len(profile.Hobbies) > 0 {
			fmt.Fprintf(&sb, "Things they enjoy: %s.\n", strings.Join(profile.Hobbies, ", "))
		}
		if len(profile.Goals) > 0 {
			fmt.Fprintf(&sb, "Goals they mentioned: %s.\n", strings.Join(profile.Goals, ", "))
		}
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(sb.String()),
	}

	recent := history
	if len(recent) > maxPromptHistory {
		recent = recent[len(recent)-maxPromptHistory:]
	}
	for _, m := range recent {
		switch m.Role {
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}

// distinctTopics returns up to max distinct topics, most recent first.
func distinctTopics(topics []string, max int) []string {
	seen := make(map[string]bool, len(topics))
	var out []string
	for i := len(topics) - 1; i >= 0 && len(out) < max; i-- {
		if topics[i] == "" || seen[topics[i]] {
			continue
		}
		seen[topics[i]] = true
		out = append(out, topics[i])
	}
	return out
}

// trajectoryShift describes a recent phase change so the model can
// acknowledge momentum without quoting scores. Empty when the session has
// been flat.
func trajectoryShift(trajectory []models.Phase) string {
	if len(trajectory) < 2 {
		return ""
	}
	prev := trajectory[len(trajectory)-2]
	curr := trajectory[len(trajectory)-1]
	switch {
	case curr > prev:
		return "The conversation has been trending heavier over the last few messages."
	case curr < prev:
		return "The user seems to be doing a little better than earlier in the conversation."
	default:
		return ""
	}
}

// fallbackReply returns the canned reply for the phase.
func fallbackReply(phase models.Phase) string {
	if reply, ok := phaseFallbackReplies[phase]; ok {
		return reply
	}
	return phaseFallbackReplies[models.PhaseStable]
}
