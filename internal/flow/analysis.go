package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/chaossynth/chaossynth/internal/models"
)

// analysisHistoryWindow is how many recent messages feed the predictive
// analysis prompt.
const analysisHistoryWindow = 6

// PredictiveAnalysis generates a short forward-looking consequence analysis
// of the current conversational pattern. Falls back to a heuristic summary
// when the LLM is unavailable; never returns an LLM error to the caller.
func (e *Engine) PredictiveAnalysis(ctx context.Context, userID string) (string, error) {
	risk, _, chaosResult, _, err := e.Predictions(userID)
	if err != nil {
		return "", err
	}

	history, err := e.store.RecentMessages(userID, analysisHistoryWindow)
	if err != nil {
		return "", fmt.Errorf("failed to load message history: %w", err)
	}
	if len(history) < 2 {
		return "Not enough conversation data for predictive analysis.", nil
	}

	var userMessages []string
	for _, msg := range history {
		if msg.Role == models.RoleUser {
			userMessages = append(userMessages, msg.Content)
		}
	}
	if len(userMessages) == 0 {
		return "No user messages to analyze.", nil
	}
	if len(userMessages) > 3 {
		userMessages = userMessages[len(userMessages)-3:]
	}

	var sb strings.Builder
	sb.WriteString("Based on this conversation, generate a brief predictive analysis of potential future consequences if current patterns continue.\n\n")
	sb.WriteString("Recent conversation:\n")
	for _, msg := range userMessages {
		fmt.Fprintf(&sb, "- %s\n", msg)
	}
	fmt.Fprintf(&sb, "\nCurrent state:\n- Stress: %d/100\n- Burnout: %d/100\n- Danger: %d/100\n- Chaos: %d/100\n\n",
		risk.Stress, risk.Burnout, risk.Danger, chaosResult.Score)
	sb.WriteString("Analyze the conversation for key themes (e.g., substance use, burnout, relationship issues, work stress) and predict SHORT-TERM (1-2 weeks) and LONG-TERM (1-3 months) consequences if this pattern continues.\n\n")
	sb.WriteString("Format:\nSHORT-TERM: [2-3 specific consequences]\nLONG-TERM: [2-3 specific consequences]\n\n")
	sb.WriteString("Keep it concise, specific, and relevant to what the user is actually discussing. If there are no concerning patterns, say \"No significant risks detected.\"")

	if e.genai != nil {
		reply, err := e.genai.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(sb.String()),
		})
		if err == nil && strings.TrimSpace(reply) != "" {
			return strings.TrimSpace(reply), nil
		}
		if err != nil {
			slog.Warn("Predictive analysis generation failed, using heuristic", "error", err, "userID", userID)
		}
	}
	return heuristicAnalysis(risk), nil
}

// heuristicAnalysis is the canned consequence summary used when the LLM
// cannot be reached, keyed off the dominant risk score.
func heuristicAnalysis(risk models.RiskScores) string {
	switch {
	case risk.Danger >= 70:
		return "SHORT-TERM: Immediate safety risk, potential for crisis escalation\nLONG-TERM: Serious mental health consequences if help is not sought"
	case risk.Burnout >= 60:
		return "SHORT-TERM: Continued exhaustion, decreased performance\nLONG-TERM: Potential burnout, health issues, relationship strain"
	case risk.Stress >= 60:
		return "SHORT-TERM: Increased anxiety, sleep issues\nLONG-TERM: Chronic stress, potential health problems"
	default:
		return "No significant risks detected based on current conversation."
	}
}
