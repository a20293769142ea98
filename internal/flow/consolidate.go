package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/openai/openai-go"

	"github.com/chaossynth/chaossynth/internal/genai"
	"github.com/chaossynth/chaossynth/internal/models"
)

const (
	// consolidationWindow is how many recent messages feed one
	// consolidation pass.
	consolidationWindow = 50
	// minMemoryConfidence is the floor below which extracted facts are
	// discarded.
	minMemoryConfidence = 0.6
	// maxMemoryTextLen caps the stored text of a single memory fact.
	maxMemoryTextLen = 240
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b(?:\+?\d{1,3})?[-. (]*\d{3}[-. )]*\d{3}[-. ]*\d{4}\b`)
)

// extractedFact is one durable fact proposed by the model.
type extractedFact struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// memoryExtraction is the structured-output shape of a consolidation call.
type memoryExtraction struct {
	Traumas           []extractedFact `json:"traumas"`
	MajorEvents       []extractedFact `json:"major_events"`
	Fears             []extractedFact `json:"fears"`
	LongTermGoals     []extractedFact `json:"long_term_goals"`
	MeaningfulHobbies []extractedFact `json:"meaningful_hobbies"`
	Notes             string          `json:"notes"`
}

var memoryExtractionSchema = genai.GenerateSchema[memoryExtraction]()

const extractionSystemPrompt = `You extract ONLY permanent, durable facts from a user's conversation transcript: traumas, major life events, fears, long-term goals, and meaningful hobbies.

Rules:
- Do NOT extract casual or ephemeral items (like "I ate pizza today") - only identity-level facts.
- Do NOT output phone numbers, emails, addresses, or other direct PII. If present, replace PII with "[REDACTED]" in the text fields.
- For each item include a confidence score between 0.0 and 1.0.
- Keep each text field under 240 characters.
- Use empty arrays when there is nothing to extract.`

// ConsolidateMemory extracts durable facts from the user's recent chat
// history and merges them into the profile. Requires an existing profile.
// PII is masked before the transcript leaves the process.
func (e *Engine) ConsolidateMemory(ctx context.Context, userID string) (*models.ConsolidationResult, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}
	profile, err := e.store.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	if e.genai == nil {
		return nil, genai.ErrUnavailable
	}

	history, err := e.store.RecentMessages(userID, consolidationWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load message history: %w", err)
	}
	if len(history) == 0 {
		return &models.ConsolidationResult{}, nil
	}

	var sb strings.Builder
	for _, msg := range history {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, maskPII(msg.Content))
	}

	raw, err := e.genai.GenerateStructured(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(extractionSystemPrompt),
		openai.UserMessage("Transcript to analyze:\n" + sb.String()),
	}, "memory_extraction", memoryExtractionSchema)
	if err != nil {
		return nil, fmt.Errorf("memory extraction failed: %w", err)
	}

	var extracted memoryExtraction
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse extraction result: %w", err)
	}

	result := e.mergeMemories(profile, extracted)
	if len(result.Added) > 0 {
		profile.UpdatedAt = e.now()
		if err := e.store.SaveProfile(*profile); err != nil {
			return nil, fmt.Errorf("failed to save consolidated profile: %w", err)
		}
	}
	slog.Debug("Memory consolidation completed", "userID", userID,
		"added", len(result.Added), "skipped", len(result.Skipped))
	return result, nil
}

// mergeMemories filters extracted facts by confidence, deduplicates them
// against the profile and within the batch, and appends survivors to the
// profile's memory list.
func (e *Engine) mergeMemories(profile *models.UserProfile, extracted memoryExtraction) *models.ConsolidationResult {
	categories := []struct {
		factType string
		items    []extractedFact
	}{
		{"trauma", extracted.Traumas},
		{"major_event", extracted.MajorEvents},
		{"fear", extracted.Fears},
		{"goal", extracted.LongTermGoals},
		{"hobby", extracted.MeaningfulHobbies},
	}

	existing := make(map[string]bool, len(profile.Memories))
	for _, m := range profile.Memories {
		existing[strings.ToLower(m.Text)] = true
	}

	result := &models.ConsolidationResult{}
	now := e.now()
	for _, cat := range categories {
		for _, item := range cat.items {
			text := strings.TrimSpace(item.Text)
			if len(text) > maxMemoryTextLen {
				text = text[:maxMemoryTextLen]
			}
			if text == "" || item.Confidence < minMemoryConfidence {
				result.Skipped = append(result.Skipped, models.SkippedMemory{
					Type: cat.factType, Text: text, Reason: "low_confidence",
				})
				continue
			}
			if existing[strings.ToLower(text)] {
				result.Skipped = append(result.Skipped, models.SkippedMemory{
					Type: cat.factType, Text: text, Reason: "duplicate",
				})
				continue
			}
			fact := models.MemoryFact{
				Type:       cat.factType,
				Text:       text,
				Confidence: item.Confidence,
				Timestamp:  now,
			}
			result.Added = append(result.Added, fact)
			profile.Memories = append(profile.Memories, fact)
			existing[strings.ToLower(text)] = true
		}
	}
	return result
}

// maskPII replaces emails and phone numbers before text reaches the LLM.
func maskPII(text string) string {
	text = emailPattern.ReplaceAllString(text, "[MASKED_EMAIL]")
	text = phonePattern.ReplaceAllString(text, "[MASKED_PHONE]")
	return text
}

// stripCodeFence unwraps a markdown-fenced JSON block if the model added
// one despite the structured-output format.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
