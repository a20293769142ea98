// Package flow orchestrates the per-turn pipeline: message intake, emotion
// scoring, chaos and risk prediction, phase tracking, suggestion generation,
// and reply generation with fallback.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chaossynth/chaossynth/internal/genai"
	"github.com/chaossynth/chaossynth/internal/models"
	"github.com/chaossynth/chaossynth/internal/scoring"
	"github.com/chaossynth/chaossynth/internal/store"
)

// Window sizes for the per-turn evaluation.
const (
	// DefaultHistoryWindow is how many recent messages feed chaos scoring
	// and the LLM prompt.
	DefaultHistoryWindow = 20
	// DefaultEmotionWindow is how many recent emotion records feed risk
	// prediction.
	DefaultEmotionWindow = 10
	// DefaultSuggestionCount is how many suggestions each turn carries.
	DefaultSuggestionCount = 3
)

// Engine runs the full turn pipeline. Scoring always happens on the
// heuristic path; the LLM only ever produces the conversational reply.
type Engine struct {
	store    store.Store
	genai    genai.ClientInterface
	cfg      scoring.Config
	emotion  *scoring.EmotionScorer
	chaos    *scoring.ChaosScorer
	risk     *scoring.RiskPredictor
	sessions *SessionManager

	historyWindow   int
	emotionWindow   int
	suggestionCount int
	now             func() time.Time
}

// NewEngine creates an engine over the given store and GenAI client.
func NewEngine(st store.Store, genaiClient genai.ClientInterface, cfg scoring.Config) *Engine {
	return &Engine{
		store:           st,
		genai:           genaiClient,
		cfg:             cfg,
		emotion:         scoring.NewEmotionScorer(),
		chaos:           scoring.NewChaosScorer(cfg),
		risk:            scoring.NewRiskPredictor(cfg),
		sessions:        NewSessionManager(cfg),
		historyWindow:   DefaultHistoryWindow,
		emotionWindow:   DefaultEmotionWindow,
		suggestionCount: DefaultSuggestionCount,
		now:             time.Now,
	}
}

// ProcessMessage runs one user message through the pipeline and returns the
// structured turn result. The reply falls back to a canned response when the
// LLM is unavailable; scoring never depends on it.
func (e *Engine) ProcessMessage(ctx context.Context, userID, text string) (*models.TurnResult, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.ErrEmptyMessage
	}
	if len(text) > models.MaxMessageLength {
		return nil, models.ErrMessageTooLong
	}

	now := e.now()
	userMsg := models.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: now,
	}
	if err := e.store.AddMessage(userMsg); err != nil {
		return nil, fmt.Errorf("failed to log user message: %w", err)
	}

	emotion := e.emotion.Score(userID, text, now)
	if err := e.store.AddEmotionRecord(emotion); err != nil {
		return nil, fmt.Errorf("failed to append emotion record: %w", err)
	}

	records, err := e.store.RecentEmotionRecords(userID, e.emotionWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load emotion window: %w", err)
	}
	history, err := e.store.RecentMessages(userID, e.historyWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load message history: %w", err)
	}

	profile, err := e.store.GetProfile(userID)
	if err != nil && !errors.Is(err, models.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	session := e.sessions.Get(userID)
	chaosResult := e.chaos.Score(history, records)
	risk, reasons := e.risk.ScoreSince(records, profile, session.DangerCutoff())

	retracted := session.beginTurn(scoring.IsRetraction(text), e.cfg.RetractionLookback, now)
	if retracted {
		risk, reasons.Danger = e.risk.Retract(risk)
		slog.Info("Danger trigger retracted", "userID", userID)
	}
	topic := emotion.Label
	if topic == "neutral" {
		topic = ""
	}
	// The current message can be a fresh trigger even on a retraction turn
	// ("just kidding about before, but I want to end my life"), so the
	// anchor is set from the record itself, keeping the new statement
	// retractable in its own right.
	phase := session.advance(risk, chaosResult.Score, retracted, e.risk.IsTriggerRecord(emotion), topic)

	prefs := e.preferences(userID)
	suggestions := scoring.GenerateSuggestions(scoring.SuggestionInput{
		Phase:   phase,
		Risk:    risk,
		Chaos:   chaosResult.Score,
		Profile: profile,
		Prefs:   prefs,
	}, e.suggestionCount)

	reply, usedFallback := e.generateReply(ctx, profile, phase, emotion, session, history)

	assistantMsg := models.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: e.now(),
	}
	if err := e.store.AddMessage(assistantMsg); err != nil {
		slog.Warn("Failed to log assistant reply", "error", err, "userID", userID)
	}

	result := &models.TurnResult{
		Reply:        reply,
		Phase:        phase,
		Emotion:      emotion,
		Risk:         risk,
		RiskReasons:  reasons,
		Chaos:        chaosResult,
		Suggestions:  suggestions,
		UsedFallback: usedFallback,
		Timestamp:    now,
	}
	if phase == models.PhaseCrisis {
		result.SafetyNotice = scoring.SafetyNotice
	}

	slog.Debug("Turn processed", "userID", userID, "phase", phase.String(),
		"stress", risk.Stress, "burnout", risk.Burnout, "danger", risk.Danger,
		"chaos", chaosResult.Score, "fallback", usedFallback)
	return result, nil
}

// generateReply asks the LLM for a reply, falling back to a canned response
// per phase on any failure.
func (e *Engine) generateReply(ctx context.Context, profile *models.UserProfile, phase models.Phase, emotion models.EmotionRecord, session *SessionState, history []models.Message) (string, bool) {
	if e.genai == nil {
		return fallbackReply(phase), true
	}
	messages := buildPromptMessages(profile, phase, emotion, session.Trajectory(), session.Topics(), history)
	reply, err := e.genai.GenerateWithMessages(ctx, messages)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			slog.Warn("Reply generation failed, using fallback", "error", err, "phase", phase.String())
		}
		return fallbackReply(phase), true
	}
	return reply, false
}

// Predictions recomputes the current scores from the stored windows without
// logging a new turn.
func (e *Engine) Predictions(userID string) (models.RiskScores, models.RiskReasons, models.ChaosResult, models.Phase, error) {
	if userID == "" {
		return models.RiskScores{}, models.RiskReasons{}, models.ChaosResult{}, models.PhaseStable, models.ErrEmptyUserID
	}

	records, err := e.store.RecentEmotionRecords(userID, e.emotionWindow)
	if err != nil {
		return models.RiskScores{}, models.RiskReasons{}, models.ChaosResult{}, models.PhaseStable,
			fmt.Errorf("failed to load emotion window: %w", err)
	}
	history, err := e.store.RecentMessages(userID, e.historyWindow)
	if err != nil {
		return models.RiskScores{}, models.RiskReasons{}, models.ChaosResult{}, models.PhaseStable,
			fmt.Errorf("failed to load message history: %w", err)
	}
	profile, err := e.store.GetProfile(userID)
	if err != nil && !errors.Is(err, models.ErrProfileNotFound) {
		return models.RiskScores{}, models.RiskReasons{}, models.ChaosResult{}, models.PhaseStable,
			fmt.Errorf("failed to load profile: %w", err)
	}

	session := e.sessions.Get(userID)
	chaosResult := e.chaos.Score(history, records)
	risk, reasons := e.risk.ScoreSince(records, profile, session.DangerCutoff())
	return risk, reasons, chaosResult, session.Phase(), nil
}

// Suggestions returns the current ranked suggestions without logging a turn.
func (e *Engine) Suggestions(userID string, n int) ([]models.Suggestion, error) {
	risk, _, chaosResult, phase, err := e.Predictions(userID)
	if err != nil {
		return nil, err
	}
	profile, err := e.store.GetProfile(userID)
	if err != nil && !errors.Is(err, models.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return scoring.GenerateSuggestions(scoring.SuggestionInput{
		Phase:   phase,
		Risk:    risk,
		Chaos:   chaosResult.Score,
		Profile: profile,
		Prefs:   e.preferences(userID),
	}, n), nil
}

// RecordFeedback validates and stores one suggestion interaction.
func (e *Engine) RecordFeedback(entry models.FeedbackEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = e.now()
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return e.store.AddFeedback(entry)
}

// SaveProfile upserts the profile, stamping timestamps.
func (e *Engine) SaveProfile(profile models.UserProfile) error {
	if profile.UserID == "" {
		return models.ErrEmptyUserID
	}
	now := e.now()
	if existing, err := e.store.GetProfile(profile.UserID); err == nil {
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	return e.store.SaveProfile(profile)
}

// GetProfile returns the stored profile or models.ErrProfileNotFound.
func (e *Engine) GetProfile(userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}
	return e.store.GetProfile(userID)
}

// ResetSession clears the in-memory session state for the user. Persistent
// logs and the profile are unaffected.
func (e *Engine) ResetSession(userID string) {
	e.sessions.Reset(userID)
}

// preferences derives suggestion preferences from the stored feedback. A
// read failure just means no preference.
func (e *Engine) preferences(userID string) scoring.Preferences {
	entries, err := e.store.ListFeedback(userID)
	if err != nil {
		slog.Warn("Failed to load feedback for preferences", "error", err, "userID", userID)
		return scoring.Preferences{}
	}
	return preferencesFrom(entries)
}
