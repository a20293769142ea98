// Package models defines the core data structures for ChaosSynth.
//
// It includes message, emotion, scoring, and suggestion types shared across modules.
package models

import (
	"errors"
	"time"
)

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	// RoleUser marks a message authored by the participant.
	RoleUser MessageRole = "user"
	// RoleAssistant marks a message authored by the system.
	RoleAssistant MessageRole = "assistant"
)

// Validation constants for input validation
const (
	// MaxMessageLength defines the maximum allowed length for an incoming message
	MaxMessageLength = 4096
	// MaxSuggestionTextLength defines the maximum allowed length for suggestion text
	MaxSuggestionTextLength = 300
	// MaxSuggestionReasonLength defines the maximum allowed length for suggestion reasons
	MaxSuggestionReasonLength = 200
	// SeverityMax is the upper bound of the emotion severity scale
	SeverityMax = 10.0
	// ScoreMax is the upper bound for all 0-100 risk and chaos scores
	ScoreMax = 100
)

// Error variables for better error handling and testability
var (
	ErrEmptyUserID       = errors.New("user_id cannot be empty")
	ErrEmptyMessage      = errors.New("message text cannot be empty")
	ErrMessageTooLong    = errors.New("message text exceeds maximum length")
	ErrInvalidRole       = errors.New("invalid message role")
	ErrInvalidAction     = errors.New("invalid feedback action")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrInvalidSuggestion = errors.New("suggestion is missing required fields")
	ErrInvalidPhase      = errors.New("invalid phase")
	ErrInvalidDifficulty = errors.New("invalid suggestion difficulty")
	ErrInvalidCategory   = errors.New("invalid suggestion category")
	ErrEmptySuggestionID = errors.New("suggestion_id cannot be empty")
)

// Message is a single chat turn. Immutable once logged.
type Message struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Validate checks a message before it is logged.
func (m *Message) Validate() error {
	if m.UserID == "" {
		return ErrEmptyUserID
	}
	if m.Content == "" {
		return ErrEmptyMessage
	}
	if len(m.Content) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return ErrInvalidRole
	}
	return nil
}

// EmotionRecord is one entry in a user's append-only emotion log.
// Records are never mutated after creation.
type EmotionRecord struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	RawText   string    `json:"raw_text"`
	Label     string    `json:"label"`
	Severity  float64   `json:"severity"`  // 0-10, clamped
	Stability float64   `json:"stability"` // 0-10, clamped; 10 = very stable
	Tags      []string  `json:"tags,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}

// HasTag reports whether the record carries the given tag. Tags are stored lowercase.
func (r *EmotionRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RiskScores holds the derived stress/burnout/danger scores for one
// evaluation. Each is clamped to [0,100]. Recomputed every turn; cached
// only, never authoritative.
type RiskScores struct {
	Stress  int  `json:"stress"`
	Burnout int  `json:"burnout"`
	Danger  int  `json:"danger"`
	Crisis  bool `json:"crisis"` // explicit crisis signal (keyword or floor breach)
}

// RiskReasons carries the human-readable explanation per score.
type RiskReasons struct {
	Stress  string `json:"stress"`
	Burnout string `json:"burnout"`
	Danger  string `json:"danger"`
}

// ChaosResult is the conversation volatility score plus the dominant-factor reason.
type ChaosResult struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Phase is the coarse support-urgency tier. Ordered by severity.
type Phase int

const (
	PhaseStable Phase = iota
	PhaseAtRisk
	PhaseHurt
	PhaseCrisis
)

// phaseNames maps Phase values to their wire representation.
var phaseNames = map[Phase]string{
	PhaseStable: "STABLE",
	PhaseAtRisk: "AT_RISK",
	PhaseHurt:   "HURT",
	PhaseCrisis: "CRISIS",
}

// String returns the canonical name for the phase.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "STABLE"
}

// MarshalText implements encoding.TextMarshaler so Phase serializes by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	s := string(b)
	for phase, name := range phaseNames {
		if name == s {
			*p = phase
			return nil
		}
	}
	return ErrInvalidPhase
}

// UserProfile holds the profile data for a user. Read-only for scoring.
type UserProfile struct {
	UserID            string       `json:"user_id"`
	Name              string       `json:"name,omitempty"`
	Age               int          `json:"age,omitempty"`
	Hobbies           []string     `json:"hobbies,omitempty"`
	Likes             []string     `json:"likes,omitempty"`
	Dislikes          []string     `json:"dislikes,omitempty"`
	Goals             []string     `json:"goals,omitempty"`
	Fears             []string     `json:"fears,omitempty"`
	PersonalNotes     string       `json:"personal_notes,omitempty"`
	PersonalityTraits []string     `json:"personality_traits,omitempty"`
	Memories          []MemoryFact `json:"memories,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// MemoryFact is a durable, identity-level fact consolidated from chat
// history: a trauma, major event, fear, long-term goal, or meaningful hobby.
type MemoryFact struct {
	Type       string    `json:"type"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConsolidationResult summarizes one memory consolidation pass.
type ConsolidationResult struct {
	Added   []MemoryFact    `json:"added"`
	Skipped []SkippedMemory `json:"skipped"`
}

// SkippedMemory records an extracted item that was not stored and why.
type SkippedMemory struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// SuggestionDifficulty grades how demanding a suggestion is.
type SuggestionDifficulty string

const (
	DifficultyVeryEasy SuggestionDifficulty = "very_easy"
	DifficultyEasy     SuggestionDifficulty = "easy"
	DifficultyMedium   SuggestionDifficulty = "medium"
	DifficultyHard     SuggestionDifficulty = "hard"
)

// IsValidDifficulty checks if the given difficulty is supported.
func IsValidDifficulty(d SuggestionDifficulty) bool {
	switch d {
	case DifficultyVeryEasy, DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// SuggestionCategory groups suggestions by activity type.
type SuggestionCategory string

const (
	CategoryComfort    SuggestionCategory = "comfort"
	CategoryCreative   SuggestionCategory = "creative"
	CategoryPhysical   SuggestionCategory = "physical"
	CategorySocial     SuggestionCategory = "social"
	CategoryReflective SuggestionCategory = "reflective"
	CategoryCrisis     SuggestionCategory = "crisis"
)

// IsValidCategory checks if the given category is supported.
func IsValidCategory(c SuggestionCategory) bool {
	switch c {
	case CategoryComfort, CategoryCreative, CategoryPhysical, CategorySocial, CategoryReflective, CategoryCrisis:
		return true
	default:
		return false
	}
}

// Suggestion is one ranked recommendation returned to the UI layer.
type Suggestion struct {
	ID               string               `json:"id"`
	Text             string               `json:"text"`
	Reason           string               `json:"reason"`
	PermissionPrompt string               `json:"permission_prompt,omitempty"`
	Difficulty       SuggestionDifficulty `json:"difficulty"`
	Category         SuggestionCategory   `json:"category"`
	TiedTo           string               `json:"tied_to,omitempty"` // stress, burnout, danger, chaos, or profile
}

// Validate checks that a suggestion satisfies the schema and length rules.
func (s *Suggestion) Validate() error {
	if s.Text == "" || s.Reason == "" {
		return ErrInvalidSuggestion
	}
	if len(s.Text) > MaxSuggestionTextLength || len(s.Reason) > MaxSuggestionReasonLength {
		return ErrInvalidSuggestion
	}
	if !IsValidDifficulty(s.Difficulty) {
		return ErrInvalidDifficulty
	}
	if !IsValidCategory(s.Category) {
		return ErrInvalidCategory
	}
	return nil
}

// FeedbackAction enumerates how a user responded to a suggestion.
type FeedbackAction string

const (
	FeedbackAccepted  FeedbackAction = "accepted"
	FeedbackRejected  FeedbackAction = "rejected"
	FeedbackCompleted FeedbackAction = "completed"
	FeedbackDismissed FeedbackAction = "dismissed"
)

// IsValidFeedbackAction checks if the given action is supported.
func IsValidFeedbackAction(a FeedbackAction) bool {
	switch a {
	case FeedbackAccepted, FeedbackRejected, FeedbackCompleted, FeedbackDismissed:
		return true
	default:
		return false
	}
}

// FeedbackEntry records one interaction with a suggestion.
type FeedbackEntry struct {
	UserID       string               `json:"user_id"`
	SuggestionID string               `json:"suggestion_id"`
	Action       FeedbackAction       `json:"action"`
	Rating       int                  `json:"rating,omitempty"` // 1-5, only for completed
	Category     SuggestionCategory   `json:"category,omitempty"`
	Difficulty   SuggestionDifficulty `json:"difficulty,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
}

// Validate checks a feedback entry before it is recorded.
func (f *FeedbackEntry) Validate() error {
	if f.UserID == "" {
		return ErrEmptyUserID
	}
	if f.SuggestionID == "" {
		return ErrEmptySuggestionID
	}
	if !IsValidFeedbackAction(f.Action) {
		return ErrInvalidAction
	}
	if f.Rating != 0 && (f.Rating < 1 || f.Rating > 5) {
		return ErrInvalidRating
	}
	return nil
}

// TurnResult is the single structured response produced for each incoming
// message: scores, phase, reason strings, and ranked suggestions.
type TurnResult struct {
	Reply        string        `json:"reply"`
	Phase        Phase         `json:"phase"`
	Emotion      EmotionRecord `json:"emotion"`
	Risk         RiskScores    `json:"risk"`
	RiskReasons  RiskReasons   `json:"risk_reasons"`
	Chaos        ChaosResult   `json:"chaos"`
	Suggestions  []Suggestion  `json:"suggestions,omitempty"`
	SafetyNotice string        `json:"safety_notice,omitempty"`
	UsedFallback bool          `json:"used_fallback"`
	Timestamp    time.Time     `json:"timestamp"`
}
