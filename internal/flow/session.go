package flow

import (
	"sync"
	"time"

	"github.com/chaossynth/chaossynth/internal/models"
	"github.com/chaossynth/chaossynth/internal/scoring"
)

// SessionState tracks the per-user conversational state that lives between
// turns but not between sessions: the phase machine, the turn counter, and
// the last turn that tripped a danger trigger (for retraction validation).
type SessionState struct {
	mu              sync.Mutex
	machine         *scoring.PhaseMachine
	turnCount       int
	lastDangerTurn  int
	dangerCutoff    time.Time
	recentPhases    []models.Phase
	recentTopics    []string
	maxPhaseHistory int
}

// Phase returns the current phase.
func (s *SessionState) Phase() models.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// TurnCount returns how many turns this session has processed.
func (s *SessionState) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnCount
}

// Trajectory returns the recent phase history, oldest first.
func (s *SessionState) Trajectory() []models.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Phase, len(s.recentPhases))
	copy(out, s.recentPhases)
	return out
}

// Topics returns the recent emotional topics of the session, oldest first.
func (s *SessionState) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.recentTopics))
	copy(out, s.recentTopics)
	return out
}

// beginTurn starts a new turn and reports whether a retraction signal in the
// incoming message validly walks back a recent danger trigger. A retraction
// only counts when a trigger happened within the lookback window; otherwise
// "just kidding" is an ordinary message.
func (s *SessionState) beginTurn(retractionSignal bool, lookback int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turnCount++
	valid := retractionSignal &&
		s.lastDangerTurn > 0 &&
		s.turnCount-s.lastDangerTurn <= lookback
	if valid {
		s.lastDangerTurn = 0
		// Records from before this turn stop feeding the danger scan, so
		// the retracted statement cannot re-trigger later. The retraction
		// message itself stamps this same timestamp and stays in scope, in
		// case it carries a fresh danger signal of its own.
		s.dangerCutoff = now
	}
	return valid
}

// DangerCutoff returns the timestamp of the last validated retraction, zero
// if none.
func (s *SessionState) DangerCutoff() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dangerCutoff
}

// advance runs the turn's final scores through the phase machine. The caller
// applies any retraction override to the scores before calling. dangerTrigger
// marks the current statement itself as a trigger, anchoring the retraction
// window to the turn it was said. topic is the turn's dominant emotion label.
func (s *SessionState) advance(risk models.RiskScores, chaos int, retracted bool, dangerTrigger bool, topic string) models.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dangerTrigger {
		s.lastDangerTurn = s.turnCount
	}
	phase := s.machine.Advance(risk, chaos, retracted)

	s.recentPhases = append(s.recentPhases, phase)
	if len(s.recentPhases) > s.maxPhaseHistory {
		s.recentPhases = s.recentPhases[len(s.recentPhases)-s.maxPhaseHistory:]
	}
	if topic != "" {
		s.recentTopics = append(s.recentTopics, topic)
		if len(s.recentTopics) > s.maxPhaseHistory {
			s.recentTopics = s.recentTopics[len(s.recentTopics)-s.maxPhaseHistory:]
		}
	}
	return phase
}

// reset returns the session to its initial state.
func (s *SessionState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machine.Reset()
	s.turnCount = 0
	s.lastDangerTurn = 0
	s.dangerCutoff = time.Time{}
	s.recentPhases = nil
	s.recentTopics = nil
}

// SessionManager hands out per-user session state.
type SessionManager struct {
	mu       sync.Mutex
	cfg      scoring.Config
	sessions map[string]*SessionState
}

// NewSessionManager creates an empty session manager.
func NewSessionManager(cfg scoring.Config) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		sessions: make(map[string]*SessionState),
	}
}

// Get returns the session for the user, creating it on first use.
func (m *SessionManager) Get(userID string) *SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = &SessionState{
			machine:         scoring.NewPhaseMachine(m.cfg),
			maxPhaseHistory: 20,
		}
		m.sessions[userID] = s
	}
	return s
}

// Reset clears the session for the user. The emotion log and profile are
// persistent and unaffected.
func (m *SessionManager) Reset(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if ok {
		s.reset()
	}
}
