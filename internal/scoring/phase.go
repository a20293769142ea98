package scoring

import (
	"github.com/chaossynth/chaossynth/internal/models"
)

// PhaseFromScores derives the support phase purely from the current scores:
// the highest tier whose threshold any score meets. Danger at or above the
// crisis threshold forces CRISIS regardless of the other scores.
func PhaseFromScores(risk models.RiskScores, chaos int, cfg Config) models.Phase {
	switch {
	case risk.Crisis || risk.Danger >= cfg.CrisisDangerThreshold:
		return models.PhaseCrisis
	case risk.Stress >= cfg.HurtThreshold || risk.Burnout >= cfg.HurtThreshold ||
		risk.Danger >= cfg.HurtThreshold || chaos >= cfg.HurtChaosThreshold:
		return models.PhaseHurt
	case risk.Stress >= cfg.AtRiskThreshold || risk.Burnout >= cfg.AtRiskThreshold ||
		risk.Danger >= cfg.AtRiskThreshold || chaos >= cfg.AtRiskThreshold:
		return models.PhaseAtRisk
	default:
		return models.PhaseStable
	}
}

// PhaseMachine tracks the phase across turns. Escalation is immediate;
// de-escalation requires either a valid retraction or DeescalationTurns
// consecutive turns scoring below the current tier (hysteresis, so the phase
// does not oscillate on a single good turn). Initial state is STABLE and
// there is no terminal state.
type PhaseMachine struct {
	cfg        Config
	current    models.Phase
	calmStreak int
}

// NewPhaseMachine creates a phase machine starting at STABLE.
func NewPhaseMachine(cfg Config) *PhaseMachine {
	return &PhaseMachine{cfg: cfg, current: models.PhaseStable}
}

// Current returns the phase as of the last Advance call.
func (m *PhaseMachine) Current() models.Phase {
	return m.current
}

// CalmStreak returns how many consecutive qualifying turns have accrued
// toward de-escalation.
func (m *PhaseMachine) CalmStreak() int {
	return m.calmStreak
}

// Advance feeds one turn of scores into the machine and returns the
// resulting phase. retraction marks a validated joke retraction, the only
// path that steps the phase down without the hysteresis window.
func (m *PhaseMachine) Advance(risk models.RiskScores, chaos int, retraction bool) models.Phase {
	target := PhaseFromScores(risk, chaos, m.cfg)

	if retraction {
		m.current = target
		m.calmStreak = 0
		return m.current
	}

	if target >= m.current {
		m.current = target
		m.calmStreak = 0
		return m.current
	}

	m.calmStreak++
	if m.calmStreak >= m.cfg.DeescalationTurns {
		m.current = target
		m.calmStreak = 0
	}
	return m.current
}

// Reset returns the machine to its initial STABLE state. Used at session
// boundaries.
func (m *PhaseMachine) Reset() {
	m.current = models.PhaseStable
	m.calmStreak = 0
}
