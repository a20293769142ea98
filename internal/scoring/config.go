// Package scoring implements the heuristic scoring pipeline: emotion
// analysis, conversational chaos, stress/burnout/danger prediction, the
// support-phase state machine, and deterministic suggestion generation.
//
// All scorers are pure: they take their full input explicitly, never touch
// storage or the network, and clamp rather than reject out-of-range values.
package scoring

// Config holds the tunable weights and thresholds for the scoring pipeline.
// Values are configuration, not hard-coded magic numbers, so they can be
// tuned and tested independently.
type Config struct {
	// Chaos scorer
	ChaosWindow           int     // user messages considered per evaluation
	TopicChangeSaturation float64 // topic changes that saturate volatility at 100
	LengthStddevScale     float64 // stddev (chars) that saturates length variance at 100
	ContradictionWeight   int     // points per detected contradiction
	ChaosTopicShare       float64 // weight of topic volatility in the final score
	ChaosContraShare      float64 // weight of contradictions in the final score
	ChaosLengthShare      float64 // weight of length variance in the final score

	// Stress predictor
	StressSeverityScale    float64 // multiplier for recency-weighted avg severity (0-10 -> 0-90)
	StressVolatilityWeight float64 // multiplier for severity stddev
	StressTagPenalty       int     // points per stress-tag occurrence
	StressStreakThreshold  float64 // severity that counts toward a high streak
	StressStreakLength     int     // consecutive high records that trigger the streak penalty
	StressStreakPenalty    int

	// Burnout predictor
	BurnoutTagRatioWeight int // points if every record carries a burnout tag
	BurnoutTrendPenalty   int // declining stability + rising severity across window halves
	BurnoutWorkloadBonus  int // workload keywords present in profile notes

	// Danger predictor
	DangerKeywordFloor   int     // floor when an explicit crisis keyword matches
	DangerSpikeFloor     int     // floor when any record spikes past the threshold
	DangerSpikeThreshold float64 // severity that counts as a spike
	DangerSpikeWeight    int     // additive points per spike
	DangerTagWeight      int     // additive points per hopelessness-tagged record
	RetractionSafeFloor  int     // danger value after a valid joke retraction
	RetractionLookback   int     // turns a danger trigger stays retractable

	// Phase thresholds
	CrisisDangerThreshold int // danger at or above this forces CRISIS
	HurtThreshold         int // stress/burnout/danger tier for HURT
	HurtChaosThreshold    int // chaos tier for HURT
	AtRiskThreshold       int // stress/burnout/danger/chaos tier for AT_RISK
	DeescalationTurns     int // consecutive qualifying turns required to step down

	// RecencyFloor is the weight given to the oldest record in the stress
	// window; newer records ramp linearly up to 1.0.
	RecencyFloor float64
}

// DefaultConfig returns the tuned default weights.
func DefaultConfig() Config {
	return Config{
		ChaosWindow:           5,
		TopicChangeSaturation: 3.0,
		LengthStddevScale:     50.0,
		ContradictionWeight:   40,
		ChaosTopicShare:       0.4,
		ChaosContraShare:      0.4,
		ChaosLengthShare:      0.2,

		StressSeverityScale:    9.0,
		StressVolatilityWeight: 10.0,
		StressTagPenalty:       5,
		StressStreakThreshold:  6.0,
		StressStreakLength:     3,
		StressStreakPenalty:    15,

		BurnoutTagRatioWeight: 50,
		BurnoutTrendPenalty:   20,
		BurnoutWorkloadBonus:  15,

		DangerKeywordFloor:   95,
		DangerSpikeFloor:     80,
		DangerSpikeThreshold: 8.0,
		DangerSpikeWeight:    20,
		DangerTagWeight:      15,
		RetractionSafeFloor:  20,
		RetractionLookback:   2,

		CrisisDangerThreshold: 80,
		HurtThreshold:         60,
		HurtChaosThreshold:    70,
		AtRiskThreshold:       40,
		DeescalationTurns:     3,

		RecencyFloor: 0.5,
	}
}

// clampScore clamps a float into the [0,100] integer score range.
func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

// clampSeverity clamps a value into the 0-10 severity scale.
func clampSeverity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
