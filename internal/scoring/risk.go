package scoring

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chaossynth/chaossynth/internal/models"
)

// dangerKeywords is the fixed crisis-term list. A match in message text or
// tags floors the danger score immediately.
var dangerKeywords = []string{
	"suicide", "suicidal", "kill myself", "hurt myself", "end it all",
	"end my life", "want to die", "better off dead", "self-harm", "self harm",
	"overdose", "substance abuse", "drugs", "pills",
}

// hopelessTags contribute additively to danger and stress.
var hopelessTags = []string{"hopeless", "hopelessness", "despair", "worthless", "trapped"}

// stressTags are the negative tags that add to the stress score.
var stressTags = []string{"anxious", "anxiety", "stressed", "overwhelmed", "panic", "worry"}

// burnoutTags mark exhaustion signals for the burnout ratio.
var burnoutTags = []string{"tired", "exhausted", "drained", "burnout", "fatigue", "empty"}

// workloadKeywords in profile notes bump the burnout score.
var workloadKeywords = []string{"work", "job", "deadline", "busy", "overworked", "study", "school"}

// retractionMarkers signal the user is walking back a previous statement.
var retractionMarkers = []string{
	"joking", "just a joke", "kidding", "not serious", "wasn't serious",
	"prank", "false alarm", "didn't mean it", "didnt mean it",
}

// RiskPredictor computes stress, burnout, and danger scores from the emotion
// log window plus the current message text. Pure and deterministic.
type RiskPredictor struct {
	cfg Config
}

// NewRiskPredictor creates a risk predictor with the given configuration.
func NewRiskPredictor(cfg Config) *RiskPredictor {
	return &RiskPredictor{cfg: cfg}
}

// Score evaluates the bounded lookback window of emotion records. Profile is
// optional and only consulted for workload hints. An empty window yields
// zero scores rather than an error.
func (p *RiskPredictor) Score(records []models.EmotionRecord, profile *models.UserProfile) (models.RiskScores, models.RiskReasons) {
	return p.ScoreSince(records, profile, time.Time{})
}

// ScoreSince is Score with a danger cutoff: records strictly before
// dangerSince are excluded from the danger scan. Set to the retraction
// turn's timestamp after a validated retraction, so the walked-back
// statement cannot re-trigger on later turns while the retraction message's
// own text still feeds every scan. A message that retracts and raises a
// fresh danger signal in the same breath keeps flagging. Stress and burnout
// always see the full window.
func (p *RiskPredictor) ScoreSince(records []models.EmotionRecord, profile *models.UserProfile, dangerSince time.Time) (models.RiskScores, models.RiskReasons) {
	if len(records) == 0 {
		return models.RiskScores{}, models.RiskReasons{
			Stress:  "No recent data.",
			Burnout: "No recent data.",
			Danger:  "No recent data.",
		}
	}

	ordered := make([]models.EmotionRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var scores models.RiskScores
	var reasons models.RiskReasons
	scores.Stress, reasons.Stress = p.stress(ordered)
	scores.Burnout, reasons.Burnout = p.burnout(ordered, profile)
	scores.Danger, scores.Crisis, reasons.Danger = p.danger(ordered, dangerSince)

	// Hopelessness bleeds into stress as well (step 3 of the pipeline).
	hopeless := countTagged(ordered, hopelessTags)
	if hopeless > 0 {
		scores.Stress = clampScore(float64(scores.Stress + hopeless*p.cfg.DangerTagWeight))
	}

	return scores, reasons
}

// stress aggregates severities over the window: recency-weighted average,
// volatility, negative-tag frequency, and a sustained-high-severity streak.
func (p *RiskPredictor) stress(records []models.EmotionRecord) (int, string) {
	n := len(records)

	// Recency-weighted average severity: oldest record weighted RecencyFloor,
	// newest weighted 1.0, linear ramp in between.
	var weightedSum, weightTotal float64
	severities := make([]float64, n)
	for i, rec := range records {
		sev := clampSeverity(rec.Severity)
		severities[i] = sev
		w := 1.0
		if n > 1 {
			w = p.cfg.RecencyFloor + (1.0-p.cfg.RecencyFloor)*float64(i)/float64(n-1)
		}
		weightedSum += sev * w
		weightTotal += w
	}
	avg := weightedSum / weightTotal
	score := avg * p.cfg.StressSeverityScale

	score += stddev(severities) * p.cfg.StressVolatilityWeight

	tagCount := countTagged(records, stressTags)
	score += float64(tagCount * p.cfg.StressTagPenalty)

	streak, maxStreak := 0, 0
	for _, sev := range severities {
		if sev >= p.cfg.StressStreakThreshold {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 0
		}
	}
	sustained := maxStreak >= p.cfg.StressStreakLength
	if sustained {
		score += float64(p.cfg.StressStreakPenalty)
	}

	reason := fmt.Sprintf("Based on average severity of %.1f/10", avg)
	switch {
	case sustained:
		reason += " and persistent high intensity."
	case tagCount > 2:
		reason += " and frequent stress indicators."
	default:
		reason += "."
	}
	return clampScore(score), reason
}

// burnout combines the exhaustion-tag ratio, a declining-stability trend
// across window halves, and workload hints from the profile notes.
func (p *RiskPredictor) burnout(records []models.EmotionRecord, profile *models.UserProfile) (int, string) {
	var score float64

	tagged := 0
	for _, rec := range records {
		for _, tag := range burnoutTags {
			if rec.HasTag(tag) {
				tagged++
				break
			}
		}
	}
	score += float64(tagged) / float64(len(records)) * float64(p.cfg.BurnoutTagRatioWeight)

	if mid := len(records) / 2; mid > 0 {
		first, second := records[:mid], records[mid:]
		if meanStability(second) < meanStability(first) && meanSeverity(second) > meanSeverity(first) {
			score += float64(p.cfg.BurnoutTrendPenalty)
		}
	}

	if profile != nil && containsAny(strings.ToLower(profile.PersonalNotes), workloadKeywords) {
		score += float64(p.cfg.BurnoutWorkloadBonus)
	}

	final := clampScore(score)
	reason := "Analysis of energy levels and stability trends."
	if final > 60 {
		reason = "High indicators of exhaustion and declining stability detected."
	} else if final > 30 {
		reason = "Moderate signs of fatigue observed."
	}
	return final, reason
}

// danger runs the ordered pipeline: explicit keyword floor, severity-spike
// floor, then additive hopelessness contribution. Each step may raise the
// score but never lower it. Records strictly before dangerSince are skipped.
func (p *RiskPredictor) danger(records []models.EmotionRecord, dangerSince time.Time) (int, bool, string) {
	var score float64
	floor := 0
	keywordHit := false

	spikes := 0
	hopeless := 0
	for _, rec := range records {
		if !dangerSince.IsZero() && rec.Timestamp.Before(dangerSince) {
			continue
		}
		text := strings.ToLower(rec.RawText)
		if containsAny(text, dangerKeywords) || tagMatches(rec.Tags, dangerKeywords) {
			keywordHit = true
		}
		if clampSeverity(rec.Severity) >= p.cfg.DangerSpikeThreshold {
			spikes++
		}
		for _, tag := range hopelessTags {
			if rec.HasTag(tag) {
				hopeless++
				break
			}
		}
	}

	if keywordHit {
		floor = p.cfg.DangerKeywordFloor
	} else if spikes > 0 {
		floor = p.cfg.DangerSpikeFloor
	}

	score += float64(spikes * p.cfg.DangerSpikeWeight)
	score += float64(hopeless * p.cfg.DangerTagWeight)

	final := clampScore(score)
	if final < floor {
		final = floor
	}

	crisis := keywordHit || final >= p.cfg.CrisisDangerThreshold
	reason := "No immediate risks detected."
	switch {
	case keywordHit:
		reason = "Explicit crisis keywords detected in recent messages."
	case crisis:
		reason = "Critical levels of distress and hopelessness detected."
	case final > 40:
		reason = "Concerning spikes in severity and negative outlook."
	}
	return final, crisis, reason
}

// IsDangerTrigger reports whether scores constitute a danger trigger that a
// later retraction may walk back.
func (p *RiskPredictor) IsDangerTrigger(scores models.RiskScores) bool {
	return scores.Crisis || scores.Danger >= p.cfg.DangerSpikeFloor
}

// IsTriggerRecord reports whether a single emotion record is itself a danger
// trigger: an explicit keyword or a severity spike. The retraction window is
// anchored to the turn the triggering statement was made.
func (p *RiskPredictor) IsTriggerRecord(rec models.EmotionRecord) bool {
	if containsAny(strings.ToLower(rec.RawText), dangerKeywords) || tagMatches(rec.Tags, dangerKeywords) {
		return true
	}
	return clampSeverity(rec.Severity) >= p.cfg.DangerSpikeThreshold
}

// IsRetraction reports whether the message contains an explicit retraction
// marker ("joking", "kidding", "not serious", ...).
func IsRetraction(text string) bool {
	return containsAny(strings.ToLower(text), retractionMarkers)
}

// Retract overrides the danger score down to the safe floor. Callers must
// verify the trigger happened within the configured lookback; this is the
// only path allowed to lower the phase without a cooldown.
func (p *RiskPredictor) Retract(scores models.RiskScores) (models.RiskScores, string) {
	scores.Danger = p.cfg.RetractionSafeFloor
	scores.Crisis = false
	return scores, "User retracted the earlier statement (stated it was a joke)."
}

func countTagged(records []models.EmotionRecord, tags []string) int {
	n := 0
	for _, rec := range records {
		for _, tag := range tags {
			if rec.HasTag(tag) {
				n++
				break
			}
		}
	}
	return n
}

func tagMatches(tags, needles []string) bool {
	for _, t := range tags {
		lower := strings.ToLower(t)
		for _, n := range needles {
			if lower == n {
				return true
			}
		}
	}
	return false
}

func meanSeverity(records []models.EmotionRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += clampSeverity(r.Severity)
	}
	return sum / float64(len(records))
}

func meanStability(records []models.EmotionRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += clampSeverity(r.Stability)
	}
	return sum / float64(len(records))
}
