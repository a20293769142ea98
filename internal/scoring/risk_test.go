package scoring

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/chaossynth/chaossynth/internal/models"
)

func record(offset time.Duration, text string, severity, stability float64, tags ...string) models.EmotionRecord {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return models.EmotionRecord{
		UserID:    "user-1",
		Timestamp: base.Add(offset),
		RawText:   text,
		Severity:  severity,
		Stability: stability,
		Tags:      tags,
	}
}

func TestRiskPredictorEmptyWindow(t *testing.T) {
	p := NewRiskPredictor(DefaultConfig())
	scores, reasons := p.Score(nil, nil)

	if scores.Stress != 0 || scores.Burnout != 0 || scores.Danger != 0 {
		t.Errorf("empty window must score zero, got %+v", scores)
	}
	if scores.Crisis {
		t.Error("empty window must not flag crisis")
	}
	if reasons.Danger != "No recent data." {
		t.Errorf("unexpected danger reason %q", reasons.Danger)
	}
}

func TestRiskPredictorDangerKeywordFloor(t *testing.T) {
	cfg := DefaultConfig()
	p := NewRiskPredictor(cfg)

	records := []models.EmotionRecord{
		record(0, "work was okay I guess", 3.0, 7.0),
		record(time.Minute, "honestly I want to die", 9.5, 1.0, "crisis"),
	}

	scores, reasons := p.Score(records, nil)
	if scores.Danger < cfg.DangerKeywordFloor {
		t.Errorf("explicit keyword must floor danger at %d, got %d", cfg.DangerKeywordFloor, scores.Danger)
	}
	if !scores.Crisis {
		t.Error("explicit keyword must flag crisis")
	}
	if !strings.Contains(reasons.Danger, "Explicit crisis keywords") {
		t.Errorf("unexpected danger reason %q", reasons.Danger)
	}
}

func TestRiskPredictorSpikeWithHopelessness(t *testing.T) {
	cfg := DefaultConfig()
	p := NewRiskPredictor(cfg)

	// Three severity-9 records tagged hopeless, no explicit keywords: the
	// spike floor plus additive hopelessness must reach crisis territory.
	records := []models.EmotionRecord{
		record(0, "everything is falling apart", 9.0, 1.0, "hopelessness"),
		record(time.Minute, "nothing ever gets better", 9.0, 1.0, "hopelessness"),
		record(2*time.Minute, "I cannot see a way forward", 9.0, 1.0, "hopelessness"),
	}

	scores, _ := p.Score(records, nil)
	if scores.Danger < cfg.DangerSpikeFloor {
		t.Errorf("severity spikes must floor danger at %d, got %d", cfg.DangerSpikeFloor, scores.Danger)
	}
	if !scores.Crisis {
		t.Error("sustained spikes with hopelessness must flag crisis")
	}
}

func TestRiskPredictorStressStreak(t *testing.T) {
	p := NewRiskPredictor(DefaultConfig())

	records := []models.EmotionRecord{
		record(0, "today was rough", 7.0, 4.0),
		record(time.Minute, "still rough", 7.0, 4.0),
		record(2*time.Minute, "no change", 7.0, 4.0),
	}

	scores, reasons := p.Score(records, nil)
	// avg 7.0 * 9 = 63, zero volatility, plus the sustained-streak penalty.
	if scores.Stress != 78 {
		t.Errorf("expected stress 78, got %d", scores.Stress)
	}
	if !strings.Contains(reasons.Stress, "persistent high intensity") {
		t.Errorf("unexpected stress reason %q", reasons.Stress)
	}
}

func TestRiskPredictorBurnout(t *testing.T) {
	p := NewRiskPredictor(DefaultConfig())
	profile := &models.UserProfile{PersonalNotes: "tight deadline at work this month"}

	records := []models.EmotionRecord{
		record(0, "long day", 4.0, 6.0, "fatigue"),
		record(time.Hour, "another long day", 4.0, 6.0, "fatigue"),
		record(2*time.Hour, "running on fumes", 6.0, 3.0, "fatigue"),
		record(3*time.Hour, "completely drained", 6.0, 3.0, "fatigue"),
	}

	scores, reasons := p.Score(records, profile)
	// Full tag ratio (50) + declining trend (20) + workload notes (15).
	if scores.Burnout != 85 {
		t.Errorf("expected burnout 85, got %d", scores.Burnout)
	}
	if !strings.Contains(reasons.Burnout, "exhaustion") {
		t.Errorf("unexpected burnout reason %q", reasons.Burnout)
	}
}

func TestRiskPredictorScoresInRange(t *testing.T) {
	p := NewRiskPredictor(DefaultConfig())

	var records []models.EmotionRecord
	for i := 0; i < 20; i++ {
		records = append(records, record(time.Duration(i)*time.Minute,
			"I want to die and everything is hopeless", 10.0, 0.0,
			"crisis", "hopelessness", "anxiety", "fatigue"))
	}

	scores, _ := p.Score(records, nil)
	for name, v := range map[string]int{"stress": scores.Stress, "burnout": scores.Burnout, "danger": scores.Danger} {
		if v < 0 || v > models.ScoreMax {
			t.Errorf("%s out of range: %d", name, v)
		}
	}
}

func TestRiskPredictorOrderIndependent(t *testing.T) {
	p := NewRiskPredictor(DefaultConfig())

	ordered := []models.EmotionRecord{
		record(0, "fine morning", 2.0, 8.0),
		record(time.Minute, "stressful afternoon", 7.0, 3.0, "stressed"),
		record(2*time.Minute, "rough evening", 8.5, 2.0, "hopelessness"),
	}
	shuffled := []models.EmotionRecord{ordered[2], ordered[0], ordered[1]}

	a, _ := p.Score(ordered, nil)
	b, _ := p.Score(shuffled, nil)
	if a != b {
		t.Errorf("scores must not depend on input order: %+v vs %+v", a, b)
	}
}

func FuzzRiskPredictorRange(f *testing.F) {
	f.Add("work was okay", "honestly I want to die", "hopeless", 3.0, 9.5)
	f.Add("", "", "", 0.0, 0.0)
	f.Add("so tired of deadlines", "empty and drained", "fatigue", -50.0, 1e9)

	p := NewRiskPredictor(DefaultConfig())
	f.Fuzz(func(t *testing.T, text1, text2, tag string, sev1, sev2 float64) {
		if math.IsNaN(sev1) || math.IsInf(sev1, 0) || math.IsNaN(sev2) || math.IsInf(sev2, 0) {
			t.Skip("severities are finite by construction")
		}

		records := []models.EmotionRecord{
			record(0, text1, sev1, 5.0),
			record(time.Minute, text2, sev2, 5.0, tag),
		}
		profile := &models.UserProfile{UserID: "user-1", PersonalNotes: text1}

		scores, reasons := p.Score(records, profile)
		for name, v := range map[string]int{"stress": scores.Stress, "burnout": scores.Burnout, "danger": scores.Danger} {
			if v < 0 || v > models.ScoreMax {
				t.Errorf("%s out of range for %q/%q: %d", name, text1, text2, v)
			}
		}
		if reasons.Stress == "" || reasons.Burnout == "" || reasons.Danger == "" {
			t.Error("reasons must never be empty")
		}
	})
}

func TestScoreSinceCutoffBoundary(t *testing.T) {
	cfg := DefaultConfig()
	p := NewRiskPredictor(cfg)
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	records := []models.EmotionRecord{
		record(0, "I want to kill myself", 9.5, 1.0, "crisis"),
		record(time.Minute, "just kidding, but I really want to end my life", 8.0, 2.0),
	}

	// Cutoff at the second record's timestamp: the first record is walked
	// back, but the retraction turn's own statement still scans.
	scores, _ := p.ScoreSince(records, nil, base.Add(time.Minute))
	if scores.Danger < cfg.DangerKeywordFloor || !scores.Crisis {
		t.Errorf("record at the cutoff must still feed the danger scan, got %+v", scores)
	}

	// Cutoff after both records: nothing left to scan.
	scores, _ = p.ScoreSince(records, nil, base.Add(2*time.Minute))
	if scores.Crisis || scores.Danger >= cfg.DangerSpikeFloor {
		t.Errorf("records before the cutoff must be excluded, got %+v", scores)
	}
}

func TestIsRetraction(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"haha I was just joking", true},
		{"sorry, just kidding about that", true},
		{"that was not serious, promise", true},
		{"false alarm, I'm okay", true},
		{"I mean it, I really do", false},
		{"things are genuinely bad", false},
	}

	for _, tc := range tests {
		if got := IsRetraction(tc.text); got != tc.want {
			t.Errorf("IsRetraction(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestRetractOverridesDanger(t *testing.T) {
	cfg := DefaultConfig()
	p := NewRiskPredictor(cfg)

	scores := models.RiskScores{Stress: 70, Burnout: 40, Danger: 95, Crisis: true}
	retracted, reason := p.Retract(scores)

	if retracted.Danger != cfg.RetractionSafeFloor {
		t.Errorf("expected danger %d after retraction, got %d", cfg.RetractionSafeFloor, retracted.Danger)
	}
	if retracted.Crisis {
		t.Error("retraction must clear the crisis flag")
	}
	if retracted.Stress != 70 || retracted.Burnout != 40 {
		t.Error("retraction must leave stress and burnout untouched")
	}
	if reason == "" {
		t.Error("retraction must explain itself")
	}
}

func TestIsDangerTrigger(t *testing.T) {
	cfg := DefaultConfig()
	p := NewRiskPredictor(cfg)

	if !p.IsDangerTrigger(models.RiskScores{Danger: cfg.DangerSpikeFloor}) {
		t.Error("danger at the spike floor must count as a trigger")
	}
	if !p.IsDangerTrigger(models.RiskScores{Danger: 10, Crisis: true}) {
		t.Error("crisis flag must count as a trigger")
	}
	if p.IsDangerTrigger(models.RiskScores{Danger: cfg.DangerSpikeFloor - 1}) {
		t.Error("danger below the spike floor without crisis must not trigger")
	}
}
