package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/chaossynth/chaossynth/internal/models"
)

// emotionGroups buckets fine-grained emotion tags into coarse dimensions used
// for topic-shift detection. Two consecutive messages whose base-emotion sets
// are disjoint, or whose polarity flips, count as a topic change.
var emotionGroups = map[string][]string{
	"positive":    {"joy", "happy", "happiness", "excited", "excitement", "love", "contentment", "anticipation", "trust", "pride", "relief", "hopeful"},
	"negative":    {"sad", "sadness", "anger", "angry", "anxiety", "anxious", "fear", "disgust", "shame", "guilt", "hopelessness", "hopeless", "fatigue", "crisis"},
	"high_energy": {"excited", "excitement", "anger", "angry", "joy", "panic", "surprise", "fear", "anxiety", "anxious"},
	"low_energy":  {"sad", "sadness", "fatigue", "tired", "bored", "calm", "contentment", "relief", "hopelessness"},
}

// positiveKeywords and negativeKeywords drive contradiction detection over
// raw message text.
var positiveKeywords = []string{"happy", "great", "amazing", "love", "excited", "wonderful", "fantastic", "joy", "good", "nice"}
var negativeKeywords = []string{"hate", "angry", "sad", "terrible", "awful", "depressed", "miserable", "empty", "numb", "bad", "worst"}

// ChaosScorer computes the 0-100 conversational volatility score from topic
// shifts, message-length variance, and contradictions.
type ChaosScorer struct {
	cfg Config
}

// NewChaosScorer creates a chaos scorer with the given configuration.
func NewChaosScorer(cfg Config) *ChaosScorer {
	return &ChaosScorer{cfg: cfg}
}

// Score computes the chaos score over the recent conversation window.
// Emotion records are matched to messages by timestamp to supply tags for
// topic-shift detection. Fewer than two user messages yields zero.
func (s *ChaosScorer) Score(history []models.Message, records []models.EmotionRecord) models.ChaosResult {
	userMsgs := recentUserMessages(history, s.cfg.ChaosWindow)
	if len(userMsgs) < 2 {
		return models.ChaosResult{Score: 0, Reason: "Not enough conversation data to determine chaos."}
	}

	topicVolatility := s.topicVolatility(userMsgs, records)
	lengthVariance := s.lengthVariance(userMsgs)
	contradiction := s.contradictionScore(userMsgs)

	final := clampScore(
		topicVolatility*s.cfg.ChaosTopicShare +
			contradiction*s.cfg.ChaosContraShare +
			lengthVariance*s.cfg.ChaosLengthShare)

	return models.ChaosResult{
		Score:  final,
		Reason: chaosReason(final, topicVolatility, contradiction, lengthVariance),
	}
}

// topicVolatility counts emotional topic shifts between consecutive user
// messages, normalized so that TopicChangeSaturation shifts saturate at 100.
// Records are matched to messages by timestamp (each turn stamps its message
// and emotion record with the same time), so repeated identical texts keep
// their own records.
func (s *ChaosScorer) topicVolatility(userMsgs []models.Message, records []models.EmotionRecord) float64 {
	recordsByTime := make(map[int64]models.EmotionRecord, len(records))
	for _, rec := range records {
		recordsByTime[rec.Timestamp.UnixNano()] = rec
	}

	changes := 0
	var prev map[string]bool
	for _, msg := range userMsgs {
		rec, ok := recordsByTime[msg.Timestamp.UnixNano()]
		if !ok {
			continue
		}
		current := baseEmotions(rec.Tags)
		if len(current) == 0 {
			continue
		}
		if len(prev) > 0 {
			if disjoint(prev, current) || polarityFlip(prev, current) {
				changes++
			}
		}
		prev = current
	}

	v := float64(changes) / s.cfg.TopicChangeSaturation * 100
	return math.Min(v, 100)
}

// lengthVariance measures how erratic message lengths are, scaled so a
// stddev of LengthStddevScale characters saturates at 100.
func (s *ChaosScorer) lengthVariance(userMsgs []models.Message) float64 {
	lengths := make([]float64, len(userMsgs))
	for i, m := range userMsgs {
		lengths[i] = float64(len(m.Content))
	}
	sd := stddev(lengths)
	return math.Min(sd/s.cfg.LengthStddevScale*100, 100)
}

// contradictionScore counts sentiment flips between consecutive user
// messages, with simple negation handling.
func (s *ChaosScorer) contradictionScore(userMsgs []models.Message) float64 {
	contradictions := 0
	prev := ""
	for _, msg := range userMsgs {
		sentiment := messageSentiment(msg.Content)
		if sentiment == "" {
			continue
		}
		if prev != "" && sentiment != prev {
			contradictions++
		}
		prev = sentiment
	}
	return math.Min(float64(contradictions*s.cfg.ContradictionWeight), 100)
}

// messageSentiment classifies a message as "positive", "negative", or ""
// (no signal), flipping polarity when a negation marker is present.
func messageSentiment(text string) string {
	t := strings.ToLower(text)
	negated := containsAny(t, negationMarkers)
	hasPositive := containsAny(t, positiveKeywords)
	hasNegative := containsAny(t, negativeKeywords)

	switch {
	case hasPositive && !negated:
		return "positive"
	case hasPositive && negated:
		return "negative"
	case hasNegative && !negated:
		return "negative"
	case hasNegative && negated:
		return "positive"
	default:
		return ""
	}
}

// baseEmotions maps fine-grained tags onto the coarse emotion dimensions.
func baseEmotions(tags []string) map[string]bool {
	out := make(map[string]bool)
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for group, members := range emotionGroups {
			for _, m := range members {
				if lower == m {
					out[group] = true
				}
			}
		}
	}
	return out
}

func disjoint(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return false
		}
	}
	return true
}

func polarityFlip(prev, current map[string]bool) bool {
	return (prev["positive"] && current["negative"]) || (prev["negative"] && current["positive"])
}

// chaosReason reports the score band and the dominant contributing factor.
func chaosReason(final int, topic, contra, length float64) string {
	dominant := "topic shifts"
	if contra > topic && contra >= length {
		dominant = "contradictions"
	} else if length > topic && length > contra {
		dominant = "erratic message lengths"
	}

	switch {
	case final > 70:
		return fmt.Sprintf("High conversational chaos detected, driven mostly by %s.", dominant)
	case final > 40:
		return fmt.Sprintf("Moderate conversational instability, driven mostly by %s.", dominant)
	default:
		return "Stable, coherent conversation."
	}
}

// recentUserMessages returns the last n user-authored messages in order.
func recentUserMessages(history []models.Message, n int) []models.Message {
	var user []models.Message
	for _, m := range history {
		if m.Role == models.RoleUser {
			user = append(user, m)
		}
	}
	if len(user) > n {
		user = user[len(user)-n:]
	}
	return user
}

// stddev computes the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
