// Package store provides storage backends for ChaosSynth.
//
// It includes an in-memory store for tests and small deployments, plus
// SQLite and PostgreSQL backed stores for persistence. All backends keep the
// emotion log and message log append-only.
package store

import (
	"sort"
	"sync"

	"github.com/chaossynth/chaossynth/internal/models"
)

// Store is the persistence interface the rest of the system depends on.
type Store interface {
	// SaveProfile inserts or replaces the profile for profile.UserID.
	SaveProfile(profile models.UserProfile) error
	// GetProfile returns the stored profile or models.ErrProfileNotFound.
	GetProfile(userID string) (*models.UserProfile, error)

	// AddMessage appends one chat turn to the user's message log.
	AddMessage(msg models.Message) error
	// RecentMessages returns up to n most recent messages for the user in
	// chronological order.
	RecentMessages(userID string, n int) ([]models.Message, error)

	// AddEmotionRecord appends one record to the user's emotion log.
	AddEmotionRecord(rec models.EmotionRecord) error
	// RecentEmotionRecords returns up to n most recent emotion records for
	// the user in chronological order.
	RecentEmotionRecords(userID string, n int) ([]models.EmotionRecord, error)

	// AddFeedback appends one suggestion interaction.
	AddFeedback(entry models.FeedbackEntry) error
	// ListFeedback returns all feedback for the user in chronological order.
	ListFeedback(userID string) ([]models.FeedbackEntry, error)

	// Close releases the underlying resources.
	Close() error
}

// InMemoryStore keeps everything in process memory. Safe for concurrent use.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.UserProfile
	messages map[string][]models.Message
	emotions map[string][]models.EmotionRecord
	feedback map[string][]models.FeedbackEntry
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]models.UserProfile),
		messages: make(map[string][]models.Message),
		emotions: make(map[string][]models.EmotionRecord),
		feedback: make(map[string][]models.FeedbackEntry),
	}
}

func (s *InMemoryStore) SaveProfile(profile models.UserProfile) error {
	if profile.UserID == "" {
		return models.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *InMemoryStore) GetProfile(userID string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, models.ErrProfileNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) AddMessage(msg models.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.UserID] = append(s.messages[msg.UserID], msg)
	return nil
}

func (s *InMemoryStore) RecentMessages(userID string, n int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tailSorted(s.messages[userID], n, func(a, b models.Message) bool {
		return a.Timestamp.Before(b.Timestamp)
	}), nil
}

func (s *InMemoryStore) AddEmotionRecord(rec models.EmotionRecord) error {
	if rec.UserID == "" {
		return models.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emotions[rec.UserID] = append(s.emotions[rec.UserID], rec)
	return nil
}

func (s *InMemoryStore) RecentEmotionRecords(userID string, n int) ([]models.EmotionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tailSorted(s.emotions[userID], n, func(a, b models.EmotionRecord) bool {
		return a.Timestamp.Before(b.Timestamp)
	}), nil
}

func (s *InMemoryStore) AddFeedback(entry models.FeedbackEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[entry.UserID] = append(s.feedback[entry.UserID], entry)
	return nil
}

func (s *InMemoryStore) ListFeedback(userID string) ([]models.FeedbackEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FeedbackEntry, len(s.feedback[userID]))
	copy(out, s.feedback[userID])
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

// tailSorted returns a sorted copy of items trimmed to the most recent n.
// n <= 0 means no limit.
func tailSorted[T any](items []T, n int, before func(a, b T) bool) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return before(out[i], out[j]) })
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
