package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/chaossynth/chaossynth/internal/flow"
	"github.com/chaossynth/chaossynth/internal/models"
	"github.com/chaossynth/chaossynth/internal/scoring"
	"github.com/chaossynth/chaossynth/internal/store"
	"github.com/chaossynth/chaossynth/internal/testutil"
)

// stubGenAI always answers with a fixed reply.
type stubGenAI struct {
	reply      string
	structured string
}

func (s *stubGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return s.reply, nil
}

func (s *stubGenAI) GenerateStructured(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schemaName string, schema map[string]interface{}) (string, error) {
	return s.structured, nil
}

func newTestHandler() http.Handler {
	stub := &stubGenAI{
		reply: "I'm listening.",
		structured: `{"traumas": [], "major_events": [], "fears": [],
			"long_term_goals": [{"text": "Wants to run a marathon next year", "confidence": 0.8}],
			"meaningful_hobbies": [], "notes": ""}`,
	}
	engine := flow.NewEngine(store.NewInMemoryStore(), stub, scoring.DefaultConfig())
	return NewServer(engine).Handler()
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler()
	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	testutil.AssertJSONResponse(t, rr, "ok")
}

func TestMessageEndpoint(t *testing.T) {
	handler := newTestHandler()
	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/api/message", map[string]string{
		"user_id": "user-1",
		"text":    "I had a long but okay day at work today",
	})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "message")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	result, ok := response["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected result object, got %+v", response)
	}
	if result["reply"] != "I'm listening." {
		t.Errorf("unexpected reply %v", result["reply"])
	}
	if result["phase"] != "STABLE" {
		t.Errorf("expected STABLE phase, got %v", result["phase"])
	}
	if _, ok := result["risk"]; !ok {
		t.Error("result must carry risk scores")
	}
}

func TestMessageEndpointCrisisCarriesSafetyNotice(t *testing.T) {
	handler := newTestHandler()
	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/api/message", map[string]string{
		"user_id": "user-1",
		"text":    "I want to die and nothing matters anymore",
	})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "crisis message")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	result := response["result"].(map[string]interface{})
	if result["phase"] != "CRISIS" {
		t.Fatalf("expected CRISIS phase, got %v", result["phase"])
	}
	notice, _ := result["safety_notice"].(string)
	if !strings.Contains(notice, "crisis hotline") {
		t.Errorf("expected safety notice, got %q", notice)
	}
}

func TestMessageEndpointRejectsBadInput(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/message", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "malformed JSON")

	req = testutil.CreateHTTPRequest(t, http.MethodPost, "/api/message", map[string]string{"text": "hello there"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "missing user_id")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestPredictionsEndpoint(t *testing.T) {
	handler := newTestHandler()

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/api/message", map[string]string{
		"user_id": "user-1",
		"text":    "I am exhausted and completely drained today",
	})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "setup message")

	req = testutil.CreateHTTPRequest(t, http.MethodGet, "/api/predictions?user_id=user-1", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "predictions")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	result := response["result"].(map[string]interface{})
	for _, key := range []string{"risk", "reasons", "chaos", "phase"} {
		if _, ok := result[key]; !ok {
			t.Errorf("predictions result missing %q", key)
		}
	}
}

func TestPredictionsEndpointRequiresUserID(t *testing.T) {
	handler := newTestHandler()
	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/api/predictions", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "predictions without user_id")
}

func TestSuggestionsEndpoint(t *testing.T) {
	handler := newTestHandler()

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/api/suggestions?user_id=user-1&count=2", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "suggestions")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	result, ok := response["result"].([]interface{})
	if !ok {
		t.Fatalf("expected suggestion list, got %+v", response["result"])
	}
	if len(result) > 2 {
		t.Errorf("expected at most 2 suggestions, got %d", len(result))
	}

	req = testutil.CreateHTTPRequest(t, http.MethodGet, "/api/suggestions?user_id=user-1&count=nope", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "invalid count")
}

func TestProfileRoundTrip(t *testing.T) {
	handler := newTestHandler()

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/api/profile", models.UserProfile{
		UserID:  "user-1",
		Name:    "Sam",
		Hobbies: []string{"music", "reading"},
	})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "save profile")
	testutil.AssertJSONResponse(t, rr, "recorded")

	req = testutil.CreateHTTPRequest(t, http.MethodGet, "/api/profile?user_id=user-1", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "get profile")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	result := response["result"].(map[string]interface{})
	if result["name"] != "Sam" {
		t.Errorf("unexpected profile %+v", result)
	}
}

func TestProfileNotFound(t *testing.T) {
	handler := newTestHandler()
	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/api/profile?user_id=ghost", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "missing profile")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestFeedbackEndpoint(t *testing.T) {
	handler := newTestHandler()

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/api/feedback", models.FeedbackEntry{
		UserID:       "user-1",
		SuggestionID: "sugg-1",
		Action:       models.FeedbackCompleted,
		Rating:       5,
		Category:     models.CategoryComfort,
		Difficulty:   models.DifficultyEasy,
	})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "feedback")
	testutil.AssertJSONResponse(t, rr, "recorded")

	req = testutil.CreateHTTPRequest(t, http.MethodPost, "/api/feedback", models.FeedbackEntry{
		UserID: "user-1",
	})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "invalid feedback")
}

func TestPredictionsEndpointWithAnalysis(t *testing.T) {
	handler := newTestHandler()

	for _, text := range []string{
		"work has been relentless lately",
		"I can barely keep my eyes open in meetings",
	} {
		req := testutil.CreateHTTPRequest(t, http.MethodPost, "/api/message", map[string]string{
			"user_id": "user-1",
			"text":    text,
		})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "setup message")
	}

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/api/predictions?user_id=user-1&analysis=1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "predictions with analysis")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	result := response["result"].(map[string]interface{})
	analysis, _ := result["analysis"].(string)
	if analysis == "" {
		t.Error("expected a non-empty analysis field")
	}

	// Without the flag the field stays out of the payload.
	req = testutil.CreateHTTPRequest(t, http.MethodGet, "/api/predictions?user_id=user-1", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	response = testutil.AssertJSONResponse(t, rr, "ok")
	result = response["result"].(map[string]interface{})
	if _, ok := result["analysis"]; ok {
		t.Error("analysis must be omitted unless requested")
	}
}

func TestMemoryConsolidateEndpoint(t *testing.T) {
	handler := newTestHandler()

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/api/profile", models.UserProfile{
		UserID: "user-1",
		Name:   "Sam",
	})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "save profile")

	req = testutil.CreateHTTPRequest(t, http.MethodPost, "/api/message", map[string]string{
		"user_id": "user-1",
		"text":    "training for a marathon is the one thing keeping me going",
	})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "setup message")

	req = testutil.CreateHTTPRequest(t, http.MethodPost, "/api/memory/consolidate", map[string]string{"user_id": "user-1"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "consolidate")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	result := response["result"].(map[string]interface{})
	added, ok := result["added"].([]interface{})
	if !ok || len(added) != 1 {
		t.Fatalf("expected one added memory, got %+v", result["added"])
	}
	fact := added[0].(map[string]interface{})
	if fact["type"] != "goal" {
		t.Errorf("unexpected memory type %v", fact["type"])
	}
}

func TestMemoryConsolidateEndpointRequiresProfile(t *testing.T) {
	handler := newTestHandler()
	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/api/memory/consolidate", map[string]string{"user_id": "ghost"})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "consolidate without profile")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestSessionResetEndpoint(t *testing.T) {
	handler := newTestHandler()

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/api/session/reset", map[string]string{"user_id": "user-1"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "session reset")
	testutil.AssertJSONResponse(t, rr, "recorded")

	req = testutil.CreateHTTPRequest(t, http.MethodPost, "/api/session/reset", map[string]string{})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "reset without user_id")
}
