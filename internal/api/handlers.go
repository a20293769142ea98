// Package api provides HTTP handlers for ChaosSynth endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/chaossynth/chaossynth/internal/genai"
	"github.com/chaossynth/chaossynth/internal/models"
)

// messageRequest is the body of POST /api/message.
type messageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// predictionsResponse is the result payload of GET /api/predictions.
type predictionsResponse struct {
	Risk     models.RiskScores  `json:"risk"`
	Reasons  models.RiskReasons `json:"reasons"`
	Chaos    models.ChaosResult `json:"chaos"`
	Phase    models.Phase       `json:"phase"`
	Analysis string             `json:"analysis,omitempty"`
}

// userIDRequest is the body of endpoints that only address a user, like
// POST /api/session/reset and POST /api/memory/consolidate.
type userIDRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.messageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	result, err := s.engine.ProcessMessage(r.Context(), req.UserID, req.Text)
	if err != nil {
		slog.Warn("Server.messageHandler: turn failed", "error", err, "userID", req.UserID)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) predictionsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	risk, reasons, chaosResult, phase, err := s.engine.Predictions(userID)
	if err != nil {
		slog.Warn("Server.predictionsHandler: failed", "error", err, "userID", userID)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}

	resp := predictionsResponse{
		Risk:    risk,
		Reasons: reasons,
		Chaos:   chaosResult,
		Phase:   phase,
	}
	if wantAnalysis(r.URL.Query().Get("analysis")) {
		analysis, err := s.engine.PredictiveAnalysis(r.Context(), userID)
		if err != nil {
			slog.Warn("Server.predictionsHandler: analysis failed", "error", err, "userID", userID)
			writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
			return
		}
		resp.Analysis = analysis
	}
	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}

// wantAnalysis interprets the optional analysis query flag.
func wantAnalysis(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func (s *Server) consolidateMemoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var req userIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.consolidateMemoryHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	result, err := s.engine.ConsolidateMemory(r.Context(), req.UserID)
	if err != nil {
		slog.Warn("Server.consolidateMemoryHandler: failed", "error", err, "userID", req.UserID)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) suggestionsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("count must be a non-negative integer"))
			return
		}
		count = n
	}

	suggestions, err := s.engine.Suggestions(userID, count)
	if err != nil {
		slog.Warn("Server.suggestionsHandler: failed", "error", err, "userID", userID)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(suggestions))
}

func (s *Server) saveProfileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var profile models.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		slog.Warn("Server.saveProfileHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if err := s.engine.SaveProfile(profile); err != nil {
		slog.Warn("Server.saveProfileHandler: failed", "error", err, "userID", profile.UserID)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Recorded())
}

func (s *Server) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	profile, err := s.engine.GetProfile(userID)
	if err != nil {
		slog.Warn("Server.getProfileHandler: failed", "error", err, "userID", userID)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}

func (s *Server) feedbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var entry models.FeedbackEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		slog.Warn("Server.feedbackHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if err := s.engine.RecordFeedback(entry); err != nil {
		slog.Warn("Server.feedbackHandler: failed", "error", err, "userID", entry.UserID)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Recorded())
}

func (s *Server) resetSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var req userIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.resetSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.UserID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptyUserID.Error()))
		return
	}

	s.engine.ResetSession(req.UserID)
	writeJSONResponse(w, http.StatusOK, models.RecordedWithMessage("session reset"))
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, genai.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrEmptyUserID),
		errors.Is(err, models.ErrEmptyMessage),
		errors.Is(err, models.ErrMessageTooLong),
		errors.Is(err, models.ErrInvalidRole),
		errors.Is(err, models.ErrInvalidAction),
		errors.Is(err, models.ErrInvalidRating),
		errors.Is(err, models.ErrEmptySuggestionID),
		errors.Is(err, models.ErrInvalidDifficulty),
		errors.Is(err, models.ErrInvalidCategory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
