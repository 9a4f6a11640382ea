package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alem-hub/buddy-match-hub/internal/application/command"
	"github.com/alem-hub/buddy-match-hub/internal/application/query"
	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/domain/support"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().Round(time.Second).String(),
		"version": s.config.Version,
	})
}

// handleReady handles the readiness endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// handleGetCatalog handles GET /api/v1/catalog.
func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.deps.GetCatalog.Handle())
}

// ══════════════════════════════════════════════════════════════════════════════
// HELP REQUESTS
// ══════════════════════════════════════════════════════════════════════════════

// RequestHelpRequest is the body of POST /help-requests.
type RequestHelpRequest struct {
	SubjectID      string                      `json:"subjectId"`
	Topic          string                      `json:"topic"`
	HelpType       support.HelpType            `json:"helpType"`
	Availability   []support.AvailabilityBlock `json:"availability"`
	Mood           *int                        `json:"mood"`
	MoodSkipped    bool                        `json:"moodSkipped"`
	DesiredBuddyID string                      `json:"desiredBuddyId"`
	SharedTraits   []string                    `json:"sharedTraits"`
}

// RequestHelpResponse is returned after intake.
type RequestHelpResponse struct {
	Request  *support.HelpRequest `json:"request"`
	Matches  matching.State       `json:"matches"`
	Degraded bool                 `json:"degraded"`
}

// handleRequestHelp handles POST /api/v1/supportees/{supporteeID}/help-requests.
func (s *Server) handleRequestHelp(w http.ResponseWriter, r *http.Request) {
	var body RequestHelpRequest
	if !s.decodeJSON(w, r, &body) {
		return
	}

	result, err := s.deps.RequestHelp.Handle(r.Context(), command.RequestHelpCommand{
		SupporteeID:    chi.URLParam(r, "supporteeID"),
		SubjectID:      body.SubjectID,
		Topic:          body.Topic,
		HelpType:       body.HelpType,
		Availability:   body.Availability,
		Mood:           body.Mood,
		MoodSkipped:    body.MoodSkipped,
		DesiredBuddyID: body.DesiredBuddyID,
		SharedTraits:   body.SharedTraits,
		CorrelationID:  middleware.GetReqID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, RequestHelpResponse{
		Request:  result.Request,
		Matches:  result.State,
		Degraded: result.Degraded,
	})
}

// handleListHelpRequests handles GET /api/v1/supportees/{supporteeID}/help-requests.
func (s *Server) handleListHelpRequests(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", "limit must be an integer")
		return
	}

	result, err := s.deps.GetHelpRequests.Handle(r.Context(), query.GetHelpRequestsQuery{
		SupporteeID: chi.URLParam(r, "supporteeID"),
		Status:      support.Status(r.URL.Query().Get("status")),
		Limit:       limit,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Requests, &ResponseMeta{TotalCount: result.Total})
}

// handleCancelHelpRequest handles POST /api/v1/supportees/{supporteeID}/help-requests/{requestID}/cancel.
func (s *Server) handleCancelHelpRequest(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.CancelHelpRequest.Handle(r.Context(), command.CancelHelpRequestCommand{
		SupporteeID: chi.URLParam(r, "supporteeID"),
		RequestID:   chi.URLParam(r, "requestID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result.Request)
}

// handleCompleteHelpRequest handles POST /api/v1/supportees/{supporteeID}/help-requests/{requestID}/complete.
func (s *Server) handleCompleteHelpRequest(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.CompleteHelpRequest.Handle(r.Context(), command.CompleteHelpRequestCommand{
		SupporteeID: chi.URLParam(r, "supporteeID"),
		RequestID:   chi.URLParam(r, "requestID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result.Request)
}

// ══════════════════════════════════════════════════════════════════════════════
// MATCHES
// ══════════════════════════════════════════════════════════════════════════════

// SeedMatchesRequest is the body of POST /matches.
type SeedMatchesRequest struct {
	Suggestions  []matching.Suggestion `json:"suggestions"`
	SubjectID    string                `json:"subjectId"`
	SubjectLabel string                `json:"subjectLabel"`
	SharedTraits []string              `json:"sharedTraits"`
	ClassLevels  []string              `json:"classLevels"`
}

// PreferenceRequest is the body of POST /matches/{matchID}/preference.
type PreferenceRequest struct {
	Preference matching.Preference `json:"preference"`
}

// PreferenceResponse is returned after a preference was applied.
type PreferenceResponse struct {
	Matches          matching.State   `json:"matches"`
	Selected         *matching.Option `json:"selected,omitempty"`
	MatchedRequestID string           `json:"matchedRequestId,omitempty"`
}

// handleGetMatches handles GET /api/v1/supportees/{supporteeID}/matches.
func (s *Server) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetMatchState.Handle(r.Context(), query.GetMatchStateQuery{
		SupporteeID: chi.URLParam(r, "supporteeID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto)
}

// handleSeedMatches handles POST /api/v1/supportees/{supporteeID}/matches.
func (s *Server) handleSeedMatches(w http.ResponseWriter, r *http.Request) {
	var body SeedMatchesRequest
	if !s.decodeJSON(w, r, &body) {
		return
	}

	result, err := s.deps.SeedMatches.Handle(r.Context(), command.SeedMatchesCommand{
		SupporteeID:  chi.URLParam(r, "supporteeID"),
		Suggestions:  body.Suggestions,
		SubjectID:    body.SubjectID,
		SubjectLabel: body.SubjectLabel,
		SharedTraits: body.SharedTraits,
		ClassLevels:  body.ClassLevels,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result.State)
}

// handleRespondToMatch handles POST /api/v1/supportees/{supporteeID}/matches/{matchID}/preference.
func (s *Server) handleRespondToMatch(w http.ResponseWriter, r *http.Request) {
	var body PreferenceRequest
	if !s.decodeJSON(w, r, &body) {
		return
	}

	result, err := s.deps.RespondToMatch.Handle(r.Context(), command.RespondToMatchCommand{
		SupporteeID: chi.URLParam(r, "supporteeID"),
		MatchID:     chi.URLParam(r, "matchID"),
		Preference:  body.Preference,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, PreferenceResponse{
		Matches:          result.State,
		Selected:         result.Selected,
		MatchedRequestID: result.MatchedRequestID,
	})
}

// handleRejectAll handles POST /api/v1/supportees/{supporteeID}/matches/reject-all.
func (s *Server) handleRejectAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.RejectAllMatches.Handle(r.Context(), command.RejectAllMatchesCommand{
		SupporteeID: chi.URLParam(r, "supporteeID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result.State)
}

// handleClearMatches handles DELETE /api/v1/supportees/{supporteeID}/matches.
func (s *Server) handleClearMatches(w http.ResponseWriter, r *http.Request) {
	err := s.deps.ClearMatches.Handle(r.Context(), command.ClearMatchesCommand{
		SupporteeID: chi.URLParam(r, "supporteeID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// COLLABORATORS
// ══════════════════════════════════════════════════════════════════════════════

// handleCoachNotifications handles GET /api/v1/supportees/{supporteeID}/coach-notifications.
func (s *Server) handleCoachNotifications(w http.ResponseWriter, r *http.Request) {
	if s.deps.CoachLog == nil {
		writeJSONError(w, r, http.StatusNotFound, "not_found", "coach log is not enabled")
		return
	}

	notes, err := s.deps.CoachLog.List(r.Context(), chi.URLParam(r, "supporteeID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, notes, &ResponseMeta{TotalCount: len(notes)})
}

// handleGetSession handles GET /api/v1/supportees/{supporteeID}/session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		writeJSONError(w, r, http.StatusNotFound, "not_found", "session scheduling is not enabled")
		return
	}

	proposal, err := s.deps.Sessions.Get(r.Context(), chi.URLParam(r, "supporteeID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if proposal == nil {
		writeJSONError(w, r, http.StatusNotFound, "not_found", "no session proposed yet")
		return
	}
	writeJSON(w, r, http.StatusOK, proposal)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON decodes the body into dst and writes a 400 on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSONError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "request body is too large")
		case errors.Is(err, io.EOF):
			writeJSONError(w, r, http.StatusBadRequest, "invalid_json", "request body is empty")
		default:
			writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", err.Error())
		}
		return false
	}
	return true
}

// queryInt extracts an integer query parameter with a default value.
func queryInt(r *http.Request, key string, defaultValue int) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}
