package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/navmatch/internal/models"
)

const internalErrorMessage = "internal server error"

// handleChat resolves a chat message to its canonical question. The message is
// upper-cased before matching; when nothing matches, the upper-cased message is
// passed through as the resolved text.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	query := strings.ToUpper(req.Message)
	res, err := s.matcher.Evaluate(r.Context(), query)
	if err != nil {
		s.logger.Error("chat match failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		s.respondError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	resp := models.ChatResponse{Query: query, Matched: res.Matched, Match: res.Question, Resolved: query}
	if res.Matched {
		resp.Resolved = res.Question
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req models.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.maxCandidates); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("match request", zap.String("query", req.Query), zap.Int("limit", req.Limit))
	ctx := r.Context()
	res, err := s.matcher.Evaluate(ctx, req.Query)
	if err != nil {
		s.logger.Error("match failed", zap.String("request_id", middleware.GetReqID(ctx)), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	resp := models.MatchResponse{MatchResult: *res}
	if req.Limit > 0 {
		resp.Candidates, err = s.matcher.Candidates(ctx, req.Query, req.Limit)
		if err != nil {
			s.logger.Error("candidates failed", zap.String("request_id", middleware.GetReqID(ctx)), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, internalErrorMessage)
			return
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := s.matcher.Questions(r.Context())
	if err != nil {
		s.logger.Error("list questions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"questions": qs, "count": len(qs)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
