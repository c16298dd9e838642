package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nafiskhan/profilechat/pkg/agent"
	"github.com/nafiskhan/profilechat/pkg/chat"
	"github.com/nafiskhan/profilechat/pkg/store"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the reply to a chat turn.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Response  string `json:"response"`
}

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title,omitempty"`
}

// CleanupRequest is the body of POST /api/cleanup.
type CleanupRequest struct {
	RetentionDays int `json:"retention_days,omitempty"`
}

// ProfileUpdateRequest is the body of POST /api/profile.
type ProfileUpdateRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := s.chat.HandleTurn(r.Context(), chat.TurnRequest{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Message:   req.Message,
	})
	if err != nil {
		s.writeStoreError(w, err, "chat turn failed")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: resp.SessionID,
		UserID:    resp.UserID,
		Response:  resp.Reply,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	id, err := s.store.CreateSession(r.Context(), req.UserID, req.Title)
	if err != nil {
		s.writeStoreError(w, err, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	history, err := s.store.FullHistory(r.Context(), sessionID)
	if err != nil {
		s.writeStoreError(w, err, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"history":    history,
	})
}

func (s *Server) handleUserSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	sessions, err := s.store.ListRecentSessions(r.Context(), userID, limit)
	if err != nil {
		s.writeStoreError(w, err, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"sessions": sessions,
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	req := CleanupRequest{RetentionDays: s.options.RetentionDays}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.RetentionDays <= 0 {
		writeError(w, http.StatusBadRequest, "retention_days must be positive")
		return
	}

	deleted, err := s.store.PurgeStale(r.Context(), req.RetentionDays)
	if err != nil {
		s.writeStoreError(w, err, "cleanup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions_deleted": deleted,
		"retention_days":   req.RetentionDays,
	})
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	if s.profile == nil {
		writeError(w, http.StatusNotFound, "profile updates are disabled")
		return
	}

	var req ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	if err := s.profile.Update(req.Content); err != nil {
		s.logger.Error().Err(err).Msg("Failed to update profile")
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	preview := req.Content
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "profile updated",
		"preview": preview,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleAPIInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name": "profilechat",
		"endpoints": map[string]string{
			"POST /api/chat":                 "send a message, get a reply",
			"POST /api/sessions":             "create a session",
			"GET /api/sessions/{id}/history": "full transcript of a session",
			"GET /api/users/{id}/sessions":   "recent sessions for a user",
			"POST /api/cleanup":              "purge sessions past retention",
			"POST /api/profile":              "replace the profile document",
			"GET /health":                    "health check",
			"GET /metrics":                   "prometheus metrics",
		},
	})
}

// writeStoreError maps store and provider errors onto HTTP statuses
// without leaking internal detail.
func (s *Server) writeStoreError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, agent.ErrUpstream):
		s.logger.Error().Err(err).Msg(logMsg)
		writeError(w, http.StatusBadGateway, "completion service unavailable")
	default:
		s.logger.Error().Err(err).Msg(logMsg)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
