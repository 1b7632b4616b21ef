package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/kalambet/chefmate/internal/conversation"
	"github.com/kalambet/chefmate/internal/memory"
	"github.com/kalambet/chefmate/internal/profile"
	"github.com/kalambet/chefmate/internal/session"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Conversation runs chat turns and session greetings.
type Conversation interface {
	Turn(ctx context.Context, userID, threadID, text string) (string, error)
	Greeting(ctx context.Context, userID string) (string, error)
}

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Ledger       memory.Ledger
	Profiles     *profile.Manager
	Conversation Conversation
	Sessions     *session.Registry
	Locks        *session.Locks
	// Token enables bearer auth on /api/* when non-empty.
	Token string
}

// NewHandler returns the chefmate HTTP API.
func NewHandler(deps Deps) http.Handler {
	if deps.Locks == nil {
		deps.Locks = &session.Locks{}
	}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/start_session", handleStartSession(deps))
		r.Post("/chat", handleChat(deps))
		r.Get("/memories", handleListMemories(deps))
		r.Post("/memories", handleAddMemories(deps))
		r.Get("/profile", handleGetProfile(deps))
	})

	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(r)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type startSessionRequest struct {
	UserID string `json:"user_id"`
}

type startSessionResponse struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

func handleStartSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startSessionRequest
		if !decodeBody(w, r, &req, maxRequestBodySize) {
			return
		}
		userID := strings.TrimSpace(req.UserID)
		if userID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}

		threadID, err := deps.Sessions.GetOrCreate(r.Context(), userID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to start session: %v", err)
			return
		}

		unlock := deps.Locks.Lock(userID)
		greeting, err := deps.Conversation.Greeting(r.Context(), userID)
		unlock()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to build greeting: %v", err)
			return
		}

		writeJSON(w, startSessionResponse{ThreadID: threadID, Message: greeting})
	}
}

type chatRequest struct {
	UserID  string  `json:"user_id"`
	Message *string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeBody(w, r, &req, maxRequestBodySize) {
			return
		}
		userID := strings.TrimSpace(req.UserID)
		if userID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}
		if req.Message == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}

		threadID, err := deps.Sessions.GetOrCreate(r.Context(), userID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to start session: %v", err)
			return
		}

		unlock := deps.Locks.Lock(userID)
		reply, err := deps.Conversation.Turn(r.Context(), userID, threadID, *req.Message)
		unlock()

		switch {
		case errors.Is(err, conversation.ErrRunFailed), errors.Is(err, conversation.ErrNoResponse):
			slog.Warn("chat turn produced no response", "user_id", userID, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "Agent returned no response")
			return
		case err != nil:
			slog.Error("chat turn failed", "user_id", userID, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "chat failed: %v", err)
			return
		}

		writeJSON(w, chatResponse{Response: reply})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// httpError writes an error body. detail mirrors message for clients that
// expect FastAPI-style errors.
func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
		"detail": msg,
	})
}
