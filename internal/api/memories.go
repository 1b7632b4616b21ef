package api

import (
	"net/http"
	"strings"

	"github.com/kalambet/chefmate/internal/document"
	"github.com/kalambet/chefmate/internal/memory"
	"github.com/kalambet/chefmate/internal/profile"
)

const maxImportBodySize = 10 << 20 // 10MB

type memoriesResponse struct {
	Count int            `json:"count"`
	Items []memory.Entry `json:"items"`
}

type addMemoriesRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type addMemoriesResponse struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

// ProfileView is every profile projection of one user.
type ProfileView struct {
	UserID       string             `json:"user_id"`
	Structured   profile.Profile    `json:"structured"`
	Inferred     profile.Profile    `json:"inferred"`
	Confidence   map[string]float64 `json:"confidence"`
	Merged       profile.Profile    `json:"merged"`
	Summary      string             `json:"summary"`
	NextField    string             `json:"next_field,omitempty"`
	Complete     bool               `json:"complete"`
	MinimalReady bool               `json:"minimal_ready"`
}

// NewProfileView projects a snapshot through planner.
func NewProfileView(userID string, s profile.Snapshot, planner profile.Planner) ProfileView {
	next, _ := planner.NextField(s.Merged)
	return ProfileView{
		UserID:       userID,
		Structured:   s.Structured,
		Inferred:     s.Inferred.Profile(),
		Confidence:   s.Inferred.Confidence,
		Merged:       s.Merged,
		Summary:      planner.Summary(s.Merged),
		NextField:    next,
		Complete:     planner.IsComplete(s.Merged),
		MinimalReady: planner.MinimalReady(s.Merged),
	}
}

func handleListMemories(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}

		entries, err := deps.Ledger.ListAll(r.Context(), userID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list memories: %v", err)
			return
		}
		if entries == nil {
			entries = []memory.Entry{}
		}
		writeJSON(w, memoriesResponse{Count: len(entries), Items: entries})
	}
}

func handleAddMemories(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addMemoriesRequest
		if !decodeBody(w, r, &req, maxImportBodySize) {
			return
		}
		userID := strings.TrimSpace(req.UserID)
		if userID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}
		passages := document.Split(req.Text)
		if len(passages) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}

		unlock := deps.Locks.Lock(userID)
		defer unlock()

		ids := make([]string, 0, len(passages))
		for _, p := range passages {
			id, err := deps.Ledger.Append(r.Context(), userID, p)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to store memory: %v", err)
				return
			}
			ids = append(ids, id)
		}
		writeJSON(w, addMemoriesResponse{IDs: ids, Status: "queued"})
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id is required")
			return
		}

		s, err := deps.Profiles.Snapshot(r.Context(), userID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		writeJSON(w, NewProfileView(userID, s, deps.Profiles.Planner()))
	}
}
