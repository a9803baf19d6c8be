package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/grammarhour/bookbot/internal/engine"
)

// storeRetries bounds how often a retryable store failure is retried before
// it surfaces to the user. The engine itself never retries.
const storeRetries = 2

type actionRequest struct {
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	ChapterID int    `json:"chapter_id,omitempty"`
	SectionID int    `json:"section_id,omitempty"`
	Label     string `json:"label,omitempty"`
}

type actionResponse struct {
	Kind string      `json:"kind"`
	View engine.View `json:"view"`
}

// handleAction adapts inbound user actions to the engine. A real messaging
// adapter (LINE, Telegram, ...) would sit here instead; this endpoint keeps
// the same contract: one action in, one render descriptor out.
func handleAction(core *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req actionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}

		act := engine.Action{
			Type:      engine.ActionType(req.Type),
			ChapterID: req.ChapterID,
			SectionID: req.SectionID,
			Label:     req.Label,
		}

		var view engine.View
		var err error
		for attempt := 0; ; attempt++ {
			view, err = core.OnInboundAction(r.Context(), req.UserID, act)
			if err == nil || !engine.Retryable(err) || attempt >= storeRetries {
				break
			}
			slog.Warn("retrying action after store failure",
				"user_id", req.UserID,
				"type", req.Type,
				"attempt", attempt+1,
				"error", err,
			)
		}

		switch {
		case errors.Is(err, engine.ErrDuplicateAction):
			// Dropped silently; nothing to render.
			w.WriteHeader(http.StatusNoContent)
			return
		case err != nil:
			slog.Error("action failed", "user_id", req.UserID, "type", req.Type, "error", err)
			view = engine.ErrorView{
				Kind:    engine.KindStore,
				Message: "Something went wrong, please try again shortly.",
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(actionResponse{Kind: viewKind(view), View: view}); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func viewKind(v engine.View) string {
	switch v.(type) {
	case engine.ContentView:
		return "content"
	case engine.QuizView:
		return "quiz"
	case engine.GradedView:
		return "graded"
	case engine.ChapterCompleteView:
		return "chapter_complete"
	case engine.BookmarkListView:
		return "bookmark_list"
	case engine.AnalyticsView:
		return "analytics"
	case engine.ErrorView:
		return "error"
	default:
		return "unknown"
	}
}
