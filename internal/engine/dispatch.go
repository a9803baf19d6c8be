package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// weakestLimit bounds the analytics view's weakest-sections ranking.
const weakestLimit = 5

// OnInboundAction is the boundary the messaging layer calls for every user
// action. Duplicate actions return ErrDuplicateAction and must be dropped
// silently. NotFound and Validation outcomes come back as an ErrorView;
// store failures come back as an error the caller may retry a bounded number
// of times before surfacing.
func (e *Engine) OnInboundAction(ctx context.Context, userID string, act Action) (View, error) {
	admitted, err := e.guard.Admit(ctx, userID, act.Signature(), e.window)
	if err != nil {
		// The guard is advisory; fail open rather than block the user.
		slog.Warn("dedup guard unavailable, admitting action", "user_id", userID, "error", err)
		admitted = true
	}
	if !admitted {
		slog.Info("duplicate action dropped", "user_id", userID, "signature", act.Signature())
		return nil, ErrDuplicateAction
	}

	view, err := e.route(ctx, userID, act)
	if err != nil {
		if ev, ok := asErrorView(err); ok {
			slog.Info("action rejected", "user_id", userID, "type", act.Type, "error", err)
			return ev, nil
		}
		return nil, err
	}
	return view, nil
}

func (e *Engine) route(ctx context.Context, userID string, act Action) (View, error) {
	switch act.Type {
	case ActionNavigate:
		return e.GoTo(ctx, userID, act.ChapterID, act.SectionID)

	case ActionStartChapter:
		return e.StartChapter(ctx, userID, act.ChapterID)

	case ActionResume:
		return e.Resume(ctx, userID)

	case ActionChapterQuiz:
		return e.ChapterQuiz(ctx, userID)

	case ActionSubmitAnswer:
		res, err := e.Submit(ctx, userID, act.ChapterID, act.SectionID, act.Label)
		if err != nil {
			return nil, err
		}
		next := res.SuggestedNext
		return GradedView{
			Correct:      res.Correct,
			CorrectLabel: res.CorrectLabel,
			CorrectText:  res.CorrectText,
			Moves: []Move{
				{Op: MoveNext, ChapterID: next.ChapterID, SectionID: next.SectionID},
			},
		}, nil

	case ActionAddBookmark:
		created, err := e.AddBookmark(ctx, userID, act.ChapterID, act.SectionID)
		if err != nil {
			return nil, err
		}
		entries, err := e.ListBookmarks(ctx, userID)
		if err != nil {
			return nil, err
		}
		notice := "Bookmarked."
		if !created {
			notice = "Already bookmarked."
		}
		return BookmarkListView{Entries: entries, Notice: notice}, nil

	case ActionListBookmarks:
		entries, err := e.ListBookmarks(ctx, userID)
		if err != nil {
			return nil, err
		}
		return BookmarkListView{Entries: entries}, nil

	case ActionAnalytics:
		acc, err := e.UserAccuracy(ctx, userID)
		if err != nil {
			return nil, err
		}
		weakest, err := e.WeakestSections(ctx, userID, weakestLimit)
		if err != nil {
			return nil, err
		}
		return AnalyticsView{Accuracy: acc, Weakest: weakest}, nil

	default:
		return nil, fmt.Errorf("%w: unknown action type %q", ErrValidation, act.Type)
	}
}
