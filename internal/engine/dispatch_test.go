package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/grammarhour/bookbot/internal/dedup"
	"github.com/grammarhour/bookbot/internal/engine"
	"github.com/grammarhour/bookbot/internal/store"
)

// failingProgress simulates an unreachable durable store.
type failingProgress struct{}

func (failingProgress) Get(context.Context, string) (*store.Position, error) {
	return nil, fmt.Errorf("%w: get progress: connection refused", store.ErrUnavailable)
}

func (failingProgress) Set(context.Context, string, store.Position) error {
	return fmt.Errorf("%w: set progress: connection refused", store.ErrUnavailable)
}

func TestOnInboundAction_DuplicateDropped(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	e := engine.New(engine.Config{
		Catalog:     testCatalog(t),
		Guard:       dedup.NewMemoryGuard(clock),
		DedupWindow: 2 * time.Second,
	})
	ctx := context.Background()
	act := engine.Action{Type: engine.ActionStartChapter, ChapterID: 1}

	if _, err := e.OnInboundAction(ctx, "u1", act); err != nil {
		t.Fatalf("first action error = %v", err)
	}
	if _, err := e.OnInboundAction(ctx, "u1", act); !errors.Is(err, engine.ErrDuplicateAction) {
		t.Fatalf("repeat within window error = %v, want ErrDuplicateAction", err)
	}

	// Same signature from another user is not a duplicate.
	if _, err := e.OnInboundAction(ctx, "u2", act); err != nil {
		t.Errorf("other user's action error = %v", err)
	}

	// After the window the action is admitted again.
	now = now.Add(3 * time.Second)
	if _, err := e.OnInboundAction(ctx, "u1", act); err != nil {
		t.Errorf("action after window error = %v", err)
	}
}

func TestOnInboundAction_DistinctActionsAdmitted(t *testing.T) {
	e := engine.New(engine.Config{
		Catalog: testCatalog(t),
		Guard:   dedup.NewMemoryGuard(nil),
	})
	ctx := context.Background()

	if _, err := e.OnInboundAction(ctx, "u1", engine.Action{Type: engine.ActionStartChapter, ChapterID: 1}); err != nil {
		t.Fatalf("start_chapter error = %v", err)
	}
	if _, err := e.OnInboundAction(ctx, "u1", engine.Action{Type: engine.ActionNavigate, ChapterID: 1, SectionID: 1}); err != nil {
		t.Errorf("navigate after start error = %v", err)
	}
}

// erringGuard always fails; the engine must admit the action anyway.
type erringGuard struct{}

func (erringGuard) Admit(context.Context, string, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func TestOnInboundAction_GuardFailureFailsOpen(t *testing.T) {
	e := engine.New(engine.Config{Catalog: testCatalog(t), Guard: erringGuard{}})

	view, err := e.OnInboundAction(context.Background(), "u1",
		engine.Action{Type: engine.ActionStartChapter, ChapterID: 1})
	if err != nil {
		t.Fatalf("OnInboundAction() error = %v", err)
	}
	if _, ok := view.(engine.ContentView); !ok {
		t.Errorf("view = %T, want ContentView", view)
	}
}

func TestOnInboundAction_ErrorViews(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		act  engine.Action
		kind engine.ErrorKind
	}{
		{
			"unknown chapter",
			engine.Action{Type: engine.ActionNavigate, ChapterID: 9, SectionID: 1},
			engine.KindNotFound,
		},
		{
			"resume before starting",
			engine.Action{Type: engine.ActionResume},
			engine.KindNotFound,
		},
		{
			"answer to content section",
			engine.Action{Type: engine.ActionSubmitAnswer, ChapterID: 1, SectionID: 1, Label: "A"},
			engine.KindValidation,
		},
		{
			"unknown action type",
			engine.Action{Type: "dance"},
			engine.KindValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := e.OnInboundAction(ctx, "u1", tt.act)
			if err != nil {
				t.Fatalf("OnInboundAction() error = %v", err)
			}
			ev, ok := view.(engine.ErrorView)
			if !ok {
				t.Fatalf("view = %T, want ErrorView", view)
			}
			if ev.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", ev.Kind, tt.kind)
			}
			if ev.Message == "" {
				t.Error("ErrorView has no message")
			}
		})
	}
}

func TestOnInboundAction_StoreFailurePropagates(t *testing.T) {
	e := engine.New(engine.Config{
		Catalog:  testCatalog(t),
		Progress: failingProgress{},
	})

	_, err := e.OnInboundAction(context.Background(), "u1",
		engine.Action{Type: engine.ActionStartChapter, ChapterID: 1})
	if err == nil {
		t.Fatal("OnInboundAction() error = nil, want store failure")
	}
	if !engine.Retryable(err) {
		t.Errorf("Retryable(%v) = false, want true", err)
	}
}

func TestOnInboundAction_SubmitReturnsGradedView(t *testing.T) {
	e := testEngine(t)

	view, err := e.OnInboundAction(context.Background(), "u1",
		engine.Action{Type: engine.ActionSubmitAnswer, ChapterID: 1, SectionID: 3, Label: "B"})
	if err != nil {
		t.Fatalf("OnInboundAction() error = %v", err)
	}
	gv, ok := view.(engine.GradedView)
	if !ok {
		t.Fatalf("view = %T, want GradedView", view)
	}
	if !gv.Correct {
		t.Error("Correct = false, want true")
	}
	next := findMove(t, gv.Moves, engine.MoveNext)
	if next.ChapterID != 1 || next.SectionID != 4 {
		t.Errorf("next move = (%d,%d), want (1,4)", next.ChapterID, next.SectionID)
	}
}

func TestOnInboundAction_BookmarkFlow(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	add := engine.Action{Type: engine.ActionAddBookmark, ChapterID: 1, SectionID: 2}

	view, err := e.OnInboundAction(ctx, "u1", add)
	if err != nil {
		t.Fatalf("add bookmark error = %v", err)
	}
	bl, ok := view.(engine.BookmarkListView)
	if !ok {
		t.Fatalf("view = %T, want BookmarkListView", view)
	}
	if bl.Notice != "Bookmarked." {
		t.Errorf("Notice = %q, want %q", bl.Notice, "Bookmarked.")
	}

	// The dedup guard is a NopGuard here, so the repeat reaches the store
	// and comes back as an already-bookmarked notice.
	view, err = e.OnInboundAction(ctx, "u1", add)
	if err != nil {
		t.Fatalf("repeat add bookmark error = %v", err)
	}
	bl = view.(engine.BookmarkListView)
	if bl.Notice != "Already bookmarked." {
		t.Errorf("Notice = %q, want %q", bl.Notice, "Already bookmarked.")
	}
	if len(bl.Entries) != 1 {
		t.Errorf("len(Entries) = %d, want 1", len(bl.Entries))
	}

	view, err = e.OnInboundAction(ctx, "u1", engine.Action{Type: engine.ActionListBookmarks})
	if err != nil {
		t.Fatalf("list bookmarks error = %v", err)
	}
	bl = view.(engine.BookmarkListView)
	if bl.Notice != "" {
		t.Errorf("plain list Notice = %q, want empty", bl.Notice)
	}
}

func TestOnInboundAction_Analytics(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	for _, label := range []string{"A", "B"} {
		act := engine.Action{Type: engine.ActionSubmitAnswer, ChapterID: 1, SectionID: 3, Label: label}
		if _, err := e.OnInboundAction(ctx, "u1", act); err != nil {
			t.Fatalf("submit error = %v", err)
		}
	}

	view, err := e.OnInboundAction(ctx, "u1", engine.Action{Type: engine.ActionAnalytics})
	if err != nil {
		t.Fatalf("analytics error = %v", err)
	}
	av, ok := view.(engine.AnalyticsView)
	if !ok {
		t.Fatalf("view = %T, want AnalyticsView", view)
	}
	if av.Accuracy.Attempts != 2 || av.Accuracy.Correct != 1 {
		t.Errorf("accuracy = %+v, want 2 attempts, 1 correct", av.Accuracy)
	}
	if len(av.Weakest) != 1 || av.Weakest[0].SectionID != 3 {
		t.Errorf("weakest = %v, want single entry for section 3", av.Weakest)
	}
}
