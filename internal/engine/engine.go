// Package engine is the navigation and learning-progress core: it decides
// what to show next for each user, grades quiz answers, manages bookmarks and
// aggregates error analytics. It performs no network I/O of its own; all
// blocking is confined to the store adapters.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/grammarhour/bookbot/internal/book"
	"github.com/grammarhour/bookbot/internal/dedup"
	"github.com/grammarhour/bookbot/internal/store"
)

// coverSectionID is the reserved sentinel for the chapter cover image
// pseudo-section. It is a valid position only for chapters with a cover.
const coverSectionID = 0

const defaultDedupWindow = 2 * time.Second

// Config holds dependencies for the engine.
type Config struct {
	Catalog     *book.Catalog
	Progress    store.ProgressStore
	Bookmarks   store.BookmarkStore
	Attempts    store.AttemptStore
	Guard       dedup.Guard
	DedupWindow time.Duration // duplicate-action suppression window (default 2s)
}

// Engine is the core state machine over the immutable catalog and the
// per-user stores.
type Engine struct {
	catalog   *book.Catalog
	progress  store.ProgressStore
	bookmarks store.BookmarkStore
	attempts  store.AttemptStore
	guard     dedup.Guard
	window    time.Duration
}

// New creates an engine. Missing stores default to in-memory implementations
// and a missing guard admits everything.
func New(cfg Config) *Engine {
	progress := cfg.Progress
	if progress == nil {
		progress = store.NewMemoryProgress()
	}
	bookmarks := cfg.Bookmarks
	if bookmarks == nil {
		bookmarks = store.NewMemoryBookmarks()
	}
	attempts := cfg.Attempts
	if attempts == nil {
		attempts = store.NewMemoryAttempts()
	}
	guard := cfg.Guard
	if guard == nil {
		guard = dedup.NopGuard{}
	}
	window := cfg.DedupWindow
	if window == 0 {
		window = defaultDedupWindow
	}
	return &Engine{
		catalog:   cfg.Catalog,
		progress:  progress,
		bookmarks: bookmarks,
		attempts:  attempts,
		guard:     guard,
		window:    window,
	}
}

// GoTo is the single navigation entry point. It validates the target,
// persists the resulting position and returns the view for it. Unknown
// targets leave the stored position untouched.
func (e *Engine) GoTo(ctx context.Context, userID string, chapterID, sectionID int) (View, error) {
	ch, ok := e.catalog.Chapter(chapterID)
	if !ok {
		return nil, fmt.Errorf("%w: chapter %d", ErrNotFound, chapterID)
	}

	if sectionID == coverSectionID {
		if !ch.HasCover() {
			return nil, fmt.Errorf("%w: chapter %d has no cover", ErrNotFound, chapterID)
		}
		if err := e.setPosition(ctx, userID, chapterID, coverSectionID); err != nil {
			return nil, err
		}
		return e.coverView(ch), nil
	}

	sec, ok := e.catalog.Section(chapterID, sectionID)
	if !ok {
		// Any position beyond the last section is the terminal
		// end-of-chapter pseudo-state, not an unknown reference.
		if sectionID > ch.MaxSectionID() {
			if err := e.setPosition(ctx, userID, chapterID, sectionID); err != nil {
				return nil, err
			}
			return e.completeView(ch), nil
		}
		return nil, fmt.Errorf("%w: chapter %d section %d", ErrNotFound, chapterID, sectionID)
	}

	if err := e.setPosition(ctx, userID, chapterID, sectionID); err != nil {
		return nil, err
	}

	switch sec.Kind {
	case book.KindContent:
		return e.contentView(ch, sec), nil
	case book.KindQuiz:
		return e.quizView(ch, sec), nil
	default:
		return nil, fmt.Errorf("%w: unhandled section kind %v", ErrValidation, sec.Kind)
	}
}

// StartChapter enters a chapter at its initial state: the cover image if the
// chapter has one, else the first content section, else end-of-chapter.
func (e *Engine) StartChapter(ctx context.Context, userID string, chapterID int) (View, error) {
	ch, ok := e.catalog.Chapter(chapterID)
	if !ok {
		return nil, fmt.Errorf("%w: chapter %d", ErrNotFound, chapterID)
	}

	var target int
	switch {
	case ch.HasCover():
		target = coverSectionID
	case len(ch.Content()) > 0:
		target = ch.Content()[0].ID
	default:
		target = completeTarget(ch)
	}

	view, err := e.GoTo(ctx, userID, chapterID, target)
	if err != nil {
		return nil, err
	}
	// Entering a chapter carries its section makeup so the user sees what
	// the chapter holds before reading.
	if cv, ok := view.(ContentView); ok {
		cv.Summary = chapterSummary(ch)
		return cv, nil
	}
	return view, nil
}

// Resume re-renders the user's current position. A user with no recorded
// position has never started and must pick a chapter first; a stored section
// id is never silently coerced to section 1.
func (e *Engine) Resume(ctx context.Context, userID string) (View, error) {
	pos, err := e.progress.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, fmt.Errorf("%w: no reading progress yet", ErrNotFound)
	}
	return e.GoTo(ctx, userID, pos.ChapterID, pos.SectionID)
}

// ChapterQuiz jumps to the first quiz section of the user's current chapter.
func (e *Engine) ChapterQuiz(ctx context.Context, userID string) (View, error) {
	pos, err := e.progress.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, fmt.Errorf("%w: no reading progress yet", ErrNotFound)
	}
	quizzes := e.catalog.QuizSections(pos.ChapterID)
	if len(quizzes) == 0 {
		return nil, fmt.Errorf("%w: chapter %d has no quiz", ErrNotFound, pos.ChapterID)
	}
	return e.GoTo(ctx, userID, pos.ChapterID, quizzes[0].ID)
}

func (e *Engine) setPosition(ctx context.Context, userID string, chapterID, sectionID int) error {
	if err := e.progress.Set(ctx, userID, store.Position{ChapterID: chapterID, SectionID: sectionID}); err != nil {
		return fmt.Errorf("persist position: %w", err)
	}
	return nil
}

// completeTarget returns the coordinate that denotes end-of-chapter.
func completeTarget(ch *book.Chapter) int {
	return ch.MaxSectionID() + 1
}

func (e *Engine) coverView(ch *book.Chapter) ContentView {
	moves := []Move{
		{Op: MoveNext, ChapterID: ch.ID, SectionID: nextFromCover(ch)},
		{Op: MoveBookmark, ChapterID: ch.ID, SectionID: coverSectionID},
	}
	if quizzes := ch.Quizzes(); len(quizzes) > 0 {
		moves = append(moves, Move{Op: MoveStartQuiz, ChapterID: ch.ID, SectionID: quizzes[0].ID})
	}
	return ContentView{
		Title:         ch.Title,
		ImageURL:      ch.ImageURL,
		ProgressLabel: readingLabel(ch, 1),
		Moves:         moves,
	}
}

func nextFromCover(ch *book.Chapter) int {
	if content := ch.Content(); len(content) > 0 {
		return content[0].ID
	}
	if quizzes := ch.Quizzes(); len(quizzes) > 0 {
		return quizzes[0].ID
	}
	return completeTarget(ch)
}

func (e *Engine) contentView(ch *book.Chapter, sec *book.Section) ContentView {
	content := ch.Content()
	idx := 0
	for i := range content {
		if content[i].ID == sec.ID {
			idx = i
			break
		}
	}

	ordinal := idx + 1
	if ch.HasCover() {
		ordinal++
	}

	var moves []Move

	// prev is the exact inverse of next inside the content run; the first
	// content section steps back to the cover when the chapter has one,
	// and offers no prev at all otherwise.
	switch {
	case idx > 0:
		moves = append(moves, Move{Op: MovePrev, ChapterID: ch.ID, SectionID: content[idx-1].ID})
	case ch.HasCover():
		moves = append(moves, Move{Op: MovePrev, ChapterID: ch.ID, SectionID: coverSectionID})
	}

	next := completeTarget(ch)
	if idx+1 < len(content) {
		next = content[idx+1].ID
	} else if quizzes := ch.Quizzes(); len(quizzes) > 0 {
		next = quizzes[0].ID
	}
	moves = append(moves, Move{Op: MoveNext, ChapterID: ch.ID, SectionID: next})
	moves = append(moves, Move{Op: MoveBookmark, ChapterID: ch.ID, SectionID: sec.ID})
	if quizzes := ch.Quizzes(); len(quizzes) > 0 {
		moves = append(moves, Move{Op: MoveStartQuiz, ChapterID: ch.ID, SectionID: quizzes[0].ID})
	}

	return ContentView{
		Title:         ch.Title,
		Body:          sec.Body,
		ProgressLabel: readingLabel(ch, ordinal),
		Moves:         moves,
	}
}

func (e *Engine) quizView(ch *book.Chapter, sec *book.Section) QuizView {
	quizzes := ch.Quizzes()
	ordinal := 1
	for i := range quizzes {
		if quizzes[i].ID == sec.ID {
			ordinal = i + 1
			break
		}
	}
	return QuizView{
		ChapterID:     ch.ID,
		SectionID:     sec.ID,
		Prompt:        sec.Prompt,
		Choices:       sec.Choices,
		ProgressLabel: fmt.Sprintf("Question %d/%d", ordinal, len(quizzes)),
	}
}

func (e *Engine) completeView(ch *book.Chapter) ChapterCompleteView {
	return ChapterCompleteView{
		Title:         ch.Title,
		TotalSections: ch.SectionCount(),
		Summary:       chapterSummary(ch),
		Moves: []Move{
			{Op: MovePickChapter},
			{Op: MoveAnalytics},
		},
	}
}

func chapterSummary(ch *book.Chapter) ChapterSummary {
	return ChapterSummary{
		ContentSections: len(ch.Content()),
		QuizSections:    len(ch.Quizzes()),
	}
}

// readingLabel is the "n/m" progress display over the chapter's reading
// slots: the cover (if present) plus all content sections. It is recomputed
// from the catalog on every render, never cached.
func readingLabel(ch *book.Chapter, ordinal int) string {
	return fmt.Sprintf("%d/%d", ordinal, ch.ReadingSlots())
}
