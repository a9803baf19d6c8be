package engine

import (
	"strings"

	"golang.org/x/text/width"
)

// MoveOp enumerates the follow-up operations a view may offer. The engine is
// the single source of truth for which moves are legal from each state; the
// messaging layer renders them as buttons without second-guessing.
type MoveOp string

const (
	MoveNext        MoveOp = "next"
	MovePrev        MoveOp = "prev"
	MoveStartQuiz   MoveOp = "start_quiz"
	MoveBookmark    MoveOp = "bookmark"
	MovePickChapter MoveOp = "pick_chapter"
	MoveAnalytics   MoveOp = "analytics"
)

// Move is one legal follow-up operation, with target coordinates where the
// operation needs them.
type Move struct {
	Op        MoveOp
	ChapterID int
	SectionID int
}

// View is the render descriptor returned to the messaging layer. It describes
// what to show next, independent of any platform's UI primitives.
type View interface {
	isView()
}

// ChapterSummary is the chapter's section makeup. It is populated on chapter
// entry and on completion, and left zero on ordinary section renders.
type ChapterSummary struct {
	ContentSections int
	QuizSections    int
}

// ContentView renders a readable section, or the chapter cover pseudo-section
// when ImageURL is set and Body is empty.
type ContentView struct {
	Title         string
	Body          string
	ImageURL      string
	ProgressLabel string
	Notice        string
	Summary       ChapterSummary
	Moves         []Move
}

// QuizView renders a quiz prompt with its choices. Submitting a choice is the
// only way forward; quizzes never auto-advance.
type QuizView struct {
	ChapterID     int
	SectionID     int
	Prompt        string
	Choices       map[string]string
	ProgressLabel string
}

// GradedView renders the outcome of a graded submission together with the
// suggested next step. The user's stored position has not moved.
type GradedView struct {
	Correct      bool
	CorrectLabel string
	CorrectText  string
	Moves        []Move
}

// ChapterCompleteView renders the terminal end-of-chapter state.
type ChapterCompleteView struct {
	Title         string
	TotalSections int
	Summary       ChapterSummary
	Moves         []Move
}

// BookmarkEntry is one row of a bookmark list.
type BookmarkEntry struct {
	ChapterID int
	SectionID int
	Label     string
}

// BookmarkListView renders the user's bookmarks. Notice carries informational
// outcomes such as "already bookmarked".
type BookmarkListView struct {
	Entries []BookmarkEntry
	Notice  string
}

// AnalyticsView renders per-user accuracy and the weakest sections.
type AnalyticsView struct {
	Accuracy Accuracy
	Weakest  []WeakSection
}

// ErrorView carries a short, non-technical failure message. Internal error
// detail goes to logs, never to the user.
type ErrorView struct {
	Kind    ErrorKind
	Message string
}

func (ContentView) isView()         {}
func (QuizView) isView()            {}
func (GradedView) isView()          {}
func (ChapterCompleteView) isView() {}
func (BookmarkListView) isView()    {}
func (AnalyticsView) isView()       {}
func (ErrorView) isView()           {}

const maxTitleCols = 30

// truncateTitle shortens a title to maxTitleCols display columns, counting
// East Asian wide runes as two columns.
func truncateTitle(s string) string {
	cols := 0
	var b strings.Builder
	for _, r := range s {
		w := 1
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w = 2
		}
		if cols+w > maxTitleCols {
			return b.String() + "…"
		}
		cols += w
		b.WriteRune(r)
	}
	return s
}
