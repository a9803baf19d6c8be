package engine

import "fmt"

// ActionType enumerates the inbound actions the core accepts from the
// messaging layer.
type ActionType string

const (
	ActionNavigate      ActionType = "navigate"
	ActionStartChapter  ActionType = "start_chapter"
	ActionResume        ActionType = "resume"
	ActionSubmitAnswer  ActionType = "submit_answer"
	ActionAddBookmark   ActionType = "add_bookmark"
	ActionListBookmarks ActionType = "list_bookmarks"
	ActionChapterQuiz   ActionType = "chapter_quiz"
	ActionAnalytics     ActionType = "analytics"
)

// Action is one inbound user action. Which fields are meaningful depends on
// Type; unused fields stay zero.
type Action struct {
	Type      ActionType
	ChapterID int
	SectionID int
	Label     string
}

// Signature returns the dedup signature for the action: identical taps on the
// same rendered button produce identical signatures.
func (a Action) Signature() string {
	return fmt.Sprintf("%s:%d:%d:%s", a.Type, a.ChapterID, a.SectionID, a.Label)
}
