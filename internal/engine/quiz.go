package engine

import (
	"context"
	"fmt"

	"github.com/grammarhour/bookbot/internal/book"
	"github.com/grammarhour/bookbot/internal/store"
)

// GradedResult is the outcome of grading one submission. SuggestedNext is a
// hint only: grading never advances the stored position, the caller must
// issue an explicit navigation afterwards.
type GradedResult struct {
	Correct       bool
	CorrectLabel  string
	CorrectText   string
	SuggestedNext store.Position
}

// Submit grades a quiz answer and appends exactly one attempt row. Repeated
// submissions of the same quiz are each recorded; only the dedup guard
// protects against accidental double-taps.
func (e *Engine) Submit(ctx context.Context, userID string, chapterID, sectionID int, label string) (*GradedResult, error) {
	sec, ok := e.catalog.Section(chapterID, sectionID)
	if !ok {
		return nil, fmt.Errorf("%w: chapter %d section %d is not a quiz", ErrValidation, chapterID, sectionID)
	}
	if sec.Kind != book.KindQuiz {
		return nil, fmt.Errorf("%w: chapter %d section %d is not a quiz", ErrValidation, chapterID, sectionID)
	}
	if _, ok := sec.Choices[label]; !ok {
		return nil, fmt.Errorf("%w: label %q is not a choice", ErrValidation, label)
	}

	correct := label == sec.CorrectLabel

	err := e.attempts.Append(ctx, store.Attempt{
		UserID:    userID,
		ChapterID: chapterID,
		SectionID: sectionID,
		Label:     label,
		Correct:   correct,
	})
	if err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}

	return &GradedResult{
		Correct:       correct,
		CorrectLabel:  sec.CorrectLabel,
		CorrectText:   sec.Choices[sec.CorrectLabel],
		SuggestedNext: e.nextAfterQuiz(chapterID, sectionID),
	}, nil
}

// nextAfterQuiz suggests the follow-up target: the next quiz in sequence, or
// end-of-chapter after the last one. Quizzes are chapter-terminal; there is
// no route back into content.
func (e *Engine) nextAfterQuiz(chapterID, sectionID int) store.Position {
	ch, ok := e.catalog.Chapter(chapterID)
	if !ok {
		return store.Position{ChapterID: chapterID, SectionID: sectionID + 1}
	}
	quizzes := ch.Quizzes()
	for i := range quizzes {
		if quizzes[i].ID == sectionID && i+1 < len(quizzes) {
			return store.Position{ChapterID: chapterID, SectionID: quizzes[i+1].ID}
		}
	}
	return store.Position{ChapterID: chapterID, SectionID: completeTarget(ch)}
}
