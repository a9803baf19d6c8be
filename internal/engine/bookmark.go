package engine

import (
	"context"
	"fmt"

	"github.com/grammarhour/bookbot/internal/store"
)

// AddBookmark saves a (chapter, section) coordinate for the user. The insert
// is idempotent: a duplicate returns created=false with no error.
func (e *Engine) AddBookmark(ctx context.Context, userID string, chapterID, sectionID int) (bool, error) {
	ch, ok := e.catalog.Chapter(chapterID)
	if !ok {
		return false, fmt.Errorf("%w: chapter %d", ErrNotFound, chapterID)
	}
	if sectionID == coverSectionID {
		if !ch.HasCover() {
			return false, fmt.Errorf("%w: chapter %d has no cover", ErrNotFound, chapterID)
		}
	} else if _, ok := e.catalog.Section(chapterID, sectionID); !ok {
		return false, fmt.Errorf("%w: chapter %d section %d", ErrNotFound, chapterID, sectionID)
	}

	created, err := e.bookmarks.Add(ctx, store.Bookmark{
		UserID:    userID,
		ChapterID: chapterID,
		SectionID: sectionID,
	})
	if err != nil {
		return false, fmt.Errorf("add bookmark: %w", err)
	}
	return created, nil
}

// ListBookmarks returns the user's bookmarks as display entries ordered by
// (chapter, section). Cover bookmarks are labelled as the chapter cover, not
// as a numbered section.
func (e *Engine) ListBookmarks(ctx context.Context, userID string) ([]BookmarkEntry, error) {
	bms, err := e.bookmarks.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}

	entries := make([]BookmarkEntry, 0, len(bms))
	for _, bm := range bms {
		entries = append(entries, BookmarkEntry{
			ChapterID: bm.ChapterID,
			SectionID: bm.SectionID,
			Label:     e.bookmarkLabel(bm),
		})
	}
	return entries, nil
}

func (e *Engine) bookmarkLabel(bm store.Bookmark) string {
	title := ""
	if ch, ok := e.catalog.Chapter(bm.ChapterID); ok {
		title = " · " + truncateTitle(ch.Title)
	}
	if bm.SectionID == coverSectionID {
		return fmt.Sprintf("Ch %d cover%s", bm.ChapterID, title)
	}
	return fmt.Sprintf("Ch %d §%d%s", bm.ChapterID, bm.SectionID, title)
}
