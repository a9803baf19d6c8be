// Package store holds the durable per-user state: reading progress, bookmarks
// and quiz attempts. Engines never issue storage queries directly; everything
// goes through the three narrow interfaces below.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrUnavailable marks a durable-store failure. It is retryable; the caller
// owns the retry policy.
var ErrUnavailable = errors.New("store unavailable")

// Position is a (chapter, section) coordinate. Section id 0 is the chapter's
// cover image pseudo-section.
type Position struct {
	ChapterID int
	SectionID int
}

// Bookmark is one saved (user, chapter, section) entry.
type Bookmark struct {
	UserID    string
	ChapterID int
	SectionID int
	CreatedAt time.Time
}

// Attempt is one graded quiz submission. Rows are append-only.
type Attempt struct {
	UserID    string
	ChapterID int
	SectionID int
	Label     string
	Correct   bool
	CreatedAt time.Time
}

// ProgressStore persists each user's current reading position.
type ProgressStore interface {
	// Get returns the user's position, or (nil, nil) if the user never started.
	Get(ctx context.Context, userID string) (*Position, error)
	Set(ctx context.Context, userID string, pos Position) error
}

// BookmarkStore persists the per-user bookmark set.
type BookmarkStore interface {
	// Add inserts the bookmark if absent. The bool reports whether a new
	// entry was created; a duplicate is a no-op, not an error.
	Add(ctx context.Context, bm Bookmark) (bool, error)
	// List returns the user's bookmarks ordered by (chapter, section) ascending.
	List(ctx context.Context, userID string) ([]Bookmark, error)
}

// AttemptStore is the append-only quiz submission log.
type AttemptStore interface {
	Append(ctx context.Context, at Attempt) error
	ListByUser(ctx context.Context, userID string) ([]Attempt, error)
}

// MemoryProgress is an in-memory ProgressStore.
type MemoryProgress struct {
	mu        sync.RWMutex
	positions map[string]Position
}

func NewMemoryProgress() *MemoryProgress {
	return &MemoryProgress{positions: make(map[string]Position)}
}

func (s *MemoryProgress) Get(_ context.Context, userID string) (*Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.positions[userID]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

func (s *MemoryProgress) Set(_ context.Context, userID string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[userID] = pos
	return nil
}

// MemoryBookmarks is an in-memory BookmarkStore.
type MemoryBookmarks struct {
	mu      sync.RWMutex
	entries map[string][]Bookmark
}

func NewMemoryBookmarks() *MemoryBookmarks {
	return &MemoryBookmarks{entries: make(map[string][]Bookmark)}
}

func (s *MemoryBookmarks) Add(_ context.Context, bm Bookmark) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entries[bm.UserID] {
		if existing.ChapterID == bm.ChapterID && existing.SectionID == bm.SectionID {
			return false, nil
		}
	}
	if bm.CreatedAt.IsZero() {
		bm.CreatedAt = time.Now()
	}
	s.entries[bm.UserID] = append(s.entries[bm.UserID], bm)
	return true, nil
}

func (s *MemoryBookmarks) List(_ context.Context, userID string) ([]Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]Bookmark{}, s.entries[userID]...)
	sort.Slice(out, func(a, b int) bool {
		if out[a].ChapterID != out[b].ChapterID {
			return out[a].ChapterID < out[b].ChapterID
		}
		return out[a].SectionID < out[b].SectionID
	})
	return out, nil
}

// MemoryAttempts is an in-memory AttemptStore.
type MemoryAttempts struct {
	mu       sync.RWMutex
	attempts map[string][]Attempt
}

func NewMemoryAttempts() *MemoryAttempts {
	return &MemoryAttempts{attempts: make(map[string][]Attempt)}
}

func (s *MemoryAttempts) Append(_ context.Context, at Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if at.CreatedAt.IsZero() {
		at.CreatedAt = time.Now()
	}
	s.attempts[at.UserID] = append(s.attempts[at.UserID], at)
	return nil
}

func (s *MemoryAttempts) ListByUser(_ context.Context, userID string) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Attempt{}, s.attempts[userID]...), nil
}
