package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

const dbTimeout = 5 * time.Second

// Postgres implements ProgressStore, BookmarkStore and AttemptStore on a
// shared pgx pool. State is partitioned by user id; per-row upserts give the
// single-writer-per-user discipline without any global locking.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the store tables if they do not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			display_name TEXT,
			current_chapter_id INTEGER,
			current_section_id INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_active TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			chapter_id INTEGER NOT NULL,
			section_id INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_id, chapter_id, section_id)
		)`,
		`CREATE TABLE IF NOT EXISTS quiz_attempts (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			chapter_id INTEGER NOT NULL,
			section_id INTEGER NOT NULL,
			answer TEXT NOT NULL,
			is_correct BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookmarks_user ON bookmarks (user_id, chapter_id, section_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_user ON quiz_attempts (user_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %v", ErrUnavailable, err)
		}
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, userID string) (*Position, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var chapterID, sectionID *int
	err := s.pool.QueryRow(ctx,
		`SELECT current_chapter_id, current_section_id
		 FROM users
		 WHERE user_id = $1`,
		userID,
	).Scan(&chapterID, &sectionID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get progress: %v", ErrUnavailable, err)
	}
	if chapterID == nil || sectionID == nil {
		// Known user who never navigated anywhere yet.
		return nil, nil
	}
	return &Position{ChapterID: *chapterID, SectionID: *sectionID}, nil
}

func (s *Postgres) Set(ctx context.Context, userID string, pos Position) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (user_id, current_chapter_id, current_section_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET current_chapter_id = EXCLUDED.current_chapter_id,
		     current_section_id = EXCLUDED.current_section_id,
		     last_active = now()`,
		userID, pos.ChapterID, pos.SectionID,
	)
	if err != nil {
		return fmt.Errorf("%w: set progress: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Postgres) Add(ctx context.Context, bm Bookmark) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO bookmarks (user_id, chapter_id, section_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, chapter_id, section_id) DO NOTHING`,
		bm.UserID, bm.ChapterID, bm.SectionID,
	)
	if err != nil {
		return false, fmt.Errorf("%w: add bookmark: %v", ErrUnavailable, err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (s *Postgres) List(ctx context.Context, userID string) ([]Bookmark, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, chapter_id, section_id, created_at
		 FROM bookmarks
		 WHERE user_id = $1
		 ORDER BY chapter_id ASC, section_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list bookmarks: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		var bm Bookmark
		if err := rows.Scan(&bm.UserID, &bm.ChapterID, &bm.SectionID, &bm.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan bookmark: %v", ErrUnavailable, err)
		}
		out = append(out, bm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list bookmarks: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (s *Postgres) Append(ctx context.Context, at Attempt) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	createdAt := at.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (user_id, chapter_id, section_id, answer, is_correct, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		at.UserID, at.ChapterID, at.SectionID, at.Label, at.Correct, createdAt,
	)
	if err != nil {
		return fmt.Errorf("%w: append attempt: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID string) ([]Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, chapter_id, section_id, answer, is_correct, created_at
		 FROM quiz_attempts
		 WHERE user_id = $1
		 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list attempts: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var at Attempt
		if err := rows.Scan(&at.UserID, &at.ChapterID, &at.SectionID, &at.Label, &at.Correct, &at.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan attempt: %v", ErrUnavailable, err)
		}
		out = append(out, at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list attempts: %v", ErrUnavailable, err)
	}
	return out, nil
}
