package engine

import (
	"context"
	"fmt"
	"sort"
)

// Accuracy summarizes all of a user's quiz attempts. Rate is 0 when the user
// has no attempts, not an error.
type Accuracy struct {
	Attempts int
	Correct  int
	Rate     float64
}

// WeakSection is one entry of the weakest-sections ranking.
type WeakSection struct {
	ChapterID  int
	SectionID  int
	ErrorCount int
	ErrorRate  float64
}

// UserAccuracy aggregates the user's attempt log into an overall accuracy.
func (e *Engine) UserAccuracy(ctx context.Context, userID string) (Accuracy, error) {
	attempts, err := e.attempts.ListByUser(ctx, userID)
	if err != nil {
		return Accuracy{}, fmt.Errorf("load attempts: %w", err)
	}

	acc := Accuracy{Attempts: len(attempts)}
	for _, at := range attempts {
		if at.Correct {
			acc.Correct++
		}
	}
	if acc.Attempts > 0 {
		acc.Rate = float64(acc.Correct) / float64(acc.Attempts)
	}
	return acc, nil
}

// WeakestSections ranks sections by incorrect attempts: error count
// descending, ties by error rate descending, then by (chapter, section)
// ascending so the ranking is deterministic. Sections with no incorrect
// attempts never appear. A positive limit truncates the result.
func (e *Engine) WeakestSections(ctx context.Context, userID string, limit int) ([]WeakSection, error) {
	attempts, err := e.attempts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}

	type tally struct {
		total int
		wrong int
	}
	type key struct {
		chapter int
		section int
	}

	counts := make(map[key]*tally)
	for _, at := range attempts {
		k := key{at.ChapterID, at.SectionID}
		t := counts[k]
		if t == nil {
			t = &tally{}
			counts[k] = t
		}
		t.total++
		if !at.Correct {
			t.wrong++
		}
	}

	var out []WeakSection
	for k, t := range counts {
		if t.wrong == 0 {
			continue
		}
		out = append(out, WeakSection{
			ChapterID:  k.chapter,
			SectionID:  k.section,
			ErrorCount: t.wrong,
			ErrorRate:  float64(t.wrong) / float64(t.total),
		})
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].ErrorCount != out[b].ErrorCount {
			return out[a].ErrorCount > out[b].ErrorCount
		}
		if out[a].ErrorRate != out[b].ErrorRate {
			return out[a].ErrorRate > out[b].ErrorRate
		}
		if out[a].ChapterID != out[b].ChapterID {
			return out[a].ChapterID < out[b].ChapterID
		}
		return out[a].SectionID < out[b].SectionID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
