// Package book loads and serves the immutable book catalog.
package book

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a book source document.
type Format int

const (
	FormatJSON Format = iota + 1
	FormatYAML
)

// schema describes the shape of a JSON book source. Semantic rules that a
// schema cannot express (dense chapter ids, duplicate section ids, answer
// label membership) are checked in code after decoding.
const schema = `{
  "type": "object",
  "required": ["chapters"],
  "properties": {
    "chapters": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["chapter_id", "title", "sections"],
        "properties": {
          "chapter_id": {"type": "integer", "minimum": 1},
          "title": {"type": "string", "minLength": 1},
          "image_url": {"type": "string"},
          "sections": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["section_id", "type", "content"],
              "properties": {
                "section_id": {"type": "integer", "minimum": 1},
                "type": {"enum": ["content", "quiz"]}
              }
            }
          }
        }
      }
    }
  }
}`

type bookSource struct {
	Chapters []chapterSource `json:"chapters" yaml:"chapters"`
}

type chapterSource struct {
	ChapterID int             `json:"chapter_id" yaml:"chapter_id"`
	Title     string          `json:"title" yaml:"title"`
	ImageURL  string          `json:"image_url" yaml:"image_url"`
	Sections  []sectionSource `json:"sections" yaml:"sections"`
}

// sectionSource keeps Content untyped: content sections carry a plain string,
// quiz sections carry a {question, options, answer} mapping.
type sectionSource struct {
	SectionID int    `json:"section_id" yaml:"section_id"`
	Type      string `json:"type" yaml:"type"`
	Content   any    `json:"content" yaml:"content"`
}

// Load reads and parses a book source file. The format is inferred from the
// file extension (.json, .yaml, .yml).
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading book source: %w", err)
	}

	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}

	catalog, err := Parse(data, format)
	if err != nil {
		return nil, err
	}

	slog.Info("book loaded", "path", path, "chapters", catalog.Len())
	return catalog, nil
}

// LoadOrEmpty is the degraded-mode variant of Load: on any load failure it
// logs the error and returns an empty catalog instead. Operators opt into
// this once at startup; it is never a per-request decision.
func LoadOrEmpty(path string) *Catalog {
	catalog, err := Load(path)
	if err != nil {
		slog.Error("book load failed, serving empty catalog", "path", path, "error", err)
		return &Catalog{byID: map[int]*Chapter{}}
	}
	return catalog
}

// Parse builds a catalog from raw source bytes.
func Parse(data []byte, format Format) (*Catalog, error) {
	var src bookSource

	switch format {
	case FormatJSON:
		result, err := gojsonschema.Validate(
			gojsonschema.NewStringLoader(schema),
			gojsonschema.NewBytesLoader(data),
		)
		if err != nil {
			return nil, fmt.Errorf("validating book source: %w", err)
		}
		if !result.Valid() {
			var msgs []string
			for _, desc := range result.Errors() {
				msgs = append(msgs, desc.String())
			}
			return nil, fmt.Errorf("invalid book source: %s", strings.Join(msgs, "; "))
		}
		if err := json.Unmarshal(data, &src); err != nil {
			return nil, fmt.Errorf("decoding book source: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &src); err != nil {
			return nil, fmt.Errorf("decoding book source: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown book source format: %d", format)
	}

	catalog := &Catalog{byID: make(map[int]*Chapter)}

	for i, cs := range src.Chapters {
		// Chapter ids must be dense from 1 in source order.
		if cs.ChapterID != i+1 {
			return nil, fmt.Errorf("chapter at position %d: chapter_id %d, want %d", i, cs.ChapterID, i+1)
		}
		if cs.Title == "" {
			return nil, fmt.Errorf("chapter %d: empty title", cs.ChapterID)
		}

		ch := &Chapter{
			ID:       cs.ChapterID,
			Title:    cs.Title,
			ImageURL: cs.ImageURL,
		}

		// Section ids are unique across the whole chapter, not per kind:
		// lookup resolves a coordinate to exactly one section, so a quiz
		// sharing an id with a content section would be unreachable.
		seen := map[int]bool{}

		for _, ss := range cs.Sections {
			sec, err := buildSection(ss)
			if err != nil {
				return nil, fmt.Errorf("chapter %d section %d: %w", cs.ChapterID, ss.SectionID, err)
			}
			if seen[sec.ID] {
				return nil, fmt.Errorf("chapter %d: duplicate section_id %d", cs.ChapterID, sec.ID)
			}
			seen[sec.ID] = true

			switch sec.Kind {
			case KindContent:
				ch.content = append(ch.content, sec)
			case KindQuiz:
				ch.quizzes = append(ch.quizzes, sec)
			}
		}

		// Insertion order in the source is irrelevant; each kind group is
		// ordered by ascending section id.
		sort.Slice(ch.content, func(a, b int) bool { return ch.content[a].ID < ch.content[b].ID })
		sort.Slice(ch.quizzes, func(a, b int) bool { return ch.quizzes[a].ID < ch.quizzes[b].ID })

		catalog.chapters = append(catalog.chapters, ch)
		catalog.byID[ch.ID] = ch
	}

	return catalog, nil
}

func buildSection(ss sectionSource) (Section, error) {
	if ss.SectionID < 1 {
		return Section{}, fmt.Errorf("section_id must be positive, got %d", ss.SectionID)
	}

	switch ss.Type {
	case "content":
		body, ok := ss.Content.(string)
		if !ok {
			return Section{}, fmt.Errorf("content section body must be text")
		}
		if body == "" {
			return Section{}, fmt.Errorf("content section body is empty")
		}
		return Section{ID: ss.SectionID, Kind: KindContent, Body: body}, nil

	case "quiz":
		raw, ok := ss.Content.(map[string]any)
		if !ok {
			return Section{}, fmt.Errorf("quiz section content must be an object")
		}
		return buildQuiz(ss.SectionID, raw)

	default:
		return Section{}, fmt.Errorf("unknown section type %q", ss.Type)
	}
}

func buildQuiz(id int, raw map[string]any) (Section, error) {
	prompt, _ := raw["question"].(string)
	if prompt == "" {
		return Section{}, fmt.Errorf("quiz is missing question")
	}

	rawOptions, ok := raw["options"].(map[string]any)
	if !ok {
		return Section{}, fmt.Errorf("quiz is missing options")
	}
	choices := make(map[string]string, len(rawOptions))
	for label, v := range rawOptions {
		text, ok := v.(string)
		if !ok || text == "" {
			return Section{}, fmt.Errorf("quiz option %q must be non-empty text", label)
		}
		choices[label] = text
	}
	if len(choices) < 2 {
		return Section{}, fmt.Errorf("quiz needs at least 2 options, got %d", len(choices))
	}

	answer, _ := raw["answer"].(string)
	if answer == "" {
		return Section{}, fmt.Errorf("quiz is missing answer")
	}
	if _, ok := choices[answer]; !ok {
		return Section{}, fmt.Errorf("quiz answer %q is not one of the options", answer)
	}

	return Section{
		ID:           id,
		Kind:         KindQuiz,
		Prompt:       prompt,
		Choices:      choices,
		CorrectLabel: answer,
	}, nil
}
