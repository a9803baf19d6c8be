package book

// SectionKind distinguishes readable content from gradable quizzes.
// It is a closed set; anything else is rejected at load time.
type SectionKind int

const (
	KindContent SectionKind = iota + 1
	KindQuiz
)

func (k SectionKind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindQuiz:
		return "quiz"
	default:
		return "unknown"
	}
}

// Section is the smallest navigable unit of a chapter.
// Content sections carry Body; quiz sections carry Prompt, Choices and CorrectLabel.
type Section struct {
	ID           int
	Kind         SectionKind
	Body         string
	Prompt       string
	Choices      map[string]string
	CorrectLabel string
}

// Chapter is a top-level unit of the book. Sections are stored split by kind,
// each group sorted ascending by section id. Immutable after load.
type Chapter struct {
	ID       int
	Title    string
	ImageURL string

	content []Section
	quizzes []Section
}

// HasCover reports whether the chapter has a cover image pseudo-section.
func (ch *Chapter) HasCover() bool {
	return ch.ImageURL != ""
}

// Content returns the chapter's content sections in reading order.
func (ch *Chapter) Content() []Section {
	return ch.content
}

// Quizzes returns the chapter's quiz sections in test order.
func (ch *Chapter) Quizzes() []Section {
	return ch.quizzes
}

// SectionCount returns the total number of real sections (content + quiz).
func (ch *Chapter) SectionCount() int {
	return len(ch.content) + len(ch.quizzes)
}

// MaxSectionID returns the largest section id in the chapter, or 0 if the
// chapter has no sections. Any position beyond it is end-of-chapter.
func (ch *Chapter) MaxSectionID() int {
	max := 0
	for _, s := range ch.content {
		if s.ID > max {
			max = s.ID
		}
	}
	for _, s := range ch.quizzes {
		if s.ID > max {
			max = s.ID
		}
	}
	return max
}

// ReadingSlots returns the number of display slots for progress numbering:
// the cover image (if present) plus all content sections.
func (ch *Chapter) ReadingSlots() int {
	n := len(ch.content)
	if ch.HasCover() {
		n++
	}
	return n
}

// Catalog is the immutable in-memory book. It is built once at startup and
// shared read-only across all user sessions.
type Catalog struct {
	chapters []*Chapter
	byID     map[int]*Chapter
}

// Chapters returns all chapters in order.
func (c *Catalog) Chapters() []*Chapter {
	return c.chapters
}

// Len returns the number of chapters.
func (c *Catalog) Len() int {
	return len(c.chapters)
}

// Chapter returns the chapter with the given id.
func (c *Catalog) Chapter(id int) (*Chapter, bool) {
	ch, ok := c.byID[id]
	return ch, ok
}

// Section resolves a (chapter, section) coordinate. The cover pseudo-section
// (id 0) is not a real section and is not resolvable here.
func (c *Catalog) Section(chapterID, sectionID int) (*Section, bool) {
	ch, ok := c.byID[chapterID]
	if !ok {
		return nil, false
	}
	for i := range ch.content {
		if ch.content[i].ID == sectionID {
			return &ch.content[i], true
		}
	}
	for i := range ch.quizzes {
		if ch.quizzes[i].ID == sectionID {
			return &ch.quizzes[i], true
		}
	}
	return nil, false
}

// ContentSections returns a chapter's content sections sorted ascending by
// section id, or nil for an unknown chapter.
func (c *Catalog) ContentSections(chapterID int) []Section {
	ch, ok := c.byID[chapterID]
	if !ok {
		return nil
	}
	return ch.content
}

// QuizSections returns a chapter's quiz sections sorted ascending by section
// id, or nil for an unknown chapter.
func (c *Catalog) QuizSections(chapterID int) []Section {
	ch, ok := c.byID[chapterID]
	if !ok {
		return nil
	}
	return ch.quizzes
}
