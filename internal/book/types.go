package book

import (
	"time"

	"github.com/google/uuid"
)

// Status is the book-level pipeline stage.
type Status string

const (
	StatusPending           Status = "pending"
	StatusOutlineGeneration Status = "outline_generation"
	StatusOutlineReview     Status = "outline_review"
	StatusChapterGeneration Status = "chapter_generation"
	StatusChapterReview     Status = "chapter_review"
	StatusFinalCompilation  Status = "final_compilation"
	StatusCompleted         Status = "completed"
	StatusPaused            Status = "paused"
	StatusError             Status = "error"
)

// ReviewStatus is the three-way feedback gate vocabulary shared by the
// outline, chapter, and final-review gates.
type ReviewStatus string

const (
	ReviewYes           ReviewStatus = "yes"
	ReviewNo            ReviewStatus = "no"
	ReviewNoNotesNeeded ReviewStatus = "no_notes_needed"
	ReviewPending       ReviewStatus = "pending"
	ReviewApproved      ReviewStatus = "approved"
	ReviewNeedsRevision ReviewStatus = "needs_revision"
)

// ChapterStatus tracks a single chapter through generation and review.
type ChapterStatus string

const (
	ChapterPending      ChapterStatus = "pending"
	ChapterGenerating   ChapterStatus = "generating"
	ChapterReview       ChapterStatus = "review"
	ChapterApproved     ChapterStatus = "approved"
	ChapterRegenerating ChapterStatus = "regenerating"
)

// Book is the main record for one manuscript in progress.
type Book struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title string    `gorm:"not null" json:"title"`

	// Outline is empty until the outline stage has produced one.
	Outline string `json:"outline"`

	// NotesOutlineBefore are the editor's requirements collected before
	// outline generation; NotesOutlineAfter is post-review feedback and is
	// cleared once consumed by a regeneration.
	NotesOutlineBefore string `json:"notes_outline_before"`
	NotesOutlineAfter  string `json:"notes_outline_after"`

	StatusOutlineNotes ReviewStatus `gorm:"default:pending" json:"status_outline_notes"`
	ChapterNotesStatus ReviewStatus `gorm:"default:pending" json:"chapter_notes_status"`
	FinalReviewStatus  ReviewStatus `gorm:"default:pending" json:"final_review_status"`

	Status    Status    `gorm:"default:pending" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chapter is one chapter of a book. Number is 1-based and dense per book.
// Content stays nil until generation completes; Summary stays nil until the
// chapter has been context-chained.
type Chapter struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookID  uuid.UUID `gorm:"type:uuid;index:idx_book_chapter,unique" json:"book_id"`
	Number  int       `gorm:"column:chapter_number;index:idx_book_chapter,unique" json:"chapter_number"`
	Title   string    `json:"title"`
	Content *string   `json:"content"`
	Summary *string   `json:"summary"`

	// Notes hold editor feedback used when regenerating this chapter.
	Notes  string        `json:"notes"`
	Status ChapterStatus `gorm:"default:pending" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasContent reports whether generation completed for this chapter.
func (c *Chapter) HasContent() bool {
	return c.Content != nil && *c.Content != ""
}

// HasSummary reports whether this chapter has been context-chained.
func (c *Chapter) HasSummary() bool {
	return c.Summary != nil && *c.Summary != ""
}

// GenerationLog is an append-only audit record. Rows are never mutated or
// deleted.
type GenerationLog struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookID  uuid.UUID `gorm:"type:uuid;index" json:"book_id"`
	Stage   string    `json:"stage"`
	Action  string    `json:"action"`
	Details string    `json:"details"`

	CreatedAt time.Time `json:"created_at"`
}

// WorkflowCursor tracks the editor's position in the approval loop. It is a
// first-class persisted record keyed by book, updated with an optimistic
// version check so racing requests for the same book cannot silently clobber
// each other.
type WorkflowCursor struct {
	BookID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"book_id"`
	Step              string    `json:"step"`
	CurrentChapter    int       `json:"current_chapter"`
	ChaptersRequested int       `json:"chapters_requested"`

	// Ratings is a JSON-encoded list of per-stage editor ratings.
	Ratings string `json:"ratings"`

	Version   int       `gorm:"default:0" json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rating is one editor rating collected at an approval step.
type Rating struct {
	Stage  string `json:"stage"`
	Score  int    `json:"rating"`
	Number int    `json:"chapter_number,omitempty"`
}
