package stategate

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/bookd/internal/book"
)

// Decision is the result of a gate check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true, Reason: "OK"}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Action is the orchestrator-facing outcome of a three-way feedback gate.
type Action int

const (
	// ActionProceed advances to the next stage.
	ActionProceed Action = iota
	// ActionWait holds until the editor supplies notes.
	ActionWait
	// ActionRegenerate re-runs generation with the supplied feedback.
	ActionRegenerate
	// ActionPause parks the workflow until an operator resumes it.
	ActionPause
	// ActionInvalid means the gate value is outside the vocabulary.
	ActionInvalid
)

func (a Action) String() string {
	switch a {
	case ActionProceed:
		return "proceed"
	case ActionWait:
		return "wait"
	case ActionRegenerate:
		return "regenerate"
	case ActionPause:
		return "pause"
	default:
		return "invalid"
	}
}

// gateKey indexes the feedback transition table.
type gateKey struct {
	status   book.ReviewStatus
	hasNotes bool
}

// feedbackTable is the single transition table for every three-way gate:
// (gate value, feedback present) -> action.
var feedbackTable = map[gateKey]Action{
	{book.ReviewYes, true}:            ActionRegenerate,
	{book.ReviewYes, false}:           ActionWait,
	{book.ReviewNoNotesNeeded, true}:  ActionProceed,
	{book.ReviewNoNotesNeeded, false}: ActionProceed,
	{book.ReviewNo, true}:             ActionPause,
	{book.ReviewNo, false}:            ActionPause,
}

// resolveFeedback looks up the action for a gate value and whether feedback
// text has been supplied.
func resolveFeedback(status book.ReviewStatus, hasNotes bool) Action {
	if action, ok := feedbackTable[gateKey{status, hasNotes}]; ok {
		return action
	}
	return ActionInvalid
}

// CanGenerateOutline requires editor requirements and no existing outline.
func CanGenerateOutline(b *book.Book) Decision {
	if b.NotesOutlineBefore == "" {
		return deny("notes_outline_before is required before outline generation")
	}
	if b.Outline != "" {
		return deny("outline already exists")
	}
	return allow()
}

// CanRegenerateOutline requires an existing outline and editor feedback.
func CanRegenerateOutline(b *book.Book) Decision {
	if b.Outline == "" {
		return deny("no existing outline to regenerate")
	}
	if b.NotesOutlineAfter == "" {
		return deny("notes_outline_after is required for regeneration")
	}
	return allow()
}

// AfterOutlineDecision resolves the outline feedback gate.
func AfterOutlineDecision(b *book.Book) (Action, string) {
	if b.StatusOutlineNotes == "" || b.StatusOutlineNotes == book.ReviewPending {
		return ActionWait, "status_outline_notes is not set"
	}

	switch action := resolveFeedback(b.StatusOutlineNotes, b.NotesOutlineAfter != ""); action {
	case ActionProceed:
		return action, "proceeding to chapter generation"
	case ActionWait:
		return action, "waiting for notes_outline_after"
	case ActionRegenerate:
		return action, "notes provided, regeneration needed"
	case ActionPause:
		return action, "workflow paused by editor (status=no)"
	default:
		return ActionInvalid, fmt.Sprintf("invalid status_outline_notes %q", b.StatusOutlineNotes)
	}
}

// CanGenerateChapter enforces the strict sequential dependency: chapter n
// may only be generated when the outline exists and, for n > 1, chapter n-1
// has content. Chapters are the snapshot of the book's chapters, any order.
func CanGenerateChapter(b *book.Book, chapters []book.Chapter, n int) Decision {
	if b.Outline == "" {
		return deny("outline must exist before generating chapters")
	}
	if n < 1 {
		return deny(fmt.Sprintf("invalid chapter number %d", n))
	}
	if n == 1 {
		return allow()
	}

	for i := range chapters {
		if chapters[i].Number == n-1 {
			if chapters[i].HasContent() {
				return allow()
			}
			break
		}
	}
	return deny(fmt.Sprintf("previous chapter (%d) must be completed first", n-1))
}

// ShouldWaitForChapterNotes resolves the per-chapter feedback gate. A true
// decision means the pipeline must hold before generating this chapter.
func ShouldWaitForChapterNotes(b *book.Book, chapter *book.Chapter) (bool, string) {
	if b.ChapterNotesStatus == "" || b.ChapterNotesStatus == book.ReviewPending {
		return true, "chapter_notes_status is not set"
	}

	// A missing chapter record has no notes to wait for.
	hasNotes := chapter == nil || chapter.Notes != ""
	switch resolveFeedback(b.ChapterNotesStatus, hasNotes) {
	case ActionProceed:
		return false, "no notes needed, proceeding"
	case ActionRegenerate:
		return false, "chapter notes provided"
	case ActionWait:
		return true, "waiting for chapter notes"
	case ActionPause:
		return true, "workflow paused (status=no)"
	default:
		return true, fmt.Sprintf("invalid chapter_notes_status %q", b.ChapterNotesStatus)
	}
}

// CanCompile requires at least one chapter, content in every chapter, and a
// final-review gate that is not waiting on feedback. Denials list the
// incomplete chapter numbers.
func CanCompile(b *book.Book, chapters []book.Chapter) Decision {
	if len(chapters) == 0 {
		return deny("no chapters exist")
	}

	var incomplete []string
	for i := range chapters {
		if !chapters[i].HasContent() {
			incomplete = append(incomplete, fmt.Sprintf("%d", chapters[i].Number))
		}
	}
	if len(incomplete) > 0 {
		return deny(fmt.Sprintf("chapters incomplete: [%s]", strings.Join(incomplete, ", ")))
	}

	if b.FinalReviewStatus == "" || b.FinalReviewStatus == book.ReviewPending {
		return deny("final_review_status is not set")
	}
	switch b.FinalReviewStatus {
	case book.ReviewYes:
		return deny("waiting for final review notes")
	case book.ReviewNoNotesNeeded, book.ReviewNo:
		return allow()
	default:
		return deny(fmt.Sprintf("invalid final_review_status %q", b.FinalReviewStatus))
	}
}
