package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/bookd/internal/book"
	"github.com/fyrsmithlabs/bookd/internal/notify"
	"github.com/fyrsmithlabs/bookd/internal/stategate"
)

// SubmitFinalReview records the editor's final review decision. A yes
// decision keeps compilation gated until the review is worked through;
// no and no_notes_needed open the compile gate. The returned decision
// reports whether the book is now compilable.
func (s *Service) SubmitFinalReview(ctx context.Context, bookID uuid.UUID, decision book.ReviewStatus, rating *int) (stategate.Decision, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return stategate.Decision{}, err
	}
	if err := s.store.UpdateBook(ctx, bookID, map[string]any{
		"final_review_status": decision,
	}); err != nil {
		return stategate.Decision{}, wrapErr("submit final review", "final_review", err)
	}
	s.audit(ctx, bookID, "final_review", "decision", map[string]any{
		"decision": decision,
	})

	if rating != nil {
		s.recordRating(ctx, bookID, book.Rating{Stage: "final", Score: *rating})
	}

	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return stategate.Decision{}, err
	}
	chapters, err := s.store.ChaptersByBook(ctx, bookID)
	if err != nil {
		return stategate.Decision{}, wrapErr("submit final review", "final_review", err)
	}

	d := stategate.CanCompile(b, chapters)
	s.logger.Info("final review decision recorded",
		zap.String("book_id", bookID.String()),
		zap.String("decision", string(decision)),
		zap.Bool("can_compile", d.Allowed))
	return d, nil
}

// CompileResult reports the artifacts written during final compilation.
type CompileResult struct {
	Artifacts map[string]string `json:"artifacts"`
}

/// Compile runs final compilation: every chapter must be complete and the
// final review gate must be open. Individual export formats may fail
// without failing the compile, but at least one artifact must be written.
func (s *Service) Compile(ctx context.Context, bookID uuid.UUID, formats []string) (*CompileResult, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	chapters, err := s.store.ChaptersByBook(ctx, bookID)
	if err != nil {
		return nil, wrapErr("compile book", "compilation", err)
	}

	if d := stategate.CanCompile(b, chapters); !d.Allowed {
		s.logger.Warn("compilation denied",
			zap.String("book_id", bookID.String()),
			zap.String("reason", d.Reason))
		return nil, &GateDenialError{Op: "compile book", Reason: d.Reason}
	}

	if err := s.setStage(ctx, bookID, book.StatusFinalCompilation); err != nil {
		return nil, wrapErr("compile book", "compilation", err)
	}
	s.audit(ctx, bookID, "compilation", "started", map[string]any{
		"formats": formats,
	})

	artifacts := s.exporter.ExportAll(b, chapters, formats)
	if len(artifacts) == 0 {
		return nil, s.fail(ctx, b, "compile book", "compilation",
			fmt.Errorf("no export format produced an artifact"))
	}

	if err := s.setStage(ctx, bookID, book.StatusCompleted); err != nil {
		return nil, wrapErr("compile book", "compilation", err)
	}
	s.audit(ctx, bookID, "compilation", "completed", map[string]any{
		"artifacts": artifacts,
	})
	if err := s.updateCursor(ctx, bookID, func(c *book.WorkflowCursor) {
		c.Step = "completed"
	}); err != nil {
		s.logger.Warn("failed to advance cursor", zap.Error(err))
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventDraftReady,
		BookID:    bookID.String(),
		BookTitle: b.Title,
		Detail:    fmt.Sprintf("%d artifacts written", len(artifacts)),
	})

	s.logger.Info("book compiled",
		zap.String("book_id", bookID.String()),
		zap.Int("artifacts", len(artifacts)))

	return &CompileResult{Artifacts: artifacts}, nil
}

// ChapterReport is the per-chapter slice of a status report. Approval and
// summary presence are reported independently.
type ChapterReport struct {
	Number     int    `json:"number"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	HasContent bool   `json:"has_content"`
	HasSummary bool   `json:"has_summary"`
}

// StatusReport summarizes where a book is in the pipeline.
type StatusReport struct {
	BookID            string          `json:"book_id"`
	Title             string          `json:"title"`
	Status            string          `json:"status"`
	OutlineNotes      string          `json:"outline_notes_status"`
	ChapterNotes      string          `json:"chapter_notes_status"`
	FinalReview       string          `json:"final_review_status"`
	TotalChapters     int             `json:"total_chapters"`
	CompletedChapters int             `json:"completed_chapters"`
	CanCompile        bool            `json:"can_compile"`
	CompileBlocker    string          `json:"compile_blocker,omitempty"`
	ExportFormats     []string        `json:"export_formats"`
	CursorStep        string          `json:"cursor_step,omitempty"`
	CurrentChapter    int             `json:"current_chapter,omitempty"`
	Chapters          []ChapterReport `json:"chapters"`
}

// Status builds a point-in-time report for a book.
func (s *Service) Status(ctx context.Context, bookID uuid.UUID) (*StatusReport, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	chapters, err := s.store.ChaptersByBook(ctx, bookID)
	if err != nil {
		return nil, wrapErr("book status", "status", err)
	}

	report := &StatusReport{
		BookID:        b.ID.String(),
		Title:         b.Title,
		Status:        string(b.Status),
		OutlineNotes:  string(b.StatusOutlineNotes),
		ChapterNotes:  string(b.ChapterNotesStatus),
		FinalReview:   string(b.FinalReviewStatus),
		TotalChapters: len(chapters),
		ExportFormats: s.exporter.Formats(),
	}

	for i := range chapters {
		ch := &chapters[i]
		if ch.HasContent() {
			report.CompletedChapters++
		}
		report.Chapters = append(report.Chapters, ChapterReport{
			Number:     ch.Number,
			Title:      ch.Title,
			Status:     string(ch.Status),
			HasContent: ch.HasContent(),
			HasSummary: ch.HasSummary(),
		})
	}

	d := stategate.CanCompile(b, chapters)
	report.CanCompile = d.Allowed
	if !d.Allowed {
		report.CompileBlocker = d.Reason
	}

	if cursor, err := s.store.GetCursor(ctx, bookID); err == nil {
		report.CursorStep = cursor.Step
		report.CurrentChapter = cursor.CurrentChapter
	}

	return report, nil
}
