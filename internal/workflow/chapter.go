package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/bookd/internal/book"
	"github.com/fyrsmithlabs/bookd/internal/genai"
	"github.com/fyrsmithlabs/bookd/internal/notify"
	"github.com/fyrsmithlabs/bookd/internal/stategate"
)

// InitializeChapters parses the outline into chapter records. Idempotent:
// if chapters already exist nothing is created.
func (s *Service) InitializeChapters(ctx context.Context, bookID uuid.UUID) (int, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return 0, err
	}
	if b.Outline == "" {
		return 0, &GateDenialError{Op: "initialize chapters", Reason: "outline must exist before initializing chapters"}
	}

	existing, err := s.store.ChaptersByBook(ctx, bookID)
	if err != nil {
		return 0, wrapErr("initialize chapters", "chapter", err)
	}
	if len(existing) > 0 {
		s.logger.Debug("chapters already initialized",
			zap.String("book_id", bookID.String()),
			zap.Int("count", len(existing)))
		return len(existing), nil
	}

	entries := s.parser.Parse(b.Outline, s.chaptersRequested(ctx, bookID))
	for _, entry := range entries {
		if err := s.store.CreateChapter(ctx, &book.Chapter{
			BookID: bookID,
			Number: entry.Number,
			Title:  entry.Title,
			Status: book.ChapterPending,
		}); err != nil {
			return 0, wrapErr("initialize chapters", "chapter", err)
		}
	}

	s.logger.Info("chapters initialized",
		zap.String("book_id", bookID.String()),
		zap.Int("count", len(entries)))
	return len(entries), nil
}

// SubmitChapterNotesDecision records the editor's book-level chapter-notes
// policy. The per-chapter feedback gate holds every generation run until
// this is set.
func (s *Service) SubmitChapterNotesDecision(ctx context.Context, bookID uuid.UUID, decision book.ReviewStatus) error {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return err
	}
	if err := s.store.UpdateBook(ctx, bookID, map[string]any{
		"chapter_notes_status": decision,
	}); err != nil {
		return wrapErr("submit chapter notes decision", "chapter", err)
	}
	s.audit(ctx, bookID, "chapter", "notes_decision", map[string]any{
		"decision": decision,
	})
	s.logger.Info("chapter notes decision recorded",
		zap.String("book_id", bookID.String()),
		zap.String("decision", string(decision)))
	return nil
}

// GenerateChapter generates one chapter: gate check, rolling context,
// generation, persistence, best-effort summary.
func (s *Service) GenerateChapter(ctx context.Context, bookID uuid.UUID, n int) (*book.Chapter, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	chapters, err := s.store.ChaptersByBook(ctx, bookID)
	if err != nil {
		return nil, wrapErr("generate chapter", "chapter", err)
	}

	if d := stategate.CanGenerateChapter(b, chapters, n); !d.Allowed {
		s.logger.Warn("chapter generation denied",
			zap.String("book_id", bookID.String()),
			zap.Int("chapter_number", n),
			zap.String("reason", d.Reason))
		return nil, &GateDenialError{Op: fmt.Sprintf("generate chapter %d", n), Reason: d.Reason}
	}

	chapter, err := s.store.GetChapter(ctx, bookID, n)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateChapter(ctx, chapter.ID, map[string]any{
		"status": book.ChapterGenerating,
	}); err != nil {
		return nil, wrapErr("generate chapter", "chapter", err)
	}
	if err := s.setStage(ctx, bookID, book.StatusChapterGeneration); err != nil {
		return nil, wrapErr("generate chapter", "chapter", err)
	}
	s.audit(ctx, bookID, "chapter", "generation_started", map[string]any{
		"chapter_number": n,
		"chapter_title":  chapter.Title,
	})

	summaries, err := s.chain.ContextFor(ctx, bookID, n)
	if err != nil {
		return nil, s.fail(ctx, b, "generate chapter", "chapter", err)
	}

	content, err := s.client.GenerateChapter(ctx, genai.ChapterPromptInput{
		BookTitle:         b.Title,
		Outline:           b.Outline,
		Number:            n,
		ChapterTitle:      chapter.Title,
		PreviousSummaries: summaries,
		Notes:             chapter.Notes,
	})
	if err != nil {
		return nil, s.fail(ctx, b, "generate chapter", "chapter", err)
	}

	if err := s.store.UpdateChapter(ctx, chapter.ID, map[string]any{
		"content": content,
		"status":  book.ChapterReview,
	}); err != nil {
		return nil, s.fail(ctx, b, "generate chapter", "chapter", err)
	}

	// Summary generation is best effort here; a missing summary only thins
	// later chapters' context.
	chapter.Content = &content
	if _, err := s.chain.SummarizeAndStore(ctx, chapter); err != nil {
		s.logger.Warn("summary generation failed, continuing",
			zap.Int("chapter_number", n),
			zap.Error(err))
	}

	s.audit(ctx, bookID, "chapter", "generation_completed", map[string]any{
		"chapter_number": n,
		"content_length": len(content),
	})
	if err := s.updateCursor(ctx, bookID, func(c *book.WorkflowCursor) {
		c.Step = "chapter_review"
		c.CurrentChapter = n
	}); err != nil {
		s.logger.Warn("failed to advance cursor", zap.Error(err))
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventChapterReady,
		BookID:    bookID.String(),
		BookTitle: b.Title,
		Detail:    fmt.Sprintf("chapter %d ready for review", n),
	})

	s.logger.Info("chapter generated",
		zap.String("book_id", bookID.String()),
		zap.Int("chapter_number", n),
		zap.Int("content_length", len(content)))

	return s.store.GetChapter(ctx, bookID, n)
}

// GenerateAllChapters drives chapter generation in ascending order. It
// skips chapters that already have content, stops at the first chapter
// that must wait for notes, and stops at the first hard failure. There is
// no skip-ahead: the pipeline is strictly serial.
func (s *Service) GenerateAllChapters(ctx context.Context, bookID uuid.UUID) (int, error) {
	if _, err := s.InitializeChapters(ctx, bookID); err != nil {
		return 0, err
	}

	chapters, err := s.store.ChaptersByBook(ctx, bookID)
	if err != nil {
		return 0, wrapErr("generate all chapters", "chapter", err)
	}
	if len(chapters) == 0 {
		return 0, &GateDenialError{Op: "generate all chapters", Reason: "no chapters to generate"}
	}

	generated := 0
	for i := range chapters {
		chapter := &chapters[i]

		if chapter.HasContent() {
			s.logger.Debug("chapter already generated, skipping",
				zap.Int("chapter_number", chapter.Number))
			continue
		}

		b, err := s.store.GetBook(ctx, bookID)
		if err != nil {
			return generated, err
		}

		if wait, reason := stategate.ShouldWaitForChapterNotes(b, chapter); wait {
			s.logger.Info("holding for chapter notes",
				zap.Int("chapter_number", chapter.Number),
				zap.String("reason", reason))
			s.notifier.Notify(ctx, notify.Event{
				Type:      notify.EventWaitingForNotes,
				BookID:    bookID.String(),
				BookTitle: b.Title,
				Detail:    fmt.Sprintf("chapter %d: %s", chapter.Number, reason),
			})
			return generated, nil
		}

		if _, err := s.GenerateChapter(ctx, bookID, chapter.Number); err != nil {
			return generated, err
		}
		generated++
	}

	// All chapters have content; ready for final compilation.
	updated, err := s.store.ChaptersByBook(ctx, bookID)
	if err != nil {
		return generated, wrapErr("generate all chapters", "chapter", err)
	}
	allDone := true
	for i := range updated {
		if !updated[i].HasContent() {
			allDone = false
			break
		}
	}
	if allDone {
		if err := s.setStage(ctx, bookID, book.StatusFinalCompilation); err != nil {
			return generated, wrapErr("generate all chapters", "chapter", err)
		}
	}

	return generated, nil
}

// RegenerateChapter stores the editor's notes and re-runs generation for
// one chapter; on success the chapter is marked approved.
func (s *Service) RegenerateChapter(ctx context.Context, bookID uuid.UUID, n int, notes string) (*book.Chapter, error) {
	chapter, err := s.store.GetChapter(ctx, bookID, n)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateChapter(ctx, chapter.ID, map[string]any{
		"notes":  notes,
		"status": book.ChapterRegenerating,
	}); err != nil {
		return nil, wrapErr("regenerate chapter", "chapter", err)
	}
	s.audit(ctx, bookID, "chapter", "regeneration_started", map[string]any{
		"chapter_number": n,
		"notes":          notes,
	})

	regenerated, err := s.GenerateChapter(ctx, bookID, n)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateChapter(ctx, regenerated.ID, map[string]any{
		"status": book.ChapterApproved,
	}); err != nil {
		return nil, wrapErr("regenerate chapter", "chapter", err)
	}
	return s.store.GetChapter(ctx, bookID, n)
}

// ApproveChapter marks a chapter approved. Approval is purely editorial:
// the context-chain summary is attempted best effort afterwards, and its
// failure does not undo the approval. The summary state is reported
// separately in status queries.
func (s *Service) ApproveChapter(ctx context.Context, bookID uuid.UUID, n int, rating *int) (*book.Chapter, error) {
	chapter, err := s.store.GetChapter(ctx, bookID, n)
	if err != nil {
		return nil, err
	}
	if !chapter.HasContent() {
		return nil, &GateDenialError{
			Op:     fmt.Sprintf("approve chapter %d", n),
			Reason: "chapter has no content to approve",
		}
	}

	if err := s.store.UpdateChapter(ctx, chapter.ID, map[string]any{
		"status": book.ChapterApproved,
	}); err != nil {
		return nil, wrapErr("approve chapter", "chapter", err)
	}
	s.audit(ctx, bookID, "chapter", "approved", map[string]any{
		"chapter_number": n,
	})

	if rating != nil {
		s.recordRating(ctx, bookID, book.Rating{Stage: "chapter", Score: *rating, Number: n})
	}

	if !chapter.HasSummary() {
		if _, err := s.chain.SummarizeAndStore(ctx, chapter); err != nil {
			s.logger.Warn("post-approval summary failed, chapter stays approved",
				zap.Int("chapter_number", n),
				zap.Error(err))
		}
	}

	return s.store.GetChapter(ctx, bookID, n)
}
