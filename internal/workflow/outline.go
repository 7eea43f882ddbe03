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

// GenerateOutline runs the first pipeline phase: gate check, generation,
// persistence, audit, notification. Returns the generated outline text.
func (s *Service) GenerateOutline(ctx context.Context, bookID uuid.UUID) (string, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return "", err
	}

	if d := stategate.CanGenerateOutline(b); !d.Allowed {
		s.logger.Warn("outline generation denied",
			zap.String("book_id", bookID.String()),
			zap.String("reason", d.Reason))
		return "", &GateDenialError{Op: "generate outline", Reason: d.Reason}
	}

	if err := s.setStage(ctx, bookID, book.StatusOutlineGeneration); err != nil {
		return "", wrapErr("generate outline", "outline", err)
	}
	s.audit(ctx, bookID, "outline", "generation_started", map[string]any{
		"title": b.Title,
	})

	numChapters := s.chaptersRequested(ctx, bookID)
	text, err := s.client.GenerateOutline(ctx, b.Title, b.NotesOutlineBefore, numChapters)
	if err != nil {
		return "", s.fail(ctx, b, "generate outline", "outline", err)
	}

	if err := s.store.UpdateBook(ctx, bookID, map[string]any{
		"outline": text,
		"status":  book.StatusOutlineReview,
	}); err != nil {
		return "", s.fail(ctx, b, "generate outline", "outline", err)
	}
	stageTransitions.WithLabelValues(string(book.StatusOutlineReview)).Inc()

	s.audit(ctx, bookID, "outline", "generation_completed", map[string]any{
		"outline_length": len(text),
	})
	if err := s.updateCursor(ctx, bookID, func(c *book.WorkflowCursor) {
		c.Step = "outline_review"
	}); err != nil {
		s.logger.Warn("failed to advance cursor", zap.Error(err))
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventOutlineReady,
		BookID:    bookID.String(),
		BookTitle: b.Title,
		Detail:    "outline ready for review",
	})

	s.logger.Info("outline generated",
		zap.String("book_id", bookID.String()),
		zap.Int("outline_length", len(text)))
	return text, nil
}

// RegenerateOutline re-runs outline generation against the editor's
// post-review feedback, clearing the feedback once consumed.
func (s *Service) RegenerateOutline(ctx context.Context, bookID uuid.UUID) (string, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return "", err
	}

	if d := stategate.CanRegenerateOutline(b); !d.Allowed {
		s.logger.Warn("outline regeneration denied",
			zap.String("book_id", bookID.String()),
			zap.String("reason", d.Reason))
		return "", &GateDenialError{Op: "regenerate outline", Reason: d.Reason}
	}

	if err := s.setStage(ctx, bookID, book.StatusOutlineGeneration); err != nil {
		return "", wrapErr("regenerate outline", "outline", err)
	}
	s.audit(ctx, bookID, "outline", "regeneration_started", map[string]any{
		"feedback": b.NotesOutlineAfter,
	})

	numChapters := s.chaptersRequested(ctx, bookID)
	text, err := s.client.RegenerateOutline(ctx, b.Title, b.Outline, b.NotesOutlineAfter, numChapters)
	if err != nil {
		return "", s.fail(ctx, b, "regenerate outline", "outline", err)
	}

	if err := s.store.UpdateBook(ctx, bookID, map[string]any{
		"outline":             text,
		"status":              book.StatusOutlineReview,
		"notes_outline_after": "", // consumed
	}); err != nil {
		return "", s.fail(ctx, b, "regenerate outline", "outline", err)
	}
	stageTransitions.WithLabelValues(string(book.StatusOutlineReview)).Inc()

	s.audit(ctx, bookID, "outline", "regeneration_completed", map[string]any{
		"outline_length": len(text),
	})
	s.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventOutlineReady,
		BookID:    bookID.String(),
		BookTitle: b.Title,
		Detail:    "revised outline ready for review",
	})

	s.logger.Info("outline regenerated", zap.String("book_id", bookID.String()))
	return text, nil
}

// SubmitOutlineReview records the editor's outline decision and feedback,
// then resolves the gate via CheckAndProceed.
func (s *Service) SubmitOutlineReview(ctx context.Context, bookID uuid.UUID, decision book.ReviewStatus, feedback string, rating *int) (stategate.Action, string, error) {
	fields := map[string]any{"status_outline_notes": decision}
	if feedback != "" {
		fields["notes_outline_after"] = feedback
	}
	if err := s.store.UpdateBook(ctx, bookID, fields); err != nil {
		return stategate.ActionInvalid, "", err
	}

	if rating != nil {
		s.recordRating(ctx, bookID, book.Rating{Stage: "outline", Score: *rating})
	}

	return s.CheckAndProceed(ctx, bookID)
}

// CheckAndProceed resolves the outline feedback gate: advance to chapter
// generation, delegate to regeneration, or pause.
func (s *Service) CheckAndProceed(ctx context.Context, bookID uuid.UUID) (stategate.Action, string, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return stategate.ActionInvalid, "", err
	}

	action, reason := stategate.AfterOutlineDecision(b)
	switch action {
	case stategate.ActionProceed:
		if err := s.setStage(ctx, bookID, book.StatusChapterGeneration); err != nil {
			return action, "", wrapErr("check and proceed", "outline_review", err)
		}
		if err := s.updateCursor(ctx, bookID, func(c *book.WorkflowCursor) {
			c.Step = "chapter_generation"
		}); err != nil {
			s.logger.Warn("failed to advance cursor", zap.Error(err))
		}
		return action, "ready for chapter generation", nil

	case stategate.ActionRegenerate:
		if _, err := s.RegenerateOutline(ctx, bookID); err != nil {
			return action, "", err
		}
		return action, "outline regenerated from feedback", nil

	case stategate.ActionPause:
		if err := s.setStage(ctx, bookID, book.StatusPaused); err != nil {
			return action, "", wrapErr("check and proceed", "outline_review", err)
		}
		s.notifier.Notify(ctx, notify.Event{
			Type:      notify.EventBookPaused,
			BookID:    bookID.String(),
			BookTitle: b.Title,
			Detail:    reason,
		})
		return action, reason, nil

	case stategate.ActionWait:
		return action, reason, nil

	default:
		return action, reason, fmt.Errorf("outline gate in invalid state: %s", reason)
	}
}
