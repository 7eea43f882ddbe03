// Package contextchain maintains the rolling-summary context that links
// chapters together.
//
// Chapter N is generated against the summaries of chapters 1..N-1 rather
// than their full text. This package derives that context, produces and
// persists summaries, and can backfill missing ones.
package contextchain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/bookd/internal/book"
	"github.com/fyrsmithlabs/bookd/internal/genai"
	"github.com/fyrsmithlabs/bookd/internal/store"
)

// Service manages chapter summary context.
type Service struct {
	store  store.Store
	client *genai.Client
	logger *zap.Logger
}

// NewService creates a context chain service.
func NewService(st store.Store, client *genai.Client, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if client == nil {
		return nil, fmt.Errorf("generation client is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for context chain")
	}
	return &Service{store: st, client: client, logger: logger}, nil
}

// ContextFor returns the summaries of chapters numbered below chapterNumber,
// ascending. Chapters without a summary are silently omitted: the context is
// best effort, not a completeness guarantee.
func (s *Service) ContextFor(ctx context.Context, bookID uuid.UUID, chapterNumber int) ([]string, error) {
	summaries, err := s.store.PreviousSummaries(ctx, bookID, chapterNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load context for chapter %d: %w", chapterNumber, err)
	}

	s.logger.Debug("assembled chapter context",
		zap.Int("chapter_number", chapterNumber),
		zap.Int("summaries", len(summaries)))
	return summaries, nil
}

// SummarizeAndStore generates a summary for the chapter and persists it.
// Generation failures propagate; callers in the approval flow are expected
// to treat them as non-fatal.
func (s *Service) SummarizeAndStore(ctx context.Context, chapter *book.Chapter) (string, error) {
	if !chapter.HasContent() {
		s.logger.Warn("no content to summarize, skipping",
			zap.Int("chapter_number", chapter.Number))
		return "", nil
	}

	title := chapter.Title
	if title == "" {
		title = fmt.Sprintf("Chapter %d", chapter.Number)
	}

	summary, err := s.client.SummarizeChapter(ctx, *chapter.Content, chapter.Number, title)
	if err != nil {
		return "", fmt.Errorf("failed to summarize chapter %d: %w", chapter.Number, err)
	}

	if err := s.store.UpdateChapter(ctx, chapter.ID, map[string]any{"summary": summary}); err != nil {
		return "", fmt.Errorf("failed to store summary for chapter %d: %w", chapter.Number, err)
	}

	s.logger.Info("stored chapter summary",
		zap.Int("chapter_number", chapter.Number),
		zap.Int("summary_length", len(summary)))
	return summary, nil
}

// Rebuild backfills summaries for every chapter that has content but no
// summary. Already-summarized chapters are skipped, so the operation is
// idempotent. Returns the number of summaries generated.
func (s *Service) Rebuild(ctx context.Context, bookID uuid.UUID) (int, error) {
	chapters, err := s.store.ChaptersByBook(ctx, bookID)
	if err != nil {
		return 0, fmt.Errorf("failed to list chapters for rebuild: %w", err)
	}

	count := 0
	for i := range chapters {
		c := &chapters[i]
		if !c.HasContent() || c.HasSummary() {
			continue
		}
		if _, err := s.SummarizeAndStore(ctx, c); err != nil {
			return count, fmt.Errorf("rebuild stopped at chapter %d: %w", c.Number, err)
		}
		count++
	}

	s.logger.Info("rebuilt context chain",
		zap.String("book_id", bookID.String()),
		zap.Int("summaries_generated", count))
	return count, nil
}
