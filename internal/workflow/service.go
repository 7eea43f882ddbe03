package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/bookd/internal/book"
	"github.com/fyrsmithlabs/bookd/internal/contextchain"
	"github.com/fyrsmithlabs/bookd/internal/export"
	"github.com/fyrsmithlabs/bookd/internal/genai"
	"github.com/fyrsmithlabs/bookd/internal/notify"
	"github.com/fyrsmithlabs/bookd/internal/outline"
	"github.com/fyrsmithlabs/bookd/internal/store"
)

// defaultChapterCount applies when a book's cursor does not record a
// requested count.
const defaultChapterCount = 10

// cursorRetries bounds optimistic-concurrency retries on cursor saves.
const cursorRetries = 3

// Service sequences the outline, chapter, and compilation workflows.
type Service struct {
	store    store.Store
	client   *genai.Client
	chain    *contextchain.Service
	parser   *outline.Parser
	exporter *export.Service
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewService wires the workflow orchestrators.
func NewService(
	st store.Store,
	client *genai.Client,
	chain *contextchain.Service,
	parser *outline.Parser,
	exporter *export.Service,
	notifier notify.Notifier,
	logger *zap.Logger,
) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if client == nil {
		return nil, fmt.Errorf("generation client is required")
	}
	if chain == nil {
		return nil, fmt.Errorf("context chain is required")
	}
	if parser == nil {
		return nil, fmt.Errorf("outline parser is required")
	}
	if exporter == nil {
		return nil, fmt.Errorf("export service is required")
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for workflow service")
	}

	return &Service{
		store:    st,
		client:   client,
		chain:    chain,
		parser:   parser,
		exporter: exporter,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// CreateBook registers a new book with its editor requirements and seeds
// the workflow cursor.
func (s *Service) CreateBook(ctx context.Context, title, notesBefore string, chapterCount int) (*book.Book, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if notesBefore == "" {
		return nil, fmt.Errorf("notes_outline_before is required before outline generation")
	}
	if chapterCount <= 0 {
		chapterCount = defaultChapterCount
	}

	b := &book.Book{
		Title:              title,
		NotesOutlineBefore: notesBefore,
		Status:             book.StatusPending,
	}
	if err := s.store.CreateBook(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	cursor := &book.WorkflowCursor{
		BookID:            b.ID,
		Step:              "created",
		ChaptersRequested: chapterCount,
		Ratings:           "[]",
	}
	if err := s.store.SaveCursor(ctx, cursor); err != nil {
		return nil, fmt.Errorf("failed to seed workflow cursor: %w", err)
	}

	s.logger.Info("book created",
		zap.String("book_id", b.ID.String()),
		zap.String("title", title),
		zap.Int("chapters_requested", chapterCount))
	return b, nil
}

// setStage persists a book status transition and counts it.
func (s *Service) setStage(ctx context.Context, bookID uuid.UUID, stage book.Status) error {
	if err := s.store.UpdateBookStatus(ctx, bookID, stage); err != nil {
		return err
	}
	stageTransitions.WithLabelValues(string(stage)).Inc()
	s.logger.Info("book stage changed",
		zap.String("book_id", bookID.String()),
		zap.String("stage", string(stage)))
	return nil
}

// fail moves the book to the error status and fires an error notification.
// The original error is returned wrapped.
func (s *Service) fail(ctx context.Context, b *book.Book, op, stage string, err error) error {
	if serr := s.setStage(ctx, b.ID, book.StatusError); serr != nil {
		s.logger.Error("failed to mark book as errored",
			zap.String("book_id", b.ID.String()),
			zap.Error(serr))
	}
	s.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventError,
		BookID:    b.ID.String(),
		BookTitle: b.Title,
		Detail:    err.Error(),
	})
	return wrapErr(op, stage, err)
}

// audit appends an append-only generation log entry. Audit failures are
// logged but never fail the operation they describe.
func (s *Service) audit(ctx context.Context, bookID uuid.UUID, stage, action string, details map[string]any) {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}
	if err := s.store.AppendLog(ctx, &book.GenerationLog{
		BookID:  bookID,
		Stage:   stage,
		Action:  action,
		Details: string(payload),
	}); err != nil {
		s.logger.Warn("failed to append audit log",
			zap.String("stage", stage),
			zap.String("action", action),
			zap.Error(err))
	}
}

// updateCursor applies mutate under the cursor's optimistic version check,
// retrying a bounded number of times on lost races. A missing cursor is
// created on the fly.
func (s *Service) updateCursor(ctx context.Context, bookID uuid.UUID, mutate func(*book.WorkflowCursor)) error {
	for attempt := 0; attempt < cursorRetries; attempt++ {
		cursor, err := s.store.GetCursor(ctx, bookID)
		if errors.Is(err, store.ErrNotFound) {
			cursor = &book.WorkflowCursor{
				BookID:            bookID,
				ChaptersRequested: defaultChapterCount,
				Ratings:           "[]",
			}
		} else if err != nil {
			return err
		}

		mutate(cursor)

		err = s.store.SaveCursor(ctx, cursor)
		if errors.Is(err, store.ErrStaleCursor) {
			continue
		}
		return err
	}
	return store.ErrStaleCursor
}

// chaptersRequested reads the requested chapter count off the cursor.
func (s *Service) chaptersRequested(ctx context.Context, bookID uuid.UUID) int {
	cursor, err := s.store.GetCursor(ctx, bookID)
	if err != nil || cursor.ChaptersRequested <= 0 {
		return defaultChapterCount
	}
	return cursor.ChaptersRequested
}

// recordRating appends an editor rating to the cursor.
func (s *Service) recordRating(ctx context.Context, bookID uuid.UUID, rating book.Rating) {
	err := s.updateCursor(ctx, bookID, func(c *book.WorkflowCursor) {
		var ratings []book.Rating
		if c.Ratings != "" {
			_ = json.Unmarshal([]byte(c.Ratings), &ratings)
		}
		ratings = append(ratings, rating)
		if encoded, err := json.Marshal(ratings); err == nil {
			c.Ratings = string(encoded)
		}
	})
	if err != nil {
		s.logger.Warn("failed to record rating",
			zap.String("book_id", bookID.String()),
			zap.Error(err))
	}
}
