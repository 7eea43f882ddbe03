package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/bookd/internal/book"
	"github.com/fyrsmithlabs/bookd/internal/logging"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := Open(":memory:", logging.NewTestLogger().Logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createTestBook(t *testing.T, s Store) *book.Book {
	t.Helper()
	b := &book.Book{
		Title:              "The Test Book",
		NotesOutlineBefore: "make it testable",
	}
	require.NoError(t, s.CreateBook(context.Background(), b))
	return b
}

func strPtr(v string) *string { return &v }

func TestOpen_RequiresPathAndLogger(t *testing.T) {
	_, err := Open("", logging.NewTestLogger().Logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path is required")

	_, err = Open(":memory:", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")
}

func TestBookRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := createTestBook(t, s)
	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, book.StatusPending, b.Status)

	got, err := s.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Test Book", got.Title)

	require.NoError(t, s.UpdateBook(ctx, b.ID, map[string]any{"outline": "Chapter 1: X"}))
	require.NoError(t, s.UpdateBookStatus(ctx, b.ID, book.StatusOutlineReview))

	got, err = s.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1: X", got.Outline)
	assert.Equal(t, book.StatusOutlineReview, got.Status)
}

func TestGetBook_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetBook(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBook_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateBook(context.Background(), uuid.New(), map[string]any{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChaptersByBook_OrderedByNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := createTestBook(t, s)

	// Insert out of order; reads must come back sorted.
	for _, n := range []int{3, 1, 2} {
		require.NoError(t, s.CreateChapter(ctx, &book.Chapter{
			BookID: b.ID,
			Number: n,
			Title:  "Ch",
		}))
	}

	chapters, err := s.ChaptersByBook(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	assert.Equal(t, 1, chapters[0].Number)
	assert.Equal(t, 2, chapters[1].Number)
	assert.Equal(t, 3, chapters[2].Number)
}

func TestGetChapter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := createTestBook(t, s)

	require.NoError(t, s.CreateChapter(ctx, &book.Chapter{BookID: b.ID, Number: 1, Title: "One"}))

	c, err := s.GetChapter(ctx, b.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "One", c.Title)
	assert.Equal(t, book.ChapterPending, c.Status)

	_, err = s.GetChapter(ctx, b.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreviousSummaries_SkipsMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := createTestBook(t, s)

	// Chapters 1 and 2 have summaries, chapter 3 does not.
	for n, summary := range map[int]*string{1: strPtr("S1"), 2: strPtr("S2"), 3: nil} {
		require.NoError(t, s.CreateChapter(ctx, &book.Chapter{
			BookID:  b.ID,
			Number:  n,
			Content: strPtr("content"),
			Summary: summary,
		}))
	}

	summaries, err := s.PreviousSummaries(ctx, b.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, summaries)

	summaries, err = s.PreviousSummaries(ctx, b.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, summaries)
}

func TestAppendLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := createTestBook(t, s)

	require.NoError(t, s.AppendLog(ctx, &book.GenerationLog{
		BookID: b.ID,
		Stage:  "outline",
		Action: "generation_started",
	}))
	require.NoError(t, s.AppendLog(ctx, &book.GenerationLog{
		BookID: b.ID,
		Stage:  "outline",
		Action: "generation_completed",
	}))

	logs, err := s.LogsByBook(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "generation_started", logs[0].Action)
	assert.Equal(t, "generation_completed", logs[1].Action)
}

func TestSaveCursor_OptimisticConcurrency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := createTestBook(t, s)

	cursor := &book.WorkflowCursor{
		BookID:            b.ID,
		Step:              "outline_review",
		ChaptersRequested: 5,
	}
	require.NoError(t, s.SaveCursor(ctx, cursor))
	assert.Equal(t, 1, cursor.Version)

	// Simulate two readers holding the same version.
	first, err := s.GetCursor(ctx, b.ID)
	require.NoError(t, err)
	second, err := s.GetCursor(ctx, b.ID)
	require.NoError(t, err)

	first.Step = "chapter_generation"
	require.NoError(t, s.SaveCursor(ctx, first))

	second.Step = "paused"
	err = s.SaveCursor(ctx, second)
	assert.ErrorIs(t, err, ErrStaleCursor)

	got, err := s.GetCursor(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "chapter_generation", got.Step)
	assert.Equal(t, 2, got.Version)
}

func TestGetCursor_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetCursor(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
