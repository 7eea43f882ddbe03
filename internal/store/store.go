package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fyrsmithlabs/bookd/internal/book"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStaleCursor indicates a cursor save lost an optimistic-concurrency
	// race; the caller should re-read and retry.
	ErrStaleCursor = errors.New("workflow cursor was modified concurrently")
)

// Store is the persistence contract used by the workflow layer.
type Store interface {
	CreateBook(ctx context.Context, b *book.Book) error
	GetBook(ctx context.Context, id uuid.UUID) (*book.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, fields map[string]any) error
	UpdateBookStatus(ctx context.Context, id uuid.UUID, status book.Status) error

	CreateChapter(ctx context.Context, c *book.Chapter) error
	UpdateChapter(ctx context.Context, id uuid.UUID, fields map[string]any) error
	GetChapter(ctx context.Context, bookID uuid.UUID, number int) (*book.Chapter, error)

	// ChaptersByBook returns all chapters ordered by chapter number.
	ChaptersByBook(ctx context.Context, bookID uuid.UUID) ([]book.Chapter, error)

	// PreviousSummaries returns the non-null summaries of chapters numbered
	// below beforeNumber, in ascending chapter order.
	PreviousSummaries(ctx context.Context, bookID uuid.UUID, beforeNumber int) ([]string, error)

	// AppendLog writes one audit record. Logs are append-only.
	AppendLog(ctx context.Context, l *book.GenerationLog) error
	LogsByBook(ctx context.Context, bookID uuid.UUID) ([]book.GenerationLog, error)

	GetCursor(ctx context.Context, bookID uuid.UUID) (*book.WorkflowCursor, error)

	// SaveCursor upserts the cursor. The write succeeds only if the stored
	// version still matches cursor.Version; on success the version is
	// incremented. Returns ErrStaleCursor on a lost race.
	SaveCursor(ctx context.Context, cursor *book.WorkflowCursor) error

	Close() error
}

// gormStore implements Store on sqlite via gorm.
type gormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (or creates) the sqlite database at path and migrates the
// schema. Use ":memory:" for tests.
func Open(path string, logger *zap.Logger) (Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for store")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&book.Book{},
		&book.Chapter{},
		&book.GenerationLog{},
		&book.WorkflowCursor{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &gormStore{db: db, logger: logger}, nil
}

func (s *gormStore) CreateBook(ctx context.Context, b *book.Book) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = book.StatusPending
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

func (s *gormStore) GetBook(ctx context.Context, id uuid.UUID) (*book.Book, error) {
	var b book.Book
	err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &b, nil
}

func (s *gormStore) UpdateBook(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&book.Book{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *gormStore) UpdateBookStatus(ctx context.Context, id uuid.UUID, status book.Status) error {
	return s.UpdateBook(ctx, id, map[string]any{"status": status})
}

func (s *gormStore) CreateChapter(ctx context.Context, c *book.Chapter) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = book.ChapterPending
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create chapter %d: %w", c.Number, err)
	}
	return nil
}

func (s *gormStore) UpdateChapter(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&book.Chapter{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update chapter: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("chapter %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *gormStore) GetChapter(ctx context.Context, bookID uuid.UUID, number int) (*book.Chapter, error) {
	var c book.Chapter
	err := s.db.WithContext(ctx).
		First(&c, "book_id = ? AND chapter_number = ?", bookID, number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chapter %d of book %s: %w", number, bookID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &c, nil
}

func (s *gormStore) ChaptersByBook(ctx context.Context, bookID uuid.UUID) ([]book.Chapter, error) {
	var chapters []book.Chapter
	err := s.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("chapter_number ASC").
		Find(&chapters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

func (s *gormStore) PreviousSummaries(ctx context.Context, bookID uuid.UUID, beforeNumber int) ([]string, error) {
	var chapters []book.Chapter
	err := s.db.WithContext(ctx).
		Where("book_id = ? AND chapter_number < ? AND summary IS NOT NULL AND summary != ''", bookID, beforeNumber).
		Order("chapter_number ASC").
		Find(&chapters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load previous summaries: %w", err)
	}

	summaries := make([]string, 0, len(chapters))
	for _, c := range chapters {
		summaries = append(summaries, *c.Summary)
	}
	return summaries, nil
}

func (s *gormStore) AppendLog(ctx context.Context, l *book.GenerationLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to append generation log: %w", err)
	}
	return nil
}

func (s *gormStore) LogsByBook(ctx context.Context, bookID uuid.UUID) ([]book.GenerationLog, error) {
	var logs []book.GenerationLog
	err := s.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list generation logs: %w", err)
	}
	return logs, nil
}

func (s *gormStore) GetCursor(ctx context.Context, bookID uuid.UUID) (*book.WorkflowCursor, error) {
	var cursor book.WorkflowCursor
	err := s.db.WithContext(ctx).First(&cursor, "book_id = ?", bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cursor for book %s: %w", bookID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow cursor: %w", err)
	}
	return &cursor, nil
}

func (s *gormStore) SaveCursor(ctx context.Context, cursor *book.WorkflowCursor) error {
	cursor.UpdatedAt = time.Now()

	var existing book.WorkflowCursor
	err := s.db.WithContext(ctx).First(&existing, "book_id = ?", cursor.BookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cursor.Version = 1
		if err := s.db.WithContext(ctx).Create(cursor).Error; err != nil {
			return fmt.Errorf("failed to create workflow cursor: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read workflow cursor: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&book.WorkflowCursor{}).
		Where("book_id = ? AND version = ?", cursor.BookID, cursor.Version).
		Updates(map[string]any{
			"step":               cursor.Step,
			"current_chapter":    cursor.CurrentChapter,
			"chapters_requested": cursor.ChaptersRequested,
			"ratings":            cursor.Ratings,
			"version":            cursor.Version + 1,
			"updated_at":         cursor.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save workflow cursor: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleCursor
	}
	cursor.Version++
	return nil
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying connection: %w", err)
	}
	return sqlDB.Close()
}
