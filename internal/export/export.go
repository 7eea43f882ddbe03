// Package export renders compiled manuscripts to output files.
//
// Each format is an independent Exporter; a failure in one format never
// aborts the others. Only an empty result across every requested format is
// treated as a total failure by the caller.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/bookd/internal/book"
)

// Exporter renders one output format.
type Exporter interface {
	// Format returns the format identifier ("txt", "markdown", "html").
	Format() string

	// Export writes the manuscript and returns the artifact path.
	Export(b *book.Book, chapters []book.Chapter) (string, error)
}

// Config configures the export service.
type Config struct {
	// OutputDir is where artifacts are written.
	OutputDir string `koanf:"output_dir"`

	// Formats are the formats produced by default.
	Formats []string `koanf:"formats"`
}

// DefaultConfig returns the default export configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "output",
		Formats:   []string{"txt", "markdown", "html"},
	}
}

// Service fans a manuscript out to the registered exporters.
type Service struct {
	config    *Config
	exporters map[string]Exporter
	logger    *zap.Logger
}

// NewService creates an export service with the built-in formats.
func NewService(cfg *Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for export service")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultConfig().OutputDir
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = DefaultConfig().Formats
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &Service{
		config:    cfg,
		exporters: make(map[string]Exporter),
		logger:    logger,
	}
	for _, e := range []Exporter{
		&textExporter{dir: cfg.OutputDir},
		&markdownExporter{dir: cfg.OutputDir},
		&htmlExporter{dir: cfg.OutputDir},
	} {
		s.exporters[e.Format()] = e
	}
	return s, nil
}

// Formats returns the registered format identifiers, sorted.
func (s *Service) Formats() []string {
	formats := make([]string, 0, len(s.exporters))
	for f := range s.exporters {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// ExportAll renders the requested formats. nil or a list containing "all"
// means every configured format. Per-format failures are logged and skipped;
// the returned map holds only the artifacts that succeeded.
func (s *Service) ExportAll(b *book.Book, chapters []book.Chapter, formats []string) map[string]string {
	if len(formats) == 0 {
		formats = s.config.Formats
	} else {
		for _, f := range formats {
			if f == "all" {
				formats = s.config.Formats
				break
			}
		}
	}

	results := make(map[string]string)
	for _, format := range formats {
		exporter, ok := s.exporters[format]
		if !ok {
			s.logger.Warn("unknown export format requested", zap.String("format", format))
			continue
		}
		path, err := exporter.Export(b, chapters)
		if err != nil {
			s.logger.Error("export failed",
				zap.String("format", format),
				zap.Error(err))
			continue
		}
		s.logger.Info("exported manuscript",
			zap.String("format", format),
			zap.String("path", path))
		results[format] = path
	}
	return results
}

// artifactName builds a filesystem-safe file name for the book.
func artifactName(b *book.Book, ext string) string {
	title := strings.ReplaceAll(b.Title, " ", "_")
	return fmt.Sprintf("%s_%s.%s", title, b.ID, ext)
}

func writeArtifact(dir, name string, content []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
