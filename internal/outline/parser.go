// Package outline converts raw generated outline text into an ordered,
// deduplicated, renumbered chapter list.
package outline

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Entry is one parsed chapter heading. Number is the final sequential
// position, not the number the model emitted.
type Entry struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// headingPattern matches only lines that BEGIN with a chapter heading, so
// chapter references inside description prose never match.
var headingPattern = regexp.MustCompile(`(?i)^Chapter\s+(\d+)\s*:\s*(.+)$`)

// descriptionSuffix strips an accidentally captured trailing "Description:"
// segment from a title.
var descriptionSuffix = regexp.MustCompile(`(?i)\s*Description:.*$`)

// Parser parses outline text into chapter entries.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a parser. Logger is required; the parser reports
// skipped duplicates, placeholders, and count mismatches as warnings.
func NewParser(logger *zap.Logger) (*Parser, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for outline parser")
	}
	return &Parser{logger: logger}, nil
}

// Parse scans the outline line by line and returns exactly the usable
// chapters, renumbered 1..len in parsed-number order.
//
// The parsed number is used only for ordering and duplicate detection.
// Duplicates are skipped, not errors. Placeholder titles are skipped.
// Scanning stops once expected matches have been collected. If nothing
// matches, expected synthetic "Chapter i" entries are returned. A final
// count short of expected is a warning, never a failure.
func (p *Parser) Parse(text string, expected int) []Entry {
	type parsed struct {
		number int
		title  string
	}

	var found []parsed
	seen := make(map[int]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		m := headingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		number, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		title := strings.TrimSpace(descriptionSuffix.ReplaceAllString(m[2], ""))

		if seen[number] {
			p.logger.Warn("skipping duplicate chapter number",
				zap.Int("chapter_number", number))
			continue
		}
		if title == "" || strings.Contains(strings.ToLower(title), "[chapter title here]") {
			p.logger.Warn("skipping placeholder chapter title",
				zap.Int("chapter_number", number))
			continue
		}

		seen[number] = true
		found = append(found, parsed{number: number, title: title})

		if len(found) >= expected {
			break
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].number < found[j].number })
	if len(found) > expected {
		found = found[:expected]
	}

	if len(found) == 0 {
		p.logger.Warn("no valid chapters found in outline, synthesizing defaults",
			zap.Int("expected", expected))
		entries := make([]Entry, 0, expected)
		for i := 1; i <= expected; i++ {
			entries = append(entries, Entry{Number: i, Title: fmt.Sprintf("Chapter %d", i)})
		}
		return entries
	}

	if len(found) != expected {
		p.logger.Warn("parsed chapter count differs from expected",
			zap.Int("expected", expected),
			zap.Int("parsed", len(found)))
	}

	// Renumber sequentially; the model's numbering only decided order. Flag
	// non-contiguous input so silent position shifts stay visible.
	entries := make([]Entry, 0, len(found))
	for i, ch := range found {
		if ch.number != i+1 {
			p.logger.Warn("renumbering non-contiguous chapter",
				zap.Int("parsed_number", ch.number),
				zap.Int("assigned_number", i+1))
		}
		entries = append(entries, Entry{Number: i + 1, Title: ch.title})
	}
	return entries
}
