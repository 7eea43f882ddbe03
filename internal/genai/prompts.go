package genai

import (
	"context"
	"fmt"
	"strings"
)

// outlineRules are shared between first-pass and revision outline prompts.
// The heading format is load-bearing: the outline parser only accepts lines
// that begin with "Chapter <n>:".
func outlineRules(numChapters int) string {
	return fmt.Sprintf(`STRICT RULES YOU MUST FOLLOW:
1. Generate EXACTLY %d chapters - no more, no fewer
2. Each chapter heading line MUST start with "Chapter [number]: [actual title]"
3. Replace "[Chapter Title Here]" with an actual descriptive title
4. Do NOT use the word "Chapter" in descriptions or key points
5. Number chapters sequentially from 1 to %d
6. Each chapter must have a unique, descriptive title
7. Do NOT include placeholder text like "[Chapter Title Here]" in your final output`, numChapters, numChapters)
}

// BuildOutlinePrompt renders the first-pass outline prompt.
func BuildOutlinePrompt(title, notes string, numChapters int) string {
	return fmt.Sprintf(`You are a professional book outline creator. Create a detailed outline for a book with the following specifications:

Title: %s

Editor's Requirements and Notes:
%s

CRITICAL REQUIREMENT: You MUST generate EXACTLY %d chapters. Count carefully!

Generate a comprehensive book outline with this EXACT format:

## BOOK OVERVIEW
[Write 2-3 paragraphs overview here]

## CHAPTERS

Chapter 1: [Chapter Title Here]
Description: [2-3 sentence description]
Key Points: [bullet points]

[Continue for all %d chapters - DO NOT generate more or fewer]

%s`, title, notes, numChapters, numChapters, outlineRules(numChapters))
}

// BuildOutlineRevisionPrompt renders the regeneration prompt combining the
// original outline with the editor's feedback.
func BuildOutlineRevisionPrompt(title, originalOutline, feedback string, numChapters int) string {
	return fmt.Sprintf(`You are a professional book outline creator. You previously created an outline for a book, and now you need to improve it based on editor feedback.

Title: %s

Original Outline:
%s

Editor's Feedback:
%s

CRITICAL REQUIREMENT: You MUST generate EXACTLY %d chapters. Count carefully!

Revise the outline keeping the same "Chapter [number]: [title]" heading format.

%s
8. Address all the editor's feedback while maintaining exactly %d chapters`,
		title, originalOutline, feedback, numChapters, outlineRules(numChapters), numChapters)
}

// ChapterPromptInput collects everything the chapter prompt needs.
type ChapterPromptInput struct {
	BookTitle    string
	Outline      string
	Number       int
	ChapterTitle string

	// PreviousSummaries carry rolling context from approved chapters,
	// ascending by chapter number.
	PreviousSummaries []string

	// Notes are editor requirements specific to this chapter, if any.
	Notes string
}

// BuildChapterPrompt renders the chapter-generation prompt with rolling
// context from prior chapter summaries.
func BuildChapterPrompt(in ChapterPromptInput) string {
	var context string
	if len(in.PreviousSummaries) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\nContext from previous chapters:\n")
		for i, summary := range in.PreviousSummaries {
			fmt.Fprintf(&sb, "Chapter %d Summary: %s\n", i+1, summary)
		}
		context = sb.String()
	}

	var notes string
	if in.Notes != "" {
		notes = fmt.Sprintf("\n\nEditor's Specific Requirements for this Chapter:\n%s", in.Notes)
	}

	return fmt.Sprintf(`You are a professional book author. Write Chapter %d of a book based on the following information:

Book Title: %s

Full Book Outline:
%s

Current Chapter: Chapter %d - %s
%s%s

Write a comprehensive, well-structured chapter that:
1. Follows the outline's guidance for this chapter
2. Maintains continuity with previous chapters (if any)
3. Is engaging and well-written
4. Includes proper transitions and flow
5. Is substantial in length (aim for 2000-3000 words)
6. Addresses all points from the editor's requirements

Begin the chapter with "# Chapter %d: %s" and then write the full content.`,
		in.Number, in.BookTitle, in.Outline, in.Number, in.ChapterTitle,
		context, notes, in.Number, in.ChapterTitle)
}

// BuildSummaryPrompt renders the chapter-summary prompt used for context
// chaining.
func BuildSummaryPrompt(content string, number int, title string) string {
	return fmt.Sprintf(`Summarize the following chapter in 150-200 words. Focus on:
- Main topics covered
- Key points and arguments
- Important information that would be relevant for understanding subsequent chapters

Chapter %d: %s

%s

Provide a clear, concise summary:`, number, title, content)
}

// GenerateOutline produces a fresh outline for the book.
func (c *Client) GenerateOutline(ctx context.Context, title, notes string, numChapters int) (string, error) {
	return c.Call(ctx, BuildOutlinePrompt(title, notes, numChapters))
}

// RegenerateOutline produces a revised outline from editor feedback.
func (c *Client) RegenerateOutline(ctx context.Context, title, originalOutline, feedback string, numChapters int) (string, error) {
	return c.Call(ctx, BuildOutlineRevisionPrompt(title, originalOutline, feedback, numChapters))
}

// GenerateChapter produces chapter content with rolling context.
func (c *Client) GenerateChapter(ctx context.Context, in ChapterPromptInput) (string, error) {
	return c.Call(ctx, BuildChapterPrompt(in))
}

// SummarizeChapter produces the 150-200 word summary used for context
// chaining.
func (c *Client) SummarizeChapter(ctx context.Context, content string, number int, title string) (string, error) {
	return c.Call(ctx, BuildSummaryPrompt(content, number, title))
}
