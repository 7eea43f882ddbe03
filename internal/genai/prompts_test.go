package genai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildOutlinePrompt(t *testing.T) {
	prompt := BuildOutlinePrompt("Deep Work", "focus on practice", 5)

	assert.Contains(t, prompt, "Title: Deep Work")
	assert.Contains(t, prompt, "focus on practice")
	assert.Contains(t, prompt, "EXACTLY 5 chapters")
	assert.Contains(t, prompt, `MUST start with "Chapter [number]: [actual title]"`)
}

func TestBuildOutlineRevisionPrompt(t *testing.T) {
	prompt := BuildOutlineRevisionPrompt("Deep Work", "Chapter 1: Old", "tighten chapter 1", 5)

	assert.Contains(t, prompt, "Original Outline:\nChapter 1: Old")
	assert.Contains(t, prompt, "Editor's Feedback:\ntighten chapter 1")
	assert.Contains(t, prompt, "Address all the editor's feedback")
}

func TestBuildChapterPrompt(t *testing.T) {
	prompt := BuildChapterPrompt(ChapterPromptInput{
		BookTitle:         "Deep Work",
		Outline:           "Chapter 1: Focus\nChapter 2: Flow",
		Number:            2,
		ChapterTitle:      "Flow",
		PreviousSummaries: []string{"Focus was defined."},
		Notes:             "include a case study",
	})

	assert.Contains(t, prompt, "Write Chapter 2")
	assert.Contains(t, prompt, "Chapter 1 Summary: Focus was defined.")
	assert.Contains(t, prompt, "Editor's Specific Requirements for this Chapter:\ninclude a case study")
	assert.Contains(t, prompt, `"# Chapter 2: Flow"`)
}

func TestBuildChapterPrompt_NoContextOrNotes(t *testing.T) {
	prompt := BuildChapterPrompt(ChapterPromptInput{
		BookTitle:    "Deep Work",
		Outline:      "Chapter 1: Focus",
		Number:       1,
		ChapterTitle: "Focus",
	})

	assert.NotContains(t, prompt, "Context from previous chapters")
	assert.NotContains(t, prompt, "Editor's Specific Requirements")
}

func TestBuildSummaryPrompt(t *testing.T) {
	prompt := BuildSummaryPrompt("Long chapter text.", 3, "Flow")

	assert.Contains(t, prompt, "Chapter 3: Flow")
	assert.Contains(t, prompt, "150-200 words")
	assert.Contains(t, prompt, "Long chapter text.")
}
