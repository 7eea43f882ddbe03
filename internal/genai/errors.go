package genai

import (
	"errors"
	"fmt"
)

// ErrRateLimited classifies failures caused by provider rate limiting.
// Callers surface these as "try again later" rather than hard errors.
var ErrRateLimited = errors.New("generation rate limited")

// RateLimitError is returned after the retry budget is exhausted on
// rate-limit failures. Message is safe to show to the editor.
type RateLimitError struct {
	Attempts int
	Message  string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// UserMessage returns the editor-facing explanation.
func (e *RateLimitError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return "The generation service is rate limited. Please wait a few minutes and try again."
}
