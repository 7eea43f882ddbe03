// Package genai wraps the content-generation model behind a retry policy.
//
// The external model is rate limited; every call goes through Client, which
// classifies rate-limit failures, honors server-suggested retry delays, and
// falls back to exponential backoff. Prompt construction for the four call
// sites (outline, outline revision, chapter, chapter summary) also lives
// here so they all share the identical retry discipline.
package genai
