package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/bookd/internal/contextchain"
	"github.com/fyrsmithlabs/bookd/internal/export"
	"github.com/fyrsmithlabs/bookd/internal/genai"
	"github.com/fyrsmithlabs/bookd/internal/outline"
	"github.com/fyrsmithlabs/bookd/internal/store"
	"github.com/fyrsmithlabs/bookd/internal/workflow"
)

// routedModel answers prompts by template marker so the server tests can
// run the pipeline end to end without a live endpoint.
type routedModel struct {
	chapterCount int
}

func (m *routedModel) Generate(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "professional book outline creator"):
		var sb strings.Builder
		sb.WriteString("## CHAPTERS\n\n")
		for i := 1; i <= m.chapterCount; i++ {
			fmt.Fprintf(&sb, "Chapter %d: Part %d\nDescription: about part %d.\n\n", i, i, i)
		}
		return sb.String(), nil
	case strings.Contains(prompt, "professional book author"):
		var n int
		fmt.Sscanf(prompt[strings.Index(prompt, "Write Chapter"):], "Write Chapter %d", &n)
		return fmt.Sprintf("# Chapter %d\n\nBody of chapter %d.", n, n), nil
	case strings.Contains(prompt, "Summarize the following chapter"):
		return "A short summary.", nil
	}
	return "", fmt.Errorf("unexpected prompt: %.60s", prompt)
}

func setupTestServer(t *testing.T, chapterCount int) *Server {
	t.Helper()
	logger := zap.NewNop()

	st, err := store.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	client, err := genai.NewClient(&routedModel{chapterCount: chapterCount}, genai.DefaultConfig(), logger)
	require.NoError(t, err)
	client.WithSleep(func(context.Context, time.Duration) error { return nil })

	chain, err := contextchain.NewService(st, client, logger)
	require.NoError(t, err)
	parser, err := outline.NewParser(logger)
	require.NoError(t, err)
	exporter, err := export.NewService(&export.Config{
		OutputDir: t.TempDir(),
		Formats:   []string{"txt"},
	}, logger)
	require.NoError(t, err)

	wf, err := workflow.NewService(st, client, chain, parser, exporter, nil, logger)
	require.NoError(t, err)

	server, err := NewServer(wf, st, logger, nil)
	require.NoError(t, err)
	return server
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func TestNewServer(t *testing.T) {
	t.Run("returns error when workflow is nil", func(t *testing.T) {
		_, err := NewServer(nil, nil, zap.NewNop(), nil)
		assert.ErrorContains(t, err, "workflow service cannot be nil")
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server := setupTestServer(t, 3)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 8080, server.config.Port)
	})
}

func TestHandleHealth(t *testing.T) {
	server := setupTestServer(t, 3)

	rec := doJSON(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleCreateBook(t *testing.T) {
	server := setupTestServer(t, 3)

	t.Run("requires title", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/books", CreateBookRequest{
			NotesOutlineBefore: "notes",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("requires editor notes", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/books", CreateBookRequest{
			Title: "A Book",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("creates a book", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/books", CreateBookRequest{
			Title:              "A Book",
			NotesOutlineBefore: "write a book",
			ChapterCount:       3,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "A Book", resp["title"])
		assert.NotEmpty(t, resp["id"])
	})
}

func TestBookNotFound(t *testing.T) {
	server := setupTestServer(t, 3)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/books/00000000-0000-0000-0000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/api/v1/books/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPipelineOverHTTP(t *testing.T) {
	server := setupTestServer(t, 3)

	// Create.
	rec := doJSON(t, server, http.MethodPost, "/api/v1/books", CreateBookRequest{
		Title:              "The HTTP Book",
		NotesOutlineBefore: "write a book about HTTP",
		ChapterCount:       3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"].(string)
	base := "/api/v1/books/" + id

	// Outline.
	rec = doJSON(t, server, http.MethodPost, base+"/outline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var outlineResp OutlineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outlineResp))
	assert.Contains(t, outlineResp.Outline, "Chapter 1: Part 1")

	// A second outline request hits the gate.
	rec = doJSON(t, server, http.MethodPost, base+"/outline", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Approve the outline.
	rec = doJSON(t, server, http.MethodPost, base+"/outline/approval", ApprovalRequest{
		Decision: "no_notes_needed",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var approval ApprovalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approval))
	assert.Equal(t, "proceed", approval.Action)

	// Invalid decision values are rejected.
	rec = doJSON(t, server, http.MethodPost, base+"/outline/approval", ApprovalRequest{
		Decision: "maybe",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Chapter 2 before chapter 1 is a conflict.
	rec = doJSON(t, server, http.MethodPost, base+"/chapters/2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Chapter 1 generates.
	rec = doJSON(t, server, http.MethodPost, base+"/chapters/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var chapter map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chapter))
	assert.Contains(t, chapter["content"], "Body of chapter 1")

	// Compile is blocked while chapters are missing.
	rec = doJSON(t, server, http.MethodPost, base+"/compile", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Status reflects progress.
	rec = doJSON(t, server, http.MethodGet, base+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status workflow.StatusReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 3, status.TotalChapters)
	assert.Equal(t, 1, status.CompletedChapters)
	assert.False(t, status.CanCompile)

	// The audit trail is exposed.
	rec = doJSON(t, server, http.MethodGet, base+"/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	assert.NotEmpty(t, logs)

	// Batch generation holds until the chapter notes decision is recorded.
	rec = doJSON(t, server, http.MethodPost, base+"/chapters/generate-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var batch GenerateAllResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.Equal(t, 0, batch.Generated)

	rec = doJSON(t, server, http.MethodPost, base+"/chapters/review", ApprovalRequest{
		Decision: "no_notes_needed",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodPost, base+"/chapters/generate-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.Equal(t, 2, batch.Generated)

	// Approve chapter 2; feedback on chapter 3 triggers a rewrite.
	rating := 4
	rec = doJSON(t, server, http.MethodPost, base+"/chapters/2/approval", ApprovalRequest{
		Rating: &rating,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodPost, base+"/chapters/3/approval", ApprovalRequest{
		Feedback: "tighten the ending",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chapter))
	assert.Equal(t, "approved", chapter["status"])

	// Compile stays blocked until the final review decision is recorded.
	rec = doJSON(t, server, http.MethodPost, base+"/compile", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, server, http.MethodPost, base+"/final-review/approval", ApprovalRequest{
		Decision: "no_notes_needed",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var review FinalReviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	assert.True(t, review.CanCompile)

	// An invalid final review decision is rejected.
	rec = doJSON(t, server, http.MethodPost, base+"/final-review/approval", ApprovalRequest{
		Decision: "perhaps",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, server, http.MethodPost, base+"/compile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var compiled workflow.CompileResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &compiled))
	assert.Contains(t, compiled.Artifacts, "txt")

	rec = doJSON(t, server, http.MethodGet, base+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, 3, status.CompletedChapters)
}
