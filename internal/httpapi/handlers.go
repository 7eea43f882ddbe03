package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/bookd/internal/book"
)

// CreateBookRequest is the request body for POST /api/v1/books.
type CreateBookRequest struct {
	Title              string `json:"title"`
	NotesOutlineBefore string `json:"notes_outline_before"`
	ChapterCount       int    `json:"chapter_count"`
}

func (s *Server) handleCreateBook(c echo.Context) error {
	var req CreateBookRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid create book request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title field is required")
	}
	if req.NotesOutlineBefore == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "notes_outline_before field is required")
	}

	b, err := s.workflow.CreateBook(c.Request().Context(), req.Title, req.NotesOutlineBefore, req.ChapterCount)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (s *Server) handleGetBook(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	b, err := s.store.GetBook(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) handleStatus(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	report, err := s.workflow.Status(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleLogs(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	logs, err := s.store.LogsByBook(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, logs)
}

// OutlineResponse is the response body for outline generation.
type OutlineResponse struct {
	Outline string `json:"outline"`
}

func (s *Server) handleGenerateOutline(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	text, err := s.workflow.GenerateOutline(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, OutlineResponse{Outline: text})
}

// ApprovalRequest is the shared request body for review submissions.
type ApprovalRequest struct {
	Decision string `json:"decision"`
	Feedback string `json:"feedback"`
	Rating   *int   `json:"rating"`
}

// ApprovalResponse reports the gate resolution after a review submission.
type ApprovalResponse struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// parseDecision validates a three-way review decision value.
func parseDecision(raw string) (book.ReviewStatus, error) {
	decision := book.ReviewStatus(raw)
	switch decision {
	case book.ReviewYes, book.ReviewNo, book.ReviewNoNotesNeeded:
		return decision, nil
	default:
		return "", echo.NewHTTPError(http.StatusBadRequest,
			"decision must be one of: yes, no, no_notes_needed")
	}
}

func (s *Server) handleOutlineApproval(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	var req ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	decision, err := parseDecision(req.Decision)
	if err != nil {
		return err
	}

	action, message, err := s.workflow.SubmitOutlineReview(c.Request().Context(), id, decision, req.Feedback, req.Rating)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ApprovalResponse{Action: action.String(), Message: message})
}

// chapterNumber parses the :n route parameter.
func chapterNumber(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid chapter number")
	}
	return n, nil
}

func (s *Server) handleGenerateChapter(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	n, err := chapterNumber(c)
	if err != nil {
		return err
	}
	if _, err := s.workflow.InitializeChapters(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	ch, err := s.workflow.GenerateChapter(c.Request().Context(), id, n)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ch)
}

// RegenerateChapterRequest is the request body for chapter regeneration.
type RegenerateChapterRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleRegenerateChapter(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	n, err := chapterNumber(c)
	if err != nil {
		return err
	}
	var req RegenerateChapterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Notes == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "notes field is required for regeneration")
	}

	ch, err := s.workflow.RegenerateChapter(c.Request().Context(), id, n, req.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ch)
}

func (s *Server) handleApproveChapter(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	n, err := chapterNumber(c)
	if err != nil {
		return err
	}
	var req ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	// Feedback means the editor wants a rewrite, not an approval.
	if req.Feedback != "" {
		ch, err := s.workflow.RegenerateChapter(c.Request().Context(), id, n, req.Feedback)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, ch)
	}

	ch, err := s.workflow.ApproveChapter(c.Request().Context(), id, n, req.Rating)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ch)
}

func (s *Server) handleChapterNotesDecision(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	var req ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	decision, err := parseDecision(req.Decision)
	if err != nil {
		return err
	}

	if err := s.workflow.SubmitChapterNotesDecision(c.Request().Context(), id, decision); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ApprovalResponse{
		Action:  string(decision),
		Message: "chapter notes decision recorded",
	})
}

// FinalReviewResponse reports compile readiness after the final review
// decision is recorded.
type FinalReviewResponse struct {
	Decision   string `json:"decision"`
	CanCompile bool   `json:"can_compile"`
	Reason     string `json:"reason,omitempty"`
}

func (s *Server) handleFinalReviewApproval(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	var req ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	decision, err := parseDecision(req.Decision)
	if err != nil {
		return err
	}

	d, err := s.workflow.SubmitFinalReview(c.Request().Context(), id, decision, req.Rating)
	if err != nil {
		return httpError(err)
	}
	resp := FinalReviewResponse{
		Decision:   string(decision),
		CanCompile: d.Allowed,
	}
	if !d.Allowed {
		resp.Reason = d.Reason
	}
	return c.JSON(http.StatusOK, resp)
}

// GenerateAllResponse reports a batch generation run.
type GenerateAllResponse struct {
	Generated int `json:"generated"`
}

func (s *Server) handleGenerateAll(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	generated, err := s.workflow.GenerateAllChapters(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, GenerateAllResponse{Generated: generated})
}

// CompileRequest is the request body for POST /api/v1/books/:id/compile.
type CompileRequest struct {
	Formats []string `json:"formats"`
}

func (s *Server) handleCompile(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return err
	}
	var req CompileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.workflow.Compile(c.Request().Context(), id, req.Formats)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}
