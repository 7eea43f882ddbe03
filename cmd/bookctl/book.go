package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	// book command flags
	bookTitle        string
	bookNotes        string
	bookChapterCount int
	bookRating       int
	bookFeedback     string
	bookDecision     string
	bookChapterNotes string
	bookFormats      []string
	bookOutputJSON   bool
)

func init() {
	rootCmd.AddCommand(bookCmd)
	bookCmd.AddCommand(bookCreateCmd)
	bookCmd.AddCommand(bookOutlineCmd)
	bookCmd.AddCommand(bookApproveOutlineCmd)
	bookCmd.AddCommand(bookChapterReviewCmd)
	bookCmd.AddCommand(bookChapterCmd)
	bookCmd.AddCommand(bookRegenerateChapterCmd)
	bookCmd.AddCommand(bookApproveChapterCmd)
	bookCmd.AddCommand(bookGenerateAllCmd)
	bookCmd.AddCommand(bookFinalReviewCmd)
	bookCmd.AddCommand(bookCompileCmd)
	bookCmd.AddCommand(bookStatusCmd)
	bookCmd.AddCommand(bookLogsCmd)

	bookCmd.PersistentFlags().BoolVar(&bookOutputJSON, "json", false, "Output results as JSON")

	bookCreateCmd.Flags().StringVar(&bookTitle, "title", "", "Book title (required)")
	bookCreateCmd.Flags().StringVar(&bookNotes, "notes", "", "Editor requirements for the outline (required)")
	bookCreateCmd.Flags().IntVar(&bookChapterCount, "chapters", 10, "Number of chapters to request")
	_ = bookCreateCmd.MarkFlagRequired("title")
	_ = bookCreateCmd.MarkFlagRequired("notes")

	bookApproveOutlineCmd.Flags().StringVar(&bookDecision, "decision", "", "Review decision: yes, no, or no_notes_needed (required)")
	bookApproveOutlineCmd.Flags().StringVar(&bookFeedback, "feedback", "", "Feedback for regeneration (pairs with --decision yes)")
	bookApproveOutlineCmd.Flags().IntVar(&bookRating, "rating", 0, "Optional 1-5 rating of the outline")
	_ = bookApproveOutlineCmd.MarkFlagRequired("decision")

	bookChapterReviewCmd.Flags().StringVar(&bookDecision, "decision", "", "Chapter notes decision: yes, no, or no_notes_needed (required)")
	_ = bookChapterReviewCmd.MarkFlagRequired("decision")

	bookRegenerateChapterCmd.Flags().StringVar(&bookChapterNotes, "notes", "", "Editor notes for the rewrite (required)")
	_ = bookRegenerateChapterCmd.MarkFlagRequired("notes")

	bookFinalReviewCmd.Flags().StringVar(&bookDecision, "decision", "", "Final review decision: yes, no, or no_notes_needed (required)")
	bookFinalReviewCmd.Flags().IntVar(&bookRating, "rating", 0, "Optional 1-5 rating of the draft")
	_ = bookFinalReviewCmd.MarkFlagRequired("decision")

	bookApproveChapterCmd.Flags().IntVar(&bookRating, "rating", 0, "Optional 1-5 rating of the chapter")

	bookCompileCmd.Flags().StringSliceVar(&bookFormats, "format", nil, "Export formats (default: all configured)")
}

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Manage books in the production pipeline",
}

var bookCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new book",
	Long: `Create a new book with a title and editor requirements.

Examples:
  bookctl book create --title "Practical Beekeeping" --notes "Hands-on guide for beginners" --chapters 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doRequest(http.MethodPost, "/api/v1/books", map[string]any{
			"title":                bookTitle,
			"notes_outline_before": bookNotes,
			"chapter_count":        bookChapterCount,
		})
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}

		var created struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal(body, &created); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Printf("Created book %q\n", created.Title)
		fmt.Printf("ID: %s\n", created.ID)
		return nil
	},
}

var bookOutlineCmd = &cobra.Command{
	Use:   "outline <book-id>",
	Short: "Generate the outline for a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doRequest(http.MethodPost, "/api/v1/books/"+args[0]+"/outline", nil)
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}

		var resp struct {
			Outline string `json:"outline"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Println(resp.Outline)
		return nil
	},
}

var bookApproveOutlineCmd = &cobra.Command{
	Use:   "approve-outline <book-id>",
	Short: "Submit the outline review decision",
	Long: `Submit the editor's outline decision.

Examples:
  # Approve as-is
  bookctl book approve-outline <id> --decision no_notes_needed

  # Request changes
  bookctl book approve-outline <id> --decision yes --feedback "Merge chapters 2 and 3"

  # Park the book
  bookctl book approve-outline <id> --decision no`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]any{
			"decision": bookDecision,
			"feedback": bookFeedback,
		}
		if bookRating > 0 {
			payload["rating"] = bookRating
		}
		body, err := doRequest(http.MethodPost, "/api/v1/books/"+args[0]+"/outline/approval", payload)
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}

		var resp struct {
			Action  string `json:"action"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Printf("Action: %s\n", resp.Action)
		fmt.Printf("Message: %s\n", resp.Message)
		return nil
	},
}

var bookChapterReviewCmd = &cobra.Command{
	Use:   "chapter-review <book-id>",
	Short: "Record the chapter notes decision for a book",
	Long: `Record the editor's book-level chapter notes decision. Chapter
generation holds until this is set.

Examples:
  # Let generation proceed without per-chapter notes
  bookctl book chapter-review <id> --decision no_notes_needed

  # Require notes before each chapter
  bookctl book chapter-review <id> --decision yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doRequest(http.MethodPost, "/api/v1/books/"+args[0]+"/chapters/review",
			map[string]any{"decision": bookDecision})
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}

		var resp struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Println(resp.Message)
		return nil
	},
}

var bookChapterCmd = &cobra.Command{
	Use:   "chapter <book-id> <number>",
	Short: "Generate a single chapter",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doRequest(http.MethodPost, "/api/v1/books/"+args[0]+"/chapters/"+args[1], nil)
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}
		return printChapter(body)
	},
}

var bookRegenerateChapterCmd = &cobra.Command{
	Use:   "regenerate-chapter <book-id> <number>",
	Short: "Regenerate a chapter from editor notes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doRequest(http.MethodPost,
			"/api/v1/books/"+args[0]+"/chapters/"+args[1]+"/regenerate",
			map[string]any{"notes": bookChapterNotes})
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}
		return printChapter(body)
	},
}

var bookApproveChapterCmd = &cobra.Command{
	Use:   "approve-chapter <book-id> <number>",
	Short: "Approve a generated chapter",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]any{}
		if bookRating > 0 {
			payload["rating"] = bookRating
		}
		body, err := doRequest(http.MethodPost,
			"/api/v1/books/"+args[0]+"/chapters/"+args[1]+"/approval", payload)
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}

		var ch struct {
			Number int    `json:"chapter_number"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(body, &ch); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Printf("Chapter %d: %s\n", ch.Number, ch.Status)
		return nil
	},
}

var bookGenerateAllCmd = &cobra.Command{
	Use:   "generate-all <book-id>",
	Short: "Generate every remaining chapter in order",
	Long: `Generate all remaining chapters sequentially. The run stops at the
first chapter that is waiting for editor notes or at the first failure.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doRequest(http.MethodPost, "/api/v1/books/"+args[0]+"/chapters/generate-all", nil)
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}

		var resp struct {
			Generated int `json:"generated"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Printf("Generated %d chapters\n", resp.Generated)
		return nil
	},
}

var bookFinalReviewCmd = &cobra.Command{
	Use:   "final-review <book-id>",
	Short: "Record the final review decision",
	Long: `Record the editor's final review decision. Compilation stays
blocked until the decision is no or no_notes_needed.

Examples:
  bookctl book final-review <id> --decision no_notes_needed --rating 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]any{"decision": bookDecision}
		if bookRating > 0 {
			payload["rating"] = bookRating
		}
		body, err := doRequest(http.MethodPost, "/api/v1/books/"+args[0]+"/final-review/approval", payload)
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}

		var resp struct {
			Decision   string `json:"decision"`
			CanCompile bool   `json:"can_compile"`
			Reason     string `json:"reason"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Printf("Decision: %s\n", resp.Decision)
		if resp.CanCompile {
			fmt.Println("Ready to compile")
		} else {
			fmt.Printf("Blocked: %s\n", resp.Reason)
		}
		return nil
	},
}

var bookCompileCmd = &cobra.Command{
	Use:   "compile <book-id>",
	Short: "Compile the final draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doRequest(http.MethodPost, "/api/v1/books/"+args[0]+"/compile",
			map[string]any{"formats": bookFormats})
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}

		var resp struct {
			Artifacts map[string]string `json:"artifacts"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Printf("Wrote %d artifacts:\n", len(resp.Artifacts))
		for format, path := range resp.Artifacts {
			fmt.Printf("  %-10s %s\n", format, path)
		}
		return nil
	},
}

var bookStatusCmd = &cobra.Command{
	Use:   "status <book-id>",
	Short: "Show pipeline status for a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doRequest(http.MethodGet, "/api/v1/books/"+args[0]+"/status", nil)
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}

		var status struct {
			Title             string `json:"title"`
			Status            string `json:"status"`
			TotalChapters     int    `json:"total_chapters"`
			CompletedChapters int    `json:"completed_chapters"`
			CanCompile        bool   `json:"can_compile"`
			CompileBlocker    string `json:"compile_blocker"`
			Chapters          []struct {
				Number     int    `json:"number"`
				Title      string `json:"title"`
				Status     string `json:"status"`
				HasContent bool   `json:"has_content"`
				HasSummary bool   `json:"has_summary"`
			} `json:"chapters"`
		}
		if err := json.Unmarshal(body, &status); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		fmt.Printf("%s (%s)\n", status.Title, status.Status)
		fmt.Printf("Chapters: %d/%d complete\n", status.CompletedChapters, status.TotalChapters)
		if status.CanCompile {
			fmt.Println("Ready to compile")
		} else if status.CompileBlocker != "" {
			fmt.Printf("Blocked: %s\n", status.CompileBlocker)
		}

		if len(status.Chapters) > 0 {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\nNUM\tTITLE\tSTATUS\tCONTENT\tSUMMARY")
			for _, ch := range status.Chapters {
				fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%v\n",
					ch.Number, ch.Title, ch.Status, ch.HasContent, ch.HasSummary)
			}
			_ = w.Flush()
		}
		return nil
	},
}

var bookLogsCmd = &cobra.Command{
	Use:   "logs <book-id>",
	Short: "Show the generation audit trail for a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doRequest(http.MethodGet, "/api/v1/books/"+args[0]+"/logs", nil)
		if err != nil {
			return err
		}
		if bookOutputJSON {
			return printJSON(body)
		}

		var logs []struct {
			Stage     string `json:"stage"`
			Action    string `json:"action"`
			Details   string `json:"details"`
			CreatedAt string `json:"created_at"`
		}
		if err := json.Unmarshal(body, &logs); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tSTAGE\tACTION\tDETAILS")
		for _, entry := range logs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				entry.CreatedAt, entry.Stage, entry.Action, entry.Details)
		}
		return w.Flush()
	},
}

// printChapter renders a chapter response body.
func printChapter(body []byte) error {
	var ch struct {
		Number  int     `json:"chapter_number"`
		Title   string  `json:"title"`
		Status  string  `json:"status"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(body, &ch); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	fmt.Printf("Chapter %d: %s (%s)\n\n", ch.Number, ch.Title, ch.Status)
	if ch.Content != nil {
		fmt.Println(*ch.Content)
	}
	return nil
}
