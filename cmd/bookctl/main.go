// Package main implements the bookctl CLI for manual operations against the bookd HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the bookd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bookctl",
	Short: "CLI for bookd HTTP server operations",
	Long: `bookctl is a command-line interface for driving the bookd book pipeline.
It provides commands for creating books, reviewing outlines, generating
chapters, and compiling the final draft.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "bookd server URL")
	rootCmd.AddCommand(healthCmd)
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check bookd server health",
	Long: `Check the health status of the bookd HTTP server.

Examples:
  # Check health
  bookctl health

  # Check health on a different server
  bookctl health --server http://localhost:9000`,
	RunE: runHealth,
}

// HealthResponse matches internal/httpapi HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	body, err := doRequest(http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}

	var resp HealthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("Server status: %s\n", resp.Status)
	return nil
}

// doRequest performs an HTTP request against the bookd server and returns
// the response body. Non-2xx responses become errors carrying the server's
// message.
func doRequest(method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, serverURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bookd at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var echoErr struct {
			Message any `json:"message"`
		}
		if err := json.Unmarshal(body, &echoErr); err == nil && echoErr.Message != nil {
			return nil, fmt.Errorf("server returned %d: %v", resp.StatusCode, echoErr.Message)
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// printJSON pretty-prints a JSON response body.
func printJSON(body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(buf.String())
	return nil
}
