package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lexrag/internal/domain"
	"lexrag/internal/sse"
	"lexrag/internal/usecase"
)

var (
	version = "dev"

	// Global flags
	serverURL string

	// Chat command flags
	chatMode  string
	sessionID string

	// Search command flags
	searchLimit     int
	searchThreshold float64
	searchGrouped   bool

	// Index command flags
	indexSourceRef string
	indexCitation  string
	indexCourt     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "lexragctl",
	Short:   "Client for the lexrag case-law research service",
	Version: version,
}

var chatCmd = &cobra.Command{
	Use:   "chat <question>",
	Short: "Ask a grounded question and stream the answer",
	Long: `Ask a grounded question and stream the answer to stdout.

The numbered sources the answer may cite are printed first, then the
answer tokens as they arrive.

Examples:
  # One-shot question
  lexragctl chat "Can unexplained credits be added under section 68?"

  # Follow-up in the same conversation
  lexragctl chat --session research-1 "What did the tribunal hold?"

  # Ungrounded brainstorming
  lexragctl chat --mode creative "Draft an outline for the appeal"`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed case law without generating an answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var indexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "Queue a judgment file for indexing",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract cited authorities from an answer (file or stdin)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("LEXRAG_URL", "http://localhost:9020"), "lexrag server base URL")

	chatCmd.Flags().StringVar(&chatMode, "mode", "balanced", "chat mode (sources-only, balanced, creative, tribunal)")
	chatCmd.Flags().StringVar(&sessionID, "session", "", "session id for multi-turn conversations")

	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum matches (0 uses the server default)")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum similarity (0 uses the server default)")
	searchCmd.Flags().BoolVar(&searchGrouped, "grouped", false, "return only the best fragment per document")

	indexCmd.Flags().StringVar(&indexSourceRef, "source-ref", "", "stable document reference (required)")
	indexCmd.Flags().StringVar(&indexCitation, "citation", "", "reported citation of the judgment")
	indexCmd.Flags().StringVar(&indexCourt, "court", "", "court that delivered the judgment")
	_ = indexCmd.MarkFlagRequired("source-ref")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(extractCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runChat(cmd *cobra.Command, args []string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"messages":  []domain.Message{{Role: domain.RoleUser, Content: args[0]}},
		"mode":      chatMode,
		"sessionId": sessionID,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+"/v1/chat", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	// The stream stays open for the whole answer; the context, not a
	// client timeout, bounds the request.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	err = sse.DecodeStream(ctx, resp.Body, sse.Callbacks{
		OnRAGSources: func(sources []domain.RAGSource) {
			fmt.Println("Sources:")
			for _, s := range sources {
				fmt.Printf("  [%d] %s (%s) - %d%% match\n", s.ID, s.Citation, s.Court, s.Similarity)
			}
			fmt.Println()
		},
		OnDelta: func(content string) {
			fmt.Print(content)
		},
		OnDone: func() {
			fmt.Println()
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\ninterrupted")
			return nil
		}
		return fmt.Errorf("stream failed: %w", err)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"query":     args[0],
		"limit":     searchLimit,
		"threshold": searchThreshold,
		"grouped":   searchGrouped,
	})

	var out struct {
		Results []domain.RAGSource `json:"results"`
	}
	if err := postJSON(serverURL+"/v1/search", payload, &out); err != nil {
		return err
	}

	if len(out.Results) == 0 {
		fmt.Println("No matches.")
		return nil
	}
	for _, s := range out.Results {
		fmt.Printf("[%d] %s (%s) - %d%% match\n", s.ID, s.Citation, s.Court, s.Similarity)
		fmt.Printf("    %s\n", firstLine(s.Content))
	}
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	body, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{
		"sourceRef": indexSourceRef,
		"citation":  indexCitation,
		"court":     indexCourt,
		"body":      string(body),
	})

	var out struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := postJSON(serverURL+"/internal/documents", payload, &out); err != nil {
		return err
	}
	fmt.Printf("Job %s %s\n", out.JobID, out.Status)
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	var text []byte
	var err error
	if len(args) == 1 {
		text, err = os.ReadFile(args[0])
	} else {
		text, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read answer text: %w", err)
	}

	citations := usecase.ExtractCitations(string(text))
	if len(citations) == 0 {
		fmt.Println("No citations found.")
		return nil
	}
	for _, c := range citations {
		if c.Paragraph != nil {
			fmt.Printf("[%d] %s, para %d\n", c.ID, c.Citation, *c.Paragraph)
			continue
		}
		fmt.Printf("[%d] %s\n", c.ID, c.Citation)
	}
	return nil
}

func postJSON(url string, payload []byte, out interface{}) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const max = 160
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return s
}
