package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lexrag/internal/domain"
)

// Completer calls an OpenAI-compatible chat-completions endpoint in
// streaming mode and hands back the raw event stream.
type Completer struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewCompleter(baseURL, apiKey, model string, client *http.Client) *Completer {
	if client == nil {
		// Streaming responses stay open for the duration of the
		// answer; no client-side timeout.
		client = &http.Client{}
	}
	return &Completer{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  client,
	}
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Stream   bool             `json:"stream"`
}

// StreamChat starts a streaming completion and returns the response
// body for the caller to consume. The caller owns closing it.
func (c *Completer) StreamChat(ctx context.Context, messages []domain.Message) (io.ReadCloser, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("completion api key is not configured")
	}

	jsonData, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "completion_call_failed",
			slog.String("model", c.model),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to call completion service: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		slog.ErrorContext(ctx, "completion_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, statusError("completion service", resp.StatusCode, body)
	}

	slog.DebugContext(ctx, "completion_stream_opened",
		slog.String("model", c.model),
		slog.Int("message_count", len(messages)),
	)
	return resp.Body, nil
}

func (c *Completer) Version() string {
	return c.model
}

// statusError maps provider status codes onto the error taxonomy,
// keeping the provider's own message for the caller to surface.
func statusError(service string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", domain.ErrQuotaExhausted, msg)
	}
	return fmt.Errorf("%s returned status %d: %s", service, status, msg)
}

var _ domain.CompletionStreamer = (*Completer)(nil)
