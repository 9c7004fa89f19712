package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"lexrag/internal/domain"
)

// embedInputLimit is the provider's input budget in characters. Longer
// text is truncated before the call, not rejected.
const embedInputLimit = 8000

// Embedder calls an OpenAI-compatible embeddings endpoint.
type Embedder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewEmbedder(baseURL, apiKey, model string, client *http.Client) *Embedder {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Embedder{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  client,
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("embedding api key is not configured")
	}

	if runes := []rune(text); len(runes) > embedInputLimit {
		text = string(runes[:embedInputLimit])
	}

	start := time.Now()
	jsonData, err := json.Marshal(embedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "embedding_call_failed",
			slog.String("model", e.model),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("failed to call embedding service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.ErrorContext(ctx, "embedding_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, statusError("embedding service", resp.StatusCode, body)
	}

	var respBody embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(respBody.Data) == 0 {
		return nil, fmt.Errorf("embedding service returned no embeddings")
	}

	slog.DebugContext(ctx, "embedding_completed",
		slog.String("model", e.model),
		slog.Int("dimensions", len(respBody.Data[0].Embedding)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return respBody.Data[0].Embedding, nil
}

func (e *Embedder) Version() string {
	return e.model
}

var _ domain.Embedder = (*Embedder)(nil)
