package domain

import (
	"context"
	"io"
)

// CompletionStreamer invokes a hosted chat-completion model in
// streaming mode and returns the raw SSE byte stream. The caller owns
// closing the stream. Rate-limit and quota failures are reported as
// ErrRateLimited / ErrQuotaExhausted wrapped with the provider text.
type CompletionStreamer interface {
	StreamChat(ctx context.Context, messages []Message) (io.ReadCloser, error)
	Version() string
}
