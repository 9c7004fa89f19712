package domain

import "context"

// Embedder turns free text into a fixed-length vector. Implementations
// must truncate input to the provider limit rather than reject it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Version() string
}
