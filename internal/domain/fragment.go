package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

const (
	// SourceContentLimit is the display budget for fragment content
	// projected into a RAGSource.
	SourceContentLimit = 500
	// PromptContentLimit is the per-fragment content budget inside the
	// grounding prompt.
	PromptContentLimit = 800

	ellipsis = "..."
)

// Fragment is a paragraph-level excerpt of an indexed legal document.
// Fragments are written once at indexing time and read-only afterwards.
type Fragment struct {
	ID              uuid.UUID
	SourceID        uuid.UUID
	ParagraphNumber int
	Content         string
	Embedding       pgvector.Vector
	TokenCount      int
	CreatedAt       time.Time
}

// RankedFragment augments a Fragment with its per-query similarity and
// the parent document's citation metadata, denormalized so callers can
// render results without a join.
type RankedFragment struct {
	Fragment
	Similarity float64
	Citation   string
	Court      string
}

// RAGSource is the client-visible, numbered projection of a
// RankedFragment. The ID is the 1-based retrieval rank and is the same
// number the model is instructed to cite as [n]; renumbering on one
// side silently misattributes citations on the other.
type RAGSource struct {
	ID         int    `json:"id"`
	Citation   string `json:"citation"`
	Court      string `json:"court"`
	Content    string `json:"content"`
	Similarity int    `json:"similarity"`
	SourceID   string `json:"sourceId"`
}

// NewRAGSources projects ranked fragments into numbered sources in rank
// order. Content is truncated to the display budget and similarity is
// rounded to an integer percentage.
func NewRAGSources(fragments []RankedFragment) []RAGSource {
	if len(fragments) == 0 {
		return nil
	}
	sources := make([]RAGSource, 0, len(fragments))
	for i, f := range fragments {
		sources = append(sources, RAGSource{
			ID:         i + 1,
			Citation:   f.Citation,
			Court:      f.Court,
			Content:    TruncateContent(f.Content, SourceContentLimit),
			Similarity: similarityPercent(f.Similarity),
			SourceID:   f.SourceID.String(),
		})
	}
	return sources
}

// TruncateContent cuts content at the given rune budget and appends an
// ellipsis marker. Content at or over the budget is truncated; shorter
// content passes through unchanged.
func TruncateContent(content string, limit int) string {
	runes := []rune(content)
	if len(runes) < limit {
		return content
	}
	return string(runes[:limit]) + ellipsis
}

func similarityPercent(similarity float64) int {
	pct := int(math.Round(similarity * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
