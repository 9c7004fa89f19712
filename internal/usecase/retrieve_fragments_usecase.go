package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"lexrag/internal/domain"
)

const (
	// DefaultSimilarityThreshold is the minimum cosine similarity a
	// fragment must reach to be considered relevant.
	DefaultSimilarityThreshold = 0.72
	// DefaultMatchCount bounds how many fragments one query retrieves.
	DefaultMatchCount = 12
	// MaxMatchCount is the hard ceiling callers cannot exceed.
	MaxMatchCount = 100
)

// RetrieveOptions tunes a single retrieval. Zero values fall back to
// the defaults above.
type RetrieveOptions struct {
	Threshold  float64
	MatchCount int
}

// RetrieveFragmentsUsecase finds case-law fragments relevant to a query.
type RetrieveFragmentsUsecase interface {
	// Retrieve embeds the query and returns fragments above the
	// similarity threshold, best match first. Multiple fragments of
	// the same document may appear; chat grounding wants passages, not
	// documents.
	Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]domain.RankedFragment, error)
	// RetrieveSources is the chat-facing variant: any failure degrades
	// to an empty source list so the conversation can proceed
	// ungrounded.
	RetrieveSources(ctx context.Context, query string, opts RetrieveOptions) []domain.RAGSource
	// RetrieveGrouped collapses the per-paragraph matches to the single
	// best-scoring fragment per source document, re-sorted descending.
	// Used when surfacing documents rather than passages.
	RetrieveGrouped(ctx context.Context, query string, opts RetrieveOptions) ([]domain.RankedFragment, error)
}

type retrieveFragmentsUsecase struct {
	store    domain.FragmentStore
	embedder domain.Embedder
}

// NewRetrieveFragmentsUsecase creates a RetrieveFragmentsUsecase backed
// by the given fragment store and embedder.
func NewRetrieveFragmentsUsecase(store domain.FragmentStore, embedder domain.Embedder) RetrieveFragmentsUsecase {
	return &retrieveFragmentsUsecase{store: store, embedder: embedder}
}

func (u *retrieveFragmentsUsecase) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]domain.RankedFragment, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty")
	}

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	count := opts.MatchCount
	if count <= 0 {
		count = DefaultMatchCount
	}
	if count > MaxMatchCount {
		count = MaxMatchCount
	}

	embedding, err := u.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := u.store.Match(ctx, embedding, threshold, count)
	if err != nil {
		return nil, fmt.Errorf("failed to match fragments: %w", err)
	}

	// The store already filters; keep the guard in case a backend
	// returns borderline rows from an approximate index.
	filtered := matches[:0]
	for _, m := range matches {
		if m.Similarity >= threshold {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func (u *retrieveFragmentsUsecase) RetrieveSources(ctx context.Context, query string, opts RetrieveOptions) []domain.RAGSource {
	matches, err := u.Retrieve(ctx, query, opts)
	if err != nil {
		slog.WarnContext(ctx, "retrieval failed, continuing without sources",
			slog.String("embedder", u.embedder.Version()),
			slog.String("error", err.Error()))
		return nil
	}
	return domain.NewRAGSources(matches)
}

func (u *retrieveFragmentsUsecase) RetrieveGrouped(ctx context.Context, query string, opts RetrieveOptions) ([]domain.RankedFragment, error) {
	matches, err := u.Retrieve(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	best := make(map[string]domain.RankedFragment)
	for _, m := range matches {
		id := m.SourceID.String()
		if cur, ok := best[id]; !ok || m.Similarity > cur.Similarity {
			best[id] = m
		}
	}

	grouped := make([]domain.RankedFragment, 0, len(best))
	for _, m := range best {
		grouped = append(grouped, m)
	}
	sort.SliceStable(grouped, func(i, j int) bool {
		return grouped[i].Similarity > grouped[j].Similarity
	})
	return grouped, nil
}
