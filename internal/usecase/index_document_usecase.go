package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"lexrag/internal/domain"
)

const embedConcurrency = 4

// IndexDocumentInput carries one legal document to be chunked and
// embedded into the fragment store.
type IndexDocumentInput struct {
	SourceRef string
	Citation  string
	Court     string
	Body      string
}

// IndexDocumentUsecase ingests legal documents into the vector store.
type IndexDocumentUsecase interface {
	// Upsert indexes a document. Re-indexing unchanged content is a
	// no-op; changed content replaces every fragment of the document.
	Upsert(ctx context.Context, input IndexDocumentInput) error
	// Delete removes a document's fragments from the store.
	Delete(ctx context.Context, sourceRef string) error
}

type indexDocumentUsecase struct {
	docRepo      domain.LegalDocumentRepository
	fragmentRepo domain.FragmentRepository
	txManager    domain.TransactionManager
	embedder     domain.Embedder
	embedLimiter *rate.Limiter
}

// NewIndexDocumentUsecase wires the ingestion pipeline. embedRPS caps
// how many embedding calls per second the pipeline issues; zero or
// negative disables the cap.
func NewIndexDocumentUsecase(
	docRepo domain.LegalDocumentRepository,
	fragmentRepo domain.FragmentRepository,
	txManager domain.TransactionManager,
	embedder domain.Embedder,
	embedRPS float64,
) IndexDocumentUsecase {
	limit := rate.Inf
	if embedRPS > 0 {
		limit = rate.Limit(embedRPS)
	}
	return &indexDocumentUsecase{
		docRepo:      docRepo,
		fragmentRepo: fragmentRepo,
		txManager:    txManager,
		embedder:     embedder,
		embedLimiter: rate.NewLimiter(limit, 1),
	}
}

func (u *indexDocumentUsecase) Upsert(ctx context.Context, input IndexDocumentInput) error {
	if input.SourceRef == "" {
		return fmt.Errorf("source ref is required")
	}

	contentHash := domain.ContentHash(input.Citation, input.Court, input.Body)

	doc, err := u.docRepo.GetBySourceRef(ctx, input.SourceRef)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if doc != nil && doc.ContentHash == contentHash {
		return nil
	}

	paragraphs := domain.SplitParagraphs(input.Body)
	if len(paragraphs) == 0 {
		return fmt.Errorf("document body produced no paragraphs")
	}

	// Embedding happens outside the transaction: it is the slow part
	// and holds no locks.
	embeddings, err := u.embedAll(ctx, paragraphs)
	if err != nil {
		return fmt.Errorf("failed to embed paragraphs: %w", err)
	}

	return u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		now := time.Now()
		if doc == nil {
			doc = &domain.LegalDocument{
				ID:          uuid.New(),
				SourceRef:   input.SourceRef,
				Citation:    input.Citation,
				Court:       input.Court,
				ContentHash: contentHash,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := u.docRepo.Create(ctx, doc); err != nil {
				return fmt.Errorf("failed to create document: %w", err)
			}
		} else {
			if err := u.docRepo.UpdateContentHash(ctx, doc.ID, contentHash); err != nil {
				return fmt.Errorf("failed to update document: %w", err)
			}
			if err := u.fragmentRepo.DeleteBySourceID(ctx, doc.ID); err != nil {
				return fmt.Errorf("failed to delete stale fragments: %w", err)
			}
		}

		fragments := make([]domain.Fragment, len(paragraphs))
		for i, content := range paragraphs {
			fragments[i] = domain.Fragment{
				ID:              uuid.New(),
				SourceID:        doc.ID,
				ParagraphNumber: i,
				Content:         content,
				Embedding:       pgvector.NewVector(embeddings[i]),
				TokenCount:      estimateTokens(content),
				CreatedAt:       now,
			}
		}
		if err := u.fragmentRepo.BulkInsertFragments(ctx, fragments); err != nil {
			return fmt.Errorf("failed to insert fragments: %w", err)
		}
		return nil
	})
}

func (u *indexDocumentUsecase) Delete(ctx context.Context, sourceRef string) error {
	doc, err := u.docRepo.GetBySourceRef(ctx, sourceRef)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		return nil
	}
	return u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if err := u.fragmentRepo.DeleteBySourceID(ctx, doc.ID); err != nil {
			return fmt.Errorf("failed to delete fragments: %w", err)
		}
		return nil
	})
}

// embedAll embeds every paragraph with bounded parallelism, preserving
// paragraph order in the result.
func (u *indexDocumentUsecase) embedAll(ctx context.Context, paragraphs []string) ([][]float32, error) {
	embeddings := make([][]float32, len(paragraphs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, content := range paragraphs {
		g.Go(func() error {
			if err := u.embedLimiter.Wait(ctx); err != nil {
				return err
			}
			vec, err := u.embedder.Embed(ctx, content)
			if err != nil {
				return fmt.Errorf("paragraph %d: %w", i, err)
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// estimateTokens is a rough whitespace-based token count, informational
// only.
func estimateTokens(content string) int {
	n := 0
	inWord := false
	for _, r := range content {
		switch {
		case r == ' ' || r == '\n' || r == '\t':
			inWord = false
		case !inWord:
			inWord = true
			n++
		}
	}
	return n
}
