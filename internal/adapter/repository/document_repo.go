package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lexrag/internal/domain"
)

type legalDocumentRepository struct {
	pool *pgxpool.Pool
}

// NewLegalDocumentRepository creates a Postgres-backed
// LegalDocumentRepository.
func NewLegalDocumentRepository(pool *pgxpool.Pool) domain.LegalDocumentRepository {
	return &legalDocumentRepository{pool: pool}
}

func (r *legalDocumentRepository) getExecutor(ctx context.Context) dbExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *legalDocumentRepository) GetBySourceRef(ctx context.Context, sourceRef string) (*domain.LegalDocument, error) {
	query := `
		SELECT id, source_ref, citation, court, content_hash, created_at, updated_at
		FROM legal_documents
		WHERE source_ref = $1
	`
	var doc domain.LegalDocument
	err := r.pool.QueryRow(ctx, query, sourceRef).Scan(
		&doc.ID, &doc.SourceRef, &doc.Citation, &doc.Court, &doc.ContentHash, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (r *legalDocumentRepository) Create(ctx context.Context, doc *domain.LegalDocument) error {
	query := `
		INSERT INTO legal_documents (id, source_ref, citation, court, content_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query,
		doc.ID, doc.SourceRef, doc.Citation, doc.Court, doc.ContentHash, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *legalDocumentRepository) UpdateContentHash(ctx context.Context, id uuid.UUID, contentHash string) error {
	query := `
		UPDATE legal_documents
		SET content_hash = $1, updated_at = $2
		WHERE id = $3
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query, contentHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}
