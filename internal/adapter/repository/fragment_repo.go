package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"lexrag/internal/domain"
)

type fragmentRepository struct {
	pool *pgxpool.Pool
}

// NewFragmentRepository creates a pgvector-backed FragmentRepository.
func NewFragmentRepository(pool *pgxpool.Pool) domain.FragmentRepository {
	return &fragmentRepository{pool: pool}
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (r *fragmentRepository) getExecutor(ctx context.Context) dbExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Match runs a cosine similarity search. The <=> operator is cosine
// distance, so similarity = 1 - distance; ordering by distance ascending
// yields best matches first.
func (r *fragmentRepository) Match(ctx context.Context, queryEmbedding []float32, threshold float64, count int) ([]domain.RankedFragment, error) {
	query := `
		SELECT f.id, f.source_id, f.paragraph_number, f.content, f.token_count, f.created_at,
		       d.citation, d.court,
		       1 - (f.embedding <=> $1) AS similarity
		FROM legal_fragments f
		JOIN legal_documents d ON d.id = f.source_id
		WHERE 1 - (f.embedding <=> $1) >= $2
		ORDER BY f.embedding <=> $1 ASC
		LIMIT $3
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, pgvector.NewVector(queryEmbedding), threshold, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query fragments: %w", err)
	}
	defer rows.Close()

	var matches []domain.RankedFragment
	for rows.Next() {
		var m domain.RankedFragment
		if err := rows.Scan(
			&m.ID, &m.SourceID, &m.ParagraphNumber, &m.Content, &m.TokenCount, &m.CreatedAt,
			&m.Citation, &m.Court, &m.Similarity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return matches, nil
}

func (r *fragmentRepository) BulkInsertFragments(ctx context.Context, fragments []domain.Fragment) error {
	if len(fragments) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(fragments))
	for i, f := range fragments {
		rows[i] = []interface{}{
			f.ID,
			f.SourceID,
			f.ParagraphNumber,
			f.Content,
			f.Embedding,
			f.TokenCount,
			f.CreatedAt,
		}
	}

	_, err := r.getExecutor(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"legal_fragments"},
		[]string{"id", "source_id", "paragraph_number", "content", "embedding", "token_count", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert fragments: %w", err)
	}
	return nil
}

func (r *fragmentRepository) DeleteBySourceID(ctx context.Context, sourceID uuid.UUID) error {
	_, err := r.getExecutor(ctx).Exec(ctx, `DELETE FROM legal_fragments WHERE source_id = $1`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete fragments: %w", err)
	}
	return nil
}
