package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FragmentStore is the vector-searchable collection of fragments.
// Similarity is cosine-derived and already normalized into [0, 1] by
// the store; results come back ordered by descending similarity.
type FragmentStore interface {
	Match(ctx context.Context, queryEmbedding []float32, threshold float64, count int) ([]RankedFragment, error)
}

// FragmentRepository extends the read-side FragmentStore with the
// write path used by the indexing pipeline.
type FragmentRepository interface {
	FragmentStore

	BulkInsertFragments(ctx context.Context, fragments []Fragment) error
	DeleteBySourceID(ctx context.Context, sourceID uuid.UUID) error
}

// LegalDocument is the parent record a fragment belongs to. SourceRef
// is the external identifier of the document in the case-management
// store; Citation and Court are the display metadata denormalized onto
// search results.
type LegalDocument struct {
	ID          uuid.UUID
	SourceRef   string
	Citation    string
	Court       string
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LegalDocumentRepository manages document records.
type LegalDocumentRepository interface {
	// GetBySourceRef returns nil, nil when no document exists.
	GetBySourceRef(ctx context.Context, sourceRef string) (*LegalDocument, error)
	Create(ctx context.Context, doc *LegalDocument) error
	UpdateContentHash(ctx context.Context, id uuid.UUID, contentHash string) error
}

// IndexJob is a queued ingestion request processed by the worker.
type IndexJob struct {
	ID           uuid.UUID
	JobType      string
	Payload      map[string]interface{}
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IndexJobRepository is the durable job queue backing ingestion.
type IndexJobRepository interface {
	Enqueue(ctx context.Context, job *IndexJob) error
	// AcquireNextJob atomically claims the oldest new job, or returns
	// nil, nil when the queue is empty.
	AcquireNextJob(ctx context.Context) (*IndexJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
}

// TransactionManager runs a function inside one database transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
