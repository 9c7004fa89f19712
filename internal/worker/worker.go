package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lexrag/internal/domain"
	"lexrag/internal/infra/logger"
	"lexrag/internal/usecase"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	jobTimeout          = 120 * time.Second
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

// JobWorker drains the index job queue in the background. Indexing a
// long judgment embeds dozens of paragraphs, so ingestion runs here
// rather than on the request path.
type JobWorker struct {
	jobRepo      domain.IndexJobRepository
	indexUsecase usecase.IndexDocumentUsecase
	logger       *slog.Logger
	stopChan     chan struct{}
	backoff      time.Duration
}

func NewJobWorker(
	jobRepo domain.IndexJobRepository,
	indexUsecase usecase.IndexDocumentUsecase,
	log *slog.Logger,
) *JobWorker {
	return &JobWorker{
		jobRepo:      jobRepo,
		indexUsecase: indexUsecase,
		logger:       log,
		stopChan:     make(chan struct{}),
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("Starting JobWorker")
	go w.run()
}

func (w *JobWorker) Stop() {
	w.logger.Info("Stopping JobWorker")
	close(w.stopChan)
}

func (w *JobWorker) run() {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(defaultPollInterval)
			}
		}
	}
}

func (w *JobWorker) processNextJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNextJob(ctx)
	if err != nil {
		w.logger.Error("Failed to acquire next job", "error", err)
		return
	}
	if job == nil {
		return // No jobs
	}

	ctx = logger.WithJobID(ctx, job.ID.String())
	w.logger.InfoContext(ctx, "Processing job", "job_id", job.ID, "type", job.JobType)

	var processErr error

	switch job.JobType {
	case "index_document":
		processErr = w.processIndexDocument(ctx, job)
	case "delete_document":
		processErr = w.processDeleteDocument(ctx, job)
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.JobType)
	}

	status := "completed"
	var errMsg *string
	if processErr != nil {
		status = "failed"
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.WarnContext(ctx, "Worker backing off", "job_id", job.ID, "backoff", w.backoff, "error", processErr)
	} else {
		w.backoff = 0
		w.logger.InfoContext(ctx, "Job completed", "job_id", job.ID)
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		w.logger.ErrorContext(ctx, "Failed to update job status", "job_id", job.ID, "error", err)
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (w *JobWorker) processIndexDocument(ctx context.Context, job *domain.IndexJob) error {
	sourceRef, ok := job.Payload["source_ref"].(string)
	if !ok || sourceRef == "" {
		return fmt.Errorf("missing or invalid source_ref")
	}
	body, ok := job.Payload["body"].(string)
	if !ok || body == "" {
		return fmt.Errorf("missing or invalid body")
	}
	citation, _ := job.Payload["citation"].(string)
	court, _ := job.Payload["court"].(string)

	ctx = logger.WithSourceRef(ctx, sourceRef)
	return w.indexUsecase.Upsert(ctx, usecase.IndexDocumentInput{
		SourceRef: sourceRef,
		Citation:  citation,
		Court:     court,
		Body:      body,
	})
}

func (w *JobWorker) processDeleteDocument(ctx context.Context, job *domain.IndexJob) error {
	sourceRef, ok := job.Payload["source_ref"].(string)
	if !ok || sourceRef == "" {
		return fmt.Errorf("missing or invalid source_ref")
	}
	ctx = logger.WithSourceRef(ctx, sourceRef)
	return w.indexUsecase.Delete(ctx, sourceRef)
}
