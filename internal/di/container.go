package di

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lexrag/internal/adapter/llmgateway"
	rag_http "lexrag/internal/adapter/rag_http"
	"lexrag/internal/adapter/repository"
	"lexrag/internal/adapter/session"
	"lexrag/internal/domain"
	"lexrag/internal/infra/config"
	"lexrag/internal/infra/httpclient"
	"lexrag/internal/usecase"
	"lexrag/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	FragmentRepo domain.FragmentRepository
	DocRepo      domain.LegalDocumentRepository
	JobRepo      domain.IndexJobRepository

	// Usecases
	ChatUsecase     usecase.ChatUsecase
	RetrieveUsecase usecase.RetrieveFragmentsUsecase
	IndexUsecase    usecase.IndexDocumentUsecase

	// HTTP surface
	Handler  *rag_http.Handler
	Sessions *session.Store

	// Worker
	Worker *worker.JobWorker
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	// Repositories
	fragmentRepo := repository.NewFragmentRepository(pool)
	docRepo := repository.NewLegalDocumentRepository(pool)
	jobRepo := repository.NewIndexJobRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	// Shared HTTP clients with connection pooling. The completion
	// client streams for the whole answer, so no client timeout.
	embedderHTTP := httpclient.NewPooledClient(30 * time.Second)
	completerHTTP := httpclient.NewPooledClient(0)

	// LLM gateway clients
	embedder := llmgateway.NewEmbedder(cfg.LLMGatewayURL, cfg.LLMAPIKey, cfg.EmbeddingModel, embedderHTTP)
	completer := llmgateway.NewCompleter(cfg.LLMGatewayURL, cfg.LLMAPIKey, cfg.ChatModel, completerHTTP)

	// Usecases
	retrieveUsecase := usecase.NewRetrieveFragmentsUsecase(fragmentRepo, embedder)
	assembler := usecase.NewPromptAssembler()
	retrieveOpts := usecase.RetrieveOptions{
		Threshold:  cfg.RetrievalThreshold,
		MatchCount: cfg.RetrievalMatchCount,
	}
	chatUsecase := usecase.NewChatUsecase(retrieveUsecase, assembler, completer, retrieveOpts)
	indexUsecase := usecase.NewIndexDocumentUsecase(docRepo, fragmentRepo, txManager, embedder, cfg.IndexEmbedRPS)

	// Session store
	sessions, err := session.NewStore(cfg.SessionCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	handler := rag_http.NewHandler(chatUsecase, retrieveUsecase, jobRepo, sessions)

	// Worker
	jobWorker := worker.NewJobWorker(jobRepo, indexUsecase, log)

	log.Info("application components wired",
		slog.String("llm_gateway", cfg.LLMGatewayURL),
		slog.String("embedding_model", cfg.EmbeddingModel),
		slog.String("chat_model", cfg.ChatModel),
		slog.Float64("retrieval_threshold", cfg.RetrievalThreshold),
		slog.Int("retrieval_match_count", cfg.RetrievalMatchCount))

	return &ApplicationComponents{
		FragmentRepo:    fragmentRepo,
		DocRepo:         docRepo,
		JobRepo:         jobRepo,
		ChatUsecase:     chatUsecase,
		RetrieveUsecase: retrieveUsecase,
		IndexUsecase:    indexUsecase,
		Handler:         handler,
		Sessions:        sessions,
		Worker:          jobWorker,
	}, nil
}
