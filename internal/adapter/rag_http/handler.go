package rag_http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"lexrag/internal/adapter/session"
	"lexrag/internal/domain"
	"lexrag/internal/sse"
	"lexrag/internal/usecase"
)

type Handler struct {
	chatUsecase     usecase.ChatUsecase
	retrieveUsecase usecase.RetrieveFragmentsUsecase
	jobRepo         domain.IndexJobRepository
	sessions        *session.Store
}

func NewHandler(
	chatUsecase usecase.ChatUsecase,
	retrieveUsecase usecase.RetrieveFragmentsUsecase,
	jobRepo domain.IndexJobRepository,
	sessions *session.Store,
) *Handler {
	return &Handler{
		chatUsecase:     chatUsecase,
		retrieveUsecase: retrieveUsecase,
		jobRepo:         jobRepo,
		sessions:        sessions,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.POST("/v1/chat", h.Chat)
	e.POST("/v1/search", h.Search)
	e.POST("/v1/citations/extract", h.ExtractCitations)
	e.POST("/internal/documents", h.UpsertDocument)
	e.DELETE("/internal/documents/:sourceRef", h.DeleteDocument)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Messages  []domain.Message `json:"messages"`
	Mode      string           `json:"mode"`
	SessionID string           `json:"sessionId"`
}

// Chat streams one grounded assistant turn as server-sent events. The
// rag_sources event, when retrieval produced anything, is flushed
// before the first upstream byte is read.
func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "messages are required"})
	}

	// Stored history is prepended to the supplied messages; what the
	// caller sent always stays the tail of the conversation.
	history := req.Messages
	if req.SessionID != "" {
		history = append(h.sessions.History(req.SessionID), req.Messages...)
	}

	ctx := c.Request().Context()
	sources, body, err := h.chatUsecase.Stream(ctx, history, domain.ParseChatMode(req.Mode))
	if err != nil {
		return c.JSON(chatErrorStatus(err), map[string]string{"error": err.Error()})
	}
	defer func() { _ = body.Close() }()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	// Proxies must not buffer the stream.
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	// Decode a copy of the outgoing bytes so the assistant's answer can
	// be appended to the session without a second upstream read.
	var answer strings.Builder
	decoder := sse.NewDecoder(sse.Callbacks{
		OnDelta: func(content string) { answer.WriteString(content) },
	})
	stream := io.TeeReader(sse.Multiplex(sources, body), decoderWriter{decoder})

	if err := sse.Copy(resp, resp, stream); err != nil {
		// Headers are gone; all we can do is log and drop the
		// connection.
		slog.WarnContext(ctx, "chat stream aborted",
			slog.String("session_id", req.SessionID),
			slog.String("error", err.Error()))
		return nil
	}
	decoder.Finish()

	if req.SessionID != "" && answer.Len() > 0 {
		h.sessions.Append(req.SessionID, append(req.Messages,
			domain.Message{Role: domain.RoleAssistant, Content: answer.String()})...)
	}
	return nil
}

type decoderWriter struct {
	d *sse.Decoder
}

func (w decoderWriter) Write(p []byte) (int, error) {
	w.d.Feed(p)
	return len(p), nil
}

func chatErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrQuotaExhausted):
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

type searchRequest struct {
	Query     string  `json:"query"`
	Threshold float64 `json:"threshold"`
	Limit     int     `json:"limit"`
	Grouped   bool    `json:"grouped"`
}

type searchResponse struct {
	Results []domain.RAGSource `json:"results"`
}

// Search returns ranked sources for a standalone knowledge search.
// Grouped mode collapses to the best fragment per document.
func (h *Handler) Search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	opts := usecase.RetrieveOptions{Threshold: req.Threshold, MatchCount: req.Limit}
	retrieve := h.retrieveUsecase.Retrieve
	if req.Grouped {
		retrieve = h.retrieveUsecase.RetrieveGrouped
	}

	matches, err := retrieve(c.Request().Context(), req.Query, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	results := domain.NewRAGSources(matches)
	if results == nil {
		results = []domain.RAGSource{}
	}
	return c.JSON(http.StatusOK, searchResponse{Results: results})
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Citations []domain.Citation `json:"citations"`
}

func (h *Handler) ExtractCitations(c echo.Context) error {
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	citations := usecase.ExtractCitations(req.Text)
	if citations == nil {
		citations = []domain.Citation{}
	}
	return c.JSON(http.StatusOK, extractResponse{Citations: citations})
}

type upsertDocumentRequest struct {
	SourceRef string `json:"sourceRef"`
	Citation  string `json:"citation"`
	Court     string `json:"court"`
	Body      string `json:"body"`
}

// UpsertDocument enqueues a document for asynchronous indexing.
func (h *Handler) UpsertDocument(c echo.Context) error {
	var req upsertDocumentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.SourceRef == "" || req.Body == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "sourceRef and body are required"})
	}

	job := &domain.IndexJob{
		ID:      uuid.New(),
		JobType: "index_document",
		Payload: map[string]interface{}{
			"source_ref": req.SourceRef,
			"citation":   req.Citation,
			"court":      req.Court,
			"body":       req.Body,
		},
		Status:    "new",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.jobRepo.Enqueue(c.Request().Context(), job); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"job_id": job.ID.String(), "status": "queued"})
}

func (h *Handler) DeleteDocument(c echo.Context) error {
	sourceRef := c.Param("sourceRef")
	if sourceRef == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "sourceRef is required"})
	}

	job := &domain.IndexJob{
		ID:        uuid.New(),
		JobType:   "delete_document",
		Payload:   map[string]interface{}{"source_ref": sourceRef},
		Status:    "new",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.jobRepo.Enqueue(c.Request().Context(), job); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"job_id": job.ID.String(), "status": "queued"})
}
