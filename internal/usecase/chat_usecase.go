package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"lexrag/internal/domain"
	"lexrag/internal/sse"
)

// ChatUsecase runs one grounded chat turn: retrieve, assemble, stream.
type ChatUsecase interface {
	// Stream starts the completion call and returns the retrieved
	// sources alongside the raw upstream body. Retrieval failures
	// degrade to no sources; a completion failure aborts the turn and
	// the multiplexed stream is never produced.
	Stream(ctx context.Context, history []domain.Message, mode domain.ChatMode) ([]domain.RAGSource, io.ReadCloser, error)
	// SendMessage runs the full turn and delivers decoded events to
	// the callbacks. The sources event, when present, always precedes
	// the first delta.
	SendMessage(ctx context.Context, history []domain.Message, mode domain.ChatMode, cb sse.Callbacks) error
}

type chatUsecase struct {
	retriever RetrieveFragmentsUsecase
	assembler PromptAssembler
	streamer  domain.CompletionStreamer
	opts      RetrieveOptions
}

// NewChatUsecase wires the chat pipeline. opts applies to the grounding
// retrieval of every turn; zero values use the retrieval defaults.
func NewChatUsecase(
	retriever RetrieveFragmentsUsecase,
	assembler PromptAssembler,
	streamer domain.CompletionStreamer,
	opts RetrieveOptions,
) ChatUsecase {
	return &chatUsecase{
		retriever: retriever,
		assembler: assembler,
		streamer:  streamer,
		opts:      opts,
	}
}

func (u *chatUsecase) Stream(ctx context.Context, history []domain.Message, mode domain.ChatMode) ([]domain.RAGSource, io.ReadCloser, error) {
	query := lastUserContent(history)
	if query == "" {
		return nil, nil, fmt.Errorf("history has no user message")
	}

	// One retrieval feeds both the prompt and the sources event; the
	// model cites [n] against the numbering the client displays, so the
	// two views must come from the same ranked list.
	fragments, err := u.retriever.Retrieve(ctx, query, u.opts)
	if err != nil {
		slog.WarnContext(ctx, "retrieval failed, answering without grounding",
			slog.String("error", err.Error()))
		fragments = nil
	}
	sources := domain.NewRAGSources(fragments)

	messages := u.assembler.Assemble(history, fragments, mode)

	body, err := u.streamer.StreamChat(ctx, messages)
	if err != nil {
		return nil, nil, fmt.Errorf("completion stream failed: %w", err)
	}
	return sources, body, nil
}

func (u *chatUsecase) SendMessage(ctx context.Context, history []domain.Message, mode domain.ChatMode, cb sse.Callbacks) error {
	sources, body, err := u.Stream(ctx, history, mode)
	if err != nil {
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return err
	}
	defer body.Close()

	return sse.DecodeStream(ctx, sse.Multiplex(sources, body), cb)
}

func lastUserContent(history []domain.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			return strings.TrimSpace(history[i].Content)
		}
	}
	return ""
}
