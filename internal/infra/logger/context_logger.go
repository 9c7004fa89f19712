package logger

import (
	"context"
	"log/slog"
	"os"
)

type ContextKey string

const (
	// Business context keys, following OTel semantic-convention naming
	// with a service prefix.
	JobIDKey     ContextKey = "lexrag.job.id"
	SourceRefKey ContextKey = "lexrag.document.source_ref"
	SessionIDKey ContextKey = "lexrag.session.id"
)

// ContextLogger extracts business context values into log fields.
type ContextLogger struct {
	logger      *slog.Logger
	serviceName string
}

func NewContextLogger(serviceName string) *ContextLogger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)

	return &ContextLogger{
		logger:      slog.New(handler),
		serviceName: serviceName,
	}
}

// WithContext returns a logger carrying whatever business context the
// given context holds.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := cl.logger.With("service", cl.serviceName)

	var fields []any
	if jobID := ctx.Value(JobIDKey); jobID != nil {
		fields = append(fields, string(JobIDKey), jobID)
	}
	if sourceRef := ctx.Value(SourceRefKey); sourceRef != nil {
		fields = append(fields, string(SourceRefKey), sourceRef)
	}
	if sessionID := ctx.Value(SessionIDKey); sessionID != nil {
		fields = append(fields, string(SessionIDKey), sessionID)
	}
	if len(fields) > 0 {
		logger = logger.With(fields...)
	}
	return logger
}

// WithJobID adds the job id to the context for observability.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

// WithSourceRef adds the document source ref to the context.
func WithSourceRef(ctx context.Context, sourceRef string) context.Context {
	return context.WithValue(ctx, SourceRefKey, sourceRef)
}

// WithSessionID adds the chat session id to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}
