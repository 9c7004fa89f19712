package sse_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexrag/internal/domain"
	"lexrag/internal/sse"
)

const upstreamBody = "data: {\"choices\":[{\"delta\":{\"content\":\"The court held\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\" that [1] applies.\"}}]}\n\n" +
	"data: [DONE]\n\n"

func testSources() []domain.RAGSource {
	return []domain.RAGSource{
		{ID: 1, Citation: "Smith v Jones [2008] UKHL 12", Court: "House of Lords", Content: "The duty of care extends...", Similarity: 91, SourceID: "doc-a"},
		{ID: 2, Citation: "R v Brown [1994] 1 AC 212", Court: "House of Lords", Content: "Consent is no defence...", Similarity: 84, SourceID: "doc-b"},
	}
}

func TestMultiplex_SourcesEventPrecedesUpstream(t *testing.T) {
	out, err := io.ReadAll(sse.Multiplex(testSources(), strings.NewReader(upstreamBody)))
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "data: {\"type\":\"rag_sources\""), "sources event must come first, got: %s", text)
	assert.True(t, strings.HasSuffix(text, upstreamBody), "upstream bytes must follow unmodified")

	head := strings.TrimSuffix(text, upstreamBody)
	assert.True(t, strings.HasSuffix(head, "\n\n"), "sources event must terminate with a blank line")
	assert.Equal(t, 1, strings.Count(head, "data:"), "exactly one injected event")
}

func TestMultiplex_EmptySourcesPassesUpstreamThrough(t *testing.T) {
	out, err := io.ReadAll(sse.Multiplex(nil, strings.NewReader(upstreamBody)))
	require.NoError(t, err)
	assert.Equal(t, upstreamBody, string(out), "no sources event when retrieval produced nothing")
}

func TestMultiplex_UpstreamBytesUntouched(t *testing.T) {
	// Oddly framed upstream content must still pass through verbatim.
	raw := ": keepalive\ndata: {\"choices\":[{\"delta\":{\"content\":\"a\\nb\"}}]}\n\ngarbage-line\n"
	out, err := io.ReadAll(sse.Multiplex(testSources(), strings.NewReader(raw)))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), raw))
}

type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestCopy_FlushesEachChunk(t *testing.T) {
	rec := &flushRecorder{}
	err := sse.Copy(rec, rec, strings.NewReader(upstreamBody))
	require.NoError(t, err)
	assert.Equal(t, upstreamBody, rec.String())
	assert.GreaterOrEqual(t, rec.flushes, 1)
}
