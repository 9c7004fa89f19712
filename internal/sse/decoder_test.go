package sse_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexrag/internal/domain"
	"lexrag/internal/sse"
)

// recorder logs every callback invocation in order so tests can assert
// on the exact event sequence.
type recorder struct {
	log  []string
	errs []error
}

func (r *recorder) callbacks() sse.Callbacks {
	return sse.Callbacks{
		OnRAGSources: func(sources []domain.RAGSource) {
			r.log = append(r.log, fmt.Sprintf("sources(%d)", len(sources)))
		},
		OnDelta: func(content string) {
			r.log = append(r.log, "delta:"+content)
		},
		OnDone: func() {
			r.log = append(r.log, "done")
		},
		OnError: func(err error) {
			r.log = append(r.log, "error")
			r.errs = append(r.errs, err)
		},
	}
}

const decoderStream = "data: {\"type\":\"rag_sources\",\"sources\":[{\"id\":1,\"citation\":\"Smith v Jones [2008] UKHL 12\",\"court\":\"House of Lords\",\"content\":\"x\",\"similarity\":91,\"sourceId\":\"doc-a\"}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"The court \"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"held [1].\"}}]}\n\n" +
	"data: [DONE]\n\n"

var decoderWant = []string{"sources(1)", "delta:The court ", "delta:held [1].", "done"}

func TestDecoder_FullStream(t *testing.T) {
	rec := &recorder{}
	d := sse.NewDecoder(rec.callbacks())
	d.Feed([]byte(decoderStream))

	assert.Equal(t, decoderWant, rec.log)
	assert.True(t, d.Done())
}

func TestDecoder_ChunkingInvariance(t *testing.T) {
	// The event sequence must not depend on how the transport chunked
	// the bytes. Split the stream at every possible chunk size.
	for size := 1; size <= len(decoderStream); size++ {
		rec := &recorder{}
		d := sse.NewDecoder(rec.callbacks())
		for off := 0; off < len(decoderStream); off += size {
			end := off + size
			if end > len(decoderStream) {
				end = len(decoderStream)
			}
			d.Feed([]byte(decoderStream[off:end]))
		}
		require.Equal(t, decoderWant, rec.log, "chunk size %d", size)
	}
}

func TestDecoder_SentinelStopsProcessing(t *testing.T) {
	rec := &recorder{}
	d := sse.NewDecoder(rec.callbacks())
	d.Feed([]byte("data: [DONE]\n\ndata: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n\n"))
	d.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"later\"}}]}\n\n"))
	d.Finish()

	assert.Equal(t, []string{"done"}, rec.log, "nothing after the sentinel may be processed")
}

func TestDecoder_SentinelOnlyStream(t *testing.T) {
	rec := &recorder{}
	d := sse.NewDecoder(rec.callbacks())
	d.Feed([]byte("data: [DONE]\n\n"))

	assert.Equal(t, []string{"done"}, rec.log)
	assert.True(t, d.Done())

	d.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n"))
	assert.Equal(t, []string{"done"}, rec.log)
}

func TestDecoder_SkipsCommentsAndBlankLines(t *testing.T) {
	rec := &recorder{}
	d := sse.NewDecoder(rec.callbacks())
	d.Feed([]byte(": keepalive\n\n\nevent: message\ndata: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n"))
	d.Finish()

	assert.Equal(t, []string{"delta:hi", "done"}, rec.log)
}

func TestDecoder_PartialLineHeldUntilComplete(t *testing.T) {
	rec := &recorder{}
	d := sse.NewDecoder(rec.callbacks())
	d.Feed([]byte("data: {\"choices\":[{\"delta\":"))
	assert.Empty(t, rec.log, "incomplete line must stay buffered")
	d.Feed([]byte("{\"content\":\"whole\"}}]}\n"))
	assert.Equal(t, []string{"delta:whole"}, rec.log)
}

func TestDecoder_MalformedLineDroppedAtFinish(t *testing.T) {
	rec := &recorder{}
	d := sse.NewDecoder(rec.callbacks())
	d.Feed([]byte("data: {not json\ndata: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n"))
	assert.Empty(t, rec.log, "decoder must hold back on a line it cannot parse")

	d.Finish()
	assert.Equal(t, []string{"delta:ok", "done"}, rec.log, "finish drops the bad line and delivers the rest")
}

func TestDecoder_FinishFiresDoneOnce(t *testing.T) {
	rec := &recorder{}
	d := sse.NewDecoder(rec.callbacks())
	d.Finish()
	d.Finish()
	d.Feed([]byte(decoderStream))

	assert.Equal(t, []string{"done"}, rec.log)
}

func TestDecodeStream_EndToEnd(t *testing.T) {
	sources := []domain.RAGSource{{ID: 1, Citation: "Smith v Jones [2008] UKHL 12", Court: "House of Lords", Content: "x", Similarity: 91, SourceID: "doc-a"}}
	upstream := "data: {\"choices\":[{\"delta\":{\"content\":\"answer\"}}]}\n\ndata: [DONE]\n\n"

	rec := &recorder{}
	err := sse.DecodeStream(context.Background(), sse.Multiplex(sources, strings.NewReader(upstream)), rec.callbacks())

	require.NoError(t, err)
	assert.Equal(t, []string{"sources(1)", "delta:answer", "done"}, rec.log)
}

func TestDecodeStream_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	err := sse.DecodeStream(ctx, strings.NewReader(decoderStream), rec.callbacks())

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, rec.log, "done", "cancellation must not report completion")
}

type failingReader struct {
	data string
	read bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.read {
		f.read = true
		return copy(p, f.data), nil
	}
	return 0, errors.New("connection reset")
}

func TestDecodeStream_TransportError(t *testing.T) {
	rec := &recorder{}
	err := sse.DecodeStream(context.Background(), &failingReader{data: "data: {\"choices\":[{\"delta\":{\"content\":\"part\"}}]}\n\n"}, rec.callbacks())

	require.Error(t, err)
	assert.Equal(t, []string{"delta:part", "error"}, rec.log)
	require.Len(t, rec.errs, 1)
}

func TestDecodeStream_EOFWithoutSentinel(t *testing.T) {
	rec := &recorder{}
	err := sse.DecodeStream(context.Background(), io.LimitReader(strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"cut\"}}]}\n\n"), 1<<20), rec.callbacks())

	require.NoError(t, err)
	assert.Equal(t, []string{"delta:cut", "done"}, rec.log)
}
