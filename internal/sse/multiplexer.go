package sse

import (
	"bytes"
	"io"

	"lexrag/internal/domain"
)

// Multiplex prepends one rag_sources protocol event to the upstream
// byte stream. With an empty source list the upstream passes through
// untouched. Upstream bytes are never inspected, buffered, or
// re-framed, so downstream protocol invariants (the [DONE] sentinel
// included) survive intact.
func Multiplex(sources []domain.RAGSource, upstream io.Reader) io.Reader {
	if len(sources) == 0 {
		return upstream
	}
	event, err := EncodeSourcesEvent(sources)
	if err != nil {
		// RAGSource marshals unconditionally; losing the side channel
		// is still preferable to losing the answer stream.
		return upstream
	}
	return io.MultiReader(bytes.NewReader(event), upstream)
}

// Flusher is the subset of http.Flusher the copy loop needs.
type Flusher interface {
	Flush()
}

// Copy forwards the stream to w chunk by chunk, flushing after every
// write so tokens reach the client as they arrive.
func Copy(w io.Writer, f Flusher, stream io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if f != nil {
				f.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
