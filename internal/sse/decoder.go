package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"lexrag/internal/domain"
)

// Decoder incrementally parses the multiplexed event stream. The
// transport may deliver arbitrary byte chunks that split an event
// mid-line or mid-token; the decoder buffers the trailing incomplete
// fragment and only ever acts on complete lines, so the sequence of
// emitted events is independent of how the bytes were chunked.
type Decoder struct {
	cb   Callbacks
	buf  []byte
	done bool
}

// NewDecoder creates a decoder that delivers events to cb.
func NewDecoder(cb Callbacks) *Decoder {
	return &Decoder{cb: cb}
}

// Done reports whether the stream has terminated (sentinel seen or
// Finish called). After that, all further input is discarded.
func (d *Decoder) Done() bool {
	return d.done
}

// Feed appends a transport chunk and processes every complete line now
// buffered. A complete line that fails to parse as JSON is pushed back
// and retried when more data arrives; the chunk boundary may have
// fallen inside the payload despite a newline being present.
func (d *Decoder) Feed(p []byte) {
	if d.done {
		return
	}
	d.buf = append(d.buf, p...)

	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			return
		}
		line := string(bytes.TrimSuffix(d.buf[:idx], []byte{'\r'}))
		if !d.processLine(line, false) {
			return
		}
		if d.done {
			// Sentinel seen; the buffer was already discarded.
			return
		}
		d.buf = d.buf[idx+1:]
	}
}

// Finish handles end of stream without an explicit sentinel: remaining
// buffered content gets one final best-effort pass, with parse failures
// silently dropped, then OnDone fires.
func (d *Decoder) Finish() {
	if d.done {
		return
	}
	for _, raw := range strings.Split(string(d.buf), "\n") {
		if d.done {
			break
		}
		d.processLine(strings.TrimSuffix(raw, "\r"), true)
	}
	d.buf = nil
	if !d.done {
		d.done = true
		d.cb.done()
	}
}

// processLine classifies one complete line. It returns false when the
// line could not be parsed and should stay buffered; in bestEffort mode
// unparseable lines are dropped instead.
func (d *Decoder) processLine(line string, bestEffort bool) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, ":") {
		return true
	}
	if !strings.HasPrefix(trimmed, dataPrefix) {
		// Unknown SSE fields (event:, id:, retry:) carry no payload we
		// understand; skip them for forward compatibility.
		return true
	}

	payload := strings.TrimSpace(trimmed[len(dataPrefix):])
	if payload == doneSentinel {
		d.done = true
		d.buf = nil
		d.cb.done()
		return true
	}

	var probe struct {
		Type    string             `json:"type"`
		Sources []domain.RAGSource `json:"sources"`
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return bestEffort
	}

	switch {
	case probe.Type == sourcesEventType:
		d.cb.ragSources(probe.Sources)
	case len(probe.Choices) > 0 && probe.Choices[0].Delta.Content != "":
		d.cb.delta(probe.Choices[0].Delta.Content)
	}
	return true
}

// DecodeStream drains the reader through a Decoder until the stream
// terminates. Cancellation abandons the read and returns the context
// error without firing OnDone; deltas already delivered stand.
// Transport errors fire OnError once and stop processing.
func DecodeStream(ctx context.Context, r io.Reader, cb Callbacks) error {
	d := NewDecoder(cb)
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			d.Feed(buf[:n])
			if d.Done() {
				return nil
			}
		}
		if err == io.EOF {
			d.Finish()
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cb.error(err)
			return err
		}
	}
}
