// Package sse implements the mixed side-channel + token streaming wire
// protocol: server-sent-event framing with one synthetic rag_sources
// event multiplexed ahead of the provider's delta stream.
package sse

import (
	"encoding/json"
	"fmt"

	"lexrag/internal/domain"
)

const (
	dataPrefix = "data:"
	// doneSentinel is the provider's end-of-stream payload.
	doneSentinel = "[DONE]"
	// sourcesEventType tags the side-channel event carrying ranked
	// sources ahead of the token stream.
	sourcesEventType = "rag_sources"
)

// sourcesEvent is the wire shape of the side-channel event:
// data: {"type":"rag_sources","sources":[...]}\n\n
type sourcesEvent struct {
	Type    string             `json:"type"`
	Sources []domain.RAGSource `json:"sources"`
}

// EncodeSourcesEvent renders the side-channel protocol event for the
// given sources, framing included.
func EncodeSourcesEvent(sources []domain.RAGSource) ([]byte, error) {
	payload, err := json.Marshal(sourcesEvent{Type: sourcesEventType, Sources: sources})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sources event: %w", err)
	}
	return append(append([]byte(dataPrefix+" "), payload...), '\n', '\n'), nil
}

// Callbacks receives decoded stream events in byte-arrival order.
// OnDone fires exactly once per stream on normal termination; it is
// not fired after an error or a cancellation.
type Callbacks struct {
	OnRAGSources func(sources []domain.RAGSource)
	OnDelta      func(text string)
	OnDone       func()
	OnError      func(err error)
}

func (cb Callbacks) ragSources(sources []domain.RAGSource) {
	if cb.OnRAGSources != nil {
		cb.OnRAGSources(sources)
	}
}

func (cb Callbacks) delta(text string) {
	if cb.OnDelta != nil {
		cb.OnDelta(text)
	}
}

func (cb Callbacks) done() {
	if cb.OnDone != nil {
		cb.OnDone()
	}
}

func (cb Callbacks) error(err error) {
	if cb.OnError != nil {
		cb.OnError(err)
	}
}
