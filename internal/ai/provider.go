package ai

import (
	"context"
	"strings"

	"github.com/arin/livedit/internal/status"
)

// ChunkFunc receives each text fragment in arrival order.
type ChunkFunc func(text string)

// StatusFunc receives every phase transition of a stream.
type StatusFunc func(s status.Status)

// Provider is the interface that any streaming backend must implement.
// Implementations invoke the callbacks sequentially on the calling
// goroutine and never after Stream returns.
type Provider interface {
	// Stream issues req and reports text through onChunk and phase
	// changes through onStatus. Cancelling ctx aborts the stream, which is
	// reported as status.Cancelled rather than an error. Only a request
	// rejected by the server before streaming starts is returned as an
	// error.
	Stream(ctx context.Context, req GenerationRequest, onChunk ChunkFunc, onStatus StatusFunc) error
}

// Collect runs a stream to completion and returns the concatenated text
// together with the terminal status.
func Collect(ctx context.Context, p Provider, req GenerationRequest) (string, status.Status, error) {
	var (
		out  strings.Builder
		last = status.Thinking
	)
	err := p.Stream(ctx, req,
		func(text string) { out.WriteString(text) },
		func(s status.Status) { last = s },
	)
	return out.String(), last, err
}
