package vision

import (
	"context"
	"errors"
)

// Error kinds surfaced by extractors so callers can choose an HTTP status.
var (
	// ErrUnavailable wraps transport failures reaching the model endpoint.
	ErrUnavailable = errors.New("vision endpoint unreachable")
	// ErrTimeout wraps requests that exceeded the configured time budget.
	ErrTimeout = errors.New("vision request timed out")
)

// Prompts is the system/user instruction pair sent with every OCR request.
type Prompts struct {
	System string
	User   string
}

// Chunk is one piece of streamed model output, or an error that ended the
// stream early.
type Chunk struct {
	Text string
	Err  error
}

// Extractor issues an OCR request for an image and yields partial text
// chunks as the model produces them. The channel is closed when the stream
// ends or ctx is cancelled; the sequence is finite and not restartable.
// Callers concatenate chunks into the final text.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string, prompts Prompts) (<-chan Chunk, error)
}
