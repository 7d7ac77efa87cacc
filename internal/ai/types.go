// Package ai provides types for the Ollama generate API.
package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arin/livedit/internal/config"
)

// Options controls sampling for a single generation.
type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// GenerationRequest is one prompt sent to the model. It is not modified
// once handed to a Provider.
type GenerationRequest struct {
	Prompt  string
	Model   string
	Options Options
}

// NewRequest builds a request for prompt using the configured model and
// sampling options.
func NewRequest(cfg *config.Config, prompt string) GenerationRequest {
	return GenerationRequest{
		Prompt: prompt,
		Model:  cfg.Model,
		Options: Options{
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxTokens,
		},
	}
}

func (r GenerationRequest) wire(stream bool) generateRequest {
	return generateRequest{
		Model:  r.Model,
		Prompt: r.Prompt,
		Stream: stream,
		Options: generateOptions{
			Temperature: r.Options.Temperature,
			TopP:        r.Options.TopP,
			MaxTokens:   r.Options.MaxTokens,
			NumPredict:  r.Options.MaxTokens,
		},
	}
}

// StreamFragment is one decoded line of a streaming response.
type StreamFragment struct {
	Response string `json:"response,omitempty"`
	Done     bool   `json:"done,omitempty"`
	// Error is set by Ollama when generation fails after headers were sent.
	Error string `json:"error,omitempty"`
}

// Model is an installed model as reported by /api/tags.
type Model struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// generateRequest is the request body sent to /api/generate.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

// generateOptions controls generation parameters. num_predict mirrors
// max_tokens because that is the key Ollama itself reads.
type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// generateResponse is the body of a non-streaming /api/generate call.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []Model `json:"models"`
}

var (
	// ErrRequestFailed matches any *RequestFailedError.
	ErrRequestFailed = errors.New("generation request failed")
	// ErrTruncated means the body ended before the server signalled done.
	ErrTruncated = errors.New("stream ended before completion")
	// ErrTooManyMalformed means the consecutive malformed-line cap was hit.
	ErrTooManyMalformed = errors.New("too many malformed stream fragments")
)

// RequestFailedError is returned when the server answers a generation
// request with a non-2xx status. No chunk has been emitted when it occurs.
type RequestFailedError struct {
	StatusCode int
	Model      string
	Body       string
}

func (e *RequestFailedError) Error() string {
	if strings.Contains(e.Body, "model") && strings.Contains(e.Body, "not found") {
		return fmt.Sprintf("model %q not found, run: ollama pull %s", e.Model, e.Model)
	}
	if e.Body == "" {
		return fmt.Sprintf("Ollama API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("Ollama API error (status %d): %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrRequestFailed) match.
func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}
