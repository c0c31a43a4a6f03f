// Package llm talks to the language model that produces structured reviews.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Oracle generates a single completion for a prompt.
type Oracle interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is one generation call. When Schema is set the model is asked for
// application/json output constrained to it.
type Request struct {
	Prompt string
	Schema *Schema
}

// Schema is the subset of the Gemini response schema dialect we send.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Nullable   bool               `json:"nullable,omitempty"`
}

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// StatusError is a non-2xx answer from the model API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: API error (status %d): %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
