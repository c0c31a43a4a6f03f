// Package analysis turns merge-request changes into a structured review
// using a language model.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/drewdunne/aireview/internal/llm"
	"github.com/drewdunne/aireview/internal/model"
	"github.com/drewdunne/aireview/internal/prompt"
	"github.com/drewdunne/aireview/internal/provider"
)

// ErrNoResult wraps every failure to obtain a usable review.
var ErrNoResult = errors.New("analysis: no result")

// Result is a validated review produced by the model.
type Result struct {
	Recommendation model.Recommendation
	Confidence     float64
	Summary        string
	Issues         []model.Issue
}

// Engine runs analyses against an oracle.
type Engine struct {
	oracle  llm.Oracle
	builder *prompt.Builder
	schema  *openapi3.Schema
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxFiles caps the number of file diffs sent to the model.
func WithMaxFiles(n int) Option {
	return func(e *Engine) {
		e.builder = prompt.NewBuilder(n)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an analysis engine.
func NewEngine(oracle llm.Oracle, opts ...Option) *Engine {
	e := &Engine{
		oracle:  oracle,
		builder: prompt.NewBuilder(prompt.DefaultMaxFiles),
		schema:  validationSchema(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze asks the oracle for a review of changes. Any failure, including a
// panic inside the oracle, is reported as an error wrapping ErrNoResult.
func (e *Engine) Analyze(ctx context.Context, title, description string, changes *provider.Changes) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: panic: %v", ErrNoResult, r)
		}
	}()

	if changes.Empty() {
		return nil, fmt.Errorf("%w: no changes", ErrNoResult)
	}

	text, err := e.oracle.Generate(ctx, llm.Request{
		Prompt: e.builder.Build(title, description, changes),
		Schema: responseSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoResult, e.oracle.Name(), err)
	}

	res, err = e.decode(text)
	if err != nil {
		return nil, err
	}

	e.logger.Info("llm analysis result",
		"recommendation", res.Recommendation,
		"confidence", res.Confidence,
		"issues", len(res.Issues))
	return res, nil
}

type rawReview struct {
	Summary struct {
		Recommendation string  `json:"recommendation"`
		Confidence     float64 `json:"confidence"`
		ShortText      string  `json:"short_text"`
	} `json:"summary"`
	Issues []struct {
		FilePath     string   `json:"file_path"`
		LineNumber   *float64 `json:"line_number"`
		Severity     string   `json:"severity"`
		Message      string   `json:"message"`
		SuggestedFix *string  `json:"suggested_fix"`
		Rule         *string  `json:"rule"`
	} `json:"issues"`
}

func (e *Engine) decode(text string) (*Result, error) {
	data := []byte(stripFence(text))

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decoding model output: %w", ErrNoResult, err)
	}
	if err := e.schema.VisitJSON(doc); err != nil {
		return nil, fmt.Errorf("%w: model output does not match schema: %w", ErrNoResult, err)
	}

	var raw rawReview
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding model output: %w", ErrNoResult, err)
	}

	res := &Result{
		Recommendation: model.Recommendation(raw.Summary.Recommendation),
		Confidence:     raw.Summary.Confidence,
		Summary:        raw.Summary.ShortText,
		Issues:         make([]model.Issue, 0, len(raw.Issues)),
	}
	for _, ri := range raw.Issues {
		issue := model.Issue{
			FilePath: ri.FilePath,
			Severity: model.ParseSeverity(ri.Severity),
			Message:  ri.Message,
		}
		// The schema only admits integral values, but models may emit 12.0.
		if ri.LineNumber != nil {
			line := int(*ri.LineNumber)
			issue.Line = &line
		}
		if ri.SuggestedFix != nil {
			issue.SuggestedFix = *ri.SuggestedFix
		}
		issue.SuggestedFix = model.EnsureFix(issue.SuggestedFix)
		if ri.Rule != nil {
			issue.Rule = *ri.Rule
		}
		res.Issues = append(res.Issues, issue)
	}
	return res, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
