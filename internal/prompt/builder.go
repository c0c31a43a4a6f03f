// Package prompt builds the review prompt sent to the language model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/drewdunne/aireview/internal/provider"
)

// DefaultMaxFiles caps how many file diffs go into one prompt.
const DefaultMaxFiles = 20

// Builder constructs review prompts.
type Builder struct {
	maxFiles int
}

// NewBuilder creates a prompt builder. A non-positive maxFiles uses DefaultMaxFiles.
func NewBuilder(maxFiles int) *Builder {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Builder{maxFiles: maxFiles}
}

// Build constructs the full prompt for a merge request and its changes.
func (b *Builder) Build(title, description string, changes *provider.Changes) string {
	var parts []string

	parts = append(parts, b.buildRole())
	parts = append(parts, b.buildContext(title, description))
	parts = append(parts, "Changes (unified diff format):\n"+b.buildDiffs(changes))
	parts = append(parts, b.buildRequirements())
	parts = append(parts, b.buildResponseFormat())

	return strings.Join(parts, "\n\n")
}

func (b *Builder) buildRole() string {
	return "You are a Senior Code Reviewer in a large enterprise bank.\n\nAnalyze the following Merge Request."
}

func (b *Builder) buildContext(title, description string) string {
	return fmt.Sprintf("Title: %s\nDescription: %s", title, description)
}

func (b *Builder) buildDiffs(changes *provider.Changes) string {
	if changes == nil {
		return ""
	}

	files := changes.Files
	if len(files) > b.maxFiles {
		files = files[:b.maxFiles]
	}

	var sb strings.Builder
	for _, f := range files {
		fmt.Fprintf(&sb, "\nFile: %s\nDiff:\n%s\n", f.Path(), f.Diff)
	}
	return sb.String()
}

func (b *Builder) buildRequirements() string {
	return `Return ONLY JSON, no extra text.

Requirements:
- Check code quality, architecture, readability, performance and security risks.
- Focus on real issues, avoid nitpicking.
- For EACH issue, you MUST provide a concrete suggested_fix:
  - either a small code snippet (preferred),
  - or a precise step-by-step instruction what to change.
- Do NOT leave suggested_fix empty. If you truly cannot propose exact code,
  write a clear textual plan as suggested_fix.`
}

func (b *Builder) buildResponseFormat() string {
	return `Response JSON schema:
{
  "summary": {
    "recommendation": "merge" | "needs_fixes" | "reject",
    "confidence": number (0.0-1.0),
    "short_text": string
  },
  "issues": [
    {
      "file_path": string,
      "line_number": integer | null,
      "severity": "INFO" | "WARNING" | "ERROR" | "CRITICAL",
      "message": string,
      "suggested_fix": string,
      "rule": string
    }
  ]
}`
}
