package provider

import "time"

// MergeRequest represents a merge request as seen by the provider.
type MergeRequest struct {
	ID          int
	IID         int
	Title       string
	Description string
	State       string // opened, closed, merged, locked
	Author      string
	URL         string
	Labels      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FileDiff is the unified diff of one changed file.
type FileDiff struct {
	OldPath     string
	NewPath     string
	Diff        string
	NewFile     bool
	RenamedFile bool
	DeletedFile bool
}

// Path returns the new path, falling back to the old path for deletions.
func (f FileDiff) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// Changes is the diff set of a merge request.
type Changes struct {
	Files []FileDiff
}

// Empty reports whether the diff set carries no usable file diff.
func (c *Changes) Empty() bool {
	if c == nil {
		return true
	}
	for _, f := range c.Files {
		if f.Diff != "" {
			return false
		}
	}
	return true
}

// Project represents a project as seen by the provider.
type Project struct {
	ID                int64
	Name              string
	PathWithNamespace string
	WebURL            string
	AvatarURL         string
	Description       string
}
