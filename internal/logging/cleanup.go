package logging

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cleaner deletes daily log files older than the retention period. The age
// of a file is taken from the date in its name; other files are ignored.
type Cleaner struct {
	baseDir       string
	prefix        string
	retentionDays int
	now           func() time.Time
}

// NewCleaner creates a Cleaner for files written by a DailyWriter with the
// same directory and prefix.
func NewCleaner(baseDir, prefix string, retentionDays int) *Cleaner {
	return &Cleaner{baseDir: baseDir, prefix: prefix, retentionDays: retentionDays, now: time.Now}
}

// Cleanup removes expired log files and returns how many were deleted.
// A missing directory is not an error.
func (c *Cleaner) Cleanup() (int, error) {
	entries, err := os.ReadDir(c.baseDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	now := c.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	threshold := today.AddDate(0, 0, -c.retentionDays)

	var deleted int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		day, ok := c.fileDay(e.Name())
		if !ok || !day.Before(threshold) {
			continue
		}
		if err := os.Remove(filepath.Join(c.baseDir, e.Name())); err == nil {
			deleted++
		}
	}

	return deleted, nil
}

func (c *Cleaner) fileDay(name string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(name, c.prefix+"-")
	if !ok {
		return time.Time{}, false
	}
	rest, ok = strings.CutSuffix(rest, ".log")
	if !ok {
		return time.Time{}, false
	}
	day, err := time.Parse(dayLayout, rest)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
