package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// DailyWriter appends to one log file per calendar day:
// dir/prefix-YYYY-MM-DD.log. It is safe for concurrent use.
type DailyWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

// NewDailyWriter creates the directory if needed and returns a writer.
func NewDailyWriter(dir, prefix string) (*DailyWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	return &DailyWriter{dir: dir, prefix: prefix, now: time.Now}, nil
}

// Path returns the file name used for the given day.
func (w *DailyWriter) Path(t time.Time) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.log", w.prefix, t.Format(dayLayout)))
}

// Write implements io.Writer, switching files when the day changes.
func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if day := now.Format(dayLayout); day != w.day || w.file == nil {
		if w.file != nil {
			w.file.Close()
			w.file = nil
		}
		f, err := os.OpenFile(w.Path(now), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return 0, fmt.Errorf("opening log file: %w", err)
		}
		w.file = f
		w.day = day
	}

	return w.file.Write(p)
}

// Close closes the current file.
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
