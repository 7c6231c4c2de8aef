// Package jsonl appends records to date-rotated JSONL files, one JSON object
// per line.
package jsonl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Writer appends to <dir>/<prefix>_YYYY-MM-DD.jsonl, opening a new file when
// the UTC date rolls over. Safe for concurrent use.
type Writer struct {
	dir    string
	prefix string

	mu   sync.Mutex
	file *os.File
	day  string

	now func() time.Time
}

// NewWriter creates a writer rooted at dir. The directory is created on the
// first write.
func NewWriter(dir, prefix string) *Writer {
	return &Writer{dir: dir, prefix: prefix, now: time.Now}
}

// Write marshals the record and appends it as one line, rotating to a new
// dated file when needed.
func (w *Writer) Write(record any) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("jsonl: marshal record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().UTC().Format("2006-01-02")
	if w.file == nil || day != w.day {
		if err := w.rotate(day); err != nil {
			return err
		}
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("jsonl: write %s: %w", w.file.Name(), err)
	}
	return nil
}

// Path returns the file the given time's records land in.
func (w *Writer) Path(t time.Time) string {
	name := fmt.Sprintf("%s_%s.jsonl", w.prefix, t.UTC().Format("2006-01-02"))
	return filepath.Join(w.dir, name)
}

// Close flushes and closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *Writer) rotate(day string) error {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("jsonl: create %s: %w", w.dir, err)
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.jsonl", w.prefix, day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("jsonl: open %s: %w", path, err)
	}
	w.file = f
	w.day = day
	return nil
}
