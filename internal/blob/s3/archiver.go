package s3blob

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// streams are the output subdirectories scanned for closed files.
var streams = []string{"opportunities", "market_making", "executions"}

// Archiver periodically uploads closed (previous-day) JSONL files from the
// output directory. The current day's files are still being appended to and
// are never touched. Files already uploaded in this process are skipped;
// re-uploading after a restart is harmless since keys are deterministic.
type Archiver struct {
	dir      string
	prefix   string
	writer   *Writer
	interval time.Duration
	logger   *slog.Logger

	uploaded map[string]bool
	now      func() time.Time
}

// NewArchiver creates an Archiver over the output directory. prefix is
// prepended to object keys, e.g. "aerobot".
func NewArchiver(dir, prefix string, writer *Writer, interval time.Duration, logger *slog.Logger) *Archiver {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Archiver{
		dir:      dir,
		prefix:   prefix,
		writer:   writer,
		interval: interval,
		logger:   logger.With(slog.String("component", "archiver")),
		uploaded: make(map[string]bool),
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every interval tick until ctx
// ends. Upload failures are logged and retried on the next sweep.
func (a *Archiver) Run(ctx context.Context) error {
	a.sweep(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *Archiver) sweep(ctx context.Context) {
	today := a.now().UTC().Format("2006-01-02")

	for _, stream := range streams {
		dir := filepath.Join(a.dir, stream)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
				continue
			}
			if strings.Contains(name, today) {
				continue
			}
			path := filepath.Join(dir, name)
			if a.uploaded[path] {
				continue
			}

			key := a.prefix + "/" + stream + "/" + name
			if err := a.writer.UploadFile(ctx, key, path); err != nil {
				a.logger.Warn("archive upload failed",
					slog.String("file", path),
					slog.String("error", err.Error()))
				continue
			}
			a.uploaded[path] = true
			a.logger.Info("archived output file",
				slog.String("file", path),
				slog.String("key", key))
		}
	}
}
