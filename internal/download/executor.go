// Package download saves the attachments of a scan to disk.
//
// A batch runs sequentially: buckets in option order, items in scan order.
// Failures are collected per file and never abort the batch.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/runixer/mediagrab/internal/media"
)

const tempPattern = ".mediagrab-*.part"

// Executor downloads the buckets selected by an option.
type Executor struct {
	fetcher    Fetcher
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewExecutor creates a new Executor. maxRetries below 1 means a single attempt.
func NewExecutor(fetcher Fetcher, maxRetries int, retryDelay time.Duration, logger *slog.Logger) *Executor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Executor{
		fetcher:    fetcher,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger.With("component", "download_executor"),
	}
}

// Execute saves every attachment of the option's buckets into folder.
// progress may be nil.
func (e *Executor) Execute(ctx context.Context, opt media.Option, result *media.ScanResult, folder string, progress ProgressFunc) *Report {
	start := time.Now()
	report := &Report{Label: opt.Label, Folder: folder}

	categories := opt.Categories()
	total := 0
	for _, c := range categories {
		total += result.Bucket(c).Len()
	}

	done := 0
	for _, c := range categories {
		bucket := result.Bucket(c)
		br := BucketReport{Category: c}

		for _, item := range bucket.Items {
			n, err := e.saveWithRetry(ctx, folder, c, item)
			done++
			if err != nil {
				br.Failed++
				report.Failures = append(report.Failures, Failure{Category: c, Item: item, Err: err})
				e.logger.Warn("file download failed",
					"file", item.FileName,
					"category", c.String(),
					"error", err,
				)
			} else {
				br.Succeeded++
				br.Bytes += n
				e.logger.Debug("file downloaded",
					"file", item.FileName,
					"category", c.String(),
					"size", humanize.IBytes(uint64(n)),
				)
			}
			if progress != nil {
				progress(Progress{Done: done, Total: total, Item: item, Err: err})
			}
		}
		report.Buckets = append(report.Buckets, br)
	}

	report.Duration = time.Since(start)
	recordBatch(opt.Label, report)

	e.logger.Info("download batch finished",
		"option", string(opt.Label),
		"folder", folder,
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"size", humanize.IBytes(uint64(report.Bytes())),
		"duration", report.Duration,
	)
	return report
}

// saveWithRetry attempts to save a file with retries and exponential backoff.
func (e *Executor) saveWithRetry(ctx context.Context, folder string, c media.Category, item media.Item) (int64, error) {
	var lastErr error
	totalDuration := time.Duration(0)

	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = fmt.Errorf("%w: %w", ErrFetch, err)
			break
		}

		start := time.Now()
		n, err := e.save(ctx, folder, item)
		totalDuration += time.Since(start)

		if err == nil {
			recordFileDownload(c, totalDuration.Seconds(), n, true)
			return n, nil
		}

		lastErr = err
		if !retryable(err) {
			break
		}
		e.logger.Warn("download attempt failed",
			"attempt", attempt,
			"max_retries", e.maxRetries,
			"file", item.FileName,
			"error", err,
		)

		if attempt < e.maxRetries {
			// Exponential backoff: 500ms, 1000ms, 2000ms, ...
			backoff := e.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				recordFileDownload(c, totalDuration.Seconds(), 0, false)
				return 0, fmt.Errorf("%w: %w", ErrFetch, ctx.Err())
			case <-time.After(backoff):
			}
		}
	}

	recordFileDownload(c, totalDuration.Seconds(), 0, false)
	return 0, lastErr
}

// save streams one attachment into a temp file next to its destination and
// renames it into place only after the body is complete and synced.
func (e *Executor) save(ctx context.Context, folder string, item media.Item) (int64, error) {
	tmp, err := os.CreateTemp(folder, tempPattern)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w := &trackingWriter{w: tmp}
	n, err := e.fetcher.Fetch(ctx, item.Attachment.URL, w)
	if err != nil {
		if w.err != nil {
			return 0, fmt.Errorf("%w: %w", ErrWrite, err)
		}
		return 0, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmpName, filepath.Join(folder, item.FileName)); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	committed = true
	return n, nil
}

// trackingWriter remembers the first write error so a failed copy can be
// attributed to the disk rather than the network.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}
