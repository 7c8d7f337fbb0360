package download

import (
	"context"
	"io"
	"time"

	"github.com/runixer/mediagrab/internal/media"
)

// Fetcher streams a remote attachment into w.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Failure is one file that could not be saved.
type Failure struct {
	Category media.Category
	Item     media.Item
	Err      error
}

// BucketReport holds per-category counters of a batch.
type BucketReport struct {
	Category  media.Category
	Succeeded int
	Failed    int
	Bytes     int64
}

// Report is the outcome of one download batch.
type Report struct {
	Label    media.Label
	Folder   string
	Buckets  []BucketReport
	Failures []Failure
	Duration time.Duration
}

// Succeeded returns the number of files saved.
func (r *Report) Succeeded() int {
	n := 0
	for _, b := range r.Buckets {
		n += b.Succeeded
	}
	return n
}

// Failed returns the number of files that could not be saved.
func (r *Report) Failed() int {
	n := 0
	for _, b := range r.Buckets {
		n += b.Failed
	}
	return n
}

// Total returns the number of files the batch attempted.
func (r *Report) Total() int {
	return r.Succeeded() + r.Failed()
}

// Bytes returns the number of bytes written to disk.
func (r *Report) Bytes() int64 {
	var n int64
	for _, b := range r.Buckets {
		n += b.Bytes
	}
	return n
}

// Progress is reported after every file.
type Progress struct {
	Done  int
	Total int
	Item  media.Item
	Err   error
}

// ProgressFunc receives batch progress. It runs on the executor goroutine.
type ProgressFunc func(Progress)
