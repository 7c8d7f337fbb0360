// Package media classifies chat attachments and aggregates channel scans
// into per-category buckets with deterministic destination file names.
package media

import "time"

// Category is the media type an attachment is sorted into.
type Category int

const (
	CategoryImage Category = iota
	CategoryVideo
	CategoryOther
)

// Categories lists every category in the fixed processing order.
var Categories = []Category{CategoryImage, CategoryVideo, CategoryOther}

func (c Category) String() string {
	switch c {
	case CategoryImage:
		return "image"
	case CategoryVideo:
		return "video"
	default:
		return "other"
	}
}

// Attachment is a remote file referenced by a chat message.
type Attachment struct {
	URL       string
	Size      int64
	Timestamp time.Time // creation time of the originating message
	Author    string    // display name of the originating author
}

// Message is the slice of a chat message the scanner cares about.
type Message struct {
	ID          string
	Author      string
	AuthorIsBot bool
	Timestamp   time.Time
	Attachments []Attachment
}

// Item is an attachment placed in a bucket together with its local name.
type Item struct {
	Sequence   int
	Attachment Attachment
	FileName   string
}

// Bucket holds all attachments of one category in scan order.
type Bucket struct {
	Category   Category
	Items      []Item
	TotalBytes int64
}

// Len returns the number of attachments in the bucket.
func (b *Bucket) Len() int {
	return len(b.Items)
}

// ScanResult is the outcome of one scan over channel history.
type ScanResult struct {
	MessagesScanned int
	buckets         [3]Bucket
}

func newScanResult() *ScanResult {
	r := &ScanResult{}
	for _, c := range Categories {
		r.buckets[c].Category = c
	}
	return r
}

// Bucket returns the bucket for the given category.
func (r *ScanResult) Bucket(c Category) *Bucket {
	return &r.buckets[c]
}

// Totals returns the byte total of every category.
func (r *ScanResult) Totals() map[Category]int64 {
	totals := make(map[Category]int64, len(Categories))
	for _, c := range Categories {
		totals[c] = r.buckets[c].TotalBytes
	}
	return totals
}

// TotalBytes is the sum of all category totals.
func (r *ScanResult) TotalBytes() int64 {
	var total int64
	for _, c := range Categories {
		total += r.buckets[c].TotalBytes
	}
	return total
}

// AttachmentCount is the number of attachments across all buckets.
func (r *ScanResult) AttachmentCount() int {
	n := 0
	for _, c := range Categories {
		n += len(r.buckets[c].Items)
	}
	return n
}

// IsEmpty reports whether the scan found no attachments at all.
func (r *ScanResult) IsEmpty() bool {
	return r.AttachmentCount() == 0
}
