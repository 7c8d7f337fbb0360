package storage

import (
	"context"
	"time"
)

// DownloadRecorder appends finished batches to the journal.
type DownloadRecorder interface {
	RecordDownload(ctx context.Context, rec DownloadRecord) error
}

// DownloadReader queries the journal.
type DownloadReader interface {
	RecentDownloads(ctx context.Context, filter DownloadFilter) ([]DownloadRecord, error)
	DownloadSummary(ctx context.Context, since time.Time) (Summary, error)
}

// MaintenanceRepository keeps the journal bounded.
type MaintenanceRepository interface {
	GetDBSize() (int64, error)
	PruneDownloads(ctx context.Context, keep int) (int64, error)
}

// Journal is everything the SQLite store offers.
type Journal interface {
	DownloadRecorder
	DownloadReader
	MaintenanceRepository
}

var _ Journal = (*SQLiteStore)(nil)
