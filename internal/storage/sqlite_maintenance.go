package storage

import (
	"context"
	"fmt"
	"os"
	"time"
)

// GetDBSize returns the size of the database file in bytes.
func (s *SQLiteStore) GetDBSize() (int64, error) {
	info, err := os.Stat(s.dbPath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// PruneDownloads removes all but the keep most recent batches.
// Returns the number of deleted rows. keep <= 0 disables pruning.
func (s *SQLiteStore) PruneDownloads(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	start := time.Now()

	query := `
		DELETE FROM downloads
		WHERE id NOT IN (
			SELECT id FROM downloads ORDER BY finished_at DESC, id DESC LIMIT ?
		)
	`
	res, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune downloads: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	RecordCleanupDeleted("downloads", deleted)
	RecordCleanupDuration("downloads", time.Since(start).Seconds())
	return deleted, nil
}

// RunMaintenance prunes the journal and refreshes the size gauge every
// interval until ctx is done.
func (s *SQLiteStore) RunMaintenance(ctx context.Context, interval time.Duration, keep int) {
	s.maintain(ctx, keep)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.maintain(ctx, keep)
		}
	}
}

func (s *SQLiteStore) maintain(ctx context.Context, keep int) {
	if deleted, err := s.PruneDownloads(ctx, keep); err != nil {
		s.logger.Warn("journal prune failed", "error", err)
	} else if deleted > 0 {
		s.logger.Info("journal pruned", "deleted", deleted, "kept", keep)
	}

	if size, err := s.GetDBSize(); err == nil {
		SetStorageSize(size)
	}
}
