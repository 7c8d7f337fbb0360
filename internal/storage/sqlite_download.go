package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// RecordDownload inserts one finished batch.
func (s *SQLiteStore) RecordDownload(ctx context.Context, rec DownloadRecord) error {
	start := time.Now()
	query := `
		INSERT INTO downloads (
			id, guild_id, guild_name, channel_id, channel_name, requester_id,
			option, folder, succeeded, failed, bytes, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.GuildID, rec.GuildName, rec.ChannelID, rec.ChannelName, rec.RequesterID,
		rec.Option, rec.Folder, rec.Succeeded, rec.Failed, rec.Bytes,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	)
	recordQuery("record_download", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("failed to record download %s: %w", rec.ID, err)
	}
	return nil
}

// RecentDownloads returns the newest batches first.
func (s *SQLiteStore) RecentDownloads(ctx context.Context, filter DownloadFilter) ([]DownloadRecord, error) {
	start := time.Now()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	limit = min(limit, maxRecentLimit)

	var (
		where []string
		args  []any
	)
	if filter.GuildID != "" {
		where = append(where, "guild_id = ?")
		args = append(args, filter.GuildID)
	}
	if filter.ChannelID != "" {
		where = append(where, "channel_id = ?")
		args = append(args, filter.ChannelID)
	}

	query := `
		SELECT id, guild_id, guild_name, channel_id, channel_name, requester_id,
		       option, folder, succeeded, failed, bytes, started_at, finished_at
		FROM downloads`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY finished_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		recordQuery("recent_downloads", time.Since(start).Seconds(), err)
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var records []DownloadRecord
	for rows.Next() {
		var r DownloadRecord
		if err := rows.Scan(
			&r.ID, &r.GuildID, &r.GuildName, &r.ChannelID, &r.ChannelName, &r.RequesterID,
			&r.Option, &r.Folder, &r.Succeeded, &r.Failed, &r.Bytes, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			recordQuery("recent_downloads", time.Since(start).Seconds(), err)
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		records = append(records, r)
	}
	err = rows.Err()
	recordQuery("recent_downloads", time.Since(start).Seconds(), err)
	return records, err
}

// DownloadSummary aggregates batches finished at or after since.
// A zero since covers the whole journal.
func (s *SQLiteStore) DownloadSummary(ctx context.Context, since time.Time) (Summary, error) {
	start := time.Now()
	query := `
		SELECT COUNT(*), COALESCE(SUM(succeeded), 0), COALESCE(SUM(failed), 0), COALESCE(SUM(bytes), 0)
		FROM downloads
		WHERE finished_at >= ?
	`
	var sum Summary
	err := s.db.QueryRowContext(ctx, query, since.UTC()).Scan(&sum.Batches, &sum.Succeeded, &sum.Failed, &sum.Bytes)
	recordQuery("download_summary", time.Since(start).Seconds(), err)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to summarise downloads: %w", err)
	}
	return sum, nil
}
