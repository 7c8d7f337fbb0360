package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/runixer/mediagrab/internal/discord"
	"github.com/runixer/mediagrab/internal/download"
	"github.com/runixer/mediagrab/internal/media"
	"github.com/runixer/mediagrab/internal/selection"
	"github.com/runixer/mediagrab/internal/storage"
)

const (
	// adminOnlyDeleteAfter is how long the admin-only notice stays visible.
	adminOnlyDeleteAfter = 10 * time.Second
	// detachedTimeout bounds calls that must run after the workflow context ends.
	detachedTimeout = 10 * time.Second
)

// handleScan runs the scan workflow: authorize, scan history, report,
// prompt for a choice and download it.
func (b *Bot) handleScan(ctx context.Context, msg discord.Message, args []string, logger *slog.Logger) {
	invocationID := uuid.NewString()
	logger = logger.With("invocation_id", invocationID)

	start := time.Now()
	activeWorkflows.Inc()
	defer func() {
		activeWorkflows.Dec()
		workflowDuration.Observe(time.Since(start).Seconds())
	}()

	admin, err := b.api.IsAdministrator(ctx, msg.ChannelID, msg.Author.ID)
	if err != nil {
		logger.Warn("permission check failed", "error", err)
	}
	if !admin {
		logger.Warn("Unauthorized scan attempt")
		if _, err := b.api.Reply(ctx, handleOf(msg), b.t("command.admin_only"), adminOnlyDeleteAfter); err != nil {
			logger.Error("failed to send admin-only notice", "error", err)
		}
		recordCommand("scan", "unauthorized")
		return
	}

	limit := media.ParseLimit(args, b.cfg.Bot.DefaultScanLimit, b.cfg.Bot.MaxScanLimit)
	history, err := b.api.FetchHistory(ctx, msg.ChannelID, limit)
	if err != nil {
		logger.Error("failed to fetch history", "limit", limit, "error", err)
		b.replyFailure(ctx, msg, logger)
		recordCommand("scan", "error")
		return
	}

	result := media.Scan(discord.ToMedia(history), limit, b.cfg.Bot.ExcludeBots)
	b.logScan(result, logger)

	if _, err := b.api.SendEmbed(ctx, msg.ChannelID, b.reportEmbed(result)); err != nil {
		logger.Error("failed to send report", "error", err)
		recordCommand("scan", "error")
		return
	}

	options := media.BuildOptions(result)
	if len(options) == 0 {
		logger.Info("No attachments found, nothing to offer")
		recordCommand("scan", "ok")
		return
	}

	coord := selection.NewCoordinator(b.api, b.reactions, b.cfg.Bot.GetSelectionTimeout(), logger)
	outcome, err := coord.Run(ctx, selection.Request{
		ChannelID:   msg.ChannelID,
		RequesterID: msg.Author.ID,
		Options:     options,
		Text:        b.optionsText(options),
		Confirm: func(opt media.Option) string {
			return b.t("download.started", b.optionLabel(opt))
		},
	})
	if err != nil {
		logger.Error("failed to prompt for selection", "error", err)
		recordPromptOutcome("error")
		recordCommand("scan", "error")
		return
	}
	recordPromptOutcome(outcome.Kind.String())

	if outcome.Kind != selection.KindResolved {
		logger.Info("Selection ended without a choice", "outcome", outcome.Kind.String())
		recordCommand("scan", "ok")
		return
	}

	logger.Info("Selection resolved", "option", string(outcome.Option.Label))
	b.download(ctx, msg, result, outcome, invocationID, logger)
	recordCommand("scan", "ok")
}

func (b *Bot) logScan(result *media.ScanResult, logger *slog.Logger) {
	counts := make(map[string]int, len(media.Categories))
	attrs := []any{"messages", result.MessagesScanned}
	for _, c := range media.Categories {
		bucket := result.Bucket(c)
		counts[c.String()] = bucket.Len()
		for _, item := range bucket.Items {
			logger.Debug("attachment found",
				"category", c.String(),
				"file", item.FileName,
				"size_mb", media.BytesToMB(item.Attachment.Size),
			)
		}
		attrs = append(attrs, c.String()+"s", bucket.Len())
	}
	attrs = append(attrs, "total_size", humanize.IBytes(uint64(result.TotalBytes())))
	logger.Info("Scan finished", attrs...)

	recordScan(result.MessagesScanned, counts)
}

// download runs the chosen batch, keeping the status message (the retired
// prompt) up to date.
func (b *Bot) download(ctx context.Context, msg discord.Message, result *media.ScanResult, outcome selection.Outcome, invocationID string, logger *slog.Logger) {
	status := outcome.Status
	label := b.optionLabel(outcome.Option)
	started := time.Now()

	server := b.lookupName(ctx, "guild", msg.GuildID, b.api.GuildName, logger)
	channel := b.lookupName(ctx, "channel", msg.ChannelID, b.api.ChannelName, logger)

	folder, err := b.folders.Create(server, channel)
	if err != nil {
		logger.Error("failed to create download folder", "error", err)
		b.finishStatus(ctx, status, b.t("download.failed"), logger)
		return
	}

	throttle := newProgressThrottle(b.cfg.Bot.GetProgressInterval(), time.Now)
	report := b.executor.Execute(ctx, outcome.Option, result, folder, func(p download.Progress) {
		if p.Done >= p.Total || !throttle.allow() {
			return
		}
		text := b.t("download.progress", label, p.Done, p.Total)
		if err := b.api.EditMessage(ctx, status, text, 0); err != nil {
			logger.Debug("failed to update progress", "error", err)
		}
	})

	for _, f := range report.Failures {
		logger.Warn("file not saved",
			"file", f.Item.FileName,
			"url", f.Item.Attachment.URL,
			"error", f.Err,
		)
	}

	b.finishStatus(ctx, status, b.statusText(report), logger)

	b.recordJournal(ctx, storage.DownloadRecord{
		ID:          invocationID,
		GuildID:     msg.GuildID,
		GuildName:   server,
		ChannelID:   msg.ChannelID,
		ChannelName: channel,
		RequesterID: msg.Author.ID,
		Option:      string(outcome.Option.Label),
		Folder:      report.Folder,
		Succeeded:   report.Succeeded(),
		Failed:      report.Failed(),
		Bytes:       report.Bytes(),
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}, logger)
}

// lookupName resolves a guild or channel name; an empty result lets the
// folder namer fall back to its placeholder.
func (b *Bot) lookupName(ctx context.Context, kind, id string, lookup func(context.Context, string) (string, error), logger *slog.Logger) string {
	if id == "" {
		return ""
	}
	name, err := lookup(ctx, id)
	if err != nil {
		logger.Warn("failed to resolve name", "kind", kind, "id", id, "error", err)
		return ""
	}
	return name
}

// finishStatus writes the final status line. It runs even after shutdown
// cancelled the workflow so the user is never left with a stale status.
func (b *Bot) finishStatus(ctx context.Context, status discord.MessageHandle, text string, logger *slog.Logger) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedTimeout)
	defer cancel()
	if err := b.api.EditMessage(dctx, status, text, b.cfg.Bot.GetStatusDeleteAfter()); err != nil {
		logger.Error("failed to update status", "error", err)
	}
}

func (b *Bot) replyFailure(ctx context.Context, msg discord.Message, logger *slog.Logger) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedTimeout)
	defer cancel()
	if _, err := b.api.Reply(dctx, handleOf(msg), b.t("download.failed"), b.cfg.Bot.GetStatusDeleteAfter()); err != nil {
		logger.Error("failed to report failure", "error", err)
	}
}

func (b *Bot) recordJournal(ctx context.Context, rec storage.DownloadRecord, logger *slog.Logger) {
	if b.journal == nil {
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedTimeout)
	defer cancel()
	if err := b.journal.RecordDownload(dctx, rec); err != nil {
		logger.Error("failed to record download", "error", err)
	}
}
