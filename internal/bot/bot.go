package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/runixer/mediagrab/internal/config"
	"github.com/runixer/mediagrab/internal/discord"
	"github.com/runixer/mediagrab/internal/download"
	"github.com/runixer/mediagrab/internal/i18n"
	"github.com/runixer/mediagrab/internal/media"
	"github.com/runixer/mediagrab/internal/selection"
	"github.com/runixer/mediagrab/internal/storage"
)

// Executor runs a download batch.
type Executor interface {
	Execute(ctx context.Context, opt media.Option, result *media.ScanResult, folder string, progress download.ProgressFunc) *download.Report
}

// FolderCreator creates the destination folder of a batch.
type FolderCreator interface {
	Create(server, channel string) (string, error)
}

type Bot struct {
	api        discord.ChatAPI
	reactions  selection.Subscriber
	executor   Executor
	folders    FolderCreator
	journal    storage.DownloadRecorder // nil when the journal is off
	translator *i18n.Translator
	cfg        *config.Config
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewBot wires a Bot. journal may be nil.
func NewBot(
	logger *slog.Logger,
	api discord.ChatAPI,
	reactions selection.Subscriber,
	executor Executor,
	folders FolderCreator,
	journal storage.DownloadRecorder,
	translator *i18n.Translator,
	cfg *config.Config,
) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		api:        api,
		reactions:  reactions,
		executor:   executor,
		folders:    folders,
		journal:    journal,
		translator: translator,
		cfg:        cfg,
		logger:     logger.With("component", "bot"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Stop supersedes pending prompts, cancels running batches and waits for
// every in-flight workflow to finish. Messages arriving afterwards are dropped.
func (b *Bot) Stop() {
	b.logger.Info("Stopping bot...")

	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	b.cancel()

	b.logger.Info("Waiting for active bot handlers to finish...")
	b.wg.Wait()
	b.logger.Info("Bot stopped.")
}

// HandleMessageAsync processes msg in its own goroutine. It is the gateway's
// message handler, so it must return immediately.
func (b *Bot) HandleMessageAsync(msg discord.Message) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("panic in message handler", "recover", r, "message_id", msg.ID)
			}
		}()
		b.HandleMessage(b.ctx, msg)
	}()
}

// HandleMessage parses and runs a single command.
func (b *Bot) HandleMessage(ctx context.Context, msg discord.Message) {
	command, args, ok := parseCommand(msg.Content, b.cfg.Discord.CommandPrefix)
	if !ok {
		return
	}

	logger := b.logger.With(
		"guild_id", msg.GuildID,
		"channel_id", msg.ChannelID,
		"user_id", msg.Author.ID,
		"command", command,
	)

	if msg.Author.Bot {
		logger.Debug("Robots can not give me orders")
		recordCommand(command, "rejected_bot")
		return
	}

	logger.Info("Received command", "author", msg.Author.Name, "args", args)

	switch command {
	case "ping":
		b.handlePing(ctx, msg, logger)
	case "scan", "info":
		b.handleScan(ctx, msg, args, logger)
	default:
		logger.Info("Unknown command")
		recordCommand("unknown", "ignored")
	}
}

// parseCommand splits "{prefix}{command} {args...}". The command is matched
// case-insensitively; an empty command is not a command.
func parseCommand(content, prefix string) (string, []string, bool) {
	if prefix == "" {
		return "", nil, false
	}
	rest, ok := strings.CutPrefix(strings.TrimSpace(content), prefix)
	if !ok {
		return "", nil, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (b *Bot) handlePing(ctx context.Context, msg discord.Message, logger *slog.Logger) {
	ms := b.api.Latency().Round(time.Millisecond).Milliseconds()
	text := b.t("command.latency", formatInt(ms))
	if _, err := b.api.SendMessage(ctx, msg.ChannelID, text); err != nil {
		logger.Error("failed to send latency", "error", err)
		recordCommand("ping", "error")
		return
	}
	recordCommand("ping", "ok")
}

func (b *Bot) t(key string, args ...any) string {
	return b.translator.Get(b.cfg.Bot.Language, key, args...)
}

func handleOf(msg discord.Message) discord.MessageHandle {
	return discord.MessageHandle{ChannelID: msg.ChannelID, MessageID: msg.ID}
}
