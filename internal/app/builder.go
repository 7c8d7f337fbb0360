package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/runixer/mediagrab/internal/bot"
	"github.com/runixer/mediagrab/internal/config"
	"github.com/runixer/mediagrab/internal/discord"
	"github.com/runixer/mediagrab/internal/download"
	"github.com/runixer/mediagrab/internal/i18n"
	"github.com/runixer/mediagrab/internal/storage"
	"github.com/runixer/mediagrab/internal/web"
)

// Services holds all initialized components.
// This struct is returned by SetupServices so main only deals with
// lifecycle: open the gateway, run the web server, shut down.
type Services struct {
	Translator *i18n.Translator
	Store      *storage.SQLiteStore // nil when the journal is off
	Gateway    *discord.Gateway
	Executor   *download.Executor
	Bot        *bot.Bot
	Web        *web.Server
}

// SetupServices wires every component from cfg. Nothing touches the
// network: the gateway connects on Open.
//
// The caller is responsible for:
// - Opening the gateway (services.Gateway.Open())
// - Starting the web server and journal maintenance
// - Calling Close when done
func SetupServices(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*Services, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	services := &Services{}

	translator, err := i18n.NewTranslator(cfg.Bot.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize translator: %w", err)
	}
	services.Translator = translator
	logger.Info("Translator initialized", "default_lang", cfg.Bot.Language)

	if cfg.Database.Enabled() {
		store, err := storage.NewSQLiteStore(logger, cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
		if err := store.Init(ctx); err != nil {
			return nil, errors.Join(fmt.Errorf("failed to initialize storage: %w", err), store.Close())
		}
		services.Store = store
		logger.Info("Download journal enabled", "path", cfg.Database.Path)
	} else {
		logger.Info("Download journal disabled")
	}

	gateway, err := discord.NewGateway(cfg.Discord.Token, logger)
	if err != nil {
		return nil, errors.Join(err, services.Close())
	}
	services.Gateway = gateway

	fetcher := discord.NewHTTPFileDownloader(cfg.Downloads.GetTimeout(), cfg.Downloads.MaxFileBytes)
	services.Executor = download.NewExecutor(fetcher, cfg.Downloads.MaxRetries, cfg.Downloads.GetRetryDelay(), logger)

	// Keep the interfaces nil, not typed-nil, when the journal is off.
	var (
		recorder storage.DownloadRecorder
		reader   storage.DownloadReader
	)
	if services.Store != nil {
		recorder = services.Store
		reader = services.Store
	}

	services.Bot = bot.NewBot(
		logger,
		gateway.Client(),
		gateway.Reactions(),
		services.Executor,
		download.NewNamer(cfg.Downloads.Root),
		recorder,
		translator,
		cfg,
	)
	gateway.OnMessage(services.Bot.HandleMessageAsync)

	services.Web = web.NewServer(logger, cfg, reader)

	return services, nil
}

// Close releases the journal database.
func (s *Services) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
