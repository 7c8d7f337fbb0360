package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/runixer/mediagrab/internal/app"
	"github.com/runixer/mediagrab/internal/config"
)

var Version = "dev"

var buildInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "mediagrab",
		Name:      "build_info",
		Help:      "Build information with version and Go runtime details",
	},
	[]string{"version", "go_version"},
)

func init() {
	buildInfo.WithLabelValues(Version, runtime.Version()).Set(1)
}

func runHealthcheck(configPath string) int {
	// A broken config should not hide a healthy process; fall back to the
	// default port.
	port := "9081"
	if cfg, err := config.Load(configPath); err == nil && cfg.Server.ListenPort != "" {
		port = cfg.Server.ListenPort
	}

	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{
		Timeout: 5 * time.Second,
	}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Healthcheck returned status: %d\n", resp.StatusCode)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}

func run() int {
	// Set up JSON logging early (before config load) with default INFO level.
	// Will be reconfigured with correct level after config is loaded.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := app.LoadEnv(); err != nil {
		slog.Warn("failed to load .env, relying on environment variables", "error", err)
	}

	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	healthcheck := flag.Bool("healthcheck", false, "run healthcheck and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("mediagrab", Version)
		return 0
	}

	if *healthcheck {
		return runHealthcheck(*configPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		slog.Warn("unknown log level, defaulting to info", "level", cfg.Log.Level)
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	logger.Info("Config loaded successfully",
		"prefix", cfg.Discord.CommandPrefix,
		"language", cfg.Bot.Language,
		"downloads_root", cfg.Downloads.Root,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	services, err := app.SetupServices(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to set up services", "error", err)
		return 1
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	if err := services.Gateway.Open(); err != nil {
		logger.Error("failed to open discord gateway", "error", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.ListenPort != "" {
		g.Go(func() error {
			return services.Web.Start(gctx)
		})
	}

	if services.Store != nil {
		g.Go(func() error {
			services.Store.RunMaintenance(gctx, cfg.Database.GetMaintenanceInterval(), cfg.Database.KeepBatches)
			return nil
		})
	}

	logger.Info("Starting mediagrab", "version", Version)

	<-gctx.Done()
	logger.Info("Shutting down...")

	// Stop taking events first, then let in-flight workflows finish.
	if err := services.Gateway.Close(); err != nil {
		logger.Warn("failed to close discord gateway", "error", err)
	}
	services.Bot.Stop()

	if err := g.Wait(); err != nil {
		logger.Error("web server failed", "error", err)
		return 1
	}
	logger.Info("Shutdown complete")
	return 0
}
