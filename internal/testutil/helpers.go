package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/runixer/mediagrab/internal/config"
	"github.com/runixer/mediagrab/internal/i18n"
)

// TestLogger returns a discarding logger for tests.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestConfig returns the embedded defaults with a token and a temp
// downloads root, ready for Validate.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadDefault()
	if err != nil {
		t.Fatalf("failed to load default config: %v", err)
	}
	cfg.Discord.Token = "test-token"
	cfg.Downloads.Root = t.TempDir()
	cfg.Downloads.RetryDelay = "1ms"
	return cfg
}

// TestTranslator returns the embedded translator with English as default.
func TestTranslator(t *testing.T) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator("en")
	if err != nil {
		t.Fatalf("failed to create test translator: %v", err)
	}
	return tr
}

// Ptr returns a pointer to the given value. Useful for optional fields.
func Ptr[T any](v T) *T {
	return &v
}
