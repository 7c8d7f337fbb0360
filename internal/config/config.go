package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

type ServerConfig struct {
	ListenPort string `yaml:"listen_port" env:"MEDIAGRAB_SERVER_PORT" validate:"omitempty,numeric"`
	Auth       struct {
		Enabled  bool   `yaml:"enabled" env:"MEDIAGRAB_AUTH_ENABLED"`
		Username string `yaml:"username" env:"MEDIAGRAB_AUTH_USERNAME" validate:"required_if=Enabled true"`
		Password string `yaml:"password" env:"MEDIAGRAB_AUTH_PASSWORD" validate:"required_if=Enabled true"`
	} `yaml:"auth"`
	// RateLimit is the number of /api requests allowed per IP per minute.
	RateLimit int `yaml:"rate_limit" env:"MEDIAGRAB_SERVER_RATE_LIMIT" validate:"gte=0"`
}

type DiscordConfig struct {
	Token         string `yaml:"token" env:"MEDIAGRAB_DISCORD_TOKEN,DISCORD_TOKEN" validate:"required"`
	CommandPrefix string `yaml:"command_prefix" env:"MEDIAGRAB_COMMAND_PREFIX" validate:"required"`
}

type BotConfig struct {
	Language          string `yaml:"language" env:"MEDIAGRAB_BOT_LANGUAGE" validate:"required,oneof=en ru"`
	DefaultScanLimit  int    `yaml:"default_scan_limit" validate:"gte=1"`
	MaxScanLimit      int    `yaml:"max_scan_limit" env:"MEDIAGRAB_MAX_SCAN_LIMIT" validate:"gtefield=DefaultScanLimit"`
	ExcludeBots       bool   `yaml:"exclude_bots"`
	SelectionTimeout  string `yaml:"selection_timeout" env:"MEDIAGRAB_SELECTION_TIMEOUT"`
	StatusDeleteAfter string `yaml:"status_delete_after"`
	ProgressInterval  string `yaml:"progress_interval"`
}

// Default durations used when a value is missing or unparsable.
const (
	DefaultSelectionTimeout    = 15 * time.Second
	DefaultStatusDeleteAfter   = 10 * time.Second
	DefaultProgressInterval    = 1 * time.Second
	DefaultRetryDelay          = 500 * time.Millisecond
	DefaultDownloadTimeout     = 10 * time.Minute
	DefaultMaintenanceInterval = time.Hour
)

// GetSelectionTimeout returns how long a prompt waits for a reaction.
func (c *BotConfig) GetSelectionTimeout() time.Duration {
	return parseDurationOr(c.SelectionTimeout, DefaultSelectionTimeout)
}

// GetStatusDeleteAfter returns the lifetime of transient status messages.
func (c *BotConfig) GetStatusDeleteAfter() time.Duration {
	return parseDurationOr(c.StatusDeleteAfter, DefaultStatusDeleteAfter)
}

// GetProgressInterval returns the minimum gap between progress edits.
func (c *BotConfig) GetProgressInterval() time.Duration {
	return parseDurationOr(c.ProgressInterval, DefaultProgressInterval)
}

type DownloadsConfig struct {
	Root         string `yaml:"root" env:"MEDIAGRAB_DOWNLOADS_ROOT" validate:"required"`
	MaxFileBytes int64  `yaml:"max_file_bytes" env:"MEDIAGRAB_MAX_FILE_BYTES" validate:"gte=0"`
	MaxRetries   int    `yaml:"max_retries" validate:"gte=1,lte=10"`
	RetryDelay   string `yaml:"retry_delay"`
	Timeout      string `yaml:"timeout"`
}

// GetRetryDelay returns the base delay of the per-file backoff.
func (c *DownloadsConfig) GetRetryDelay() time.Duration {
	return parseDurationOr(c.RetryDelay, DefaultRetryDelay)
}

// GetTimeout returns the HTTP timeout for a single file.
func (c *DownloadsConfig) GetTimeout() time.Duration {
	return parseDurationOr(c.Timeout, DefaultDownloadTimeout)
}

type Config struct {
	Log struct {
		Level string `yaml:"level" env:"MEDIAGRAB_LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	} `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Discord   DiscordConfig   `yaml:"discord"`
	Bot       BotConfig       `yaml:"bot"`
	Downloads DownloadsConfig `yaml:"downloads"`
	Database  DatabaseConfig  `yaml:"database"`
}

type DatabaseConfig struct {
	// Path enables the download journal. Empty keeps the bot stateless.
	Path                string `yaml:"path" env:"MEDIAGRAB_DATABASE_PATH"`
	KeepBatches         int    `yaml:"keep_batches" validate:"gte=0"`
	MaintenanceInterval string `yaml:"maintenance_interval"`
}

// Enabled reports whether the download journal is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.Path != ""
}

// GetMaintenanceInterval returns how often the journal is pruned.
func (c *DatabaseConfig) GetMaintenanceInterval() time.Duration {
	return parseDurationOr(c.MaintenanceInterval, DefaultMaintenanceInterval)
}

// Load loads configuration from the specified file path.
// It first loads the embedded default configuration, then merges the user config on top.
// Finally, it overrides values with environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfig, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse default config: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			slog.Warn("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			expanded := []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(expanded, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			slog.Info("loaded user config", "path", path)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads the embedded default configuration.
func LoadDefault() (*Config, error) {
	return Load("")
}

// DefaultConfigBytes returns the raw embedded default configuration.
func DefaultConfigBytes() []byte {
	return defaultConfig
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report yaml keys, not Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks configuration for required fields and valid ranges.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []error

	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	}

	durations := []struct {
		key, value string
	}{
		{"bot.selection_timeout", c.Bot.SelectionTimeout},
		{"bot.status_delete_after", c.Bot.StatusDeleteAfter},
		{"bot.progress_interval", c.Bot.ProgressInterval},
		{"downloads.retry_delay", c.Downloads.RetryDelay},
		{"downloads.timeout", c.Downloads.Timeout},
		{"database.maintenance_interval", c.Database.MaintenanceInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration format %q: %w", d.key, d.value, err))
			continue
		}
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.key, d.value))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	// Namespace is "Config.bot.language"; drop the root type.
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", key)
	case "required_if":
		return fmt.Errorf("%s is required when %s", key, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %v", key, fe.Param(), fe.Value())
	case "gtefield":
		return fmt.Errorf("%s must not be less than %s, got %v", key, fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s failed %s=%s, got %v", key, fe.Tag(), fe.Param(), fe.Value())
	}
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
