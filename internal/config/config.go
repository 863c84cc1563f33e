package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/lmrtfy/internal/logging"
	"github.com/aretw0/lmrtfy/pkg/analytics"
	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/persistence/middleware"
	"github.com/aretw0/lmrtfy/pkg/playback"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "lmrtfy.yaml"

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Links     LinksConfig     `mapstructure:"links"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Playback  playback.Timing `mapstructure:"playback"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	PublicURL       string        `mapstructure:"public_url"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LinksConfig struct {
	AssistantURL     string `mapstructure:"assistant_url"`
	MaxPromptBytes   int    `mapstructure:"max_prompt_bytes"`
	CompressionLevel int    `mapstructure:"compression_level"`
}

type AnalyticsConfig struct {
	Enabled         bool                     `mapstructure:"enabled"`
	Capacity        int                      `mapstructure:"capacity"`
	Retention       time.Duration            `mapstructure:"retention"`
	CleanupInterval time.Duration            `mapstructure:"cleanup_interval"`
	Summary         analytics.SummaryOptions `mapstructure:"summary"`
	// SQLitePath stores events in a local SQLite file when Redis is not configured.
	SQLitePath string `mapstructure:"sqlite_path"`
	// Redact lists regular expressions masked out of stored events.
	Redact []string `mapstructure:"redact"`
	// EncryptionKeys are base64 AES-256 keys. The first one encrypts,
	// the others only decrypt events written before a rotation.
	EncryptionKeys []string `mapstructure:"encryption_keys"`
}

// Keys decodes EncryptionKeys.
func (a AnalyticsConfig) Keys() ([][]byte, error) {
	keys := make([][]byte, 0, len(a.EncryptionKeys))
	for i, k := range a.EncryptionKeys {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("key %d is not base64: %w", i, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key %d must decode to 32 bytes, got %d", i, len(key))
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// RedisConfig selects the Redis backend when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			CORSOrigin:      "*",
			ShutdownTimeout: 5 * time.Second,
		},
		Links: LinksConfig{
			AssistantURL:   "https://replit.com/ai",
			MaxPromptBytes: domain.DefaultMaxPromptBytes,
		},
		Analytics: AnalyticsConfig{
			Enabled:         true,
			Capacity:        analytics.DefaultCapacity,
			Retention:       analytics.DefaultRetention,
			CleanupInterval: analytics.DefaultCleanupInterval,
			Summary:         analytics.DefaultSummaryOptions(),
			Redact:          slices.Clone(middleware.DefaultPIIPatterns),
		},
		Redis: RedisConfig{
			Prefix: "lmrtfy:",
		},
		Playback: playback.DefaultTiming(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Format selects the config file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the syntax from the file extension. YAML is the default.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := DecodeFormat(data, FormatOf(path), &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode merges YAML data into cfg.
func Decode(data []byte, cfg *Config) error {
	return DecodeFormat(data, FormatYAML, cfg)
}

// DecodeFormat merges data in the given syntax into cfg. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func DecodeFormat(data []byte, format Format, cfg *Config) error {
	var raw map[string]any
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown config format %q", format)
	}
	if len(raw) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      cfg,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// ApplyEnv overrides fields from LMRTFY_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("LMRTFY_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LMRTFY_PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("LMRTFY_PUBLIC_URL"); ok && v != "" {
		c.Server.PublicURL = v
	}
	if v, ok := lookup("LMRTFY_SQLITE_PATH"); ok && v != "" {
		c.Analytics.SQLitePath = v
	}
	if v, ok := lookup("LMRTFY_REDIS_ADDR"); ok && v != "" {
		c.Redis.Addr = v
	}
	if v, ok := lookup("LMRTFY_MAX_PROMPT_BYTES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LMRTFY_MAX_PROMPT_BYTES=%q", ErrInvalidConfig, v)
		}
		c.Links.MaxPromptBytes = n
	}
	if v, ok := lookup("LMRTFY_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("LMRTFY_ENCRYPTION_KEY"); ok && v != "" {
		c.Analytics.EncryptionKeys = append([]string{v}, c.Analytics.EncryptionKeys...)
	}
	return nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port %d out of range", c.Server.Port)
	}
	if c.Server.PublicURL != "" {
		if err := absoluteURL(c.Server.PublicURL); err != nil {
			return invalid("server.public_url: %v", err)
		}
	}
	if c.Server.ShutdownTimeout <= 0 {
		return invalid("server.shutdown_timeout must be positive")
	}
	if err := absoluteURL(c.Links.AssistantURL); err != nil {
		return invalid("links.assistant_url: %v", err)
	}
	if c.Links.MaxPromptBytes <= 0 {
		return invalid("links.max_prompt_bytes must be positive")
	}
	if c.Links.CompressionLevel < -3 || c.Links.CompressionLevel > 9 {
		return invalid("links.compression_level %d out of range", c.Links.CompressionLevel)
	}
	if c.Analytics.Capacity <= 0 {
		return invalid("analytics.capacity must be positive")
	}
	if c.Analytics.Retention <= 0 || c.Analytics.CleanupInterval <= 0 {
		return invalid("analytics.retention and analytics.cleanup_interval must be positive")
	}
	if c.Redis.Addr != "" && c.Analytics.SQLitePath != "" {
		return invalid("redis.addr and analytics.sqlite_path are mutually exclusive")
	}
	for _, p := range c.Analytics.Redact {
		if _, err := regexp.Compile(p); err != nil {
			return invalid("analytics.redact: %v", err)
		}
	}
	if _, err := c.Analytics.Keys(); err != nil {
		return invalid("analytics.encryption_keys: %v", err)
	}
	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	return nil
}

func absoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}
