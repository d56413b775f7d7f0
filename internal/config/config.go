// Package config loads, validates and persists the bot configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rshade/ysyunhei/internal/blacklist"
	"github.com/rshade/ysyunhei/internal/cooldown"
	"github.com/rshade/ysyunhei/internal/render"
)

// Configuration file names inside the config directory.
const (
	FileName      = "config.yaml"
	LocalFileName = "config.local.yaml"
)

// Environment overrides.
const (
	EnvHome        = "YSYUNHEI_HOME"
	EnvAPIKey      = "YSYUNHEI_API_KEY"
	EnvOneBotURL   = "YSYUNHEI_ONEBOT_URL"
	EnvOneBotToken = "YSYUNHEI_ONEBOT_TOKEN"
	EnvLogLevel    = "YSYUNHEI_LOG_LEVEL"
	EnvRedisAddr   = "YSYUNHEI_REDIS_ADDR"
)

// Defaults.
const (
	DefaultSleepStartHour = 22
	DefaultSleepEndHour   = 2
	DefaultSleepMuteHours = 8
	DefaultOneBotTimeout  = 8
	DefaultLogLevel       = "info"
	maxHour               = 23
	configFilePermissions = 0o600
	configDirPermissions  = 0o700
)

// ErrMissingAPIKey is returned by RequireAPIKey.
var ErrMissingAPIKey = errors.New("api_key is not set (config file or " + EnvAPIKey + ")")

// Config is the whole bot configuration.
type Config struct {
	APIKey     string `yaml:"api_key"`
	APIBaseURL string `yaml:"api_base_url,omitempty"`
	// AdminQQs maps an administrator account to the registrant name reported
	// on insert. Only these accounts may use moderation commands.
	AdminQQs map[string]string `yaml:"admin_qqs"`

	SleepStartHour int `yaml:"sleep_start_hour"`
	SleepEndHour   int `yaml:"sleep_end_hour"`
	SleepMuteHours int `yaml:"sleep_mute_hours"`

	RenderAsImage bool   `yaml:"render_as_image"`
	BrowserPath   string `yaml:"browser_path,omitempty"`
	ThemeDate     string `yaml:"theme_date"`
	ThemeColor    string `yaml:"theme_color"`

	CommandPrefix string `yaml:"command_prefix,omitempty"`

	OneBot      OneBotConfig   `yaml:"onebot"`
	Cooldown    CooldownConfig `yaml:"cooldown"`
	MetricsAddr string         `yaml:"metrics_addr,omitempty"`
	Logging     LoggingConfig  `yaml:"logging"`

	path string
}

// OneBotConfig locates the OneBot forward WebSocket.
type OneBotConfig struct {
	WSURL          string `yaml:"ws_url"`
	AccessToken    string `yaml:"access_token,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CooldownConfig selects the cooldown backend.
type CooldownConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string      `yaml:"level"`
	Format string      `yaml:"format,omitempty"`
	File   string      `yaml:"file,omitempty"`
	Audit  AuditConfig `yaml:"audit,omitempty"`
}

// AuditConfig enables the moderation audit log.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file,omitempty"`
}

// New returns a configuration with defaults.
func New() *Config {
	return &Config{
		APIBaseURL:     blacklist.DefaultBaseURL,
		AdminQQs:       map[string]string{},
		SleepStartHour: DefaultSleepStartHour,
		SleepEndHour:   DefaultSleepEndHour,
		SleepMuteHours: DefaultSleepMuteHours,
		ThemeDate:      render.DefaultThemeDate,
		ThemeColor:     render.DefaultThemeColor,
		OneBot: OneBotConfig{
			WSURL:          "ws://127.0.0.1:6700",
			TimeoutSeconds: DefaultOneBotTimeout,
		},
		Cooldown: CooldownConfig{Backend: cooldown.BackendMemory},
		Logging:  LoggingConfig{Level: DefaultLogLevel},
	}
}

// DefaultPath returns <config dir>/config.yaml.
func DefaultPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads path (or the default path when empty) over the defaults, merges
// config.local.yaml from the same directory when present, then applies
// environment overrides. A missing main file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := New()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	local := filepath.Join(filepath.Dir(path), LocalFileName)
	if _, statErr := os.Stat(local); statErr == nil {
		if err := ShallowMergeYAML(cfg, local); err != nil {
			return nil, err
		}
	}

	if cfg.AdminQQs == nil {
		cfg.AdminQQs = map[string]string{}
	}
	cfg.ApplyEnv(os.LookupEnv)

	return cfg, nil
}

// Path is the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// ApplyEnv overlays environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		c.APIKey = v
	}
	if v, ok := lookup(EnvOneBotURL); ok && v != "" {
		c.OneBot.WSURL = v
	}
	if v, ok := lookup(EnvOneBotToken); ok && v != "" {
		c.OneBot.AccessToken = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Cooldown.Backend = cooldown.BackendRedis
		c.Cooldown.RedisAddr = v
	}
}

// Save writes the configuration to path with owner-only permissions.
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.path
	}
	if err := os.MkdirAll(filepath.Dir(path), configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, configFilePermissions); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	c.path = path
	return nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	for name, h := range map[string]int{
		"sleep_start_hour": c.SleepStartHour,
		"sleep_end_hour":   c.SleepEndHour,
	} {
		if h < 0 || h > maxHour {
			errs = append(errs, fmt.Errorf("%s must be 0-23, got %d", name, h))
		}
	}
	if c.SleepMuteHours < 1 {
		errs = append(errs, fmt.Errorf("sleep_mute_hours must be >= 1, got %d", c.SleepMuteHours))
	}

	for qq, name := range c.AdminQQs {
		if _, err := strconv.ParseInt(qq, 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("admin_qqs key %q is not a QQ number", qq))
		}
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("admin_qqs[%s] has an empty registrant name", qq))
		}
	}

	if _, err := render.ParseTheme(c.ThemeDate, c.ThemeColor); err != nil {
		errs = append(errs, err)
	}

	if c.OneBot.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("onebot.timeout_seconds must be >= 0, got %d", c.OneBot.TimeoutSeconds))
	}

	switch c.Cooldown.Backend {
	case "", cooldown.BackendMemory:
	case cooldown.BackendRedis:
		if c.Cooldown.RedisAddr == "" {
			errs = append(errs, errors.New("cooldown.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cooldown.backend must be memory or redis, got %q", c.Cooldown.Backend))
	}

	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
			errs = append(errs, fmt.Errorf("logging.level %q: %w", c.Logging.Level, err))
		}
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// RequireAPIKey fails when no API key is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}
