// Package config handles loading and persisting user configuration
// for livedit. Configuration is stored in ~/.livedit/config.yaml and
// every key can be overridden with a LIVEDIT_ environment variable
// (nested keys use underscores, e.g. LIVEDIT_SERVER_ADDR).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	dirName   = ".livedit"
	fileName  = "config"
	fileType  = "yaml"
	envPrefix = "LIVEDIT"

	defaultEndpoint = "http://localhost:11434"
	defaultModel    = "codellama:7b"
)

// Config holds the user's configuration.
type Config struct {
	Endpoint          string        `mapstructure:"endpoint"`
	Model             string        `mapstructure:"model"`
	Temperature       float64       `mapstructure:"temperature"`
	TopP              float64       `mapstructure:"top_p"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	PacingDelay       time.Duration `mapstructure:"pacing_delay"`
	MaxDecodeFailures int           `mapstructure:"max_decode_failures"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`

	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig controls the proxy/static server.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	StaticDir   string   `mapstructure:"static_dir"`
	ProxyPrefix string   `mapstructure:"proxy_prefix"`
	RateLimit   float64  `mapstructure:"rate_limit"`
	RateBurst   int      `mapstructure:"rate_burst"`
	CorsOrigins []string `mapstructure:"cors_origins"`
}

// StoreConfig selects where transcripts and editor buffers are persisted.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // "file" or "sqlite"
	Path    string `mapstructure:"path"`    // sqlite database file; defaults under Dir()
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// Dir returns the configuration directory path.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

func configPath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", defaultEndpoint)
	v.SetDefault("model", defaultModel)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("top_p", 0.9)
	v.SetDefault("max_tokens", 2000)
	v.SetDefault("pacing_delay", 500*time.Millisecond)
	v.SetDefault("max_decode_failures", 0)
	v.SetDefault("connect_timeout", 10*time.Second)

	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.static_dir", "build")
	v.SetDefault("server.proxy_prefix", "/api/ollama")
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName(fileName)
	v.SetConfigType(fileType)
	v.AddConfigPath(Dir())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults and env still apply.
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("failed to read %s: %w", configPath(), err)
		}
	}
	return v, nil
}

// Load reads the configuration from disk and environment variables.
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(Dir(), "livedit.db")
	}

	return &cfg, nil
}

// set persists a single key to the config file.
func set(key string, value any) error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return err
	}

	v, err := newViper()
	if err != nil {
		return err
	}
	v.Set(key, value)
	v.SetConfigPermissions(0o600)
	return v.WriteConfigAs(configPath())
}

// SetModel saves the model preference to the config file.
func SetModel(model string) error {
	return set("model", model)
}

// SetEndpoint saves the Ollama endpoint to the config file.
func SetEndpoint(endpoint string) error {
	return set("endpoint", strings.TrimRight(endpoint, "/"))
}
