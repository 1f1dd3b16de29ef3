package adapter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	appName = "crate"

	DefaultServerURL      = "http://localhost:8080/api"
	DefaultTimeout        = 10 * time.Second
	DefaultRetries        = 2
	DefaultMaxUploadBytes = 10 << 20
)

// envKeyReplacer maps nested keys to env names: server.url -> CRATE_SERVER_URL
var envKeyReplacer = strings.NewReplacer(".", "_")

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
	Viewer  ViewerConfig  `mapstructure:"viewer"`
}

// ServerConfig holds catalog API configuration
type ServerConfig struct {
	URL     string        `mapstructure:"url"`     // API base URL, e.g. http://localhost:8080/api
	Token   string        `mapstructure:"token"`   // Bearer token, optional
	Timeout time.Duration `mapstructure:"timeout"` // Per-request timeout
	Retries int           `mapstructure:"retries"` // Retries for idempotent reads on 5xx
}

// UploadConfig bounds image uploads
type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// CacheConfig holds local scratch storage configuration
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // Empty keeps preview blobs in memory only
}

// ViewerConfig selects the program used to open image URLs
type ViewerConfig struct {
	Command string   `mapstructure:"command"` // Empty uses the system default handler
	Args    []string `mapstructure:"args"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     DefaultServerURL,
			Timeout: DefaultTimeout,
			Retries: DefaultRetries,
		},
		Upload: UploadConfig{
			MaxBytes: DefaultMaxUploadBytes,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName, appName+".log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, appName+".log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), appName, "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, "cache")
	}
}

// LoadConfig loads configuration from .env, the config file and the environment.
// configFile overrides the default search path when non-empty.
func LoadConfig(configFile string) (*Config, error) {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	cfg := DefaultConfig()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(defaultConfigPath())
		viper.AddConfigPath(".")
	}

	// Environment variable overrides: CRATE_SERVER_URL, CRATE_SERVER_TOKEN, ...
	viper.SetEnvPrefix("CRATE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
	bindDefaults(cfg)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configFile != "" && errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = DefaultTimeout
	}
	if cfg.Server.Retries < 0 {
		cfg.Server.Retries = 0
	}
	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = DefaultMaxUploadBytes
	}

	return cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can override it during Unmarshal
func bindDefaults(cfg *Config) {
	viper.SetDefault("server.url", cfg.Server.URL)
	viper.SetDefault("server.token", cfg.Server.Token)
	viper.SetDefault("server.timeout", cfg.Server.Timeout)
	viper.SetDefault("server.retries", cfg.Server.Retries)
	viper.SetDefault("upload.max_bytes", cfg.Upload.MaxBytes)
	viper.SetDefault("cache.dir", cfg.Cache.Dir)
	viper.SetDefault("logging.file", cfg.Logging.File)
	viper.SetDefault("logging.level", cfg.Logging.Level)
	viper.SetDefault("viewer.command", cfg.Viewer.Command)
	viper.SetDefault("viewer.args", cfg.Viewer.Args)
}

// SaveToken updates just the token in the configuration file
func SaveToken(token string) error {
	viper.Set("server.token", token)
	return writeConfig()
}

// ClearToken removes the stored token, keeping every other setting
func ClearToken() error {
	viper.Set("server.token", "")
	return writeConfig()
}

func writeConfig() error {
	if used := viper.ConfigFileUsed(); used != "" {
		if err := viper.WriteConfigAs(used); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		return nil
	}

	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsAuthenticated returns true if a bearer token is configured
func (c *Config) IsAuthenticated() bool {
	return c.Server.Token != ""
}
