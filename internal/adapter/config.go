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
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Corrupt catalog policies
const (
	OnCorruptSeed = "seed"
	OnCorruptFail = "fail"
)

// Config holds all application configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Undo    UndoConfig    `mapstructure:"undo"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StorageConfig selects where the catalog lives
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`    // "bolt" or "file"
	Dir       string `mapstructure:"dir"`        // Empty keeps everything in memory (bolt only)
	Format    string `mapstructure:"format"`     // "json" or "yaml"
	OnCorrupt string `mapstructure:"on_corrupt"` // "seed" or "fail"
}

// CacheConfig holds artwork cache configuration
type CacheConfig struct {
	Dir                 string        `mapstructure:"dir"`
	MemoryTTL           time.Duration `mapstructure:"memory_ttl"` // 0 = never expire
	CleanupInterval     time.Duration `mapstructure:"cleanup_interval"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	PrefetchConcurrency int           `mapstructure:"prefetch_concurrency"`
}

// UndoConfig holds undo history configuration
type UndoConfig struct {
	Limit   int  `mapstructure:"limit"`   // 0 = unbounded
	Persist bool `mapstructure:"persist"` // Keep selection and history between runs
}

// FetchConfig holds remote artwork fetch configuration
type FetchConfig struct {
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:   "bolt",
			Dir:       defaultDataPath(),
			Format:    "json",
			OnCorrupt: OnCorruptSeed,
		},
		Cache: CacheConfig{
			Dir:                 filepath.Join(defaultDataPath(), "covers"),
			MemoryTTL:           0,
			CleanupInterval:     10 * time.Minute,
			FetchTimeout:        30 * time.Second,
			PrefetchConcurrency: 4,
		},
		Undo: UndoConfig{
			Limit:   100,
			Persist: true,
		},
		Fetch: FetchConfig{
			UserAgent: "crate/1.0",
			Timeout:   20 * time.Second,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "crate.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "crate")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "crate")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "crate")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "crate")
	}
}

// LoadConfig loads configuration from file, .env and environment.
// An explicit path must exist; otherwise config.yaml is looked up in the
// default config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides: CRATE_STORAGE_BACKEND, CRATE_CACHE_DIR, ...
	v.SetEnvPrefix("CRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so env overrides apply to keys absent
// from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.dir", cfg.Storage.Dir)
	v.SetDefault("storage.format", cfg.Storage.Format)
	v.SetDefault("storage.on_corrupt", cfg.Storage.OnCorrupt)

	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.memory_ttl", cfg.Cache.MemoryTTL)
	v.SetDefault("cache.cleanup_interval", cfg.Cache.CleanupInterval)
	v.SetDefault("cache.fetch_timeout", cfg.Cache.FetchTimeout)
	v.SetDefault("cache.prefetch_concurrency", cfg.Cache.PrefetchConcurrency)

	v.SetDefault("undo.limit", cfg.Undo.Limit)
	v.SetDefault("undo.persist", cfg.Undo.Persist)

	v.SetDefault("fetch.user_agent", cfg.Fetch.UserAgent)
	v.SetDefault("fetch.timeout", cfg.Fetch.Timeout)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Storage.Dir, &c.Cache.Dir, &c.Logging.File} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("invalid path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "bolt", "file":
	default:
		return fmt.Errorf("storage.backend must be bolt or file, got %q", c.Storage.Backend)
	}
	switch c.Storage.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("storage.format must be json or yaml, got %q", c.Storage.Format)
	}
	switch c.Storage.OnCorrupt {
	case OnCorruptSeed, OnCorruptFail:
	default:
		return fmt.Errorf("storage.on_corrupt must be seed or fail, got %q", c.Storage.OnCorrupt)
	}
	if c.Storage.Backend == "file" && c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required for the file backend")
	}
	if c.Undo.Limit < 0 {
		return fmt.Errorf("undo.limit must not be negative")
	}
	if c.Cache.PrefetchConcurrency < 1 {
		return fmt.Errorf("cache.prefetch_concurrency must be at least 1")
	}
	return nil
}
