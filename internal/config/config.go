package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files, environment variables and flags.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIKey                string        `mapstructure:"enhancely_api_key"`
	APIEndpoint           string        `mapstructure:"enhancely_api_endpoint"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	ConnectTimeoutSeconds int64         `mapstructure:"connect_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	ConnectTimeout        time.Duration `mapstructure:"-"`

	SourcesFile         string        `mapstructure:"sources_file"`
	PublishersFile      string        `mapstructure:"publishers_file"`
	SyncIntervalSeconds int64         `mapstructure:"sync_interval"`
	SyncInterval        time.Duration `mapstructure:"-"`
	VerifyPages         bool          `mapstructure:"verify_pages"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"api-key":         "enhancely_api_key",
	"api-endpoint":    "enhancely_api_endpoint",
	"log-level":       "log_level",
	"sources-file":    "sources_file",
	"publishers-file": "publishers_file",
	"storage-type":    "storage_type",
	"bbolt-path":      "bbolt_path",
	"verify-pages":    "verify_pages",
	"timeout":         "request_timeout_seconds",
}

// RegisterFlags declares the flags Load understands on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("api-key", "", "Enhancely API key (env ENHANCELY_API_KEY)")
	fs.String("api-endpoint", "", "Enhancely API base URL (env ENHANCELY_API_ENDPOINT)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("sources-file", "", "path to the sources registry (YAML or JSON)")
	fs.String("publishers-file", "", "path to the publishers registry (YAML or JSON)")
	fs.String("storage-type", "", "JSON-LD cache backend: bbolt or none")
	fs.String("bbolt-path", "", "path of the bbolt cache file")
	fs.Bool("verify-pages", false, "fetch live pages and check the markup is embedded")
	fs.Int64("timeout", 0, "total API request timeout in seconds")
}

// Load reads configuration from environment variables, config files and the optional flag set.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "enhancely-go")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("enhancely_api_key", "")
	v.SetDefault("enhancely_api_endpoint", "https://api.enhancely.ai")
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("connect_timeout_seconds", 5)
	v.SetDefault("sources_file", "./configs/sources.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("sync_interval", 3600) // seconds
	v.SetDefault("verify_pages", false)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/jsonld.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APIEndpoint = strings.TrimRight(strings.TrimSpace(cfg.APIEndpoint), "/")

	if cfg.RequestTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	if cfg.ConnectTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid connect_timeout_seconds (must be positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	cfg.ConnectTimeout = time.Duration(cfg.ConnectTimeoutSeconds) * time.Second

	if cfg.SyncIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid sync_interval (must be positive seconds)")
	}
	cfg.SyncInterval = time.Duration(cfg.SyncIntervalSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

// Redacted returns a copy safe to log: the API key is masked.
func (c Config) Redacted() Config {
	if c.APIKey == "" {
		return c
	}
	if len(c.APIKey) > 8 {
		c.APIKey = c.APIKey[:4] + "…" + c.APIKey[len(c.APIKey)-2:]
	} else {
		c.APIKey = "***"
	}
	return c
}
