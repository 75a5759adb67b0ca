package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/larsson/sokmotor/pkg/api"
	"github.com/larsson/sokmotor/pkg/ranker"
)

// appConfig is the full set of configuration inputs: {host, port, db_path,
// per_host_delay, fetcher_pool_size, cache_capacity, cache_ttl_seconds,
// snippet_max_length, ranking_weights}, plus the registry and frontier
// sizing the teacher's equivalent StorageConfig/SearchConfig split covered.
type appConfig struct {
	Host             string         `mapstructure:"host"`
	DBPath           string         `mapstructure:"db_path"`
	RegistryPath     string         `mapstructure:"registry_path"`
	RankingWeights   ranker.Weights `mapstructure:"ranking_weights"`
	Port             int            `mapstructure:"port"`
	PerHostDelay     time.Duration  `mapstructure:"per_host_delay"`
	FetcherPoolSize  int            `mapstructure:"fetcher_pool_size"`
	FrontierCapacity int            `mapstructure:"frontier_capacity"`
	CacheCapacity    int            `mapstructure:"cache_capacity"`
	CacheTTLSeconds  int            `mapstructure:"cache_ttl_seconds"`
	SnippetMaxLength int            `mapstructure:"snippet_max_length"`
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultDBPath           = "runtime/sokmotor.db"
	defaultPerHostDelay     = 2 * time.Second
	defaultFetcherPoolSize  = 4
	defaultFrontierCapacity = 10000
	defaultCacheCapacity    = 1000
	defaultCacheTTLSeconds  = 300
	defaultSnippetMaxLength = 150
)

func (c *appConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = defaultHost
	}

	if c.Port == 0 {
		c.Port = defaultPort
	}

	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}

	if c.PerHostDelay == 0 {
		c.PerHostDelay = defaultPerHostDelay
	}

	if c.FetcherPoolSize == 0 {
		c.FetcherPoolSize = defaultFetcherPoolSize
	}

	if c.FrontierCapacity == 0 {
		c.FrontierCapacity = defaultFrontierCapacity
	}

	if c.CacheCapacity == 0 {
		c.CacheCapacity = defaultCacheCapacity
	}

	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = defaultCacheTTLSeconds
	}

	if c.SnippetMaxLength == 0 {
		c.SnippetMaxLength = defaultSnippetMaxLength
	}
}

// apiConfig derives the HTTP listen address api.Config needs from host+port,
// plus the CLI-supplied version string reported by /api/health.
func (c *appConfig) apiConfig(version string) api.Config {
	return api.Config{Listen: fmt.Sprintf("%s:%d", c.Host, c.Port), Version: version}
}

// loadConfig loads the application configuration from the specified file
// path and environment variables, rejecting unknown keys so a typo in the
// config file fails fast instead of silently doing nothing.
func loadConfig(flags *cmdFlags) (*appConfig, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())

	if flags.ConfigPath != "" {
		v.SetConfigFile(flags.ConfigPath)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg appConfig

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	slog.Debug("config loaded", slog.Any("config", cfg))

	return &cfg, nil
}
