package cfg

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

// FolderConfiguration describes a folder registered at startup
type FolderConfiguration struct {
	ID          string `toml:"id"`
	Owner       string `toml:"owner"`
	ModifyIndex uint64 `toml:"modify_index"` // Starting modseq; first append stamps ModifyIndex+1
}

// JournalConfiguration controls the folder registry
type JournalConfiguration struct {
	Folders []FolderConfiguration `toml:"folders"`
}

// NotifyConfiguration controls the subscription router
type NotifyConfiguration struct {
	KeyCacheSize int `toml:"key_cache_size"` // Derived channel keys kept in the LRU
}

// AdminConfiguration for the read-only HTTP surface
type AdminConfiguration struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled                bool `toml:"enabled"`
	CollectIntervalSeconds int  `toml:"collect_interval_seconds"` // Folder stats sampling interval
}

// Configuration is the main configuration structure
type Configuration struct {
	InstanceName string `toml:"instance_name"`

	Journal    JournalConfiguration    `toml:"journal"`
	Notify     NotifyConfiguration     `toml:"notify"`
	Admin      AdminConfiguration      `toml:"admin"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "config.toml", "Path to configuration file")
	AdminPortFlag  = flag.Int("port", 0, "Admin HTTP port (overrides config)")
	VerboseFlag    = flag.Bool("verbose", false, "Enable debug logging (overrides config)")
)

// DefaultKeyCacheSize bounds the channel key LRU when config leaves it unset
const DefaultKeyCacheSize = 1024

// Default configuration
var Config = Default()

// Default returns a fresh configuration populated with defaults
func Default() *Configuration {
	return &Configuration{
		InstanceName: "modjournal",

		Journal: JournalConfiguration{
			Folders: []FolderConfiguration{},
		},

		Notify: NotifyConfiguration{
			KeyCacheSize: DefaultKeyCacheSize,
		},

		Admin: AdminConfiguration{
			Enabled:     true,
			BindAddress: "127.0.0.1",
			Port:        8090,
		},

		Logging: LoggingConfiguration{
			Verbose: false,
			Format:  "console",
		},

		Prometheus: PrometheusConfiguration{
			Enabled:                true,
			CollectIntervalSeconds: 15,
		},
	}
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	// Load from file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	// Apply CLI overrides
	if *AdminPortFlag != 0 {
		Config.Admin.Port = *AdminPortFlag
	}
	if *VerboseFlag {
		Config.Logging.Verbose = true
	}

	if Config.Notify.KeyCacheSize == 0 {
		Config.Notify.KeyCacheSize = DefaultKeyCacheSize
	}

	return nil
}

// Validate checks configuration for errors
func Validate() error {
	return Config.Validate()
}

// Validate checks a configuration value for errors
func (c *Configuration) Validate() error {
	seen := make(map[string]struct{}, len(c.Journal.Folders))
	for i, f := range c.Journal.Folders {
		if f.ID == "" {
			return fmt.Errorf("journal folder #%d has an empty id", i)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("duplicate journal folder id: %s", f.ID)
		}
		seen[f.ID] = struct{}{}
	}

	if c.Notify.KeyCacheSize < 1 {
		return fmt.Errorf("notify key cache size must be >= 1")
	}

	if c.Admin.Enabled && (c.Admin.Port < 1 || c.Admin.Port > 65535) {
		return fmt.Errorf("invalid admin port: %d", c.Admin.Port)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	if c.Prometheus.Enabled && c.Prometheus.CollectIntervalSeconds < 1 {
		return fmt.Errorf("prometheus collect interval must be >= 1 second")
	}

	return nil
}
