package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adamryczkowski/cachemanager/internal/cacheitem"
)

// Config represents the main configuration structure
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	MetaStore MetaStoreConfig `yaml:"metastore"`
	ObjStore  ObjStoreConfig  `yaml:"objstore"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// NodeConfig contains node-specific configuration
type NodeConfig struct {
	ID      string `yaml:"id"`
	DataDir string `yaml:"data_dir"`
}

// MetaStoreConfig selects and configures the Metadata Store backend.
type MetaStoreConfig struct {
	Backend       string `yaml:"backend"` // "memory" or "file"
	Dir           string `yaml:"dir"`     // used when backend == "file"
	CacheCapacity int    `yaml:"cache_capacity"` // read-through LRU entries in front of "file"; 0 disables it
}

// ObjStoreConfig selects and configures the Object Store backend.
type ObjStoreConfig struct {
	Backend           string `yaml:"backend"` // currently only "local"
	Dir               string `yaml:"dir"`
	StorageKeyPrefix  string `yaml:"storage_key_prefix"`
	StorageKeyExt     string `yaml:"storage_key_extension"`
}

// CacheConfig mirrors cacheitem.Config with YAML-friendly duration
// strings, the way the teacher renders durations as "1h"/"30m" rather
// than raw nanosecond integers.
type CacheConfig struct {
	ReservedFreeSpace                 int64   `yaml:"reserved_free_space"`
	CostOfMinuteComputeRelToCostOf1GB float64 `yaml:"cost_of_minute_compute_rel_to_cost_of_1gb"`
	HalfLifeOfAccesses                string  `yaml:"half_life_of_accesses"`
	MinUtilityToKeep                  float64 `yaml:"min_utility_to_keep"`
}

// ToCacheItemConfig parses the YAML duration string and builds the
// internal cacheitem.Config the coordinator actually runs on.
func (c CacheConfig) ToCacheItemConfig() (cacheitem.Config, error) {
	halfLife, err := time.ParseDuration(c.HalfLifeOfAccesses)
	if err != nil {
		return cacheitem.Config{}, fmt.Errorf("cache.half_life_of_accesses: %w", err)
	}
	return cacheitem.Config{
		ReservedFreeSpace:                 c.ReservedFreeSpace,
		CostOfMinuteComputeRelToCostOf1GB: c.CostOfMinuteComputeRelToCostOf1GB,
		HalfLifeOfAccesses:                halfLife,
		MinUtilityToKeep:                  c.MinUtilityToKeep,
	}, nil
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level         string `yaml:"level"`          // debug, info, warn, error, fatal
	EnableConsole bool   `yaml:"enable_console"` // Enable console output
	EnableFile    bool   `yaml:"enable_file"`    // Enable file output
	LogFile       string `yaml:"log_file"`       // Log file path
	BufferSize    int    `yaml:"buffer_size"`    // Async log buffer size
	LogDir        string `yaml:"log_dir"`        // Log directory
	MaxFileSize   string `yaml:"max_file_size"`  // Passed to the logger but not acted on: log files are never rotated
	MaxFiles      int    `yaml:"max_files"`      // Passed to the logger but not acted on: old log files are never removed
}

// MetricsConfig controls whether Prometheus metrics are collected and
// under what namespace.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Load reads and parses the configuration file, falling back to defaults
// if it doesn't exist.
func Load(path string) (*Config, error) {
	config := &Config{
		Node: NodeConfig{
			ID:      "cachemanager-node-1",
			DataDir: "/tmp/cachemanager",
		},
		MetaStore: MetaStoreConfig{
			Backend:       "file",
			Dir:           "/tmp/cachemanager/meta",
			CacheCapacity: 1024,
		},
		ObjStore: ObjStoreConfig{
			Backend:          "local",
			Dir:              "/tmp/cachemanager/objects",
			StorageKeyPrefix: "objects/",
			StorageKeyExt:    ".bin",
		},
		Cache: CacheConfig{
			ReservedFreeSpace:                 0,
			CostOfMinuteComputeRelToCostOf1GB: 60,
			HalfLifeOfAccesses:                "720h", // 30 days
			MinUtilityToKeep:                  0,
		},
		Logging: LoggingConfig{
			Level:         "info",
			EnableConsole: true,
			EnableFile:    true,
			LogFile:       "", // Will be set based on node ID
			BufferSize:    1000,
			LogDir:        "logs",
			MaxFileSize:   "100MB",
			MaxFiles:      10,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "cachemanager",
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("configuration file %s not found, using defaults\n", path)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Node.ID == "" {
		return fmt.Errorf("node.id cannot be empty")
	}
	if !isValidMetaStoreBackend(c.MetaStore.Backend) {
		return fmt.Errorf("invalid metastore.backend: %s", c.MetaStore.Backend)
	}
	if c.MetaStore.Backend == "file" && c.MetaStore.Dir == "" {
		return fmt.Errorf("metastore.dir is required when metastore.backend is \"file\"")
	}
	if !isValidObjStoreBackend(c.ObjStore.Backend) {
		return fmt.Errorf("invalid objstore.backend: %s", c.ObjStore.Backend)
	}
	if c.ObjStore.Dir == "" {
		return fmt.Errorf("objstore.dir cannot be empty")
	}
	if _, err := c.Cache.ToCacheItemConfig(); err != nil {
		return err
	}
	cfg, _ := c.Cache.ToCacheItemConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	return nil
}

func isValidMetaStoreBackend(backend string) bool {
	switch backend {
	case "memory", "file":
		return true
	default:
		return false
	}
}

func isValidObjStoreBackend(backend string) bool {
	switch backend {
	case "local":
		return true
	default:
		return false
	}
}
