package cacheitem

import (
	"fmt"
	"time"

	"github.com/adamryczkowski/cachemanager/internal/cacheerr"
)

// Config holds the recognized cache options from spec §6.5, YAML-loadable
// the way pkg/config.Config loads HyperCache's configuration.
type Config struct {
	ReservedFreeSpace                int64         `yaml:"reserved_free_space"`
	CostOfMinuteComputeRelToCostOf1GB float64       `yaml:"cost_of_minute_compute_rel_to_cost_of_1gb"`
	HalfLifeOfAccesses                time.Duration `yaml:"half_life_of_accesses"`
	MinUtilityToKeep                  float64       `yaml:"min_utility_to_keep"`
}

// DefaultConfig returns the defaults named in spec §6.5.
func DefaultConfig() Config {
	return Config{
		ReservedFreeSpace:                 0,
		CostOfMinuteComputeRelToCostOf1GB:  60,
		HalfLifeOfAccesses:                 30 * 24 * time.Hour,
		MinUtilityToKeep:                   0,
	}
}

// Validate rejects out-of-range configuration values (spec §7 ConfigError).
func (c Config) Validate() error {
	if c.ReservedFreeSpace < 0 {
		return cacheerr.New(cacheerr.KindConfigError, "Config.Validate",
			fmt.Errorf("reserved_free_space must be >= 0, got %d", c.ReservedFreeSpace))
	}
	if c.CostOfMinuteComputeRelToCostOf1GB <= 0 {
		return cacheerr.New(cacheerr.KindConfigError, "Config.Validate",
			fmt.Errorf("cost_of_minute_compute_rel_to_cost_of_1gb must be > 0, got %v", c.CostOfMinuteComputeRelToCostOf1GB))
	}
	if c.HalfLifeOfAccesses <= 0 {
		return cacheerr.New(cacheerr.KindConfigError, "Config.Validate",
			fmt.Errorf("half_life_of_accesses must be > 0, got %v", c.HalfLifeOfAccesses))
	}
	return nil
}
