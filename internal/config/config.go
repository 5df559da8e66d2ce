// Package config loads and validates the engine's runtime configuration:
// page/pool/disk sizing plus the front door's server settings.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tuannm99/novastore/internal/storage"
)

// EngineConfig is set once at startup and shapes every size-dependent
// decision the storage engine makes afterward.
type EngineConfig struct {
	Storage struct {
		PageSize           uint32 `mapstructure:"page_size"`
		PoolSize           uint32 `mapstructure:"pool_size"`
		DiskCapacity       uint32 `mapstructure:"disk_capacity"`
		OverflowThreshold  uint32 `mapstructure:"overflow_threshold"`
	} `mapstructure:"storage"`
	Server struct {
		Host  string `mapstructure:"host"`
		Port  int    `mapstructure:"port"`
		Debug bool   `mapstructure:"debug"`
	} `mapstructure:"server"`
}

// Default returns the engine's out-of-the-box configuration.
func Default() *EngineConfig {
	cfg := &EngineConfig{}
	cfg.Storage.PageSize = 128
	cfg.Storage.PoolSize = 8
	cfg.Storage.DiskCapacity = 64
	cfg.Storage.OverflowThreshold = 64
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 5433
	return cfg
}

// Load reads path (YAML) through viper, unmarshals it onto Default(), and
// validates the result.
func Load(path string) (*EngineConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.Validate()
	return cfg, nil
}

// Validate clamps every storage field to its legal range in place. It
// never fails — out-of-range input is silently corrected, matching how
// the rest of the engine treats configuration as advisory sizing rather
// than something worth rejecting outright.
func (c *EngineConfig) Validate() {
	s := &c.Storage

	if s.PageSize < 64 {
		s.PageSize = 64
	}
	if s.PageSize > 8192 {
		s.PageSize = 8192
	}
	s.PageSize = (s.PageSize + 7) &^ 7 // round up to a multiple of 8

	s.PoolSize = clamp(s.PoolSize, 4, 32)

	s.DiskCapacity = clamp(s.DiskCapacity, 16, 256)
	if s.DiskCapacity < s.PoolSize {
		s.DiskCapacity = s.PoolSize
	}

	maxOverflow := s.PageSize - storage.HeaderSize - storage.SlotSize
	if s.OverflowThreshold < 32 {
		s.OverflowThreshold = 32
	}
	if s.OverflowThreshold > maxOverflow {
		s.OverflowThreshold = maxOverflow
	}
}

// PageDataCapacity is the usable space inside a page once the header is
// subtracted.
func (c *EngineConfig) PageDataCapacity() int {
	return int(c.Storage.PageSize) - storage.HeaderSize
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
