// Package config implements the wallet's ambient configuration, in the
// same style as the teacher's bifrost/config package: a struct with
// mapstructure/json tags, a DefaultConfig constructor, and a viper-based
// loader.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds every tunable named by spec §6's constants plus the
// store/network wiring a wallet instance needs.
type Config struct {
	// GapLimit is the number of consecutive unused derivation indices
	// the scanner looks ahead before giving up.
	GapLimit uint32 `mapstructure:"gap_limit" json:"gap_limit"`

	// DerivationPath is the user-configurable root path; the primary
	// and change sub-trees hang off it at indices 0' and 1'.
	DerivationPath string `mapstructure:"derivation_path" json:"derivation_path"`

	// ScanChunkSize is the number of blocks fetched per historical
	// replay RPC call.
	ScanChunkSize uint64 `mapstructure:"scan_chunk_size" json:"scan_chunk_size"`

	// ScanMaxRetries is the number of retry attempts per chunk before
	// RpcRetryExhausted is surfaced.
	ScanMaxRetries int `mapstructure:"scan_max_retries" json:"scan_max_retries"`

	// KVStorePath is the filesystem path for the wallet's persistent
	// KV store; empty means in-memory.
	KVStorePath string `mapstructure:"kv_store_path" json:"kv_store_path"`
}

// DefaultGapLimit, DefaultScanChunkSize and DefaultScanMaxRetries mirror
// spec §6's stated defaults.
const (
	DefaultGapLimit       uint32 = 5
	DefaultScanChunkSize  uint64 = 500
	DefaultScanMaxRetries int    = 5
)

// DefaultDerivationPath mirrors spec §6.
const DefaultDerivationPath = "m/44'/1984'/0'/0'"

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() *Config {
	return &Config{
		GapLimit:       DefaultGapLimit,
		DerivationPath: DefaultDerivationPath,
		ScanChunkSize:  DefaultScanChunkSize,
		ScanMaxRetries: DefaultScanMaxRetries,
		KVStorePath:    "",
	}
}

// LoadConfig reads a JSON config file (or directory containing
// config.json) and overlays it on top of DefaultConfig, with
// environment variables taking precedence, matching the teacher's
// bifrost/config.GetConfig behavior.
func LoadConfig(configPath ...string) (*Config, error) {
	viper.Reset()
	viper.SetConfigType("json")

	if len(configPath) == 1 {
		path := configPath[0]
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("config: accessing path %s: %w", path, err)
		}
		if info.IsDir() {
			viper.SetConfigName("config")
			viper.AddConfigPath(path)
		} else {
			viper.SetConfigFile(path)
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()

	cfg := DefaultConfig()
	for k, v := range map[string]any{
		"gap_limit":        cfg.GapLimit,
		"derivation_path":  cfg.DerivationPath,
		"scan_chunk_size":  cfg.ScanChunkSize,
		"scan_max_retries": cfg.ScanMaxRetries,
		"kv_store_path":    cfg.KVStorePath,
	} {
		viper.SetDefault(k, v)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unable to decode into struct: %w", err)
	}

	return cfg, nil
}
