package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/KevoDB/blockstore/pkg/common/log"
	"github.com/KevoDB/blockstore/pkg/telemetry"
)

const (
	CurrentConfigVersion = 1
	DefaultBlockSize     = 4096

	// EnvPrefix prefixes every environment override, e.g. BLOCKSTORE_BLOCK_SIZE.
	EnvPrefix = "BLOCKSTORE"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config describes how a block store is built and instrumented.
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	// BlockSize is the fixed size in bytes of every arena block.
	BlockSize int `json:"block_size" mapstructure:"block_size"`

	// InitialBlocks preallocates arena capacity for this many blocks.
	InitialBlocks int `json:"initial_blocks" mapstructure:"initial_blocks"`

	// ReclaimOnOverwrite frees a key's previous blocks when it is
	// inserted again. Off by default: overwritten blocks are orphaned.
	ReclaimOnOverwrite bool `json:"reclaim_on_overwrite" mapstructure:"reclaim_on_overwrite"`

	// VerifyChecksums makes Get check the value checksum recorded at insert.
	VerifyChecksums bool `json:"verify_checksums" mapstructure:"verify_checksums"`

	LogLevel string `json:"log_level" mapstructure:"log_level"`

	Telemetry telemetry.Config `json:"telemetry" mapstructure:"telemetry"`

	mu sync.RWMutex
}

// NewDefaultConfig creates a Config with recommended default values
func NewDefaultConfig() *Config {
	return &Config{
		Version:            CurrentConfigVersion,
		BlockSize:          DefaultBlockSize,
		InitialBlocks:      0,
		ReclaimOnOverwrite: false,
		VerifyChecksums:    false,
		LogLevel:           "info",
		Telemetry:          telemetry.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Version <= 0 {
		return fmt.Errorf("%w: invalid version %d", ErrInvalidConfig, c.Version)
	}

	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: block size must be positive, got %d", ErrInvalidConfig, c.BlockSize)
	}

	if c.InitialBlocks < 0 {
		return fmt.Errorf("%w: initial blocks cannot be negative, got %d", ErrInvalidConfig, c.InitialBlocks)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Telemetry.Enabled {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("%w: telemetry: %v", ErrInvalidConfig, err)
		}
	}

	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() log.Level {
	c.mu.RLock()
	defer c.mu.RUnlock()

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return level
}

// Load builds a Config from defaults, the optional file at path (JSON,
// YAML or TOML by extension) and BLOCKSTORE_* environment variables, in
// increasing order of precedence. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := NewDefaultConfig()

	v.SetDefault("version", def.Version)
	v.SetDefault("block_size", def.BlockSize)
	v.SetDefault("initial_blocks", def.InitialBlocks)
	v.SetDefault("reclaim_on_overwrite", def.ReclaimOnOverwrite)
	v.SetDefault("verify_checksums", def.VerifyChecksums)
	v.SetDefault("log_level", def.LogLevel)

	tel := def.Telemetry
	v.SetDefault("telemetry.service_name", tel.ServiceName)
	v.SetDefault("telemetry.service_version", tel.ServiceVersion)
	v.SetDefault("telemetry.enabled", tel.Enabled)
	v.SetDefault("telemetry.exporters", tel.Exporters)
	v.SetDefault("telemetry.sample_rate", tel.SampleRate)
	v.SetDefault("telemetry.prometheus_port", tel.PrometheusPort)
	v.SetDefault("telemetry.otlp_endpoint", tel.OTLPEndpoint)
	v.SetDefault("telemetry.export_timeout", tel.ExportTimeout)
	v.SetDefault("telemetry.batch_timeout", tel.BatchTimeout)
	v.SetDefault("telemetry.max_queue_size", tel.MaxQueueSize)
	v.SetDefault("telemetry.max_export_batch_size", tel.MaxExportBatchSize)
}

// Save writes the configuration as indented JSON, replacing path atomically.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	c.mu.RLock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename config: %w", err)
	}

	return nil
}

// Update applies the given function to modify the configuration
func (c *Config) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}
