// ABOUTME: Configuration for telemetry setup including exporters, sampling and validation
// ABOUTME: Supports BLOCKSTORE_TELEMETRY_* environment overrides and sensible defaults

package telemetry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "BLOCKSTORE_TELEMETRY_"

// Config holds all configuration for telemetry providers and exporters.
type Config struct {
	// ServiceName identifies the service in telemetry data
	ServiceName string `json:"service_name" mapstructure:"service_name"`

	// ServiceVersion identifies the service version in telemetry data
	ServiceVersion string `json:"service_version" mapstructure:"service_version"`

	// Enabled controls whether telemetry is active
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Exporters specifies which exporters to use (prometheus, otlp, stdout)
	Exporters []string `json:"exporters" mapstructure:"exporters"`

	// SampleRate controls trace sampling (0.0 to 1.0)
	SampleRate float64 `json:"sample_rate" mapstructure:"sample_rate"`

	// PrometheusPort is the port a host serves /metrics on when the
	// prometheus exporter is configured
	PrometheusPort int `json:"prometheus_port" mapstructure:"prometheus_port"`

	// OTLPEndpoint is the host:port of the OTLP gRPC collector
	OTLPEndpoint string `json:"otlp_endpoint" mapstructure:"otlp_endpoint"`

	ExportTimeout      time.Duration `json:"export_timeout" mapstructure:"export_timeout"`
	BatchTimeout       time.Duration `json:"batch_timeout" mapstructure:"batch_timeout"`
	MaxQueueSize       int           `json:"max_queue_size" mapstructure:"max_queue_size"`
	MaxExportBatchSize int           `json:"max_export_batch_size" mapstructure:"max_export_batch_size"`
}

// DefaultConfig returns a configuration with sensible defaults. Telemetry
// is off until a host turns it on.
func DefaultConfig() Config {
	return Config{
		ServiceName:        "blockstore",
		ServiceVersion:     "development",
		Enabled:            false,
		Exporters:          []string{"stdout"},
		SampleRate:         1.0,
		PrometheusPort:     9090,
		OTLPEndpoint:       "localhost:4317",
		ExportTimeout:      30 * time.Second,
		BatchTimeout:       5 * time.Second,
		MaxQueueSize:       2048,
		MaxExportBatchSize: 512,
	}
}

// LoadFromEnv loads configuration from environment variables, overriding current values.
func (c *Config) LoadFromEnv() {
	if val := os.Getenv(envPrefix + "SERVICE_NAME"); val != "" {
		c.ServiceName = val
	}

	if val := os.Getenv(envPrefix + "SERVICE_VERSION"); val != "" {
		c.ServiceVersion = val
	}

	if val := os.Getenv(envPrefix + "ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Enabled = enabled
		}
	}

	if val := os.Getenv(envPrefix + "EXPORTERS"); val != "" {
		c.Exporters = strings.Split(val, ",")
		for i := range c.Exporters {
			c.Exporters[i] = strings.TrimSpace(c.Exporters[i])
		}
	}

	if val := os.Getenv(envPrefix + "SAMPLE_RATE"); val != "" {
		if rate, err := strconv.ParseFloat(val, 64); err == nil {
			c.SampleRate = rate
		}
	}

	if val := os.Getenv(envPrefix + "PROMETHEUS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.PrometheusPort = port
		}
	}

	if val := os.Getenv(envPrefix + "OTLP_ENDPOINT"); val != "" {
		c.OTLPEndpoint = val
	}

	if val := os.Getenv(envPrefix + "EXPORT_TIMEOUT"); val != "" {
		if timeout, err := time.ParseDuration(val); err == nil {
			c.ExportTimeout = timeout
		}
	}

	if val := os.Getenv(envPrefix + "BATCH_TIMEOUT"); val != "" {
		if timeout, err := time.ParseDuration(val); err == nil {
			c.BatchTimeout = timeout
		}
	}

	if val := os.Getenv(envPrefix + "MAX_QUEUE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			c.MaxQueueSize = size
		}
	}

	if val := os.Getenv(envPrefix + "MAX_EXPORT_BATCH_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			c.MaxExportBatchSize = size
		}
	}
}

// Validate checks the configuration for invalid values and returns an error if found.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name cannot be empty")
	}

	if c.ServiceVersion == "" {
		return fmt.Errorf("service_version cannot be empty")
	}

	if c.SampleRate < 0.0 || c.SampleRate > 1.0 {
		return fmt.Errorf("sample_rate must be between 0.0 and 1.0, got %f", c.SampleRate)
	}

	if c.PrometheusPort < 1 || c.PrometheusPort > 65535 {
		return fmt.Errorf("prometheus_port must be between 1 and 65535, got %d", c.PrometheusPort)
	}

	if c.ExportTimeout <= 0 {
		return fmt.Errorf("export_timeout must be positive, got %s", c.ExportTimeout)
	}

	if c.BatchTimeout <= 0 {
		return fmt.Errorf("batch_timeout must be positive, got %s", c.BatchTimeout)
	}

	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("max_queue_size must be positive, got %d", c.MaxQueueSize)
	}

	if c.MaxExportBatchSize <= 0 {
		return fmt.Errorf("max_export_batch_size must be positive, got %d", c.MaxExportBatchSize)
	}

	if c.MaxExportBatchSize > c.MaxQueueSize {
		return fmt.Errorf("max_export_batch_size (%d) cannot exceed max_queue_size (%d)", c.MaxExportBatchSize, c.MaxQueueSize)
	}

	if c.HasExporter("otlp") && c.OTLPEndpoint == "" {
		return fmt.Errorf("otlp_endpoint is required when the otlp exporter is configured")
	}

	validExporters := map[string]bool{
		"prometheus": true,
		"otlp":       true,
		"stdout":     true,
	}

	for _, exporter := range c.Exporters {
		if !validExporters[exporter] {
			return fmt.Errorf("invalid exporter: %s, valid options are: prometheus, otlp, stdout", exporter)
		}
	}

	return nil
}

// HasExporter returns true if the specified exporter is configured.
func (c *Config) HasExporter(name string) bool {
	for _, exporter := range c.Exporters {
		if exporter == name {
			return true
		}
	}
	return false
}
