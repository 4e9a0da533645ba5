// ABOUTME: LiveVoice client configuration
// ABOUTME: YAML file loading, defaults and validation
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration
type Config struct {
	Server           string        `yaml:"server"`
	Name             string        `yaml:"name"`
	InputRate        int           `yaml:"input_rate"`
	OutputRate       int           `yaml:"output_rate"`
	FrameSize        int           `yaml:"frame_size"`
	AnalysisSize     int           `yaml:"analysis_size"`
	FPS              int           `yaml:"fps"`
	LogFile          string        `yaml:"log_file"`
	NoTUI            bool          `yaml:"no_tui"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	DiscoveryTimeout time.Duration `yaml:"discovery_timeout"`
}

// Default returns the built-in configuration
func Default() Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "livevoice"
	}
	return Config{
		Name:             hostname,
		InputRate:        16000,
		OutputRate:       24000,
		FrameSize:        256,
		AnalysisSize:     2048,
		FPS:              60,
		LogFile:          "livevoice.log",
		DiscoveryTimeout: 3 * time.Second,
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.InputRate < 8000 || c.InputRate > 192000 {
		return fmt.Errorf("input_rate must be between 8000 and 192000 Hz, got %d", c.InputRate)
	}
	if c.OutputRate < 8000 || c.OutputRate > 192000 {
		return fmt.Errorf("output_rate must be between 8000 and 192000 Hz, got %d", c.OutputRate)
	}
	if c.FrameSize < 64 || c.FrameSize > 16384 {
		return fmt.Errorf("frame_size must be between 64 and 16384 samples, got %d", c.FrameSize)
	}
	if c.AnalysisSize < 32 || c.AnalysisSize&(c.AnalysisSize-1) != 0 {
		return fmt.Errorf("analysis_size must be a power of two of at least 32, got %d", c.AnalysisSize)
	}
	if c.FPS < 1 || c.FPS > 240 {
		return fmt.Errorf("fps must be between 1 and 240, got %d", c.FPS)
	}
	if c.DiscoveryTimeout < 0 {
		return fmt.Errorf("discovery_timeout cannot be negative, got %v", c.DiscoveryTimeout)
	}
	return nil
}
