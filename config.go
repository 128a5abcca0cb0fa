package gotensor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// ============================================================
// Configuration
// ============================================================

// Config holds engine settings. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// Mapping controls the index mapper.
	Mapping MappingConfig `json:"mapping" yaml:"mapping"`

	// Symmetry bounds symmetry group closure.
	Symmetry SymmetryConfig `json:"symmetry" yaml:"symmetry"`

	// Parallel configures ParallelSum.
	Parallel ParallelConfig `json:"parallel" yaml:"parallel"`

	// Log configures the default slog logger.
	Log LogConfig `json:"log" yaml:"log"`
}

type MappingConfig struct {
	// StrictSelfContraction rejects mappings that contract two free indices
	// into a dummy pair instead of rebuilding the affected nodes.
	StrictSelfContraction bool `json:"strict_self_contraction" yaml:"strict_self_contraction"`
}

type SymmetryConfig struct {
	MaxGroupOrder int `json:"max_group_order" yaml:"max_group_order"`
}

type ParallelConfig struct {
	Workers   int `json:"workers" yaml:"workers"`
	Threshold int `json:"threshold" yaml:"threshold"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

func DefaultConfig() Config {
	return Config{
		Mapping:  MappingConfig{StrictSelfContraction: false},
		Symmetry: SymmetryConfig{MaxGroupOrder: 5040}, // 7!
		Parallel: ParallelConfig{
			Workers:   runtime.GOMAXPROCS(0),
			Threshold: 64,
		},
		Log: LogConfig{Level: "warn", Format: "text"},
	}
}

// LoadConfig reads a YAML or JSON file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("gotensor: read config: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		cfg := DefaultConfig()
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("gotensor: parse config %s: %w", path, err)
		}
		return cfg, cfg.Validate()
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML over DefaultConfig. Missing keys keep their defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("gotensor: parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Symmetry.MaxGroupOrder < 1 {
		return fmt.Errorf("gotensor: symmetry.max_group_order must be positive, got %d", c.Symmetry.MaxGroupOrder)
	}
	if c.Parallel.Workers < 1 {
		return fmt.Errorf("gotensor: parallel.workers must be positive, got %d", c.Parallel.Workers)
	}
	if c.Parallel.Threshold < 0 {
		return fmt.Errorf("gotensor: parallel.threshold must not be negative, got %d", c.Parallel.Threshold)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("gotensor: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
