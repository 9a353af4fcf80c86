// Package config loads pymetrics settings from TOML, YAML or JSON files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml"

	"github.com/panbanda/pymetrics/pkg/metrics"
)

// Config holds all configuration options for pymetrics.
type Config struct {
	Analysis   AnalysisConfig  `koanf:"analysis" toml:"analysis"`
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds"`
	Exclude    ExcludeConfig   `koanf:"exclude" toml:"exclude"`
	Cache      CacheConfig     `koanf:"cache" toml:"cache"`
	Output     OutputConfig    `koanf:"output" toml:"output"`
}

// AnalysisConfig shapes how metrics are computed.
type AnalysisConfig struct {
	// CommentTerm enables the comment bonus in the maintainability index.
	CommentTerm bool `koanf:"comment_term" toml:"comment_term"`
	// LocalPackages are top-level modules counted as local imports.
	LocalPackages []string `koanf:"local_packages" toml:"local_packages"`
	MaxFileSize   int64    `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = no limit
	Workers       int      `koanf:"workers" toml:"workers"`             // 0 = 2x NumCPU
}

// ThresholdConfig defines warning levels for text output.
type ThresholdConfig struct {
	CyclomaticComplexity int     `koanf:"cyclomatic_complexity" toml:"cyclomatic_complexity"`
	CognitiveComplexity  int     `koanf:"cognitive_complexity" toml:"cognitive_complexity"`
	NestingDepth         int     `koanf:"nesting_depth" toml:"nesting_depth"`
	MaintainabilityIndex float64 `koanf:"maintainability_index" toml:"maintainability_index"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours, 0 = never expires
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml
	Color  bool   `koanf:"color" toml:"color"`
}

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "markdown", "toon", "yaml"}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	th := metrics.DefaultThresholds()
	return &Config{
		Analysis: AnalysisConfig{
			CommentTerm:   true,
			LocalPackages: []string{},
			MaxFileSize:   1 << 20,
		},
		Thresholds: ThresholdConfig{
			CyclomaticComplexity: th.Cyclomatic,
			CognitiveComplexity:  th.Cognitive,
			NestingDepth:         th.Nesting,
			MaintainabilityIndex: th.Maintainability,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{},
			Dirs: []string{
				".git",
				".venv",
				"venv",
				".tox",
				".mypy_cache",
				".pymetrics",
				"__pycache__",
				"build",
				"dist",
				"node_modules",
				"site-packages",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".pymetrics/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SearchPaths lists the files LoadOrDefault tries, in order.
func SearchPaths() []string {
	names := []string{
		"pymetrics.toml",
		"pymetrics.yaml",
		"pymetrics.yml",
		"pymetrics.json",
		".pymetrics.toml",
		".pymetrics.yaml",
		".pymetrics.yml",
		".pymetrics.json",
	}
	var paths []string
	for _, dir := range []string{".", ".pymetrics"} {
		for _, name := range names {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

// LoadOrDefault loads the first config found in the standard locations, or
// returns defaults. Broken files are logged and skipped.
func LoadOrDefault(logger *slog.Logger) *Config {
	cfg, _ := Discover(logger)
	return cfg
}

// Discover is LoadOrDefault that also reports which file was used. The path
// is empty when no usable file was found.
func Discover(logger *slog.Logger) (*Config, string) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		if err != nil {
			logger.Warn("ignoring config file", slog.String("path", path), slog.Any("error", err))
			continue
		}
		logger.Debug("loaded config", slog.String("path", path))
		return cfg, path
	}
	return DefaultConfig(), ""
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if !c.validFormat() {
		errs = append(errs, fmt.Errorf("output.format %q is not one of %s", c.Output.Format, strings.Join(Formats, ", ")))
	}
	if c.Analysis.MaxFileSize < 0 {
		errs = append(errs, errors.New("analysis.max_file_size must not be negative"))
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, errors.New("analysis.workers must not be negative"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required when the cache is enabled"))
	}
	return errors.Join(errs...)
}

func (c *Config) validFormat() bool {
	for _, f := range Formats {
		if c.Output.Format == f {
			return true
		}
	}
	return false
}

// MetricsOptions converts the analysis section for the aggregators.
func (c *Config) MetricsOptions() metrics.Options {
	return metrics.Options{
		CommentTerm:   c.Analysis.CommentTerm,
		LocalPackages: append([]string(nil), c.Analysis.LocalPackages...),
	}
}

// MetricThresholds converts the thresholds section.
func (c *Config) MetricThresholds() metrics.Thresholds {
	return metrics.Thresholds{
		Cyclomatic:      c.Thresholds.CyclomaticComplexity,
		Cognitive:       c.Thresholds.CognitiveComplexity,
		Nesting:         c.Thresholds.NestingDepth,
		Maintainability: c.Thresholds.MaintainabilityIndex,
	}
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Hour
}

// TOML renders the config as a TOML document.
func (c *Config) TOML() ([]byte, error) {
	data, err := gotoml.Marshal(*c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	sep := string(filepath.Separator)
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, sep+dir+sep) || strings.HasPrefix(path, dir+sep) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.ToSlash(path)); matched {
			return true
		}
	}
	return false
}
