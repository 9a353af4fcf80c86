package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/pymetrics/internal/cache"
	"github.com/panbanda/pymetrics/internal/output"
	"github.com/panbanda/pymetrics/pkg/analyzer"
	"github.com/panbanda/pymetrics/pkg/config"
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// loadConfig reads --config when given, otherwise the first config file in
// the standard locations. Global flags are applied on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault(appLogger(c))
	}

	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if format := c.String("format"); format != "" {
		if !slices.Contains(formatNames, strings.ToLower(format)) {
			return nil, fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(config.Formats, ", "))
		}
		cfg.Output.Format = string(output.ParseFormat(format))
	}
	return cfg, nil
}

// formatNames are the accepted --format values, aliases included.
var formatNames = []string{"text", "json", "markdown", "md", "toon", "yaml", "yml"}

// newFormatter writes to --output when set, otherwise to the app's writer.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := output.ParseFormat(cfg.Output.Format)
	if path := c.String("output"); path != "" {
		return output.NewFormatter(format, path, false)
	}
	colored := cfg.Output.Color && !color.NoColor
	return output.NewWriterFormatter(format, c.App.Writer, colored), nil
}

// openCache returns nil when caching is disabled.
func openCache(cfg *config.Config) (*cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return cache.New(cfg.Cache.Dir, cfg.CacheTTL())
}

// analyzerOptions maps the config onto analyzer options.
func analyzerOptions(c *cli.Context, cfg *config.Config) []analyzer.Option {
	opts := []analyzer.Option{
		analyzer.WithMetricsOptions(cfg.MetricsOptions()),
		analyzer.WithMaxFileSize(cfg.Analysis.MaxFileSize),
		analyzer.WithWorkers(cfg.Analysis.Workers),
		analyzer.WithLogger(appLogger(c)),
	}

	ch, err := openCache(cfg)
	if err != nil {
		appLogger(c).Warn("cache disabled", "dir", cfg.Cache.Dir, "error", err)
		return opts
	}
	if ch != nil {
		opts = append(opts, analyzer.WithCache(ch))
	}
	return opts
}

// relativePaths shortens paths under the working directory for display.
func relativePaths(paths []string) []string {
	wd, err := os.Getwd()
	if err != nil {
		return paths
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p
		if rel, err := filepath.Rel(wd, p); err == nil && !strings.HasPrefix(rel, "..") {
			out[i] = rel
		}
	}
	return out
}
