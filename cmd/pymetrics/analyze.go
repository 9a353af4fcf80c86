package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/pymetrics/internal/progress"
	"github.com/panbanda/pymetrics/internal/scanner"
	"github.com/panbanda/pymetrics/internal/vcs"
	"github.com/panbanda/pymetrics/pkg/analyzer"
	"github.com/panbanda/pymetrics/pkg/config"
	"github.com/panbanda/pymetrics/pkg/source"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Compute metrics for Python files and directories",
		ArgsUsage: "[path...]",
		Description: `Scans the given paths for .py, .pyi and .pyw files (respecting .gitignore
and the exclude section of the config) and reports complexity, Halstead,
maintainability, size and structure metrics for each file.

Examples:
  pymetrics analyze src/
  pymetrics -f json analyze app.py lib/
  pymetrics -f json analyze --flat . > rows.json
  pymetrics analyze --ref v1.2.0 src/
  pymetrics analyze --changed`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "flat",
				Usage: "Emit one flat row of scalar metrics per file",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of files analyzed concurrently (0 = 2x CPUs)",
			},
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Analyze files as of a git revision (branch, tag, commit)",
			},
			&cli.BoolFlag{
				Name:  "changed",
				Usage: "Only analyze files with uncommitted changes",
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	logger := appLogger(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("workers") {
		cfg.Analysis.Workers = c.Int("workers")
	}

	spinner := progress.NewSpinnerTo(c.App.ErrWriter, "Scanning...")
	files, src, err := collectFiles(c, cfg)
	spinner.FinishSuccess()
	if err != nil {
		return err
	}
	if src == nil {
		var skipped int
		files, skipped = scanner.FilterBySize(files, cfg.Analysis.MaxFileSize)
		if skipped > 0 {
			warnf(c, "Skipped %d file(s) larger than %d bytes", skipped, cfg.Analysis.MaxFileSize)
		}
	}
	if len(files) == 0 {
		warnf(c, "No Python files found")
		return nil
	}
	logger.Debug("scanned", "files", len(files))

	tracker := progress.NewTrackerTo(c.App.ErrWriter, "Analyzing...", len(files))
	opts := append(analyzerOptions(c, cfg), analyzer.WithProgress(tracker.TickFile))
	if src != nil {
		opts = append(opts, analyzer.WithSource(src))
	}
	batch, err := analyzer.New(opts...).AnalyzeFiles(c.Context, files)
	if err != nil {
		tracker.FinishError(err)
		return fmt.Errorf("analysis failed: %w", err)
	}
	if batch.AllCached() {
		tracker.FinishSkipped("cached")
	} else {
		tracker.FinishSuccess()
	}

	for _, e := range batch.Errors {
		logger.Warn("skipped file", "path", e.Path, "error", e.Err)
	}

	return writeBatch(c, cfg, batch)
}

// collectFiles picks the files to analyze. With --ref they come from the
// revision's tree and are read through the returned source; otherwise they
// are read from disk.
func collectFiles(c *cli.Context, cfg *config.Config) ([]string, source.ContentSource, error) {
	rev := c.String("ref")
	if rev != "" && c.Bool("changed") {
		return nil, nil, errors.New("--ref and --changed cannot be combined")
	}

	paths := getPaths(c)
	if rev == "" && !c.Bool("changed") {
		files, err := scanner.NewScanner(cfg).ScanPaths(paths)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan: %w", err)
		}
		return relativePaths(files), nil, nil
	}

	repo, err := vcs.Open(paths[0])
	if err != nil {
		return nil, nil, err
	}
	prefixes := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := repo.Rel(p)
		if err != nil {
			return nil, nil, err
		}
		prefixes = append(prefixes, rel)
	}
	wanted := func(rel string) bool {
		return scanner.IsPython(rel) && underAny(rel, prefixes) && !cfg.ShouldExclude(filepath.FromSlash(rel))
	}

	if rev != "" {
		tree, hash, err := repo.Tree(rev)
		if err != nil {
			return nil, nil, err
		}
		appLogger(c).Debug("resolved revision", "ref", rev, "commit", hash.String())
		src := source.NewTree(tree)
		files, err := src.Files(wanted)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list %s: %w", rev, err)
		}
		return files, src, nil
	}

	changed, err := repo.Changed()
	if err != nil {
		return nil, nil, err
	}
	var files []string
	for _, rel := range changed {
		if wanted(rel) {
			files = append(files, filepath.Join(repo.Root(), filepath.FromSlash(rel)))
		}
	}
	return relativePaths(files), nil, nil
}

// underAny reports whether the slash path rel equals or sits below one of
// prefixes. "." matches everything.
func underAny(rel string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "." || rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}
