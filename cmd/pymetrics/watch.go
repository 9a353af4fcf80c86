package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/pymetrics/internal/output"
	"github.com/panbanda/pymetrics/internal/scanner"
	"github.com/panbanda/pymetrics/pkg/analyzer"
	"github.com/panbanda/pymetrics/pkg/config"
	"github.com/panbanda/pymetrics/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Aliases:   []string{"w"},
		Usage:     "Re-analyze Python files whenever they change",
		ArgsUsage: "[path]",
		Description: `Analyzes every Python file under path once, then watches the tree and
reports metrics for each batch of files that are written or created.

Examples:
  pymetrics watch src/
  pymetrics -f json watch --flat --debounce 1s .`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "flat",
				Usage: "Emit one flat row of scalar metrics per file",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "Quiet period before a changed file is analyzed",
				Value: watch.DefaultDebounce,
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	logger := appLogger(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	root := "."
	if c.Args().Present() {
		root = c.Args().First()
	}

	a := analyzer.New(analyzerOptions(c, cfg)...)
	emit := func(files []string) error {
		batch, err := a.AnalyzeFiles(c.Context, relativePaths(files))
		if err != nil {
			return err
		}
		for _, e := range batch.Errors {
			logger.Warn("skipped file", "path", e.Path, "error", e.Err)
		}
		return writeBatch(c, cfg, batch)
	}

	files, err := scanner.NewScanner(cfg).ScanPaths([]string{root})
	if err != nil {
		return fmt.Errorf("failed to scan: %w", err)
	}
	if len(files) > 0 {
		if err := emit(files); err != nil {
			return err
		}
	}

	w, err := watch.NewWatcher(root, cfg, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()
	w.SetOutput(c.App.ErrWriter)
	w.SetCallback(func(paths []string) {
		logger.Debug("files changed", "files", len(paths))
		if err := emit(paths); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("analysis failed", "error", err)
		}
	})

	if err := w.Start(c.Context); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// writeBatch renders batch with the configured format and destination.
func writeBatch(c *cli.Context, cfg *config.Config, batch *analyzer.Batch) error {
	view, err := output.NewBatchView(batch, cfg.MetricThresholds(), c.Bool("flat"))
	if err != nil {
		return err
	}
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(view)
}
