package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

const loggerKey = "logger"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		color.Red("Error: %v", err)
		stop()
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "pymetrics",
		Usage:     "Static code metrics for Python",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Metadata:  make(map[string]interface{}),
		Description: `pymetrics measures Python source: cyclomatic and cognitive complexity,
nesting, Halstead measures, maintainability index, size and naming.

Every file gets five independent report sections. A section that cannot be
computed is marked syntax_error or error and its metrics are null.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"PYMETRICS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon, yaml (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelWarn
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
			c.App.Metadata[loggerKey] = logger
			return nil
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			watchCmd(),
			initCmd(),
			configCmd(),
			cacheCmd(),
			mcpCmd(),
		},
	}
}

// appLogger returns the logger configured in Before, or the default.
func appLogger(c *cli.Context) *slog.Logger {
	if logger, ok := c.App.Metadata[loggerKey].(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func warnf(c *cli.Context, format string, args ...any) {
	fmt.Fprintln(c.App.ErrWriter, color.YellowString(format, args...))
}

func successf(c *cli.Context, format string, args ...any) {
	fmt.Fprintln(c.App.Writer, color.GreenString(format, args...))
}
