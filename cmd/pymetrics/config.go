package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/pymetrics/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Validates a pymetrics configuration file for syntax errors and invalid values.

Examples:
  pymetrics config validate                        # Validates default config locations
  pymetrics -c pymetrics.toml config validate      # Validates specific file`,
				Action: runConfigValidateCmd,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the configuration from defaults and config file as TOML.

Examples:
  pymetrics config show                    # Show effective config
  pymetrics -c pymetrics.yaml config show  # Show config from specific file`,
				Action: runConfigShowCmd,
			},
		},
	}
}

// resolveConfig loads --config or discovers a config file, returning the
// source path ("" for defaults).
func resolveConfig(c *cli.Context) (*config.Config, string, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	cfg, source := config.Discover(appLogger(c))
	return cfg, source, nil
}

func runConfigValidateCmd(c *cli.Context) error {
	_, source, err := resolveConfig(c)
	if err != nil {
		fmt.Fprintln(c.App.ErrWriter, color.RedString("Configuration validation failed:"))
		fmt.Fprintf(c.App.ErrWriter, "  - %s\n", err)
		return err
	}

	if source != "" {
		successf(c, "Configuration valid: %s", source)
	} else {
		fmt.Fprintln(c.App.Writer, color.YellowString("No config file found. Default configuration is valid."))
	}
	return nil
}

func runConfigShowCmd(c *cli.Context) error {
	cfg, source, err := resolveConfig(c)
	if err != nil {
		return err
	}

	if source != "" {
		fmt.Fprintf(c.App.Writer, "# Configuration from: %s\n\n", source)
	} else {
		fmt.Fprintln(c.App.Writer, "# Default configuration (no config file found)")
	}

	content, err := cfg.TOML()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(content)
	return err
}
