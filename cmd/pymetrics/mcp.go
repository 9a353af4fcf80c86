package main

import (
	"github.com/urfave/cli/v2"

	"github.com/panbanda/pymetrics/internal/mcpserver"
	"github.com/panbanda/pymetrics/pkg/analyzer"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes pymetrics as tools
that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "pymetrics": {
        "command": "pymetrics",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_source    Metrics for inline Python source
  - analyze_files     Metrics for files and directories on disk
  - validate_report   Check a report against the JSON schema`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry manifest",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	server := mcpserver.NewServer(version, cfg, analyzer.New(analyzerOptions(c, cfg)...))
	return server.Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(append(data, '\n'))
	return err
}
