// Package mcpserver exposes pymetrics analysis as Model Context Protocol
// tools over stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/pymetrics/pkg/analyzer"
	"github.com/panbanda/pymetrics/pkg/config"
)

// Server wraps the MCP server and registers all pymetrics tools.
type Server struct {
	server   *mcp.Server
	cfg      *config.Config
	analyzer *analyzer.Analyzer
}

// NewServer creates a new MCP server with all tools registered. A nil cfg
// uses defaults; a nil analyzer is built from cfg.
func NewServer(version string, cfg *config.Config, a *analyzer.Analyzer) *Server {
	if version == "" {
		version = "dev"
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if a == nil {
		a = analyzer.New(
			analyzer.WithMetricsOptions(cfg.MetricsOptions()),
			analyzer.WithMaxFileSize(cfg.Analysis.MaxFileSize),
			analyzer.WithWorkers(cfg.Analysis.Workers),
		)
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "pymetrics",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, cfg: cfg, analyzer: a}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

const (
	toolAnalyzeSource  = "analyze_source"
	toolAnalyzeFiles   = "analyze_files"
	toolValidateReport = "validate_report"
)

// tools returns every tool the server registers, in registration order.
func tools() []*mcp.Tool {
	return []*mcp.Tool{
		{Name: toolAnalyzeSource, Description: describeAnalyzeSource()},
		{Name: toolAnalyzeFiles, Description: describeAnalyzeFiles()},
		{Name: toolValidateReport, Description: describeValidateReport()},
	}
}

func (s *Server) registerTools() {
	for _, tool := range tools() {
		switch tool.Name {
		case toolAnalyzeSource:
			mcp.AddTool(s.server, tool, s.handleAnalyzeSource)
		case toolAnalyzeFiles:
			mcp.AddTool(s.server, tool, s.handleAnalyzeFiles)
		case toolValidateReport:
			mcp.AddTool(s.server, tool, handleValidateReport)
		}
	}
}
