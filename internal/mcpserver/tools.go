package mcpserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/pymetrics/internal/output"
	"github.com/panbanda/pymetrics/internal/scanner"
	"github.com/panbanda/pymetrics/pkg/analyzer"
	"github.com/panbanda/pymetrics/pkg/report"
)

// OutputInput selects how results are encoded.
type OutputInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, or markdown."`
	Flat   bool   `json:"flat,omitempty" jsonschema:"Return one flat row of scalar metrics per file instead of nested sections."`
}

// AnalyzeSourceInput analyzes a source text passed inline.
type AnalyzeSourceInput struct {
	OutputInput
	Source string `json:"source" jsonschema:"Python source code to analyze."`
	Label  string `json:"label,omitempty" jsonschema:"File name to report. Defaults to <source>."`
}

// AnalyzeFilesInput analyzes files and directories on disk.
type AnalyzeFilesInput struct {
	OutputInput
	Paths []string `json:"paths,omitempty" jsonschema:"Files or directories to analyze. Defaults to current directory if empty."`
}

// ValidateReportInput checks a JSON document against the report schema.
type ValidateReportInput struct {
	Report string `json:"report" jsonschema:"A single MetricsReport as JSON."`
}

func getPaths(input AnalyzeFilesInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(input OutputInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "yaml", "yml":
		return output.FormatYAML
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(view *output.BatchView, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toolResult(view *output.BatchView, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(view, format)
	if err != nil {
		return nil, nil, err
	}
	return textResult(text), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleAnalyzeSource(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeSourceInput) (*mcp.CallToolResult, any, error) {
	label := input.Label
	if label == "" {
		label = "<source>"
	}
	r := s.analyzer.Analyze([]byte(input.Source), label)

	batch := &analyzer.Batch{Reports: []*report.MetricsReport{r}}
	batch.Summary = analyzer.Summarize(batch.Reports)
	return s.render(batch, input.OutputInput)
}

func (s *Server) handleAnalyzeFiles(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeFilesInput) (*mcp.CallToolResult, any, error) {
	files, err := scanner.NewScanner(s.cfg).ScanPaths(getPaths(input))
	if err != nil {
		return toolError(err.Error())
	}
	if len(files) == 0 {
		return toolError("no Python files found")
	}

	batch, err := s.analyzer.AnalyzeFiles(ctx, files)
	if err != nil {
		return toolError(err.Error())
	}
	return s.render(batch, input.OutputInput)
}

func (s *Server) render(batch *analyzer.Batch, in OutputInput) (*mcp.CallToolResult, any, error) {
	view, err := output.NewBatchView(batch, s.cfg.MetricThresholds(), in.Flat)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(view, getFormat(in))
}

func handleValidateReport(ctx context.Context, req *mcp.CallToolRequest, input ValidateReportInput) (*mcp.CallToolResult, any, error) {
	if input.Report == "" {
		return toolError("report is required")
	}
	if err := report.ValidateJSON([]byte(input.Report)); err != nil {
		return toolError(fmt.Sprintf("report does not match schema: %v", err))
	}
	return textResult("valid"), nil, nil
}
