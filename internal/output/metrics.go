package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/panbanda/pymetrics/pkg/analyzer"
	"github.com/panbanda/pymetrics/pkg/metrics"
	"github.com/panbanda/pymetrics/pkg/report"
)

// BatchView renders a batch of reports. Structured formats carry either
// the full batch or, when flat, one harness row per file.
type BatchView struct {
	batch      *analyzer.Batch
	thresholds metrics.Thresholds
	rows       []report.Row
	flat       bool
}

// NewBatchView prepares b for rendering against th.
func NewBatchView(b *analyzer.Batch, th metrics.Thresholds, flat bool) (*BatchView, error) {
	v := &BatchView{batch: b, thresholds: th, flat: flat}
	if !flat {
		return v, nil
	}
	v.rows = make([]report.Row, 0, len(b.Reports))
	for _, r := range b.Reports {
		row, err := r.Flatten()
		if err != nil {
			return nil, fmt.Errorf("failed to flatten %s: %w", r.File, err)
		}
		v.rows = append(v.rows, row)
	}
	return v, nil
}

func (v *BatchView) RenderData() any {
	if v.flat {
		return v.rows
	}
	return v.batch
}

func (v *BatchView) RenderText(w io.Writer, colored bool) error {
	return v.compose(colored).RenderText(w, colored)
}

func (v *BatchView) RenderMarkdown(w io.Writer) error {
	return v.compose(false).RenderMarkdown(w)
}

func (v *BatchView) compose(colored bool) *Report {
	r := &Report{Title: "Python Metrics"}
	if v.flat {
		r.Sections = append(r.Sections, v.flatTable())
	} else {
		r.Sections = append(r.Sections, v.filesTable(colored))
		if fns := v.functionsTable(colored); fns != nil {
			r.Sections = append(r.Sections, fns)
		}
	}
	if warnings := Warnings(v.batch.Reports, v.thresholds); len(warnings) > 0 {
		r.Sections = append(r.Sections, &List{
			Title: fmt.Sprintf("Warnings (%d)", len(warnings)),
			Items: warnings,
		})
	}
	if len(v.batch.Errors) > 0 {
		items := make([]string, len(v.batch.Errors))
		for i, e := range v.batch.Errors {
			items[i] = e.Error()
		}
		r.Sections = append(r.Sections, &List{Title: "Skipped files", Items: items})
	}
	return r
}

func (v *BatchView) filesTable(colored bool) *Table {
	th := v.thresholds
	rows := make([][]string, 0, len(v.batch.Reports))
	for _, r := range v.batch.Reports {
		row := []string{r.File, statusCell(r, colored), "-", "-", "-", "-", "-", "-", "-"}
		if c := r.Complexity; c.OK() {
			row[2] = strconv.Itoa(c.Metrics.Cyclomatic)
			row[3] = strconv.Itoa(c.Metrics.Cognitive)
			row[4] = strconv.Itoa(c.Metrics.MaxNesting)
		}
		if m := r.Maintainability; m.OK() {
			mi := fmt.Sprintf("%.1f", m.Metrics.Index)
			if colored && th.Maintainability > 0 && m.Metrics.Index < th.Maintainability {
				mi = color.RedString(mi)
			}
			row[5] = mi
			row[6] = RankColor(m.Metrics.Rank, colored)
		}
		if s := r.Size; s.OK() {
			row[7] = strconv.Itoa(s.Metrics.LogicalLines)
		}
		if h := r.Halstead; h.OK() {
			row[8] = fmt.Sprintf("%.1f", h.Metrics.Volume)
		}
		rows = append(rows, row)
	}

	s := v.batch.Summary
	footer := []string{
		fmt.Sprintf("Files: %d", s.Files),
		fmt.Sprintf("Syntax errors: %d", s.SyntaxErrors),
		fmt.Sprintf("Avg CC: %.1f", s.Cyclomatic.Mean),
		fmt.Sprintf("Avg Cog: %.1f", s.Cognitive.Mean),
		"",
		fmt.Sprintf("Avg MI: %.1f", s.Maintainability.Mean),
		"",
		fmt.Sprintf("LLOC: %.0f", s.LogicalLines.Mean*float64(s.LogicalLines.Count)),
		fmt.Sprintf("Med vol: %.1f", s.HalsteadVolume.Median),
	}
	return NewTable("Files",
		[]string{"File", "Status", "Cyclomatic", "Cognitive", "Nesting", "MI", "Rank", "LLOC", "Volume"},
		rows, footer, nil)
}

// functionsTable lists every function; it returns nil when there are none.
func (v *BatchView) functionsTable(colored bool) *Table {
	th := v.thresholds
	var rows [][]string
	for _, r := range v.batch.Reports {
		if !r.Complexity.OK() {
			continue
		}
		for _, fn := range r.Complexity.Metrics.Functions {
			cyc := strconv.Itoa(fn.Cyclomatic)
			cog := strconv.Itoa(fn.Cognitive)
			nest := strconv.Itoa(fn.MaxNesting)
			if colored {
				for _, violation := range th.Violations(fn.FunctionRecord) {
					switch violation {
					case "cyclomatic":
						cyc = color.RedString(cyc)
					case "cognitive":
						cog = color.RedString(cog)
					case "nesting":
						nest = color.RedString(nest)
					}
				}
			}
			rows = append(rows, []string{
				r.File,
				qualifiedName(fn.Class, fn.Name),
				strconv.Itoa(fn.StartLine),
				cyc,
				cog,
				nest,
				RankColor(fn.Rank, colored),
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return NewTable("Functions",
		[]string{"File", "Function", "Line", "Cyclomatic", "Cognitive", "Nesting", "Rank"},
		rows, nil, nil)
}

func (v *BatchView) flatTable() *Table {
	headers := []string{"file", "compilability", "cyclomatic_complexity", "cognitive_complexity",
		"halstead_volume", "maintainability_index", "logical_lines"}
	rows := make([][]string, 0, len(v.rows))
	for _, row := range v.rows {
		cells := make([]string, len(headers))
		for i, h := range headers {
			cells[i] = cell(row[h])
		}
		rows = append(rows, cells)
	}
	return NewTable("Rows", headers, rows, nil, v.rows)
}

func cell(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

func statusCell(r *report.MetricsReport, colored bool) string {
	status := report.StatusSuccess
	statuses := r.Statuses()
	for _, name := range report.SectionNames {
		if s := statuses[name]; s != report.StatusSuccess {
			status = s
			break
		}
	}
	text := string(status)
	if !colored {
		return text
	}
	switch status {
	case report.StatusSuccess:
		return color.GreenString(text)
	case report.StatusSyntaxError:
		return color.YellowString(text)
	default:
		return color.RedString(text)
	}
}

func qualifiedName(class, name string) string {
	if class == "" {
		return name
	}
	return class + "." + name
}

// Warnings lists threshold violations and failed analyses, one line each,
// in report order.
func Warnings(reports []*report.MetricsReport, th metrics.Thresholds) []string {
	var out []string
	for _, r := range reports {
		if r.SyntaxError != nil {
			out = append(out, fmt.Sprintf("%s:%d - syntax error: %s", r.File, r.SyntaxError.Line, r.SyntaxError.Message))
			continue
		}
		statuses := r.Statuses()
		for _, name := range report.SectionNames {
			if statuses[name] == report.StatusError {
				out = append(out, fmt.Sprintf("%s - %s failed", r.File, name))
			}
		}
		if r.Complexity.OK() {
			for _, fn := range r.Complexity.Metrics.Functions {
				out = append(out, functionWarnings(r.File, fn.Class, fn.Name, fn.StartLine,
					fn.Cyclomatic, fn.Cognitive, fn.MaxNesting, th)...)
			}
		}
		// Files without code score 0 and are not worth flagging.
		empty := r.Size.OK() && r.Size.Metrics.LogicalLines == 0
		if m := r.Maintainability; m.OK() && !empty && th.Maintainability > 0 && m.Metrics.Index < th.Maintainability {
			out = append(out, fmt.Sprintf("%s - maintainability index %.1f below threshold %.0f",
				r.File, m.Metrics.Index, th.Maintainability))
		}
	}
	return out
}

func functionWarnings(file, class, name string, line, cyc, cog, nest int, th metrics.Thresholds) []string {
	var out []string
	label := fmt.Sprintf("%s:%d %s", file, line, qualifiedName(class, name))
	if th.Cyclomatic > 0 && cyc > th.Cyclomatic {
		out = append(out, fmt.Sprintf("%s - cyclomatic complexity %d exceeds threshold %d", label, cyc, th.Cyclomatic))
	}
	if th.Cognitive > 0 && cog > th.Cognitive {
		out = append(out, fmt.Sprintf("%s - cognitive complexity %d exceeds threshold %d", label, cog, th.Cognitive))
	}
	if th.Nesting > 0 && nest > th.Nesting {
		out = append(out, fmt.Sprintf("%s - nesting depth %d exceeds threshold %d", label, nest, th.Nesting))
	}
	return out
}
