package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and key thresholds.

const interpretMetrics = `INTERPRETING RESULTS:
- Each file has five sections; status is success, syntax_error or error
- Non-success sections keep every metric key with a null value
- cyclomatic_complexity > 10 per function: many paths, hard to test
- cognitive_complexity > 15 per function: hard to read, flatten the logic
- max_nesting_depth > 4: deeply nested, prefer early returns
- maintainability_index: 0-100+, rank A (>85) down to F (<=25 or no code)
- complexity_rank: A (<=5), B (<=10), C (<=20), D (<=30), E (<=40), F
- naming_convention_score: 1.0 means every name follows PEP 8 casing`

func describeAnalyzeSource() string {
	return `Computes static code metrics for one Python source text passed inline.

USE WHEN:
- Checking a snippet or a file you already have in memory
- Comparing metrics before and after an edit
- Getting a syntax check plus metrics in one call

` + interpretMetrics + `

METRICS RETURNED:
- complexity_analysis: cyclomatic, cognitive, nesting, per-function ranks
- halstead_analysis: operators, operands, volume, difficulty, effort, bugs
- maintainability_analysis: maintainability index, comment ratio, ABC score
- size_analysis: physical/logical/comment/blank/docstring lines, imports, class metrics
- structure_analysis: node counts, naming conventions`
}

func describeAnalyzeFiles() string {
	return `Computes static code metrics for Python files and directories on disk.

USE WHEN:
- Surveying a package or repository for refactoring candidates
- Ranking files by maintainability before a review
- Producing one flat row per file for spreadsheets or models (flat=true)

` + interpretMetrics + `
- summary gives count, mean, stddev, median, p90 and max across files
- duplicates counts byte-identical files analyzed once

METRICS RETURNED:
- reports: one MetricsReport per file, in path order
- summary: distribution of cyclomatic, cognitive, volume, MI, logical lines
- With flat=true: scalar metrics plus <section>_status columns per file`
}

func describeValidateReport() string {
	return `Validates a MetricsReport JSON document against the report schema.

USE WHEN:
- Checking a stored or hand-edited report before consuming it
- Verifying another tool emits the same report contract

INTERPRETING RESULTS:
- "valid" when the document matches
- Otherwise an error naming the first violated constraint

METRICS RETURNED:
- None; this tool only checks structure and types`
}
