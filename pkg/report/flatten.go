package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// nestedFields are the non-scalar section fields left out of rows. They
// are listed explicitly because a failed section reports them as null.
var nestedFields = map[string]bool{
	"functions":           true,
	"operators":           true,
	"operands":            true,
	"stdlib_imports":      true,
	"third_party_imports": true,
	"local_imports":       true,
	"classes":             true,
	"node_type_counts":    true,
	"naming_conventions":  true,
}

// Row is one flattened report: every scalar metric keyed by its field
// name, plus the file label, compilability and one status per section.
type Row map[string]any

// Flatten produces the harness row for the report. Nested values (per
// function lists, histograms, import lists) are omitted. Field names are
// unique across sections except function_count, which both the complexity
// and size sections publish with the same value.
func (r *MetricsReport) Flatten() (Row, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}

	row := Row{
		"file":          r.File,
		"compilability": r.Compilability,
	}
	for _, name := range SectionNames {
		section, _ := doc[name].(map[string]any)
		for key, value := range section {
			switch key {
			case "status":
				row[name+"_status"] = value
				continue
			case "message":
				continue
			}
			if nestedFields[key] {
				continue
			}
			row[key] = value
		}
	}
	return row, nil
}

// Columns returns the row's keys in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
