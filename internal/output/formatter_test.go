package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{"yaml", FormatYAML},
		{"YML", FormatYAML},
		{"", FormatText},
		{"invalid", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFormat(tt.input))
		})
	}
}

func TestFormatStructured(t *testing.T) {
	assert.True(t, FormatJSON.Structured())
	assert.True(t, FormatYAML.Structured())
	assert.True(t, FormatTOON.Structured())
	assert.False(t, FormatText.Structured())
	assert.False(t, FormatMarkdown.Structured())
}

func TestNewFormatterWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	f, err := NewFormatter(FormatJSON, path, true)
	require.NoError(t, err)
	assert.False(t, f.Colored(), "file output is never colored")
	require.NoError(t, f.Output(map[string]int{"a": 1}))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(data))
}

func TestNewFormatter_BadPath(t *testing.T) {
	_, err := NewFormatter(FormatText, filepath.Join(t.TempDir(), "missing", "out.txt"), false)
	assert.Error(t, err)
}

type sample struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
	Ratio *float64 `json:"ratio"`
}

func TestEncode(t *testing.T) {
	data := sample{Name: "app.py", Count: 3, Tags: []string{"a", "b"}}

	out, err := Encode(FormatJSON, data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "app.py", "count": 3, "tags": ["a", "b"], "ratio": null}`, string(out))

	out, err = Encode(FormatYAML, data)
	require.NoError(t, err)
	text := string(out)
	assert.Less(t, strings.Index(text, "name:"), strings.Index(text, "count:"), "json key order is kept")
	assert.NotContains(t, text, "{")
	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "app.py", back["name"])
	assert.Equal(t, 3, back["count"])
	assert.Nil(t, back["ratio"])

	out, err = Encode(FormatTOON, data)
	require.NoError(t, err)
	assert.Contains(t, string(out), "app.py")
	assert.Contains(t, string(out), "count")
}

func TestEncode_YAMLQuotesAmbiguousStrings(t *testing.T) {
	out, err := Encode(FormatYAML, map[string]string{"value": "true", "n": "12"})
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "true", back["value"])
	assert.Equal(t, "12", back["n"])
}

func TestOutput_PlainData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(FormatMarkdown, &buf, false).Output([]int{1, 2}))
	assert.True(t, strings.HasPrefix(buf.String(), "```json\n"))
	assert.True(t, strings.HasSuffix(buf.String(), "```\n"))

	buf.Reset()
	require.NoError(t, NewWriterFormatter(FormatText, &buf, false).Output([]int{1, 2}))
	var back []int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, []int{1, 2}, back)
}

func TestTable(t *testing.T) {
	table := NewTable("Files",
		[]string{"File", "CC"},
		[][]string{{"a.py", "3"}, {"b|c.py", "1"}},
		[]string{"Total", "4"},
		nil)

	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(FormatText, &buf, false).Output(table))
	text := buf.String()
	assert.Contains(t, text, "Files\n=====")
	assert.Contains(t, text, "a.py")
	assert.Contains(t, strings.ToLower(text), "total")

	buf.Reset()
	require.NoError(t, NewWriterFormatter(FormatMarkdown, &buf, false).Output(table))
	md := buf.String()
	assert.Contains(t, md, "## Files")
	assert.Contains(t, md, "| File | CC |")
	assert.Contains(t, md, "| --- | --- |")
	assert.Contains(t, md, `| b\|c.py | 1 |`)

	buf.Reset()
	require.NoError(t, NewWriterFormatter(FormatJSON, &buf, false).Output(table))
	var rows []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	assert.Equal(t, []map[string]string{{"File": "a.py", "CC": "3"}, {"File": "b|c.py", "CC": "1"}}, rows)
}

func TestTable_DataOverridesRows(t *testing.T) {
	table := NewTable("", []string{"x"}, [][]string{{"1"}}, nil, map[string]int{"total": 9})
	assert.Equal(t, map[string]int{"total": 9}, table.RenderData())
}

func TestReportAndList(t *testing.T) {
	r := &Report{
		Title: "Summary",
		Sections: []Renderable{
			NewTable("T", []string{"k"}, [][]string{{"v"}}, nil, nil),
			&List{Title: "Warnings", Items: []string{"first", "second"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, r.RenderText(&buf, false))
	text := buf.String()
	assert.Contains(t, text, "Summary\n=======")
	assert.Contains(t, text, "Warnings\n--------")
	assert.Contains(t, text, "  - first\n  - second\n")

	buf.Reset()
	require.NoError(t, r.RenderMarkdown(&buf))
	md := buf.String()
	assert.Contains(t, md, "# Summary")
	assert.Contains(t, md, "### Warnings")
	assert.Contains(t, md, "- second\n")

	data, ok := r.RenderData().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Summary", data["title"])
	assert.Len(t, data["sections"], 2)
}

func TestMessages(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriterFormatter(FormatText, &buf, false)
	f.Success("done %d", 3)
	f.Warning("careful")
	f.Error("broken")
	f.Info("fyi")
	assert.Equal(t, "done 3\nWARNING: careful\nERROR: broken\nfyi\n", buf.String())
}

func TestRankColor(t *testing.T) {
	assert.Equal(t, "A", RankColor("A", false))
	assert.Contains(t, RankColor("F", true), "F")
}
