package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.True(t, cfg.Analysis.CommentTerm)
	assert.Equal(t, int64(1<<20), cfg.Analysis.MaxFileSize)
	assert.Equal(t, 10, cfg.Thresholds.CyclomaticComplexity)
	assert.Equal(t, 15, cfg.Thresholds.CognitiveComplexity)
	assert.Equal(t, 4, cfg.Thresholds.NestingDepth)
	assert.Equal(t, 50.0, cfg.Thresholds.MaintainabilityIndex)
	assert.True(t, cfg.Exclude.Gitignore)
	assert.Contains(t, cfg.Exclude.Dirs, "__pycache__")
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 24, cfg.Cache.TTL)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.True(t, cfg.Output.Color)
	assert.NoError(t, cfg.Validate())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "pymetrics.toml", `
[analysis]
comment_term = false
local_packages = ["myapp"]

[thresholds]
cyclomatic_complexity = 15

[exclude]
dirs = ["vendor"]
patterns = ["*_pb2.py"]

[cache]
enabled = true
ttl = 0

[output]
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Analysis.CommentTerm)
	assert.Equal(t, []string{"myapp"}, cfg.Analysis.LocalPackages)
	assert.Equal(t, 15, cfg.Thresholds.CyclomaticComplexity)
	// Untouched keys keep their defaults.
	assert.Equal(t, 15, cfg.Thresholds.CognitiveComplexity)
	assert.Equal(t, []string{"vendor"}, cfg.Exclude.Dirs)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, ".pymetrics/cache", cfg.Cache.Dir)
	assert.Zero(t, cfg.CacheTTL())
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "pymetrics.yaml", `
analysis:
  workers: 4
thresholds:
  nesting_depth: 6
output:
  format: markdown
  color: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, 6, cfg.Thresholds.NestingDepth)
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.False(t, cfg.Output.Color)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "pymetrics.json", `{"thresholds": {"maintainability_index": 65.5}, "cache": {"ttl": 2}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 65.5, cfg.Thresholds.MaintainabilityIndex)
	assert.Equal(t, 2*time.Hour, cfg.CacheTTL())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "broken.toml", "[analysis\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "[output]\nformat = \"xml\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.format")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.Workers = -1
	cfg.Cache.TTL = -3
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.workers")
	assert.Contains(t, err.Error(), "cache.ttl")
	assert.Contains(t, err.Error(), "cache.dir")
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := LoadOrDefault(nil)
	assert.Equal(t, DefaultConfig(), cfg)

	require.NoError(t, os.Mkdir(".pymetrics", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(".pymetrics", "pymetrics.yaml"), []byte("output:\n  format: yaml\n"), 0o644))
	assert.Equal(t, "yaml", LoadOrDefault(nil).Output.Format)

	// A root config wins over the .pymetrics directory.
	require.NoError(t, os.WriteFile("pymetrics.toml", []byte("[output]\nformat = \"toon\"\n"), 0o644))
	assert.Equal(t, "toon", LoadOrDefault(nil).Output.Format)

	cfg, path := Discover(nil)
	assert.Equal(t, "toon", cfg.Output.Format)
	assert.Equal(t, "pymetrics.toml", path)
}

func TestDiscover_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, path := Discover(nil)
	assert.Empty(t, path)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOrDefault_SkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("pymetrics.toml", []byte("not = [valid"), 0o644))
	require.NoError(t, os.WriteFile(".pymetrics.json", []byte(`{"output": {"format": "json"}}`), 0o644))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := LoadOrDefault(logger)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Contains(t, buf.String(), "ignoring config file")
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.LocalPackages = []string{"app"}
	cfg.Thresholds.CyclomaticComplexity = 7

	opts := cfg.MetricsOptions()
	assert.True(t, opts.CommentTerm)
	assert.Equal(t, []string{"app"}, opts.LocalPackages)

	opts.LocalPackages[0] = "changed"
	assert.Equal(t, "app", cfg.Analysis.LocalPackages[0])

	th := cfg.MetricThresholds()
	assert.Equal(t, 7, th.Cyclomatic)
	assert.Equal(t, 50.0, th.Maintainability)
}

func TestTOMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Format = "yaml"
	cfg.Thresholds.NestingDepth = 9

	data, err := cfg.TOML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "[thresholds]")

	loaded, err := Load(writeFile(t, "pymetrics.toml", string(data)))
	require.NoError(t, err)
	assert.Equal(t, "yaml", loaded.Output.Format)
	assert.Equal(t, 9, loaded.Thresholds.NestingDepth)
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude.Patterns = []string{"*_pb2.py", "tests/fixtures/*"}
	sep := string(filepath.Separator)

	tests := []struct {
		path string
		want bool
	}{
		{"src" + sep + "app.py", false},
		{"src" + sep + "__pycache__" + sep + "app.py", true},
		{".venv" + sep + "lib" + sep + "x.py", true},
		{"proto" + sep + "api_pb2.py", true},
		{"tests/fixtures/data.py", true},
		{"tests" + sep + "test_app.py", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ShouldExclude(tt.path))
		})
	}
}
