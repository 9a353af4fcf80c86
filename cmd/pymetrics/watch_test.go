package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "app/main.py", "x = 1\n")
	t.Chdir(dir)

	var stdout, stderr syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- newApp(&stdout, &stderr).RunContext(ctx,
			[]string{"pymetrics", "-f", "json", "watch", "--flat", "--debounce", "50ms", "app"})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "Watching for changes")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, stdout.String(), "main.py")
	assert.NotContains(t, stdout.String(), "added.py")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "added.py"), []byte("def f():\n    pass\n"), 0o644))

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "added.py")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatch_MissingPath(t *testing.T) {
	_, _, err := runApp(t, nil, "watch", "nope")
	assert.Error(t, err)
}
