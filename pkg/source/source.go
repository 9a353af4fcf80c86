// Package source abstracts where file contents come from: the working
// directory or a git tree.
package source

import (
	"os"
	"sort"
	"sync"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TreeSource reads files from a git tree. Paths are slash-separated and
// relative to the tree root.
// It is safe for concurrent use by multiple goroutines.
type TreeSource struct {
	tree *object.Tree
	mu   sync.Mutex
}

// NewTree creates a source that reads from a git tree.
func NewTree(tree *object.Tree) *TreeSource {
	return &TreeSource{tree: tree}
}

// Read implements ContentSource.
func (t *TreeSource) Read(path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, err := t.tree.File(path)
	if err != nil {
		return nil, err
	}
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

// Files returns the sorted paths of all blobs accepted by match. A nil
// match accepts everything.
func (t *TreeSource) Files(match func(path string) bool) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var paths []string
	err := t.tree.Files().ForEach(func(f *object.File) error {
		if match == nil || match(f.Name) {
			paths = append(paths, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
