package vcs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func commitAll(t *testing.T, repo *git.Repository, msg string) {
	t.Helper()
	w, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, w.AddWithOptions(&git.AddOptions{All: true}))
	_, err = w.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
}

// initTestRepo creates a repository with two commits:
// the first adds app/main.py and README.md, the second edits app/main.py.
func initTestRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	writeFile(t, root, "app/main.py", "x = 1\n")
	writeFile(t, root, "README.md", "# demo\n")
	commitAll(t, repo, "initial")

	writeFile(t, root, "app/main.py", "x = 2\n")
	commitAll(t, repo, "update")
	return root, repo
}

func TestOpen(t *testing.T) {
	root, _ := initTestRepo(t)

	repo, err := Open(filepath.Join(root, "app"))
	require.NoError(t, err)
	assert.Equal(t, root, repo.Root())
}

func TestOpen_NotRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestRepository_Rel(t *testing.T) {
	root, _ := initTestRepo(t)
	repo, err := Open(root)
	require.NoError(t, err)

	rel, err := repo.Rel(filepath.Join(root, "app", "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "app/main.py", rel)

	rel, err = repo.Rel(root)
	require.NoError(t, err)
	assert.Equal(t, ".", rel)

	_, err = repo.Rel(filepath.Dir(root))
	assert.Error(t, err)
}

func TestRepository_Tree(t *testing.T) {
	root, _ := initTestRepo(t)
	repo, err := Open(root)
	require.NoError(t, err)

	tests := []struct {
		rev  string
		want string
	}{
		{"HEAD", "x = 2\n"},
		{"HEAD~1", "x = 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.rev, func(t *testing.T) {
			tree, hash, err := repo.Tree(tt.rev)
			require.NoError(t, err)
			assert.False(t, hash.IsZero())

			f, err := tree.File("app/main.py")
			require.NoError(t, err)
			content, err := f.Contents()
			require.NoError(t, err)
			assert.Equal(t, tt.want, content)
		})
	}

	_, _, err = repo.Tree("no-such-branch")
	assert.Error(t, err)
}

func TestRepository_Changed(t *testing.T) {
	root, gitRepo := initTestRepo(t)
	repo, err := Open(root)
	require.NoError(t, err)

	changed, err := repo.Changed()
	require.NoError(t, err)
	assert.Empty(t, changed)

	writeFile(t, root, "app/main.py", "x = 3\n")
	writeFile(t, root, "app/new.py", "y = 1\n")
	writeFile(t, root, "lib/staged.py", "z = 1\n")
	require.NoError(t, os.Remove(filepath.Join(root, "README.md")))

	w, err := gitRepo.Worktree()
	require.NoError(t, err)
	_, err = w.Add("lib/staged.py")
	require.NoError(t, err)

	changed, err = repo.Changed()
	require.NoError(t, err)
	assert.Equal(t, []string{"app/main.py", "app/new.py", "lib/staged.py"}, changed)
}
