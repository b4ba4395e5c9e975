package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFilePreservesModeAndTimes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.json")
	dst := filepath.Join(dir, "dst.json")
	writeFile(t, src, `{"a": 1}`)
	require.NoError(t, os.Chmod(src, 0o600))
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, stamp, stamp))

	require.NoError(t, copyFile(src, dst))

	assert.Equal(t, `{"a": 1}`, readFile(t, dst))
	st, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())
	assert.True(t, st.ModTime().Equal(stamp), "mtime %v, want %v", st.ModTime(), stamp)
}

func TestCopyFileOverwrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "new")
	writeFile(t, dst, "old content that is longer")

	require.NoError(t, copyFile(src, dst))
	assert.Equal(t, "new", readFile(t, dst))
}

func TestCopyFileRejectsDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.Error(t, copyFile(dir, filepath.Join(dir, "x")))
}

func TestCopyTreeMerges(t *testing.T) {
	t.Parallel()
	src := filepath.Join(t.TempDir(), "assets")
	dst := filepath.Join(t.TempDir(), "assets")

	writeFile(t, filepath.Join(src, "norm_stats.json"), "stats-v2")
	writeFile(t, filepath.Join(src, "robot", "calib.json"), "calib")
	writeFile(t, filepath.Join(dst, "norm_stats.json"), "stats-v1")
	writeFile(t, filepath.Join(dst, "keep.txt"), "untouched")

	n, err := copyTree(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "stats-v2", readFile(t, filepath.Join(dst, "norm_stats.json")))
	assert.Equal(t, "calib", readFile(t, filepath.Join(dst, "robot", "calib.json")))
	assert.Equal(t, "untouched", readFile(t, filepath.Join(dst, "keep.txt")))
}

func TestCopyTreeFollowsSymlinks(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	src := filepath.Join(root, "assets")
	writeFile(t, filepath.Join(root, "shared", "tokenizer.model"), "tok")
	require.NoError(t, os.MkdirAll(src, 0o755))
	if err := os.Symlink(filepath.Join(root, "shared"), filepath.Join(src, "shared")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "assets")
	n, err := copyTree(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, err := os.Lstat(filepath.Join(dst, "shared"))
	require.NoError(t, err)
	assert.True(t, st.IsDir())
	assert.Equal(t, "tok", readFile(t, filepath.Join(dst, "shared", "tokenizer.model")))
}

func TestCopyTreeCancelled(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := copyTree(ctx, src, filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCopyTreeRejectsFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, "x")
	_, err := copyTree(context.Background(), path, filepath.Join(t.TempDir(), "out"))
	assert.Error(t, err)
}

func TestCopyFileOntoItselfKeepsContent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "train_config.json")
	writeFile(t, src, `{"steps": 1000}`)

	require.NoError(t, copyFile(src, src))
	assert.Equal(t, `{"steps": 1000}`, readFile(t, src))

	link := filepath.Join(dir, "link.json")
	require.NoError(t, os.Link(src, link))
	require.NoError(t, copyFile(src, link))
	assert.Equal(t, `{"steps": 1000}`, readFile(t, src))
}

func TestCopyTreeOntoItself(t *testing.T) {
	t.Parallel()
	src := filepath.Join(t.TempDir(), "assets")
	writeFile(t, filepath.Join(src, "norm_stats.json"), "stats")
	writeFile(t, filepath.Join(src, "robot", "calib.json"), "calib")

	n, err := copyTree(context.Background(), src, src)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "stats", readFile(t, filepath.Join(src, "norm_stats.json")))
	assert.Equal(t, "calib", readFile(t, filepath.Join(src, "robot", "calib.json")))
}

func TestCopyTreeRejectsDestinationInsideSource(t *testing.T) {
	t.Parallel()
	src := filepath.Join(t.TempDir(), "assets")
	writeFile(t, filepath.Join(src, "a.txt"), "a")

	_, err := copyTree(context.Background(), src, filepath.Join(src, "nested", "assets"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inside the source")
	_, err = os.Stat(filepath.Join(src, "nested"))
	assert.True(t, os.IsNotExist(err))
}

func TestWithin(t *testing.T) {
	t.Parallel()
	tests := []struct {
		dir, path string
		want      bool
	}{
		{"/a/b", "/a/b/c", true},
		{"/a/b", "/a/b", false},
		{"/a/b", "/a/bc", false},
		{"/a/b", "/a", false},
		{"/a/b", "/a/b/../c", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, within(tc.dir, tc.path), "within(%q, %q)", tc.dir, tc.path)
	}
}
