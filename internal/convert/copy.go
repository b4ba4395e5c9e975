package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// copyFile copies src to dst, replacing dst, and carries over the permission
// bits and access/modification times of src. When dst already is src, for
// example when converting a checkpoint in place, nothing is written.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	st, err := in.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("copy %s: is a directory", src)
	}
	if sameFile(st, dst) {
		return nil
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, st.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return copyMetadata(src, dst, st)
}

// copyMetadata applies the mode and timestamps of src (described by st) to dst.
func copyMetadata(src, dst string, st os.FileInfo) error {
	if err := os.Chmod(dst, st.Mode().Perm()); err != nil {
		return err
	}
	atime, mtime := fileTimes(src, st)
	return os.Chtimes(dst, atime, mtime)
}

// copyTree copies the directory src into dst recursively, merging with any
// existing content of dst. Existing files are overwritten. Symlinks are
// followed. It returns the number of files copied.
func copyTree(ctx context.Context, src, dst string) (int, error) {
	st, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if !st.IsDir() {
		return 0, fmt.Errorf("copy tree %s: not a directory", src)
	}
	if sameFile(st, dst) {
		return 0, nil
	}
	if within(src, dst) {
		return 0, fmt.Errorf("copy tree %s: destination %s is inside the source", src, dst)
	}
	if err := os.MkdirAll(dst, st.Mode().Perm()|0o700); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, err
	}
	copied := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())

		info, err := os.Stat(from)
		if err != nil {
			return copied, err
		}
		if info.IsDir() {
			n, err := copyTree(ctx, from, to)
			copied += n
			if err != nil {
				return copied, err
			}
			continue
		}
		if err := copyFile(from, to); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, copyMetadata(src, dst, st)
}

// sameFile reports whether path exists and names the file described by st.
func sameFile(st os.FileInfo, path string) bool {
	other, err := os.Stat(path)
	return err == nil && os.SameFile(st, other)
}

// within reports whether path lies strictly below dir.
func within(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
