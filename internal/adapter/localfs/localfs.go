// Package localfs implements the local archive on top of an afero filesystem.
// All paths given to Storage are relative to its root directory.
package localfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o777
	filePerm = 0o644

	gzipSuffix = ".gz"
)

// Storage is the local working directory and archive.
type Storage struct {
	fs     afero.Fs
	root   string
	logger *slog.Logger
}

// New returns a Storage rooted at root on the operating system filesystem.
func New(root string, logger *slog.Logger) *Storage {
	return NewWithFS(afero.NewOsFs(), root, logger)
}

// NewWithFS returns a Storage on an arbitrary afero filesystem, used by tests
// with afero.NewMemMapFs.
func NewWithFS(fsys afero.Fs, root string, logger *slog.Logger) *Storage {
	return &Storage{fs: fsys, root: filepath.Clean(root), logger: logger}
}

// Fs exposes the underlying filesystem.
func (s *Storage) Fs() afero.Fs {
	return s.fs
}

// Root returns the storage root directory.
func (s *Storage) Root() string {
	return s.root
}

// Path resolves a relative path against the root.
func (s *Storage) Path(rel ...string) string {
	return filepath.Join(append([]string{s.root}, rel...)...)
}

// EnsureDir creates dir and its parents if absent.
func (s *Storage) EnsureDir(dir string) error {
	if err := s.fs.MkdirAll(s.Path(dir), dirPerm); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether the path exists.
func (s *Storage) Exists(rel string) bool {
	ok, err := afero.Exists(s.fs, s.Path(rel))
	return err == nil && ok
}

// Create opens rel for writing, truncating any existing file.
func (s *Storage) Create(rel string) (io.WriteCloser, error) {
	if err := s.EnsureDir(filepath.Dir(rel)); err != nil {
		return nil, err
	}
	f, err := s.fs.OpenFile(s.Path(rel), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", rel, err)
	}
	return f, nil
}

// Open opens rel for reading.
func (s *Storage) Open(rel string) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.Path(rel))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rel, err)
	}
	return f, nil
}

// Copy duplicates src into dst, creating dst's directory.
func (s *Storage) Copy(src, dst string) error {
	in, err := s.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := s.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

// Move renames src to dst, creating dst's directory.
func (s *Storage) Move(src, dst string) error {
	if err := s.EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	if err := s.fs.Rename(s.Path(src), s.Path(dst)); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return nil
}

// Remove deletes rel. A missing file is not an error.
func (s *Storage) Remove(rel string) error {
	err := s.fs.Remove(s.Path(rel))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}

// Glob returns the relative paths of regular files in dir whose base name
// matches pattern (filepath.Match syntax).
func (s *Storage) Glob(dir, pattern string) ([]string, error) {
	matches, err := afero.Glob(s.fs, filepath.Join(s.Path(dir), pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s/%s: %w", dir, pattern, err)
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := s.fs.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(s.root, m)
		if err != nil {
			continue
		}
		out = append(out, rel)
	}
	return out, nil
}

// RemoveMatching deletes every regular file in dir matching pattern and
// returns how many were removed.
func (s *Storage) RemoveMatching(dir, pattern string) (int, error) {
	files, err := s.Glob(dir, pattern)
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, f := range files {
		if err := s.Remove(f); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Debug("removed local files", "dir", dir, "pattern", pattern, "count", removed)
	}
	return removed, errors.Join(errs...)
}

// Compress gzips rel into rel+".gz" and removes rel.
func (s *Storage) Compress(rel string) (string, error) {
	dst := rel + gzipSuffix

	in, err := s.Open(rel)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := s.Create(dst)
	if err != nil {
		return "", err
	}

	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(rel)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		return "", fmt.Errorf("compress %s: %w", rel, err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return "", fmt.Errorf("compress %s: %w", rel, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("compress %s: %w", rel, err)
	}

	if err := s.Remove(rel); err != nil {
		return "", err
	}
	return dst, nil
}

// Decompress gunzips a ".gz" file next to itself and removes the archive.
func (s *Storage) Decompress(rel string) (string, error) {
	if !strings.HasSuffix(rel, gzipSuffix) {
		return "", fmt.Errorf("decompress %s: missing %s suffix", rel, gzipSuffix)
	}
	dst := strings.TrimSuffix(rel, gzipSuffix)

	in, err := s.Open(rel)
	if err != nil {
		return "", err
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("decompress %s: %w", rel, err)
	}
	defer zr.Close()

	out, err := s.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		return "", fmt.Errorf("decompress %s: %w", rel, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("decompress %s: %w", rel, err)
	}

	if err := s.Remove(rel); err != nil {
		return "", err
	}
	return dst, nil
}
