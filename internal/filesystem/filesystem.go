// Package filesystem provides file operations for a Hexo project.
package filesystem

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/djherbis/times"

	"github.com/rhamdeew/hex-tool/internal/pathfilter"
)

// Sentinel errors. Returned errors carry the path and wrap one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrPermission   = errors.New("permission denied")
	ErrOutsideRoot  = errors.New("path traversal not allowed")
	ErrAccessDenied = errors.New("access denied")
	ErrExists       = errors.New("already exists")
	ErrIsDirectory  = errors.New("is a directory")
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// Times holds the timestamps of a file. Zero values mean unknown.
type Times struct {
	Created  time.Time
	Modified time.Time
}

// Service provides file operations rooted at a project directory.
//
// Paths may be absolute or relative to the root. Paths inside the root are
// checked against the path filter; absolute paths outside the root are
// accepted as is.
type Service struct {
	root       string
	pathFilter *pathfilter.PathFilter
}

// New creates a Service for root.
func New(root string, pf *pathfilter.PathFilter) *Service {
	absPath, err := filepath.Abs(root)
	if err != nil {
		absPath = filepath.Clean(root)
	}
	if pf == nil {
		pf = pathfilter.New(nil)
	}
	return &Service{
		root:       absPath,
		pathFilter: pf,
	}
}

// Root returns the absolute project root.
func (s *Service) Root() string {
	return s.root
}

// ResolvePath resolves a path relative to the root and rejects anything that
// escapes it.
func (s *Service) ResolvePath(relativePath string) (string, error) {
	return ResolveWithin(s.root, relativePath)
}

// ResolveWithin joins rel onto root and fails with ErrOutsideRoot if the
// result is not inside root.
func ResolveWithin(root, rel string) (string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", root)
	}
	rel = strings.TrimSpace(rel)
	rel = strings.TrimLeft(filepath.FromSlash(rel), string(filepath.Separator))

	absPath, err := filepath.Abs(filepath.Join(root, rel))
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", rel)
	}

	relPath, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", rel)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrOutsideRoot, "%s", rel)
	}
	return absPath, nil
}

// Rel returns path relative to the root with forward slashes, and false when
// path lies outside the root.
func (s *Service) Rel(path string) (string, bool) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (s *Service) abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return s.ResolvePath(path)
}

// allowed resolves path and applies the path filter to paths inside the root.
func (s *Service) allowed(path string) (string, error) {
	full, err := s.abs(path)
	if err != nil {
		return "", err
	}
	if rel, ok := s.Rel(full); ok && rel != "." && !s.pathFilter.IsAllowed(rel) {
		return "", errors.Wrapf(ErrAccessDenied, "%s", rel)
	}
	return full, nil
}

// Read reads a whole file.
func (s *Service) Read(path string) ([]byte, error) {
	full, err := s.allowed(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, classify(err, "reading", path)
	}
	return data, nil
}

// Write replaces the file atomically, creating parent directories.
func (s *Service) Write(path string, data []byte) error {
	full, err := s.allowed(path)
	if err != nil {
		return err
	}
	if err := s.EnsureDir(filepath.Dir(full)); err != nil {
		return err
	}
	if err := WriteFileAtomic(full, data, filePerm); err != nil {
		return classify(err, "writing", path)
	}
	return nil
}

// ListTopLevel returns the regular files directly inside dir that pass pf,
// sorted by name. Subdirectories are not descended into. A missing directory
// yields an empty list.
func (s *Service) ListTopLevel(dir string, pf *pathfilter.PathFilter) ([]string, error) {
	full, err := s.abs(dir)
	if err != nil {
		return nil, err
	}
	if pf == nil {
		pf = s.pathFilter
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, classify(err, "listing", dir)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(full, entry.Name())
		name := entry.Name()
		if rel, ok := s.Rel(path); ok {
			name = rel
		}
		if !pf.IsAllowed(name) || !s.pathFilter.IsAllowed(name) {
			continue
		}
		files = append(files, path)
	}

	sort.Strings(files)
	return files, nil
}

// Copy copies src to dst atomically. dst must not exist unless overwrite is set.
func (s *Service) Copy(src, dst string, overwrite bool) error {
	srcFull, err := s.abs(src)
	if err != nil {
		return err
	}
	dstFull, err := s.allowed(dst)
	if err != nil {
		return err
	}
	if !overwrite && s.Exists(dstFull) {
		return errors.Wrapf(ErrExists, "%s", dst)
	}

	in, err := os.Open(srcFull)
	if err != nil {
		return classify(err, "opening", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return classify(err, "stat", src)
	}
	if info.IsDir() {
		return errors.Wrapf(ErrIsDirectory, "%s", src)
	}

	if err := s.EnsureDir(filepath.Dir(dstFull)); err != nil {
		return err
	}
	if err := writeAtomic(dstFull, filePerm, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	}); err != nil {
		return classify(err, "copying to", dst)
	}
	return nil
}

// EnsureDir creates dir and its parents. It is a no-op if dir exists.
func (s *Service) EnsureDir(dir string) error {
	full, err := s.abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, dirPerm); err != nil {
		return classify(err, "creating directory", dir)
	}
	return nil
}

// Remove deletes a file. Directories are refused.
func (s *Service) Remove(path string) error {
	full, err := s.allowed(path)
	if err != nil {
		return err
	}
	if isDir, _ := s.IsDirectory(full); isDir {
		return errors.Wrapf(ErrIsDirectory, "%s", path)
	}
	if err := os.Remove(full); err != nil {
		return classify(err, "deleting", path)
	}
	return nil
}

// Rename moves src to dst, creating dst's parent. It refuses to replace an
// existing file.
func (s *Service) Rename(src, dst string) error {
	srcFull, err := s.allowed(src)
	if err != nil {
		return err
	}
	dstFull, err := s.allowed(dst)
	if err != nil {
		return err
	}
	if s.Exists(dstFull) {
		return errors.Wrapf(ErrExists, "%s", dst)
	}
	if err := s.EnsureDir(filepath.Dir(dstFull)); err != nil {
		return err
	}
	if err := os.Rename(srcFull, dstFull); err != nil {
		return classify(err, "moving", src)
	}
	return nil
}

// Exists reports whether path exists.
func (s *Service) Exists(path string) bool {
	full, err := s.abs(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// IsDirectory reports whether path is a directory.
func (s *Service) IsDirectory(path string) (bool, error) {
	full, err := s.abs(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return false, classify(err, "stat", path)
	}
	return info.IsDir(), nil
}

// Stat returns file info for path.
func (s *Service) Stat(path string) (fs.FileInfo, error) {
	full, err := s.abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, classify(err, "stat", path)
	}
	return info, nil
}

// Timestamps returns the creation and modification times of path. Created
// falls back to the modification time when the platform does not record
// birth times.
func (s *Service) Timestamps(path string) (Times, error) {
	full, err := s.abs(path)
	if err != nil {
		return Times{}, err
	}
	ts, err := times.Stat(full)
	if err != nil {
		return Times{}, classify(err, "stat", path)
	}

	t := Times{Modified: ts.ModTime(), Created: ts.ModTime()}
	if ts.HasBirthTime() {
		t.Created = ts.BirthTime()
	}
	return t, nil
}

func classify(err error, op, path string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.Mark(errors.Wrapf(err, "%s %s", op, path), ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return errors.Mark(errors.Wrapf(err, "%s %s", op, path), ErrPermission)
	default:
		return errors.Wrapf(err, "%s %s", op, path)
	}
}
