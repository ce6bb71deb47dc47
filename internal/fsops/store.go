// Package fsops reads and writes session record files inside one records
// directory. Every path goes through the safety package first.
package fsops

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/petasbytes/theraia/internal/safety"
)

// Store is a records directory.
type Store struct {
	root string
}

// NewStore resolves root (empty means the working directory). The directory
// is created on first write, not here.
func NewStore(root string) (*Store, error) {
	abs, err := safety.ResolveRoot(root)
	if err != nil {
		return nil, err
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute records directory.
func (s *Store) Root() string { return s.root }

// Rel converts p to a path relative to the store root. Relative inputs are
// returned cleaned; absolute inputs outside the root are rejected.
func (s *Store) Rel(p string) (string, error) {
	if !filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	abs := p
	if r, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		abs = filepath.Join(r, filepath.Base(p))
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &safety.PathError{Code: safety.CodeOutsideRoot, Path: p, Message: "path is outside the records directory"}
	}
	return rel, nil
}

// Read returns the content of a record file.
func (s *Store) Read(relPath string) (string, error) {
	abs, err := safety.ValidateRelPath(s.root, relPath)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", &safety.PathError{Code: safety.CodeNotAFile, Path: relPath, Message: "path is a directory"}
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Write replaces a record file atomically, creating parent directories.
// It returns the absolute path written.
func (s *Store) Write(relPath, content string) (string, error) {
	abs, err := safety.ValidateWritePath(s.root, relPath)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(abs)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", relPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, abs); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return abs, nil
}

// List returns the record files (*.txt) directly inside relDir, sorted.
func (s *Store) List(relDir string) ([]string, error) {
	if relDir == "" {
		relDir = "."
	}
	abs, err := safety.ValidateRelPath(s.root, relDir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), safety.RecordExtension) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
