// Package safety confines record file access to one root directory.
package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Error codes carried by PathError.
const (
	CodeOutsideRoot  = "ERR_PATH_OUTSIDE_ROOT"
	CodeDeniedRead   = "ERR_DENIED_READ"
	CodeDeniedWrite  = "ERR_DENIED_WRITE"
	CodeNotAFile     = "ERR_NOT_A_FILE"
	RecordExtension  = ".txt"
	artifactsDirName = ".theraia"
)

// PathError reports a path rejected by policy.
type PathError struct {
	Code    string
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

// ResolveRoot makes root absolute and resolves symlinks where possible.
// An empty root means the working directory.
func ResolveRoot(root string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(%s): %w", root, err)
	}
	// A root that does not exist yet keeps its absolute form.
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// ValidateRelPath resolves relPath against absRoot and returns an absolute path
// inside it. Absolute inputs, parent traversal and symlink escapes are rejected,
// as are paths under .git/ and .theraia/.
func ValidateRelPath(absRoot, relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return "", &PathError{Code: CodeOutsideRoot, Path: relPath, Message: "absolute paths are not allowed"}
	}
	cleaned := filepath.Clean(relPath)
	candidate := filepath.Join(absRoot, cleaned)

	// Resolve the candidate, or its parent when the leaf does not exist yet,
	// so an escape through a symlinked directory is visible.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if parent, err := filepath.EvalSymlinks(filepath.Dir(candidate)); err == nil {
		candidate = filepath.Join(parent, filepath.Base(candidate))
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", &PathError{Code: CodeOutsideRoot, Path: relPath, Message: "path resolves outside the records directory"}
	}
	if underDenied(filepath.ToSlash(rel)) {
		return "", &PathError{Code: CodeDeniedRead, Path: relPath, Message: "paths under .git/ or .theraia/ are not allowed"}
	}
	return candidate, nil
}

// ValidateWritePath applies ValidateRelPath and additionally only allows
// record files (*.txt) to be written.
func ValidateWritePath(absRoot, relPath string) (string, error) {
	abs, err := ValidateRelPath(absRoot, relPath)
	if err != nil {
		if pe, ok := err.(*PathError); ok && pe.Code == CodeDeniedRead {
			pe.Code = CodeDeniedWrite
		}
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(abs), RecordExtension) {
		return "", &PathError{Code: CodeDeniedWrite, Path: relPath, Message: "only " + RecordExtension + " record files can be written"}
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return "", &PathError{Code: CodeNotAFile, Path: relPath, Message: "path is a directory"}
	}
	return abs, nil
}

func underDenied(rel string) bool {
	for _, d := range []string{".git", artifactsDirName} {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}
