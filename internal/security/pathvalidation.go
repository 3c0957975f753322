// Package security guards the file paths sonarmap writes to.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory checks that filePath, after resolving ".."
// components and symlinks, stays inside dir. Paths that do not exist yet
// are resolved through their nearest existing parent.
func ValidatePathWithinDirectory(filePath, dir string) error {
	path, err := canonical(filePath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}
	root, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", filePath, dir)
	}
	return nil
}

// canonical returns the absolute, symlink-free form of path. For a path
// that does not exist the deepest existing ancestor is resolved and the
// rest appended, so a symlinked parent cannot smuggle a new file out.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for parent := filepath.Dir(abs); ; parent = filepath.Dir(parent) {
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rest, _ := filepath.Rel(parent, abs)
			return filepath.Join(resolved, rest), nil
		}
		if parent == filepath.Dir(parent) {
			return abs, nil
		}
	}
}

// ProjectPath joins elems onto projectDir and rejects results that escape
// it.
func ProjectPath(projectDir string, elems ...string) (string, error) {
	path := filepath.Join(append([]string{projectDir}, elems...)...)
	if err := ValidatePathWithinDirectory(path, projectDir); err != nil {
		return "", err
	}
	return path, nil
}

// SanitizeFilename makes a safe file-name token from an arbitrary label.
// Characters other than ASCII letters, digits, dot, underscore and dash
// become a single underscore; the result is trimmed of leading and
// trailing dots and underscores and capped at 128 bytes.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
