// Package sandbox keeps package install paths inside the project root.
package sandbox

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Within checks that target, absolute or relative to root, names a path
// inside root. Containment is checked on the cleaned path before symlinks are
// followed, so a package directory that is a link to somewhere else (a path
// repository) is accepted. It returns the absolute path with symlinks resolved.
func Within(root, target string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving project root symlinks: %w", err)
	}

	candidate := target
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(absRoot, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !contains(absRoot, candidate) && !contains(realRoot, candidate) {
		return "", fmt.Errorf("path '%s' is outside the project root '%s'", target, absRoot)
	}

	// The package may not be installed yet, so resolve as much as exists.
	resolved, err := resolveExistingPath(candidate)
	if err != nil {
		return "", fmt.Errorf("resolving install path: %w", err)
	}
	return resolved, nil
}

func contains(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// resolveExistingPath resolves symlinks for the longest existing prefix of the path,
// then appends the non-existing suffix.
func resolveExistingPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == path {
		return path, nil
	}

	resolvedDir, err := resolveExistingPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}
