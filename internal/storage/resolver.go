package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver maps stored relative pointers to absolute filesystem paths,
// constrained to a single storage root. Every filesystem access in the
// application goes through it; ad hoc path joining would reintroduce the
// traversal-bug class one call at a time.
type Resolver struct {
	root string
}

// NewResolver creates a Resolver for the given root. The root is made
// absolute and symlink-resolved once so later containment checks compare
// against the real directory.
func NewResolver(root string) (*Resolver, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root %s: %w", root, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return &Resolver{root: abs}, nil
}

// Root returns the absolute storage root.
func (r *Resolver) Root() string { return r.root }

// Resolve maps a root-relative pointer to an absolute path under the root.
// Pointers that are empty, absolute, contain traversal segments, or escape
// the root through a symlink are rejected with an error, never clamped.
func (r *Resolver) Resolve(pointer string) (string, error) {
	if pointer == "" {
		return "", fmt.Errorf("empty storage pointer")
	}
	// Pointers are stored with forward slashes regardless of platform.
	p := filepath.FromSlash(pointer)
	if filepath.IsAbs(p) || strings.HasPrefix(pointer, "/") || strings.HasPrefix(pointer, "\\") {
		return "", fmt.Errorf("absolute storage pointer rejected: %s", pointer)
	}
	if filepath.VolumeName(p) != "" {
		return "", fmt.Errorf("storage pointer with volume rejected: %s", pointer)
	}

	abs := filepath.Join(r.root, p)
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return "", fmt.Errorf("resolve pointer %s: %w", pointer, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage pointer escapes root: %s", pointer)
	}

	// If the target already exists, re-verify containment after following
	// symlinks so a planted link cannot redirect reads outside the root.
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		rel, err := filepath.Rel(r.root, real)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("storage pointer escapes root via symlink: %s", pointer)
		}
		return real, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("resolve pointer %s: %w", pointer, err)
	}

	return abs, nil
}
