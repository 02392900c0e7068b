package workspace

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnsafePath is returned for paths that could escape the project tree.
var ErrUnsafePath = errors.New("workspace: unsafe path")

// CheckRelPath validates a project-relative path and returns it in clean
// slash form. Paths containing "..", a leading separator or a drive letter
// are rejected without touching the filesystem.
func CheckRelPath(p string) (string, error) {
	raw := strings.TrimSpace(p)
	if raw == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	if strings.Contains(raw, "..") {
		return "", fmt.Errorf("%w: %q contains '..'", ErrUnsafePath, p)
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, `\`) {
		return "", fmt.Errorf("%w: %q is absolute", ErrUnsafePath, p)
	}
	if len(raw) >= 2 && raw[1] == ':' {
		return "", fmt.Errorf("%w: %q has a volume name", ErrUnsafePath, p)
	}
	if strings.ContainsRune(raw, 0) {
		return "", fmt.Errorf("%w: %q contains NUL", ErrUnsafePath, p)
	}
	clean := path.Clean(strings.ReplaceAll(raw, `\`, "/"))
	if clean == "." {
		return "", fmt.Errorf("%w: %q names the root", ErrUnsafePath, p)
	}
	return clean, nil
}

// CheckSlug validates a project slug used as a directory name.
func CheckSlug(slug string) error {
	switch {
	case strings.TrimSpace(slug) == "":
		return fmt.Errorf("%w: empty project", ErrUnsafePath)
	case strings.Contains(slug, ".."), strings.ContainsAny(slug, `/\:`), strings.HasPrefix(slug, "."):
		return fmt.Errorf("%w: project %q", ErrUnsafePath, slug)
	}
	return nil
}

// Slugify turns a display name into a directory-safe project slug:
// spaces become underscores and slashes become hyphens.
func Slugify(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, `\`, "-")
	s = strings.ReplaceAll(s, "..", "")
	s = strings.ReplaceAll(s, ":", "-")
	return strings.TrimLeft(s, ".")
}

// FlattenPath replaces path separators with underscores.
func FlattenPath(p string) string {
	p = strings.ReplaceAll(p, "/", "_")
	return strings.ReplaceAll(p, `\`, "_")
}
